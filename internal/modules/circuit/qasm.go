package circuit

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/aristath/riimtools/internal/domain"
)

// QASM subset accepted by ParseQASM (OpenQASM 2.0 flavoured):
//
// program    ::= statement*
// statement  ::= header | include | qreg | creg | gate | barrier | measure | comment
// header     ::= "OPENQASM" version ";"
// include    ::= "include" string ";"
// qreg       ::= "qreg" ident "[" number "]" ";"
// creg       ::= "creg" ident "[" number "]" ";"
// gate       ::= name ["(" expr {"," expr} ")"] qref {"," qref} ";"
// barrier    ::= "barrier" (ident | qref {"," qref}) ";"
// measure    ::= "measure" qref "->" cref ";"
// expr       ::= arithmetic over numbers and "pi" with + - * / and parentheses
// comment    ::= "//" text

// ParseQASM parses a single-register QASM program into a Circuit.
func ParseQASM(src string) (*Circuit, error) {
	p := &qasmParser{}
	for lineNum, line := range strings.Split(src, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		for _, stmt := range strings.Split(line, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if err := p.statement(stmt); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidParameter, lineNum+1, err)
			}
		}
	}
	if p.circuit == nil {
		return nil, fmt.Errorf("%w: no qreg declared", domain.ErrInvalidParameter)
	}
	if err := p.circuit.Validate(); err != nil {
		return nil, err
	}
	return p.circuit, nil
}

type qasmParser struct {
	circuit *Circuit
	qreg    string
	creg    string
}

func (p *qasmParser) statement(stmt string) error {
	keyword, rest := splitKeyword(stmt)
	switch keyword {
	case "OPENQASM", "include":
		return nil
	case "qreg":
		if p.circuit != nil {
			return fmt.Errorf("only one qreg is supported")
		}
		name, size, err := parseRef(rest)
		if err != nil {
			return fmt.Errorf("invalid qreg: %v", err)
		}
		c, err := New(size, 0)
		if err != nil {
			return err
		}
		p.circuit = c
		p.qreg = name
		return nil
	case "creg":
		if p.creg != "" {
			return fmt.Errorf("only one creg is supported")
		}
		if p.circuit == nil {
			return fmt.Errorf("creg before qreg")
		}
		name, size, err := parseRef(rest)
		if err != nil {
			return fmt.Errorf("invalid creg: %v", err)
		}
		p.creg = name
		p.circuit.NumClbits = size
		return nil
	}

	if p.circuit == nil {
		return fmt.Errorf("statement before qreg: %q", stmt)
	}

	switch keyword {
	case "measure":
		return p.measure(rest)
	case Barrier:
		return p.barrier(rest)
	}
	return p.gate(stmt)
}

func (p *qasmParser) measure(rest string) error {
	parts := strings.Split(rest, "->")
	if len(parts) != 2 {
		return fmt.Errorf("measure needs 'q[i] -> c[j]'")
	}
	qname, q, err := parseRef(parts[0])
	if err != nil {
		return err
	}
	cname, cb, err := parseRef(parts[1])
	if err != nil {
		return err
	}
	if qname != p.qreg || cname != p.creg {
		return fmt.Errorf("unknown register in measure")
	}
	return p.circuit.Measure(q, cb)
}

func (p *qasmParser) barrier(rest string) error {
	rest = strings.TrimSpace(rest)
	if rest == p.qreg {
		qubits := make([]int, p.circuit.NumQubits)
		for i := range qubits {
			qubits[i] = i
		}
		return p.circuit.Append(Operation{Gate: Barrier, Qubits: qubits})
	}
	qubits, err := p.qubitList(rest)
	if err != nil {
		return err
	}
	return p.circuit.Append(Operation{Gate: Barrier, Qubits: qubits})
}

func (p *qasmParser) gate(stmt string) error {
	nameEnd := strings.IndexAny(stmt, "( \t")
	if nameEnd < 0 {
		return fmt.Errorf("gate %q has no operands", stmt)
	}
	name := stmt[:nameEnd]
	operands := strings.TrimSpace(stmt[nameEnd:])
	var paramSrc string
	if strings.HasPrefix(operands, "(") {
		closeIdx := strings.LastIndex(operands, ")")
		if closeIdx < 0 {
			return fmt.Errorf("unbalanced parameter list in %q", stmt)
		}
		paramSrc = operands[1:closeIdx]
		operands = operands[closeIdx+1:]
	}

	if alias, ok := gateAliases[name]; ok {
		name = alias
	}
	if _, ok := gateTable[name]; !ok {
		return fmt.Errorf("unsupported gate %q", name)
	}

	var params []float64
	if strings.TrimSpace(paramSrc) != "" {
		for _, expr := range strings.Split(paramSrc, ",") {
			v, err := evalExpr(expr)
			if err != nil {
				return fmt.Errorf("gate %s: %v", name, err)
			}
			params = append(params, v)
		}
	}
	qubits, err := p.qubitList(operands)
	if err != nil {
		return err
	}
	return p.circuit.Gate(name, qubits, params...)
}

func (p *qasmParser) qubitList(src string) ([]int, error) {
	var qubits []int
	for _, ref := range strings.Split(src, ",") {
		name, idx, err := parseRef(ref)
		if err != nil {
			return nil, err
		}
		if name != p.qreg {
			return nil, fmt.Errorf("unknown register %q", name)
		}
		qubits = append(qubits, idx)
	}
	return qubits, nil
}

func splitKeyword(stmt string) (string, string) {
	idx := strings.IndexFunc(stmt, unicode.IsSpace)
	if idx < 0 {
		return stmt, ""
	}
	return stmt[:idx], strings.TrimSpace(stmt[idx:])
}

// parseRef parses "name[index]".
func parseRef(ref string) (string, int, error) {
	ref = strings.TrimSpace(ref)
	open := strings.Index(ref, "[")
	closeIdx := strings.Index(ref, "]")
	if open <= 0 || closeIdx <= open+1 || closeIdx != len(ref)-1 {
		return "", 0, fmt.Errorf("invalid reference %q", ref)
	}
	idx, err := strconv.Atoi(strings.TrimSpace(ref[open+1 : closeIdx]))
	if err != nil || idx < 0 {
		return "", 0, fmt.Errorf("invalid index in %q", ref)
	}
	return strings.TrimSpace(ref[:open]), idx, nil
}

// EmitQASM renders c as an OpenQASM 2.0 program accepted by ParseQASM.
func EmitQASM(c *Circuit) string {
	var b strings.Builder
	b.WriteString("OPENQASM 2.0;\n")
	b.WriteString("include \"qelib1.inc\";\n")
	fmt.Fprintf(&b, "qreg q[%d];\n", c.NumQubits)
	if c.NumClbits > 0 {
		fmt.Fprintf(&b, "creg c[%d];\n", c.NumClbits)
	}
	for _, op := range c.Ops {
		b.WriteString(op.Gate)
		if len(op.Params) > 0 {
			params := make([]string, len(op.Params))
			for i, v := range op.Params {
				params[i] = strconv.FormatFloat(v, 'g', -1, 64)
			}
			fmt.Fprintf(&b, "(%s)", strings.Join(params, ","))
		}
		refs := make([]string, len(op.Qubits))
		for i, q := range op.Qubits {
			refs[i] = fmt.Sprintf("q[%d]", q)
		}
		fmt.Fprintf(&b, " %s;\n", strings.Join(refs, ","))
	}
	for _, m := range c.Measurements {
		fmt.Fprintf(&b, "measure q[%d] -> c[%d];\n", m.Qubit, m.Clbit)
	}
	return b.String()
}

// evalExpr evaluates a parameter expression such as "-pi/2" or "3*pi/4".
func evalExpr(src string) (float64, error) {
	e := &exprParser{src: strings.ReplaceAll(src, " ", "")}
	if e.src == "" {
		return 0, fmt.Errorf("empty parameter")
	}
	v, err := e.sum()
	if err != nil {
		return 0, err
	}
	if e.pos != len(e.src) {
		return 0, fmt.Errorf("unexpected %q in parameter %q", e.src[e.pos:], src)
	}
	return v, nil
}

type exprParser struct {
	src string
	pos int
}

func (e *exprParser) peek() byte {
	if e.pos < len(e.src) {
		return e.src[e.pos]
	}
	return 0
}

func (e *exprParser) sum() (float64, error) {
	v, err := e.product()
	if err != nil {
		return 0, err
	}
	for {
		switch e.peek() {
		case '+':
			e.pos++
			r, err := e.product()
			if err != nil {
				return 0, err
			}
			v += r
		case '-':
			e.pos++
			r, err := e.product()
			if err != nil {
				return 0, err
			}
			v -= r
		default:
			return v, nil
		}
	}
}

func (e *exprParser) product() (float64, error) {
	v, err := e.unary()
	if err != nil {
		return 0, err
	}
	for {
		switch e.peek() {
		case '*':
			e.pos++
			r, err := e.unary()
			if err != nil {
				return 0, err
			}
			v *= r
		case '/':
			e.pos++
			r, err := e.unary()
			if err != nil {
				return 0, err
			}
			if r == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= r
		default:
			return v, nil
		}
	}
}

func (e *exprParser) unary() (float64, error) {
	switch e.peek() {
	case '-':
		e.pos++
		v, err := e.unary()
		return -v, err
	case '+':
		e.pos++
		return e.unary()
	case '(':
		e.pos++
		v, err := e.sum()
		if err != nil {
			return 0, err
		}
		if e.peek() != ')' {
			return 0, fmt.Errorf("missing ')'")
		}
		e.pos++
		return v, nil
	}
	if strings.HasPrefix(e.src[e.pos:], "pi") {
		e.pos += 2
		return math.Pi, nil
	}
	start := e.pos
	for e.pos < len(e.src) {
		ch := e.src[e.pos]
		isExp := (ch == 'e' || ch == 'E') && e.pos > start
		isExpSign := (ch == '-' || ch == '+') && e.pos > start && (e.src[e.pos-1] == 'e' || e.src[e.pos-1] == 'E')
		if (ch >= '0' && ch <= '9') || ch == '.' || isExp || isExpSign {
			e.pos++
			continue
		}
		break
	}
	if start == e.pos {
		return 0, fmt.Errorf("expected number at %q", e.src[start:])
	}
	return strconv.ParseFloat(e.src[start:e.pos], 64)
}
