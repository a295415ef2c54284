// Package circuit provides the gate-level circuit model consumed by the folding and
// execution layers. Circuits are values: every transformation works on a clone.
package circuit

import (
	"fmt"

	"github.com/aristath/riimtools/internal/domain"
)

// Operation is one gate application (or barrier) in circuit order.
type Operation struct {
	Gate   string    `json:"gate"`
	Qubits []int     `json:"qubits"`
	Params []float64 `json:"params,omitempty"`
}

// IsBarrier reports whether the operation is a scheduling directive.
func (o Operation) IsBarrier() bool {
	return o.Gate == Barrier
}

// IsTwoQubit reports whether the operation is a two-qubit unitary gate.
func (o Operation) IsTwoQubit() bool {
	spec, ok := gateTable[o.Gate]
	return ok && spec.Qubits == 2
}

// Inverse returns the adjoint operation acting on the same qubits.
func (o Operation) Inverse() (Operation, error) {
	spec, ok := gateTable[o.Gate]
	if !ok {
		return Operation{}, fmt.Errorf("%w: gate %q has no inverse", domain.ErrInvalidParameter, o.Gate)
	}
	name, params := spec.Inverse(o.Params)
	return Operation{Gate: name, Qubits: cloneInts(o.Qubits), Params: cloneFloats(params)}, nil
}

// Clone returns a deep copy of the operation.
func (o Operation) Clone() Operation {
	return Operation{Gate: o.Gate, Qubits: cloneInts(o.Qubits), Params: cloneFloats(o.Params)}
}

// Measurement binds a qubit to a classical bit. Measurements are applied after all operations.
type Measurement struct {
	Qubit int `json:"qubit"`
	Clbit int `json:"clbit"`
}

// Circuit is an ordered list of gate operations over NumQubits qubits followed by the
// measurement bindings into NumClbits classical bits.
type Circuit struct {
	Name         string        `json:"name,omitempty"`
	NumQubits    int           `json:"num_qubits"`
	NumClbits    int           `json:"num_clbits"`
	Ops          []Operation   `json:"ops"`
	Measurements []Measurement `json:"measurements"`
}

// New creates an empty circuit.
func New(numQubits, numClbits int) (*Circuit, error) {
	if numQubits < 1 {
		return nil, fmt.Errorf("%w: circuit needs at least one qubit, got %d", domain.ErrInvalidParameter, numQubits)
	}
	if numClbits < 0 {
		return nil, fmt.Errorf("%w: negative classical bit count %d", domain.ErrInvalidParameter, numClbits)
	}
	return &Circuit{NumQubits: numQubits, NumClbits: numClbits}, nil
}

// Append validates op against the circuit and appends a copy of it.
func (c *Circuit) Append(op Operation) error {
	if err := c.checkOperation(op); err != nil {
		return err
	}
	c.Ops = append(c.Ops, op.Clone())
	return nil
}

// Gate appends a gate by name.
func (c *Circuit) Gate(name string, qubits []int, params ...float64) error {
	return c.Append(Operation{Gate: name, Qubits: qubits, Params: params})
}

// Measure binds qubit to clbit.
func (c *Circuit) Measure(qubit, clbit int) error {
	if qubit < 0 || qubit >= c.NumQubits {
		return fmt.Errorf("%w: measured qubit %d out of range [0,%d)", domain.ErrInvalidParameter, qubit, c.NumQubits)
	}
	if clbit < 0 || clbit >= c.NumClbits {
		return fmt.Errorf("%w: classical bit %d out of range [0,%d)", domain.ErrInvalidParameter, clbit, c.NumClbits)
	}
	for _, m := range c.Measurements {
		if m.Clbit == clbit {
			return fmt.Errorf("%w: classical bit %d already bound to qubit %d", domain.ErrInvalidParameter, clbit, m.Qubit)
		}
	}
	c.Measurements = append(c.Measurements, Measurement{Qubit: qubit, Clbit: clbit})
	return nil
}

// MeasureAll adds classical bits if needed and measures qubit i into clbit i.
func (c *Circuit) MeasureAll() error {
	if c.NumClbits < c.NumQubits {
		c.NumClbits = c.NumQubits
	}
	c.Measurements = nil
	for q := 0; q < c.NumQubits; q++ {
		if err := c.Measure(q, q); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy; the copy shares no slices with c.
func (c *Circuit) Clone() *Circuit {
	out := &Circuit{
		Name:      c.Name,
		NumQubits: c.NumQubits,
		NumClbits: c.NumClbits,
	}
	if c.Ops != nil {
		out.Ops = make([]Operation, len(c.Ops))
		for i, op := range c.Ops {
			out.Ops[i] = op.Clone()
		}
	}
	if c.Measurements != nil {
		out.Measurements = make([]Measurement, len(c.Measurements))
		copy(out.Measurements, c.Measurements)
	}
	return out
}

// Validate checks every operation and measurement against the circuit dimensions.
func (c *Circuit) Validate() error {
	if c.NumQubits < 1 {
		return fmt.Errorf("%w: circuit needs at least one qubit", domain.ErrInvalidParameter)
	}
	for i, op := range c.Ops {
		if err := c.checkOperation(op); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	seen := make(map[int]bool, len(c.Measurements))
	for _, m := range c.Measurements {
		if m.Qubit < 0 || m.Qubit >= c.NumQubits || m.Clbit < 0 || m.Clbit >= c.NumClbits {
			return fmt.Errorf("%w: measurement q[%d] -> c[%d] out of range", domain.ErrInvalidParameter, m.Qubit, m.Clbit)
		}
		if seen[m.Clbit] {
			return fmt.Errorf("%w: classical bit %d measured twice", domain.ErrInvalidParameter, m.Clbit)
		}
		seen[m.Clbit] = true
	}
	return nil
}

// TwoQubitGateCount returns the number of two-qubit gate applications.
func (c *Circuit) TwoQubitGateCount() int {
	n := 0
	for _, op := range c.Ops {
		if op.IsTwoQubit() {
			n++
		}
	}
	return n
}

// GateCounts tallies operations by gate name (barriers excluded).
func (c *Circuit) GateCounts() map[string]int {
	counts := make(map[string]int)
	for _, op := range c.Ops {
		if op.IsBarrier() {
			continue
		}
		counts[op.Gate]++
	}
	return counts
}

func (c *Circuit) checkOperation(op Operation) error {
	if op.IsBarrier() {
		for _, q := range op.Qubits {
			if q < 0 || q >= c.NumQubits {
				return fmt.Errorf("%w: barrier qubit %d out of range", domain.ErrInvalidParameter, q)
			}
		}
		return nil
	}
	spec, ok := gateTable[op.Gate]
	if !ok {
		return fmt.Errorf("%w: unknown gate %q", domain.ErrInvalidParameter, op.Gate)
	}
	if len(op.Qubits) != spec.Qubits {
		return fmt.Errorf("%w: gate %s acts on %d qubits, got %d", domain.ErrInvalidParameter, op.Gate, spec.Qubits, len(op.Qubits))
	}
	if len(op.Params) != spec.Params {
		return fmt.Errorf("%w: gate %s takes %d parameters, got %d", domain.ErrInvalidParameter, op.Gate, spec.Params, len(op.Params))
	}
	for _, q := range op.Qubits {
		if q < 0 || q >= c.NumQubits {
			return fmt.Errorf("%w: gate %s qubit %d out of range [0,%d)", domain.ErrInvalidParameter, op.Gate, q, c.NumQubits)
		}
	}
	if spec.Qubits == 2 && op.Qubits[0] == op.Qubits[1] {
		return fmt.Errorf("%w: gate %s needs distinct qubits", domain.ErrInvalidParameter, op.Gate)
	}
	return nil
}

func cloneInts(in []int) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	copy(out, in)
	return out
}

func cloneFloats(in []float64) []float64 {
	if in == nil {
		return nil
	}
	out := make([]float64, len(in))
	copy(out, in)
	return out
}
