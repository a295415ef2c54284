package circuit

import (
	"math"
	"math/cmplx"
	"sort"
)

// Barrier is a scheduling directive. It carries qubits but no unitary action.
const Barrier = "barrier"

// GateSpec describes a gate of the supported instruction set.
type GateSpec struct {
	Name   string
	Qubits int
	Params int
	// Inverse returns the name and parameters of the adjoint gate.
	Inverse func(params []float64) (string, []float64)
	// Matrix returns the row-major unitary. For two-qubit gates the basis index is
	// 2*bit(Qubits[0]) + bit(Qubits[1]).
	Matrix func(params []float64) []complex128
}

func adjoint(name string) func([]float64) (string, []float64) {
	return func(p []float64) (string, []float64) { return name, p }
}

func negatedInverse(name string) func([]float64) (string, []float64) {
	return func(p []float64) (string, []float64) {
		out := make([]float64, len(p))
		for i, v := range p {
			out[i] = -v
		}
		return name, out
	}
}

func constant(m []complex128) func([]float64) []complex128 {
	return func([]float64) []complex128 { return m }
}

var invSqrt2 = complex(1/math.Sqrt2, 0)

var gateTable = map[string]GateSpec{
	"id": {Name: "id", Qubits: 1, Inverse: adjoint("id"), Matrix: constant([]complex128{1, 0, 0, 1})},
	"x":  {Name: "x", Qubits: 1, Inverse: adjoint("x"), Matrix: constant([]complex128{0, 1, 1, 0})},
	"y":  {Name: "y", Qubits: 1, Inverse: adjoint("y"), Matrix: constant([]complex128{0, -1i, 1i, 0})},
	"z":  {Name: "z", Qubits: 1, Inverse: adjoint("z"), Matrix: constant([]complex128{1, 0, 0, -1})},
	"h": {Name: "h", Qubits: 1, Inverse: adjoint("h"),
		Matrix: constant([]complex128{invSqrt2, invSqrt2, invSqrt2, -invSqrt2})},
	"s":    {Name: "s", Qubits: 1, Inverse: adjoint("sdg"), Matrix: constant([]complex128{1, 0, 0, 1i})},
	"sdg":  {Name: "sdg", Qubits: 1, Inverse: adjoint("s"), Matrix: constant([]complex128{1, 0, 0, -1i})},
	"t":    {Name: "t", Qubits: 1, Inverse: adjoint("tdg"), Matrix: constant([]complex128{1, 0, 0, cmplx.Exp(1i * math.Pi / 4)})},
	"tdg":  {Name: "tdg", Qubits: 1, Inverse: adjoint("t"), Matrix: constant([]complex128{1, 0, 0, cmplx.Exp(-1i * math.Pi / 4)})},
	"sx":   {Name: "sx", Qubits: 1, Inverse: adjoint("sxdg"), Matrix: constant([]complex128{(1 + 1i) / 2, (1 - 1i) / 2, (1 - 1i) / 2, (1 + 1i) / 2})},
	"sxdg": {Name: "sxdg", Qubits: 1, Inverse: adjoint("sx"), Matrix: constant([]complex128{(1 - 1i) / 2, (1 + 1i) / 2, (1 + 1i) / 2, (1 - 1i) / 2})},
	"rx": {Name: "rx", Qubits: 1, Params: 1, Inverse: negatedInverse("rx"), Matrix: func(p []float64) []complex128 {
		c, s := complex(math.Cos(p[0]/2), 0), complex(math.Sin(p[0]/2), 0)
		return []complex128{c, -1i * s, -1i * s, c}
	}},
	"ry": {Name: "ry", Qubits: 1, Params: 1, Inverse: negatedInverse("ry"), Matrix: func(p []float64) []complex128 {
		c, s := complex(math.Cos(p[0]/2), 0), complex(math.Sin(p[0]/2), 0)
		return []complex128{c, -s, s, c}
	}},
	"rz": {Name: "rz", Qubits: 1, Params: 1, Inverse: negatedInverse("rz"), Matrix: func(p []float64) []complex128 {
		return []complex128{cmplx.Exp(complex(0, -p[0]/2)), 0, 0, cmplx.Exp(complex(0, p[0]/2))}
	}},
	"p": {Name: "p", Qubits: 1, Params: 1, Inverse: negatedInverse("p"), Matrix: func(p []float64) []complex128 {
		return []complex128{1, 0, 0, cmplx.Exp(complex(0, p[0]))}
	}},
	"u": {Name: "u", Qubits: 1, Params: 3,
		Inverse: func(p []float64) (string, []float64) { return "u", []float64{-p[0], -p[2], -p[1]} },
		Matrix: func(p []float64) []complex128 {
			theta, phi, lambda := p[0], p[1], p[2]
			c, s := complex(math.Cos(theta/2), 0), complex(math.Sin(theta/2), 0)
			return []complex128{
				c, -cmplx.Exp(complex(0, lambda)) * s,
				cmplx.Exp(complex(0, phi)) * s, cmplx.Exp(complex(0, phi+lambda)) * c,
			}
		}},

	"cx": {Name: "cx", Qubits: 2, Inverse: adjoint("cx"), Matrix: constant([]complex128{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 0, 1,
		0, 0, 1, 0,
	})},
	"cz": {Name: "cz", Qubits: 2, Inverse: adjoint("cz"), Matrix: constant([]complex128{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, -1,
	})},
	"swap": {Name: "swap", Qubits: 2, Inverse: adjoint("swap"), Matrix: constant([]complex128{
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, 1, 0, 0,
		0, 0, 0, 1,
	})},
	"rzz": {Name: "rzz", Qubits: 2, Params: 1, Inverse: negatedInverse("rzz"), Matrix: func(p []float64) []complex128 {
		a, b := cmplx.Exp(complex(0, -p[0]/2)), cmplx.Exp(complex(0, p[0]/2))
		return []complex128{
			a, 0, 0, 0,
			0, b, 0, 0,
			0, 0, b, 0,
			0, 0, 0, a,
		}
	}},
	"cp": {Name: "cp", Qubits: 2, Params: 1, Inverse: negatedInverse("cp"), Matrix: func(p []float64) []complex128 {
		return []complex128{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, cmplx.Exp(complex(0, p[0])),
		}
	}},
}

// aliases accepted by the QASM parser
var gateAliases = map[string]string{
	"u3":   "u",
	"u1":   "p",
	"cu1":  "cp",
	"cnot": "cx",
}

// LookupGate returns the spec of a unitary gate.
func LookupGate(name string) (GateSpec, bool) {
	spec, ok := gateTable[name]
	return spec, ok
}

// TwoQubitGates lists the two-qubit gate names of the instruction set in stable order.
func TwoQubitGates() []string {
	var names []string
	for name, spec := range gateTable {
		if spec.Qubits == 2 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SingleQubitGates lists the one-qubit gate names of the instruction set in stable order.
func SingleQubitGates() []string {
	var names []string
	for name, spec := range gateTable {
		if spec.Qubits == 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
