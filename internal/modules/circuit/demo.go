package circuit

// DemoCircuit returns the two-qubit scenario circuit: a Hadamard on q0, four alternating
// CNOTs (0→1, 1→0, 0→1, 1→0) and measurement of both qubits. Its ideal ZZ parity is +1.
func DemoCircuit() *Circuit {
	c := &Circuit{Name: "alternating_cx", NumQubits: 2, NumClbits: 2}
	c.Ops = []Operation{
		{Gate: "h", Qubits: []int{0}},
		{Gate: "cx", Qubits: []int{0, 1}},
		{Gate: "cx", Qubits: []int{1, 0}},
		{Gate: "cx", Qubits: []int{0, 1}},
		{Gate: "cx", Qubits: []int{1, 0}},
	}
	c.Measurements = []Measurement{{Qubit: 0, Clbit: 0}, {Qubit: 1, Clbit: 1}}
	return c
}
