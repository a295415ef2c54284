package simulator

import (
	"fmt"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/aristath/riimtools/internal/modules/circuit"
)

// MaxQubits bounds the statevector size (2^MaxQubits amplitudes).
const MaxQubits = 20

// stateVector holds 2^n amplitudes; bit q of a basis index is the value of qubit q.
type stateVector struct {
	amps      []complex128
	numQubits int
}

func newStateVector(numQubits int) *stateVector {
	amps := make([]complex128, 1<<numQubits)
	amps[0] = 1
	return &stateVector{amps: amps, numQubits: numQubits}
}

func (s *stateVector) reset() {
	for i := range s.amps {
		s.amps[i] = 0
	}
	s.amps[0] = 1
}

// apply applies a gate operation. Barriers are no-ops.
func (s *stateVector) apply(op circuit.Operation) error {
	if op.IsBarrier() {
		return nil
	}
	spec, ok := circuit.LookupGate(op.Gate)
	if !ok {
		return fmt.Errorf("%w: unknown gate %q", domain.ErrInvalidParameter, op.Gate)
	}
	m := spec.Matrix(op.Params)
	switch spec.Qubits {
	case 1:
		s.apply1(op.Qubits[0], m)
	case 2:
		s.apply2(op.Qubits[0], op.Qubits[1], m)
	default:
		return fmt.Errorf("%w: gate %s acts on %d qubits", domain.ErrInvalidParameter, op.Gate, spec.Qubits)
	}
	return nil
}

func (s *stateVector) apply1(q int, m []complex128) {
	bit := 1 << q
	for i := range s.amps {
		if i&bit != 0 {
			continue
		}
		j := i | bit
		a0, a1 := s.amps[i], s.amps[j]
		s.amps[i] = m[0]*a0 + m[1]*a1
		s.amps[j] = m[2]*a0 + m[3]*a1
	}
}

// apply2 applies a 4x4 matrix whose basis index is 2*bit(q0) + bit(q1).
func (s *stateVector) apply2(q0, q1 int, m []complex128) {
	b0, b1 := 1<<q0, 1<<q1
	var idx [4]int
	var in [4]complex128
	for i := range s.amps {
		if i&b0 != 0 || i&b1 != 0 {
			continue
		}
		idx[0], idx[1], idx[2], idx[3] = i, i|b1, i|b0, i|b0|b1
		for k := 0; k < 4; k++ {
			in[k] = s.amps[idx[k]]
		}
		for r := 0; r < 4; r++ {
			s.amps[idx[r]] = m[4*r]*in[0] + m[4*r+1]*in[1] + m[4*r+2]*in[2] + m[4*r+3]*in[3]
		}
	}
}

var paulis = [4][]complex128{
	{1, 0, 0, 1},
	{0, 1, 1, 0},
	{0, -1i, 1i, 0},
	{1, 0, 0, -1},
}

// applyPauli applies Pauli index p (0=I, 1=X, 2=Y, 3=Z) to qubit q.
func (s *stateVector) applyPauli(q, p int) {
	if p == 0 {
		return
	}
	s.apply1(q, paulis[p])
}

// probabilities returns |amplitude|^2 per basis index.
func (s *stateVector) probabilities() []float64 {
	out := make([]float64, len(s.amps))
	for i, a := range s.amps {
		out[i] = real(a)*real(a) + imag(a)*imag(a)
	}
	return out
}

// outcome renders basis index as the classical bitstring of c (clbit NumClbits-1 first).
// flip reports whether the readout of a measured qubit is inverted.
func outcome(c *circuit.Circuit, index int, flip func(qubit int) bool) string {
	bits := make([]byte, c.NumClbits)
	for i := range bits {
		bits[i] = '0'
	}
	for _, m := range c.Measurements {
		v := (index >> m.Qubit) & 1
		if flip != nil && flip(m.Qubit) {
			v ^= 1
		}
		if v == 1 {
			bits[c.NumClbits-1-m.Clbit] = '1'
		}
	}
	return string(bits)
}
