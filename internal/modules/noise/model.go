// Package noise provides the depolarizing noise models attached to circuit executions.
package noise

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/aristath/riimtools/internal/modules/circuit"
)

// QubitError is a depolarizing error that only applies to a gate on a specific qubit tuple.
type QubitError struct {
	Gate        string  `json:"gate"`
	Qubits      []int   `json:"qubits"`
	Probability float64 `json:"probability"`
}

// Model attaches depolarizing errors to gates and bit-flip errors to measurements.
//
// Gate errors are looked up by gate name (arity follows from the gate table); a QubitError
// for the exact qubit tuple overrides the gate-wide value. Models are values: the mutators
// below are for construction, and every derived model (Scaled, Clone) is a fresh copy.
type Model struct {
	Gates   map[string]float64 `json:"gates"`
	Qubit   []QubitError       `json:"qubit_errors,omitempty"`
	Readout map[int]float64    `json:"readout,omitempty"`
}

// NewModel returns an empty (noiseless) model.
func NewModel() *Model {
	return &Model{Gates: make(map[string]float64)}
}

// GenerateDepolarizing returns a model with a depolarizing channel of probability errorParam
// on every two-qubit gate type, independent of the qubit pair.
func GenerateDepolarizing(qubitCount int, errorParam float64) (*Model, error) {
	if qubitCount < 1 {
		return nil, fmt.Errorf("%w: qubit count must be >= 1, got %d", domain.ErrInvalidParameter, qubitCount)
	}
	if err := checkProbability(errorParam); err != nil {
		return nil, err
	}
	m := NewModel()
	for _, gate := range circuit.TwoQubitGates() {
		m.Gates[gate] = errorParam
	}
	return m, nil
}

// AddGateError sets the depolarizing probability for every application of gate.
func (m *Model) AddGateError(gate string, p float64) error {
	if _, ok := circuit.LookupGate(gate); !ok {
		return fmt.Errorf("%w: unknown gate %q", domain.ErrInvalidParameter, gate)
	}
	if err := checkProbability(p); err != nil {
		return err
	}
	if m.Gates == nil {
		m.Gates = make(map[string]float64)
	}
	m.Gates[gate] = p
	return nil
}

// AddQubitError sets the depolarizing probability for gate on exactly qubits.
func (m *Model) AddQubitError(gate string, qubits []int, p float64) error {
	spec, ok := circuit.LookupGate(gate)
	if !ok {
		return fmt.Errorf("%w: unknown gate %q", domain.ErrInvalidParameter, gate)
	}
	if len(qubits) != spec.Qubits {
		return fmt.Errorf("%w: gate %s acts on %d qubits, got %d", domain.ErrInvalidParameter, gate, spec.Qubits, len(qubits))
	}
	if err := checkProbability(p); err != nil {
		return err
	}
	for i, qe := range m.Qubit {
		if qe.Gate == gate && equalQubits(qe.Qubits, qubits) {
			m.Qubit[i].Probability = p
			return nil
		}
	}
	m.Qubit = append(m.Qubit, QubitError{Gate: gate, Qubits: append([]int(nil), qubits...), Probability: p})
	return nil
}

// SetReadoutError sets the probability that a measurement of qubit reports the flipped bit.
func (m *Model) SetReadoutError(qubit int, p float64) error {
	if qubit < 0 {
		return fmt.Errorf("%w: negative qubit index %d", domain.ErrInvalidParameter, qubit)
	}
	if err := checkProbability(p); err != nil {
		return err
	}
	if m.Readout == nil {
		m.Readout = make(map[int]float64)
	}
	m.Readout[qubit] = p
	return nil
}

// ErrorFor returns the depolarizing probability applied after gate on qubits.
func (m *Model) ErrorFor(gate string, qubits []int) float64 {
	if m == nil {
		return 0
	}
	for _, qe := range m.Qubit {
		if qe.Gate == gate && equalQubits(qe.Qubits, qubits) {
			return qe.Probability
		}
	}
	return m.Gates[gate]
}

// ReadoutError returns the measurement flip probability of qubit.
func (m *Model) ReadoutError(qubit int) float64 {
	if m == nil {
		return 0
	}
	return m.Readout[qubit]
}

// IsNoiseless reports whether the model attaches no error with non-zero probability.
func (m *Model) IsNoiseless() bool {
	if m == nil {
		return true
	}
	for _, p := range m.Gates {
		if p > 0 {
			return false
		}
	}
	for _, qe := range m.Qubit {
		if qe.Probability > 0 {
			return false
		}
	}
	for _, p := range m.Readout {
		if p > 0 {
			return false
		}
	}
	return true
}

// NoisyGates lists the gates that carry an error, sorted.
func (m *Model) NoisyGates() []string {
	seen := make(map[string]bool)
	for gate, p := range m.Gates {
		if p > 0 {
			seen[gate] = true
		}
	}
	for _, qe := range m.Qubit {
		if qe.Probability > 0 {
			seen[qe.Gate] = true
		}
	}
	gates := make([]string, 0, len(seen))
	for g := range seen {
		gates = append(gates, g)
	}
	sort.Strings(gates)
	return gates
}

// Scaled returns a new model whose gate error probabilities are multiplied by factor and
// clipped to 1. Readout errors are carried over unchanged.
func (m *Model) Scaled(factor float64) (*Model, error) {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor < 0 {
		return nil, fmt.Errorf("%w: noise scale %v", domain.ErrInvalidParameter, factor)
	}
	out := m.Clone()
	for gate, p := range out.Gates {
		out.Gates[gate] = math.Min(1, p*factor)
	}
	for i := range out.Qubit {
		out.Qubit[i].Probability = math.Min(1, out.Qubit[i].Probability*factor)
	}
	return out, nil
}

// Clone returns a deep copy.
func (m *Model) Clone() *Model {
	if m == nil {
		return NewModel()
	}
	out := &Model{Gates: make(map[string]float64, len(m.Gates))}
	for gate, p := range m.Gates {
		out.Gates[gate] = p
	}
	for _, qe := range m.Qubit {
		out.Qubit = append(out.Qubit, QubitError{Gate: qe.Gate, Qubits: append([]int(nil), qe.Qubits...), Probability: qe.Probability})
	}
	if m.Readout != nil {
		out.Readout = make(map[int]float64, len(m.Readout))
		for q, p := range m.Readout {
			out.Readout[q] = p
		}
	}
	return out
}

// Validate checks every probability and gate reference in the model.
func (m *Model) Validate() error {
	for gate, p := range m.Gates {
		if _, ok := circuit.LookupGate(gate); !ok {
			return fmt.Errorf("%w: unknown gate %q", domain.ErrInvalidParameter, gate)
		}
		if err := checkProbability(p); err != nil {
			return fmt.Errorf("gate %s: %w", gate, err)
		}
	}
	for _, qe := range m.Qubit {
		spec, ok := circuit.LookupGate(qe.Gate)
		if !ok {
			return fmt.Errorf("%w: unknown gate %q", domain.ErrInvalidParameter, qe.Gate)
		}
		if len(qe.Qubits) != spec.Qubits {
			return fmt.Errorf("%w: gate %s error on %d qubits", domain.ErrInvalidParameter, qe.Gate, len(qe.Qubits))
		}
		if err := checkProbability(qe.Probability); err != nil {
			return fmt.Errorf("gate %s%v: %w", qe.Gate, qe.Qubits, err)
		}
	}
	for q, p := range m.Readout {
		if q < 0 {
			return fmt.Errorf("%w: negative readout qubit %d", domain.ErrInvalidParameter, q)
		}
		if err := checkProbability(p); err != nil {
			return fmt.Errorf("readout q%d: %w", q, err)
		}
	}
	return nil
}

// Decode parses a JSON-encoded model and validates it.
func Decode(data []byte) (*Model, error) {
	m := NewModel()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: decode noise model: %v", domain.ErrInvalidParameter, err)
	}
	if m.Gates == nil {
		m.Gates = make(map[string]float64)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func checkProbability(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: probability %v outside [0, 1]", domain.ErrInvalidParameter, p)
	}
	return nil
}

func equalQubits(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
