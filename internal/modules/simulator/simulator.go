// Package simulator provides an in-process statevector backend implementing execution.Executor.
//
// Noisy circuits are sampled shot by shot as stochastic trajectories: after every gate that
// carries a depolarizing probability p, a uniformly random Pauli on the gate's qubits
// (identity included) is applied with probability p. Readout errors flip the measured bit.
// Circuits without gate noise are sampled from their exact output distribution.
package simulator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/aristath/riimtools/internal/execution"
	"github.com/aristath/riimtools/internal/modules/circuit"
	"github.com/aristath/riimtools/internal/modules/noise"
)

// BackendName identifies results produced by the simulator.
const BackendName = "statevector_simulator"

// how often trajectory sampling checks for cancellation
const cancelCheckInterval = 256

// Simulator executes circuits on a local statevector.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
	log zerolog.Logger
}

// New creates a simulator whose sampling is fully determined by seed.
func New(seed uint64, log zerolog.Logger) *Simulator {
	return &Simulator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		log: log.With().Str("component", "simulator").Logger(),
	}
}

// Execute runs req.Circuit for req.Shots shots under req.NoiseModel.
func (s *Simulator) Execute(ctx context.Context, req execution.Request) (*execution.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c := req.Circuit
	if c.NumQubits > MaxQubits {
		return nil, fmt.Errorf("%w: %d qubits exceeds simulator limit %d", domain.ErrInvalidParameter, c.NumQubits, MaxQubits)
	}
	for i, op := range c.Ops {
		if op.IsTwoQubit() && !req.CouplingMap.Allows(op.Qubits[0], op.Qubits[1]) {
			return nil, fmt.Errorf("%w: operation %d (%s on %v) violates the coupling map", domain.ErrInvalidParameter, i, op.Gate, op.Qubits)
		}
	}

	rng := s.child()
	var (
		counts domain.Counts
		err    error
	)
	if hasGateNoise(c, req.NoiseModel) {
		counts, err = sampleTrajectories(ctx, c, req.NoiseModel, req.Shots, rng)
	} else {
		counts, err = sampleExact(ctx, c, req.NoiseModel, req.Shots, rng)
	}
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Int("qubits", c.NumQubits).
		Int("ops", len(c.Ops)).
		Int("shots", req.Shots).
		Int("outcomes", len(counts)).
		Msg("Circuit executed")

	return &execution.Result{Counts: counts, Shots: req.Shots, Backend: BackendName}, nil
}

// child derives an independent generator so concurrent executions never share state.
func (s *Simulator) child() *rand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rand.New(rand.NewPCG(s.rng.Uint64(), s.rng.Uint64()))
}

// Probabilities returns the exact noiseless output distribution of c over its classical bits.
// Outcomes with probability below 1e-12 are omitted.
func Probabilities(c *circuit.Circuit) (map[string]float64, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.NumQubits > MaxQubits {
		return nil, fmt.Errorf("%w: %d qubits exceeds simulator limit %d", domain.ErrInvalidParameter, c.NumQubits, MaxQubits)
	}
	state := newStateVector(c.NumQubits)
	for _, op := range c.Ops {
		if err := state.apply(op); err != nil {
			return nil, err
		}
	}
	out := make(map[string]float64)
	for i, p := range state.probabilities() {
		if p < 1e-12 {
			continue
		}
		out[outcome(c, i, nil)] += p
	}
	return out, nil
}

func hasGateNoise(c *circuit.Circuit, model *noise.Model) bool {
	if model.IsNoiseless() {
		return false
	}
	for _, op := range c.Ops {
		if !op.IsBarrier() && model.ErrorFor(op.Gate, op.Qubits) > 0 {
			return true
		}
	}
	return false
}

func sampleExact(ctx context.Context, c *circuit.Circuit, model *noise.Model, shots int, rng *rand.Rand) (domain.Counts, error) {
	state := newStateVector(c.NumQubits)
	for _, op := range c.Ops {
		if err := state.apply(op); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cdf := state.probabilities()
	floats.CumSum(cdf, cdf)

	counts := make(domain.Counts)
	flip := readoutFlipper(model, rng)
	for shot := 0; shot < shots; shot++ {
		counts[outcome(c, sampleIndex(cdf, rng), flip)]++
	}
	return counts, nil
}

func sampleTrajectories(ctx context.Context, c *circuit.Circuit, model *noise.Model, shots int, rng *rand.Rand) (domain.Counts, error) {
	errs := make([]float64, len(c.Ops))
	for i, op := range c.Ops {
		if !op.IsBarrier() {
			errs[i] = model.ErrorFor(op.Gate, op.Qubits)
		}
	}

	state := newStateVector(c.NumQubits)
	cdf := make([]float64, len(state.amps))
	counts := make(domain.Counts)
	flip := readoutFlipper(model, rng)

	for shot := 0; shot < shots; shot++ {
		if shot%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		state.reset()
		for i, op := range c.Ops {
			if err := state.apply(op); err != nil {
				return nil, err
			}
			if errs[i] > 0 && rng.Float64() < errs[i] {
				for _, q := range op.Qubits {
					state.applyPauli(q, rng.IntN(4))
				}
			}
		}
		for i, a := range state.amps {
			cdf[i] = real(a)*real(a) + imag(a)*imag(a)
		}
		floats.CumSum(cdf, cdf)
		counts[outcome(c, sampleIndex(cdf, rng), flip)]++
	}
	return counts, nil
}

// sampleIndex draws a basis index from a cumulative distribution.
func sampleIndex(cdf []float64, rng *rand.Rand) int {
	u := rng.Float64() * cdf[len(cdf)-1]
	i := sort.SearchFloat64s(cdf, u)
	// skip zero-probability entries sharing the same cumulative value
	for i < len(cdf)-1 && cdf[i] <= u {
		i++
	}
	return i
}

func readoutFlipper(model *noise.Model, rng *rand.Rand) func(int) bool {
	if model == nil || len(model.Readout) == 0 {
		return nil
	}
	return func(q int) bool {
		p := model.ReadoutError(q)
		return p > 0 && rng.Float64() < p
	}
}
