// Package folding scales the effective noise of a circuit by unitary folding of its
// two-qubit gates.
//
// A two-qubit gate G is followed by n pairs (G⁻¹, G). The circuit stays ideal-equivalent
// and each pair adds two noisy applications, so a circuit with m two-qubit gates and P pairs
// in total executes m + 2P noisy gates. The requested factor f asks for
// P = round((f-1)·m/2) pairs; the factor actually realised is (m + 2P)/m.
package folding

import (
	"fmt"
	"math"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/aristath/riimtools/internal/modules/circuit"
)

// Strategy selects how the requested pairs are distributed over the two-qubit gates.
type Strategy string

const (
	// StrategyGlobal spreads pairs evenly: every gate gets ⌊P/m⌋ pairs and the first P mod m
	// gates in circuit order get one more.
	StrategyGlobal Strategy = "global"
	// StrategyLocal folds gates in circuit order to depth d = ⌈(f-1)/2⌉: the first ⌊P/d⌋ gates
	// get d pairs, the next one gets P mod d, the rest none.
	StrategyLocal Strategy = "local"
)

// MaxPairs bounds the number of (G⁻¹, G) pairs one fold may insert. Larger factors are
// rejected with domain.ErrInvalidScaleFactor.
const MaxPairs = 1 << 20

// ParseStrategy maps a strategy name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case StrategyGlobal, "":
		return StrategyGlobal, nil
	case StrategyLocal:
		return StrategyLocal, nil
	}
	return "", fmt.Errorf("%w: unknown folding strategy %q", domain.ErrInvalidParameter, name)
}

// ScaleCircuit folds c globally to approximately scaleFactor times its two-qubit noise.
func ScaleCircuit(c *circuit.Circuit, scaleFactor float64) (*circuit.Circuit, error) {
	return Scale(c, scaleFactor, StrategyGlobal)
}

// Scale returns a folded copy of c. c itself is never modified. A circuit without
// two-qubit gates comes back unchanged for every valid factor.
func Scale(c *circuit.Circuit, scaleFactor float64, strategy Strategy) (*circuit.Circuit, error) {
	if err := domain.ValidateScaleFactor(scaleFactor); err != nil {
		return nil, err
	}
	pairs, err := Pairs(CountTwoQubitGates(c), scaleFactor, strategy)
	if err != nil {
		return nil, err
	}

	out := c.Clone()
	if len(pairs) == 0 {
		return out, nil
	}

	ops := make([]circuit.Operation, 0, len(c.Ops)+2*sum(pairs))
	gate := 0
	for _, op := range c.Ops {
		ops = append(ops, op.Clone())
		if !op.IsTwoQubit() {
			continue
		}
		n := pairs[gate]
		gate++
		if n == 0 {
			continue
		}
		inv, err := op.Inverse()
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			ops = append(ops, inv.Clone(), op.Clone())
		}
	}
	out.Ops = ops
	return out, nil
}

// Pairs returns the number of (G⁻¹, G) pairs appended after each of m two-qubit gates.
func Pairs(m int, scaleFactor float64, strategy Strategy) ([]int, error) {
	if err := domain.ValidateScaleFactor(scaleFactor); err != nil {
		return nil, err
	}
	if m <= 0 {
		return nil, nil
	}
	raw := math.Round((scaleFactor - 1) * float64(m) / 2)
	if raw > MaxPairs {
		return nil, fmt.Errorf("%w: %v needs %g folding pairs for %d two-qubit gates, at most %d allowed",
			domain.ErrInvalidScaleFactor, scaleFactor, raw, m, MaxPairs)
	}
	total := int(raw)
	pairs := make([]int, m)

	switch strategy {
	case StrategyGlobal, "":
		base, extra := total/m, total%m
		for i := range pairs {
			pairs[i] = base
			if i < extra {
				pairs[i]++
			}
		}
	case StrategyLocal:
		if total == 0 {
			return pairs, nil
		}
		depth := int(math.Ceil((scaleFactor - 1) / 2))
		full, partial := total/depth, total%depth
		for i := 0; i < full && i < m; i++ {
			pairs[i] = depth
		}
		if full < m {
			pairs[full] = partial
		}
	default:
		return nil, fmt.Errorf("%w: unknown folding strategy %q", domain.ErrInvalidParameter, strategy)
	}
	return pairs, nil
}

// CountTwoQubitGates returns the number of two-qubit gate applications in c.
func CountTwoQubitGates(c *circuit.Circuit) int {
	return c.TwoQubitGateCount()
}

// RealizedFactor is the ratio of noisy two-qubit applications in folded to those in original.
// It is 1 when original has no two-qubit gates.
func RealizedFactor(original, folded *circuit.Circuit) float64 {
	m := CountTwoQubitGates(original)
	if m == 0 {
		return 1
	}
	return float64(CountTwoQubitGates(folded)) / float64(m)
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}
