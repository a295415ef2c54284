package folding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/aristath/riimtools/internal/modules/circuit"
	"github.com/aristath/riimtools/internal/modules/simulator"
)

func mixedCircuit(t *testing.T) *circuit.Circuit {
	t.Helper()
	c, err := circuit.New(3, 3)
	require.NoError(t, err)
	require.NoError(t, c.Gate("h", []int{0}))
	require.NoError(t, c.Gate("cx", []int{0, 1}))
	require.NoError(t, c.Gate("ry", []int{2}, 0.7))
	require.NoError(t, c.Gate("cp", []int{1, 2}, 1.3))
	require.NoError(t, c.Gate("rzz", []int{0, 2}, -0.4))
	require.NoError(t, c.Gate("rx", []int{1}, 0.3))
	require.NoError(t, c.MeasureAll())
	return c
}

func assertSameDistribution(t *testing.T, want, got map[string]float64) {
	t.Helper()
	for outcome, p := range want {
		assert.InDelta(t, p, got[outcome], 1e-9, outcome)
	}
	for outcome, p := range got {
		assert.InDelta(t, want[outcome], p, 1e-9, outcome)
	}
}

func TestScale_PreservesIdealDistribution(t *testing.T) {
	circuits := map[string]*circuit.Circuit{
		"demo":  circuit.DemoCircuit(),
		"mixed": mixedCircuit(t),
	}
	factors := []float64{1, 1.5, 2, 2.5, 3, 5}

	for name, c := range circuits {
		t.Run(name, func(t *testing.T) {
			want, err := simulator.Probabilities(c)
			require.NoError(t, err)

			for _, strategy := range []Strategy{StrategyGlobal, StrategyLocal} {
				for _, f := range factors {
					folded, err := Scale(c, f, strategy)
					require.NoError(t, err)
					got, err := simulator.Probabilities(folded)
					require.NoError(t, err)
					assertSameDistribution(t, want, got)
				}
			}
		})
	}
}

func TestScaleCircuit_OddIntegerFactorsAreExact(t *testing.T) {
	c := mixedCircuit(t) // m = 3
	m := CountTwoQubitGates(c)
	require.Equal(t, 3, m)

	for _, k := range []int{1, 3, 5, 7} {
		folded, err := ScaleCircuit(c, float64(k))
		require.NoError(t, err)
		assert.Equal(t, k*m, CountTwoQubitGates(folded), "k=%d", k)
		assert.Equal(t, float64(k), RealizedFactor(c, folded))
	}
}

func TestScaleCircuit_EvenGateCountAnyInteger(t *testing.T) {
	c := circuit.DemoCircuit() // m = 4
	for k := 1; k <= 6; k++ {
		folded, err := ScaleCircuit(c, float64(k))
		require.NoError(t, err)
		assert.Equal(t, 4*k, CountTwoQubitGates(folded), "k=%d", k)
	}
}

func TestScaleCircuit_OddGateCountEvenFactorRounds(t *testing.T) {
	c := mixedCircuit(t) // m = 3

	// k=2 asks for 1.5 pairs; rounding gives 2, so 7 applications instead of 6
	folded, err := ScaleCircuit(c, 2)
	require.NoError(t, err)
	assert.Equal(t, 7, CountTwoQubitGates(folded))
	assert.InDelta(t, 7.0/3.0, RealizedFactor(c, folded), 1e-12)

	folded, err = ScaleCircuit(c, 4)
	require.NoError(t, err)
	assert.Equal(t, 13, CountTwoQubitGates(folded), "4.5 pairs round to 5")
}

func TestScale_GlobalFoldsEveryGateEvenly(t *testing.T) {
	folded, err := ScaleCircuit(circuit.DemoCircuit(), 3)
	require.NoError(t, err)

	// h, then every cx is followed by one (cx, cx) pair
	require.Len(t, folded.Ops, 13)
	assert.Equal(t, "h", folded.Ops[0].Gate)
	for i := 0; i < 4; i++ {
		base := 1 + 3*i
		q := folded.Ops[base].Qubits
		assert.Equal(t, q, folded.Ops[base+1].Qubits)
		assert.Equal(t, q, folded.Ops[base+2].Qubits)
	}
	assert.Equal(t, circuit.DemoCircuit().Measurements, folded.Measurements)
}

func TestScale_LocalFoldsLeadingGates(t *testing.T) {
	c := circuit.DemoCircuit()

	// f = 2: P = 2, depth 1, first two gates folded once
	pairs, err := Pairs(4, 2, StrategyLocal)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 0, 0}, pairs)

	// f = 2.5: P = 3, depth 1
	pairs, err = Pairs(4, 2.5, StrategyLocal)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1, 0}, pairs)

	// f = 4: P = 6, depth 2, three gates folded fully
	pairs, err = Pairs(4, 4, StrategyLocal)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2, 0}, pairs)

	// f = 3.5: P = 5, depth 2
	pairs, err = Pairs(4, 3.5, StrategyLocal)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1, 0}, pairs)

	folded, err := Scale(c, 2, StrategyLocal)
	require.NoError(t, err)
	assert.Equal(t, 8, CountTwoQubitGates(folded))
	assert.Equal(t, 2.0, RealizedFactor(c, folded))
}

func TestPairs_GlobalDistribution(t *testing.T) {
	pairs, err := Pairs(3, 2, StrategyGlobal)
	require.NoError(t, err)
	// P = round(1.5) = 2
	assert.Equal(t, []int{1, 1, 0}, pairs)

	pairs, err = Pairs(3, 1, StrategyGlobal)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, pairs)
}

func TestScale_DoesNotModifyInput(t *testing.T) {
	c := circuit.DemoCircuit()
	before := c.Clone()
	_, err := ScaleCircuit(c, 5)
	require.NoError(t, err)
	assert.Equal(t, before, c)
}

func TestScale_NoTwoQubitGates(t *testing.T) {
	c, err := circuit.New(1, 1)
	require.NoError(t, err)
	require.NoError(t, c.Gate("h", []int{0}))
	require.NoError(t, c.Measure(0, 0))

	for _, strategy := range []Strategy{StrategyGlobal, StrategyLocal} {
		folded, err := Scale(c, 3, strategy)
		require.NoError(t, err)
		assert.Equal(t, c, folded)
		assert.Equal(t, 1.0, RealizedFactor(c, folded))
	}
}

func TestScale_InvalidScaleFactor(t *testing.T) {
	for _, f := range []float64{0, 0.5, -1, math.NaN(), math.Inf(1)} {
		_, err := ScaleCircuit(circuit.DemoCircuit(), f)
		assert.ErrorIs(t, err, domain.ErrInvalidScaleFactor, "factor %v", f)
	}
}

func TestScale_ScaleFactorAboveCap(t *testing.T) {
	c := circuit.DemoCircuit() // m = 4, so f pairs = 2(f-1)

	for _, f := range []float64{1e13, 1e19, 1e300, math.MaxFloat64} {
		for _, strategy := range []Strategy{StrategyGlobal, StrategyLocal} {
			_, err := Scale(c, f, strategy)
			assert.ErrorIs(t, err, domain.ErrInvalidScaleFactor, "factor %v %s", f, strategy)
		}
	}

	// Exactly at the cap is still folded
	limit := float64(MaxPairs)/2 + 1
	pairs, err := Pairs(4, limit, StrategyGlobal)
	require.NoError(t, err)
	assert.Equal(t, MaxPairs, sum(pairs))

	_, err = Pairs(4, limit+1, StrategyGlobal)
	assert.ErrorIs(t, err, domain.ErrInvalidScaleFactor)

	// Without two-qubit gates nothing is inserted, whatever the factor
	noCX, err := circuit.New(1, 1)
	require.NoError(t, err)
	require.NoError(t, noCX.Gate("h", []int{0}))
	folded, err := Scale(noCX, 1e300, StrategyGlobal)
	require.NoError(t, err)
	assert.Len(t, folded.Ops, 1)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("local")
	require.NoError(t, err)
	assert.Equal(t, StrategyLocal, s)

	s, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyGlobal, s)

	_, err = ParseStrategy("random")
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = Scale(circuit.DemoCircuit(), 2, Strategy("random"))
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}
