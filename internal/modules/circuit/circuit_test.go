package circuit

import (
	"math/cmplx"
	"testing"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	c, err := New(3, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, c.NumQubits)
	assert.Equal(t, 2, c.NumClbits)

	_, err = New(0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestAppend_Validation(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
	}{
		{"unknown gate", Operation{Gate: "ccx", Qubits: []int{0, 1}}},
		{"wrong arity", Operation{Gate: "cx", Qubits: []int{0}}},
		{"missing param", Operation{Gate: "rz", Qubits: []int{0}}},
		{"out of range", Operation{Gate: "h", Qubits: []int{5}}},
		{"same qubit twice", Operation{Gate: "cx", Qubits: []int{1, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(2, 2)
			require.NoError(t, err)
			assert.ErrorIs(t, c.Append(tt.op), domain.ErrInvalidParameter)
			assert.Empty(t, c.Ops)
		})
	}
}

func TestMeasure(t *testing.T) {
	c, err := New(2, 2)
	require.NoError(t, err)

	require.NoError(t, c.Measure(0, 1))
	assert.ErrorIs(t, c.Measure(1, 1), domain.ErrInvalidParameter, "clbit already bound")
	assert.ErrorIs(t, c.Measure(2, 0), domain.ErrInvalidParameter)
}

func TestMeasureAll_GrowsClassicalRegister(t *testing.T) {
	c, err := New(3, 0)
	require.NoError(t, err)
	require.NoError(t, c.MeasureAll())
	assert.Equal(t, 3, c.NumClbits)
	assert.Len(t, c.Measurements, 3)
}

func TestClone_IsIndependent(t *testing.T) {
	c := DemoCircuit()
	require.NoError(t, c.Gate("rz", []int{1}, 0.3))

	clone := c.Clone()
	clone.Ops[0].Qubits[0] = 1
	clone.Ops[len(clone.Ops)-1].Params[0] = 9
	clone.Measurements[0].Clbit = 1

	assert.Equal(t, 0, c.Ops[0].Qubits[0])
	assert.Equal(t, 0.3, c.Ops[len(c.Ops)-1].Params[0])
	assert.Equal(t, 0, c.Measurements[0].Clbit)
}

func TestDemoCircuit(t *testing.T) {
	c := DemoCircuit()
	require.NoError(t, c.Validate())
	assert.Equal(t, 4, c.TwoQubitGateCount())
	assert.Equal(t, map[string]int{"h": 1, "cx": 4}, c.GateCounts())
}

func TestInverse_MultipliesToIdentity(t *testing.T) {
	ops := []Operation{
		{Gate: "h", Qubits: []int{0}},
		{Gate: "s", Qubits: []int{0}},
		{Gate: "t", Qubits: []int{0}},
		{Gate: "sx", Qubits: []int{0}},
		{Gate: "rx", Qubits: []int{0}, Params: []float64{0.7}},
		{Gate: "ry", Qubits: []int{0}, Params: []float64{-1.1}},
		{Gate: "rz", Qubits: []int{0}, Params: []float64{2.3}},
		{Gate: "p", Qubits: []int{0}, Params: []float64{0.4}},
		{Gate: "u", Qubits: []int{0}, Params: []float64{0.3, 1.2, -0.8}},
		{Gate: "cx", Qubits: []int{0, 1}},
		{Gate: "cz", Qubits: []int{0, 1}},
		{Gate: "swap", Qubits: []int{0, 1}},
		{Gate: "rzz", Qubits: []int{0, 1}, Params: []float64{0.9}},
		{Gate: "cp", Qubits: []int{0, 1}, Params: []float64{1.7}},
	}

	for _, op := range ops {
		t.Run(op.Gate, func(t *testing.T) {
			inv, err := op.Inverse()
			require.NoError(t, err)

			spec, _ := LookupGate(op.Gate)
			invSpec, ok := LookupGate(inv.Gate)
			require.True(t, ok)

			dim := 1 << spec.Qubits
			product := matMul(invSpec.Matrix(inv.Params), spec.Matrix(op.Params), dim)
			for r := 0; r < dim; r++ {
				for c := 0; c < dim; c++ {
					want := complex(0, 0)
					if r == c {
						want = 1
					}
					assert.InDelta(t, 0, cmplx.Abs(product[r*dim+c]-want), 1e-12)
				}
			}
		})
	}
}

func TestGateMatrices_AreUnitary(t *testing.T) {
	params := []float64{0.37, -1.2, 2.1}
	for name, spec := range gateTable {
		t.Run(name, func(t *testing.T) {
			m := spec.Matrix(params[:spec.Params])
			dim := 1 << spec.Qubits
			product := matMul(adjointOf(m, dim), m, dim)
			for r := 0; r < dim; r++ {
				assert.InDelta(t, 1, real(product[r*dim+r]), 1e-12)
			}
		})
	}
}

func TestTwoQubitGates(t *testing.T) {
	assert.Equal(t, []string{"cp", "cx", "cz", "rzz", "swap"}, TwoQubitGates())
	assert.Contains(t, SingleQubitGates(), "h")
}

func matMul(a, b []complex128, dim int) []complex128 {
	out := make([]complex128, dim*dim)
	for r := 0; r < dim; r++ {
		for c := 0; c < dim; c++ {
			var sum complex128
			for k := 0; k < dim; k++ {
				sum += a[r*dim+k] * b[k*dim+c]
			}
			out[r*dim+c] = sum
		}
	}
	return out
}

func adjointOf(m []complex128, dim int) []complex128 {
	out := make([]complex128, dim*dim)
	for r := 0; r < dim; r++ {
		for c := 0; c < dim; c++ {
			out[c*dim+r] = cmplx.Conj(m[r*dim+c])
		}
	}
	return out
}
