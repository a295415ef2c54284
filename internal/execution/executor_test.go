package execution

import (
	"context"
	"testing"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/aristath/riimtools/internal/modules/circuit"
	"github.com/aristath/riimtools/internal/modules/noise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Validate(t *testing.T) {
	unmeasured, err := circuit.New(1, 1)
	require.NoError(t, err)

	bad := noise.NewModel()
	bad.Gates["cx"] = 2

	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"valid", Request{Circuit: circuit.DemoCircuit(), Shots: 100}, false},
		{"missing circuit", Request{Shots: 100}, true},
		{"zero shots", Request{Circuit: circuit.DemoCircuit()}, true},
		{"optimization level", Request{Circuit: circuit.DemoCircuit(), Shots: 1, OptimizationLevel: 4}, true},
		{"no measurements", Request{Circuit: unmeasured, Shots: 1}, true},
		{"bad noise model", Request{Circuit: circuit.DemoCircuit(), Shots: 1, NoiseModel: bad}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidParameter)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExecutorFunc(t *testing.T) {
	var exec Executor = ExecutorFunc(func(_ context.Context, req Request) (*Result, error) {
		return &Result{Counts: domain.Counts{"00": req.Shots}, Shots: req.Shots}, nil
	})

	res, err := exec.Execute(context.Background(), Request{Shots: 7})
	require.NoError(t, err)
	assert.Equal(t, domain.Counts{"00": 7}, res.GetCounts())

	var nilResult *Result
	assert.Nil(t, nilResult.GetCounts())
}
