package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/riimtools/internal/modules/circuit"
)

func fold(t *testing.T, body interface{}) (*httptest.ResponseRecorder, FoldResponse) {
	t.Helper()
	handler := NewHandler(zerolog.New(nil).Level(zerolog.Disabled))

	raw, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/api/circuits/fold", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	handler.HandleFold(w, req)

	var response struct {
		Data FoldResponse `json:"data"`
	}
	if w.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	}
	return w, response.Data
}

func TestHandleFold_DemoGlobal(t *testing.T) {
	w, data := fold(t, map[string]interface{}{"scale_factor": 3})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "global", data.Strategy)
	assert.Equal(t, 4, data.TwoQubitGates)
	assert.Equal(t, 12, data.FoldedTwoQubitOps)
	assert.Equal(t, 3.0, data.RealizedFactor)
	assert.Equal(t, []int{1, 1, 1, 1}, data.Pairs)

	folded, err := circuit.ParseQASM(data.QASM)
	require.NoError(t, err)
	assert.Equal(t, 12, folded.TwoQubitGateCount())
}

func TestHandleFold_LocalQASM(t *testing.T) {
	qasm := circuit.EmitQASM(circuit.DemoCircuit())
	w, data := fold(t, map[string]interface{}{"qasm": qasm, "scale_factor": 2, "strategy": "local"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "local", data.Strategy)
	assert.Equal(t, []int{1, 1, 0, 0}, data.Pairs)
	assert.Equal(t, 2.0, data.RealizedFactor)
}

func TestHandleFold_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{"factor below one", map[string]interface{}{"scale_factor": 0.5}},
		{"unknown strategy", map[string]interface{}{"scale_factor": 2, "strategy": "random"}},
		{"bad qasm", map[string]interface{}{"scale_factor": 2, "qasm": "qreg q[1];\nzz q[0];"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := fold(t, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
