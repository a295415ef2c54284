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
)

func TestHandleGenerate(t *testing.T) {
	handler := NewHandler(zerolog.New(nil).Level(zerolog.Disabled))

	body, _ := json.Marshal(map[string]interface{}{"qubits": 2, "error_param": 0.1, "readout_error": 0.02})
	req := httptest.NewRequest("POST", "/api/noise-models", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.HandleGenerate(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data := response["data"].(map[string]interface{})
	model := data["model"].(map[string]interface{})
	gates := model["gates"].(map[string]interface{})
	assert.Equal(t, 0.1, gates["cx"])
	assert.Equal(t, 0.02, model["readout"].(map[string]interface{})["1"])
	assert.Contains(t, data["noisy_gates"], "cx")
}

func TestHandleGenerate_Invalid(t *testing.T) {
	handler := NewHandler(zerolog.New(nil).Level(zerolog.Disabled))

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"probability above one", `{"qubits": 2, "error_param": 1.5}`},
		{"no qubits", `{"qubits": 0, "error_param": 0.1}`},
		{"bad readout", `{"qubits": 1, "error_param": 0.1, "readout_error": -0.5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/noise-models", bytes.NewReader([]byte(tt.body)))
			w := httptest.NewRecorder()
			handler.HandleGenerate(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
