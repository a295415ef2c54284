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

func post(body string) *httptest.ResponseRecorder {
	handler := NewHandler(zerolog.New(nil).Level(zerolog.Disabled))
	req := httptest.NewRequest("POST", "/api/observables/parity", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	handler.HandleParity(w, req)
	return w
}

func TestHandleParity(t *testing.T) {
	w := post(`{"counts": {"00": 600, "11": 200, "01": 150, "10": 50}, "shots": 1000}`)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data := response["data"].(map[string]interface{})
	assert.InDelta(t, 0.6, data["value"].(float64), 1e-12)
	assert.Equal(t, float64(1000), data["total"])

	// Parity of clbit 0 only: "01" and "11" are odd
	w = post(`{"counts": {"00": 600, "11": 200, "01": 150, "10": 50}, "shots": 1000, "bits": [0]}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data = response["data"].(map[string]interface{})
	assert.InDelta(t, 0.3, data["value"].(float64), 1e-12)
}

func TestHandleParity_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"empty distribution", `{"counts": {}, "shots": 10}`},
		{"not a bitstring", `{"counts": {"0x": 3}, "shots": 3}`},
		{"bit out of range", `{"counts": {"01": 3}, "shots": 3, "bits": [4]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, post(tt.body).Code)
		})
	}
}
