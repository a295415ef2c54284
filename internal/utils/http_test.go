package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/riimtools/internal/domain"
)

func TestWriteJSON_Envelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, Envelope(map[string]int{"n": 3}), zerolog.New(nil).Level(zerolog.Disabled))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, map[string]interface{}{"n": float64(3)}, body["data"])
	assert.Contains(t, body["metadata"], "timestamp")
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid parameter", fmt.Errorf("%w: bad", domain.ErrInvalidParameter), http.StatusBadRequest},
		{"invalid scale factor", domain.ErrInvalidScaleFactor, http.StatusBadRequest},
		{"init stage", domain.NewStageError(domain.StageInit, 0, domain.ErrExecutionFailed, errors.New("x")), http.StatusBadRequest},
		{"insufficient data", domain.NewStageError(domain.StageFitting, 0, domain.ErrInsufficientData, nil), http.StatusUnprocessableEntity},
		{"execution failed", domain.NewStageError(domain.StageExecuting, 2, domain.ErrExecutionFailed, errors.New("offline")), http.StatusBadGateway},
		{"empty distribution", domain.ErrEmptyDistribution, http.StatusBadGateway},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusForError(tt.err))
		})
	}
}
