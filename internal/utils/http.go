package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/riimtools/internal/domain"
)

// Envelope wraps a response payload the way every API endpoint returns it.
func Envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// StatusForError maps the mitigation error kinds to HTTP status codes.
func StatusForError(err error) int {
	var stageErr *domain.StageError
	switch {
	case errors.As(err, &stageErr) && stageErr.Stage == domain.StageInit:
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidParameter), errors.Is(err, domain.ErrInvalidScaleFactor):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrExecutionFailed), errors.Is(err, domain.ErrEmptyDistribution):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
