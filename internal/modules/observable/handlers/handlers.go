// Package handlers provides HTTP handlers for observable estimation.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/aristath/riimtools/internal/modules/observable"
	"github.com/aristath/riimtools/internal/utils"
)

// Handler handles observable requests
type Handler struct {
	log zerolog.Logger
}

// NewHandler creates a new observable handler
func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{log: log.With().Str("handler", "observable").Logger()}
}

// ParityRequest represents a parity estimation over a count distribution
type ParityRequest struct {
	Counts domain.Counts `json:"counts"`
	Shots  int           `json:"shots"`
	// Clbits included in the parity; empty uses every bit
	Bits []int `json:"bits,omitempty"`
}

// HandleParity handles POST /api/observables/parity
func (h *Handler) HandleParity(w http.ResponseWriter, r *http.Request) {
	var req ParityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	value, err := observable.ParityOn(req.Bits...).Estimate(req.Counts, req.Shots)
	if err != nil {
		status := utils.StatusForError(err)
		if status == http.StatusBadGateway {
			// An empty distribution in a request body is a client error here
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(map[string]interface{}{
		"value": value,
		"total": req.Counts.Total(),
		"shots": req.Shots,
	}), h.log)
}

// RegisterRoutes registers the observable routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/observables/parity", h.HandleParity)
}
