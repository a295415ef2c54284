// Package handlers provides HTTP handlers for noise model generation.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/riimtools/internal/modules/noise"
	"github.com/aristath/riimtools/internal/utils"
)

// Handler handles noise model requests
type Handler struct {
	log zerolog.Logger
}

// NewHandler creates a new noise model handler
func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{log: log.With().Str("handler", "noise").Logger()}
}

// GenerateRequest represents a request for a uniform depolarizing model
type GenerateRequest struct {
	Qubits     int     `json:"qubits"`
	ErrorParam float64 `json:"error_param"`
	// Optional per-qubit readout flip probability applied to qubits 0..Qubits-1
	ReadoutError float64 `json:"readout_error,omitempty"`
}

// HandleGenerate handles POST /api/noise-models
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	model, err := noise.GenerateDepolarizing(req.Qubits, req.ErrorParam)
	if err != nil {
		http.Error(w, err.Error(), utils.StatusForError(err))
		return
	}
	if req.ReadoutError != 0 {
		for q := 0; q < req.Qubits; q++ {
			if err := model.SetReadoutError(q, req.ReadoutError); err != nil {
				http.Error(w, err.Error(), utils.StatusForError(err))
				return
			}
		}
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(map[string]interface{}{
		"model":       model,
		"noisy_gates": model.NoisyGates(),
	}), h.log)
}

// RegisterRoutes registers the noise model routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/noise-models", h.HandleGenerate)
}
