// Package handlers provides HTTP handlers for circuit folding.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/riimtools/internal/modules/circuit"
	"github.com/aristath/riimtools/internal/modules/folding"
	"github.com/aristath/riimtools/internal/utils"
)

// Handler handles folding requests
type Handler struct {
	log zerolog.Logger
}

// NewHandler creates a new folding handler
func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{log: log.With().Str("handler", "folding").Logger()}
}

// FoldRequest represents a request to fold a circuit. An empty QASM folds the demo circuit.
type FoldRequest struct {
	QASM        string  `json:"qasm,omitempty"`
	ScaleFactor float64 `json:"scale_factor"`
	Strategy    string  `json:"strategy,omitempty"`
}

// FoldResponse describes the folded circuit
type FoldResponse struct {
	QASM              string  `json:"qasm"`
	Strategy          string  `json:"strategy"`
	RequestedFactor   float64 `json:"requested_factor"`
	RealizedFactor    float64 `json:"realized_factor"`
	TwoQubitGates     int     `json:"two_qubit_gates"`
	FoldedTwoQubitOps int     `json:"folded_two_qubit_gates"`
	Pairs             []int   `json:"pairs"`
}

// HandleFold handles POST /api/circuits/fold
func (h *Handler) HandleFold(w http.ResponseWriter, r *http.Request) {
	var req FoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c := circuit.DemoCircuit()
	if req.QASM != "" {
		parsed, err := circuit.ParseQASM(req.QASM)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		c = parsed
	}

	strategy, err := folding.ParseStrategy(req.Strategy)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	folded, err := folding.Scale(c, req.ScaleFactor, strategy)
	if err != nil {
		http.Error(w, err.Error(), utils.StatusForError(err))
		return
	}
	pairs, err := folding.Pairs(folding.CountTwoQubitGates(c), req.ScaleFactor, strategy)
	if err != nil {
		http.Error(w, err.Error(), utils.StatusForError(err))
		return
	}
	if pairs == nil {
		pairs = []int{}
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(FoldResponse{
		QASM:              circuit.EmitQASM(folded),
		Strategy:          string(strategy),
		RequestedFactor:   req.ScaleFactor,
		RealizedFactor:    folding.RealizedFactor(c, folded),
		TwoQubitGates:     folding.CountTwoQubitGates(c),
		FoldedTwoQubitOps: folding.CountTwoQubitGates(folded),
		Pairs:             pairs,
	}), h.log)
}

// RegisterRoutes registers the folding routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/circuits/fold", h.HandleFold)
}
