// Package handlers provides HTTP handlers for mitigation runs.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/aristath/riimtools/internal/modules/runs"
	"github.com/aristath/riimtools/internal/utils"
)

// defaultListLimit caps GET /api/runs when no limit is given
const defaultListLimit = 50

// Handler handles mitigation and run history requests
type Handler struct {
	service *runs.Service
	log     zerolog.Logger
}

// NewHandler creates a new runs handler
func NewHandler(service *runs.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "runs").Logger(),
	}
}

// HandleRIIM handles POST /api/mitigation/riim
func (h *Handler) HandleRIIM(w http.ResponseWriter, r *http.Request) {
	h.handleMitigation(w, r, domain.MethodRIIM)
}

// HandleFIIM handles POST /api/mitigation/fiim
func (h *Handler) HandleFIIM(w http.ResponseWriter, r *http.Request) {
	h.handleMitigation(w, r, domain.MethodFIIM)
}

// HandleRIIMSampled handles POST /api/mitigation/riim-sampled
func (h *Handler) HandleRIIMSampled(w http.ResponseWriter, r *http.Request) {
	h.handleMitigation(w, r, domain.MethodRIIMSampled)
}

func (h *Handler) handleMitigation(w http.ResponseWriter, r *http.Request, method domain.Method) {
	var req runs.Request
	// An empty body runs the demo circuit with the configured defaults
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Method = method

	run, err := h.service.Execute(r.Context(), req)
	if err != nil {
		status := utils.StatusForError(err)
		h.log.Warn().Err(err).Str("method", string(method)).Int("status", status).Msg("Mitigation request failed")
		if run == nil {
			http.Error(w, err.Error(), status)
			return
		}
		// The failed run was stored; return it with the error
		body := utils.Envelope(run)
		body["error"] = err.Error()
		utils.WriteJSON(w, status, body, h.log)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(run), h.log)
}

// HandleListRuns handles GET /api/runs?limit=N
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	list, err := h.service.List(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []runs.Run{}
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(list), h.log)
}

// HandleGetRun handles GET /api/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return
	}

	run, err := h.service.Get(id)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to get run")
		http.Error(w, "Failed to get run", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(run), h.log)
}
