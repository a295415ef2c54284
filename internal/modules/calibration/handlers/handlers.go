// Package handlers provides HTTP handlers for device calibration snapshots.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/riimtools/internal/modules/calibration"
	"github.com/aristath/riimtools/internal/utils"
)

// maxUploadBytes bounds a backend-properties upload
const maxUploadBytes = 8 << 20

// Handler handles calibration requests
type Handler struct {
	repo *calibration.Repository
	log  zerolog.Logger
}

// NewHandler creates a new calibration handler
func NewHandler(repo *calibration.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "calibration").Logger(),
	}
}

// CalibrationResponse is a stored snapshot together with its derived views
type CalibrationResponse struct {
	*calibration.Calibration
	CouplingMap           [][2]int        `json:"coupling_map"`
	SingleQubitErrorRates map[int]float64 `json:"single_qubit_error_rates"`
	CSVName               string          `json:"csv_name"`
}

func newCalibrationResponse(cal *calibration.Calibration) CalibrationResponse {
	cm := cal.CouplingMap()
	if cm == nil {
		cm = [][2]int{}
	}
	return CalibrationResponse{
		Calibration:           cal,
		CouplingMap:           cm,
		SingleQubitErrorRates: cal.SingleQubitErrorRates(),
		CSVName:               cal.CSVName(),
	}
}

// HandleUpload handles POST /api/calibrations with a backend-properties JSON body
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	cal, err := calibration.Parse(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Save(cal); err != nil {
		h.log.Error().Err(err).Str("backend", cal.Backend).Msg("Failed to store calibration")
		http.Error(w, "Failed to store calibration", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.Envelope(newCalibrationResponse(cal)), h.log)
}

// HandleListBackends handles GET /api/calibrations
func (h *Handler) HandleListBackends(w http.ResponseWriter, r *http.Request) {
	backends, err := h.repo.ListBackends()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list calibration backends")
		http.Error(w, "Failed to list backends", http.StatusInternalServerError)
		return
	}
	if backends == nil {
		backends = []string{}
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope(backends), h.log)
}

// latest loads the newest snapshot of the {backend} URL parameter, writing the error response itself
func (h *Handler) latest(w http.ResponseWriter, r *http.Request) *calibration.Calibration {
	backend := chi.URLParam(r, "backend")
	cal, err := h.repo.Latest(backend)
	if err != nil {
		h.log.Error().Err(err).Str("backend", backend).Msg("Failed to load calibration")
		http.Error(w, "Failed to load calibration", http.StatusInternalServerError)
		return nil
	}
	if cal == nil {
		http.Error(w, "No calibration stored for "+backend, http.StatusNotFound)
		return nil
	}
	return cal
}

// HandleGetLatest handles GET /api/calibrations/{backend}
func (h *Handler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	cal := h.latest(w, r)
	if cal == nil {
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.Envelope(newCalibrationResponse(cal)), h.log)
}

// HandleCSV handles GET /api/calibrations/{backend}/csv
func (h *Handler) HandleCSV(w http.ResponseWriter, r *http.Request) {
	cal := h.latest(w, r)
	if cal == nil {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+cal.CSVName()+`"`)
	if err := cal.WriteCSV(w); err != nil {
		h.log.Error().Err(err).Str("backend", cal.Backend).Msg("Failed to write calibration CSV")
	}
}

// HandleConnected handles GET /api/calibrations/{backend}/qubits/{ctl}/connected
func (h *Handler) HandleConnected(w http.ResponseWriter, r *http.Request) {
	ctl, err := strconv.Atoi(chi.URLParam(r, "ctl"))
	if err != nil {
		http.Error(w, "ctl must be a qubit index", http.StatusBadRequest)
		return
	}
	cal := h.latest(w, r)
	if cal == nil {
		return
	}

	connected := cal.ConnectedQubits(ctl)
	if connected == nil {
		connected = []string{}
	}
	utils.WriteJSON(w, http.StatusOK, utils.Envelope(map[string]interface{}{
		"control":   ctl,
		"connected": connected,
	}), h.log)
}

// HandleCXError handles GET /api/calibrations/{backend}/cx/{ctl}/{tgt}
func (h *Handler) HandleCXError(w http.ResponseWriter, r *http.Request) {
	ctl, errCtl := strconv.Atoi(chi.URLParam(r, "ctl"))
	tgt, errTgt := strconv.Atoi(chi.URLParam(r, "tgt"))
	if errCtl != nil || errTgt != nil {
		http.Error(w, "ctl and tgt must be qubit indices", http.StatusBadRequest)
		return
	}
	cal := h.latest(w, r)
	if cal == nil {
		return
	}

	rate, err := cal.CXErrorRate(ctl, tgt)
	if err != nil {
		http.Error(w, err.Error(), utils.StatusForError(err))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.Envelope(map[string]interface{}{
		"gate":       "cx" + strconv.Itoa(ctl) + "_" + strconv.Itoa(tgt),
		"error_rate": rate,
	}), h.log)
}
