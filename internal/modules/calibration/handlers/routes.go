package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the calibration routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/calibrations", func(r chi.Router) {
		r.Post("/", h.HandleUpload)
		r.Get("/", h.HandleListBackends)
		r.Get("/{backend}", h.HandleGetLatest)
		r.Get("/{backend}/csv", h.HandleCSV)
		r.Get("/{backend}/qubits/{ctl}/connected", h.HandleConnected)
		r.Get("/{backend}/cx/{ctl}/{tgt}", h.HandleCXError)
	})
}
