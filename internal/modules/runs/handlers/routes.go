package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the mitigation and run history routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/mitigation", func(r chi.Router) {
		r.Post("/riim", h.HandleRIIM)
		r.Post("/fiim", h.HandleFIIM)
		r.Post("/riim-sampled", h.HandleRIIMSampled)
	})
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", h.HandleListRuns)
		r.Get("/{id}", h.HandleGetRun)
	})
}
