package audithttp

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the document status and audit trail endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/documents/gaps", h.handleGaps)
	r.Get("/documents/{sourceDocID}/status", h.handleStatus)
	r.Get("/documents/{sourceDocID}/trail", h.handleTrail)
}
