package handler

import (
	"net/http"
	"time"
)

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady reports ready once the first snapshot is published.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if !h.backend.Ready() {
		h.writeError(w, r, http.StatusServiceUnavailable, "ST-ROUTE-5030", "no snapshot published")
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
