package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yndnr/sabertooth-go/internal/core/domain"
	"github.com/yndnr/sabertooth-go/internal/core/mandate"
	"github.com/yndnr/sabertooth-go/internal/core/registry"
)

// Backend is the registry view the admin API serves.
type Backend interface {
	Ready() bool
	Snapshot() *registry.Snapshot
	Mandates() []mandate.Status
	Mandate(name string) (mandate.Status, error)
	Rebuild(ctx context.Context, name string) error
}

// Handler routes admin requests.
type Handler struct {
	backend Backend
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New creates a Handler.
func New(backend Backend, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		backend: backend,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	h.mux.HandleFunc("GET /readyz", h.handleReady)

	h.mux.HandleFunc("GET /v1/status", h.handleStatus)
	h.mux.HandleFunc("GET /v1/routes", h.handleRoutes)
	h.mux.HandleFunc("GET /v1/mandates", h.handleListMandates)
	h.mux.HandleFunc("GET /v1/mandates/{name}", h.handleGetMandate)
	h.mux.HandleFunc("POST /v1/mandates/{name}/rebuild", h.handleRebuild)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(NewErrorResponse(getRequestID(r), code, message))
}

// getRequestID reads the ID the RequestID middleware put on the response.
func getRequestID(r *http.Request) string {
	return r.Header.Get("X-Request-ID")
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		h.writeError(w, r, errorCodeToHTTPStatus(code), code, err.Error())
		return
	}
	h.logger.Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, "ST-SYS-5000", "internal server error")
}

// errorCodeToHTTPStatus maps the numeric suffix of an error code to a status.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4000"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4010"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "-5030"):
		return http.StatusServiceUnavailable
	case strings.HasPrefix(code, "ST-BUILD-"):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
