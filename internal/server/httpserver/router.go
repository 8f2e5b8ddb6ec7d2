package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/sabertooth-go/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the admin router.
type RouterConfig struct {
	Backend handler.Backend

	// Metrics serves /metrics. Nil leaves the endpoint unregistered.
	Metrics http.Handler

	// Token, when set, guards everything but the probes.
	Token string

	// AllowList restricts clients by IP or CIDR. Empty admits all.
	AllowList []string

	Logger *slog.Logger
}

// NewRouter builds the admin handler tree.
func NewRouter(cfg *RouterConfig) http.Handler {
	l := cfg.Logger
	if l == nil {
		l = slog.Default()
	}
	h := handler.New(cfg.Backend, l)

	base := []Middleware{RequestID(), Recover(l), AccessLog(l), NetworkACL(cfg.AllowList, l)}
	guarded := append(append([]Middleware{}, base...), BearerAuth(cfg.Token))

	mux := http.NewServeMux()
	probes := Chain(h, base...)
	mux.Handle("GET /healthz", probes)
	mux.Handle("GET /readyz", probes)

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics, guarded...))
	}
	mux.Handle("/v1/", Chain(h, guarded...))
	return mux
}
