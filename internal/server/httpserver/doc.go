// Package httpserver provides the admin HTTP listener.
//
// The admin listener is separate from the public site listener and uses
// net/http:
//
//   - Probes: /healthz, /readyz
//   - Metrics: /metrics in Prometheus text format
//   - Registry: /v1/status, /v1/mandates, /v1/routes
//
// When a token is configured every endpoint except the probes requires
// "Authorization: Bearer <token>".
package httpserver
