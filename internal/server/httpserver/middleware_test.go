package httpserver

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/sabertooth-go/internal/telemetry/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 26, "ULID")
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "client-id", seen)
	assert.Equal(t, "client-id", rec.Header().Get("X-Request-ID"))
}

func TestChain(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(okHandler, mw("first"), mw("second"), mw("third"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestBearerAuth(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		header string
		want   int
		code   string
	}{
		{"disabled", "", "", http.StatusOK, ""},
		{"missing", "s3cret", "", http.StatusUnauthorized, "ST-AUTH-4010"},
		{"wrong scheme", "s3cret", "Basic s3cret", http.StatusUnauthorized, "ST-AUTH-4010"},
		{"wrong token", "s3cret", "Bearer nope", http.StatusUnauthorized, "ST-AUTH-4011"},
		{"valid", "s3cret", "Bearer s3cret", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			BearerAuth(tt.token)(okHandler).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.code, rec.Header().Get("X-Error-Code"))
		})
	}
}

func TestNetworkACL(t *testing.T) {
	l := logger.Discard()
	tests := []struct {
		name   string
		allow  []string
		remote string
		want   int
	}{
		{"empty list", nil, "10.1.2.3:1000", http.StatusOK},
		{"single ip", []string{"10.1.2.3"}, "10.1.2.3:1000", http.StatusOK},
		{"cidr", []string{"192.168.0.0/16"}, "192.168.4.4:1000", http.StatusOK},
		{"ipv6", []string{"::1"}, "[::1]:1000", http.StatusOK},
		{"denied", []string{"10.0.0.0/8"}, "172.16.0.1:1000", http.StatusForbidden},
		{"invalid entries ignored", []string{"bogus", "10.0.0.0/99"}, "10.0.0.1:1000", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			req.Header.Set("X-Forwarded-For", "10.1.2.3")
			rec := httptest.NewRecorder()
			NetworkACL(tt.allow, l)(okHandler).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRecover(t *testing.T) {
	h := Recover(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "ST-SYS-5000", rec.Header().Get("X-Error-Code"))
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), RequestID(), AccessLog(l))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/missing", nil))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "status=404")
	assert.Contains(t, out, "path=/v1/missing")
	assert.True(t, strings.Contains(out, "request_id="))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", getClientIP(req))

	req.RemoteAddr = "bare"
	assert.Equal(t, "bare", getClientIP(req))
}
