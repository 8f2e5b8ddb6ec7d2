package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/sabertooth-go/internal/core/domain"
	"github.com/yndnr/sabertooth-go/internal/core/mandate"
	"github.com/yndnr/sabertooth-go/internal/core/registry"
	"github.com/yndnr/sabertooth-go/internal/telemetry/logger"
)

type mockBackend struct {
	ready      bool
	snap       *registry.Snapshot
	statuses   []mandate.Status
	rebuildErr error
	rebuilt    []string
}

func (b *mockBackend) Ready() bool                  { return b.ready }
func (b *mockBackend) Snapshot() *registry.Snapshot { return b.snap }
func (b *mockBackend) Mandates() []mandate.Status   { return b.statuses }

func (b *mockBackend) Mandate(name string) (mandate.Status, error) {
	for _, st := range b.statuses {
		if st.Name == name {
			return st, nil
		}
	}
	return mandate.Status{}, domain.ErrMandateNotFound.WithDetails(name)
}

func (b *mockBackend) Rebuild(_ context.Context, name string) error {
	if _, err := b.Mandate(name); err != nil {
		return err
	}
	b.rebuilt = append(b.rebuilt, name)
	return b.rebuildErr
}

func newMockBackend() *mockBackend {
	blog := mandate.New("/sites/blog.sbr", nil)
	main := mandate.New("/sites/main.sbr", nil)
	return &mockBackend{
		ready: true,
		snap: &registry.Snapshot{
			Number:      7,
			Root:        main,
			Subdomains:  map[string]*mandate.Mandate{"blog": blog},
			PublishedAt: time.Now(),
		},
		statuses: []mandate.Status{
			{Name: "blog", State: mandate.Valid, Build: 3, Subdomains: []string{"blog"}, Sources: 2},
			{Name: "main", State: mandate.Valid, Build: 1, Root: true, Sources: 1},
			{Name: "shop", State: mandate.Invalid, LastError: "build failed", Diagnostics: []string{"shop.js:1:1 oops"}},
		},
	}
}

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func serve(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestHealth(t *testing.T) {
	h := New(newMockBackend(), logger.Discard())
	rec, env := serve(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", env.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestReady(t *testing.T) {
	b := newMockBackend()
	h := New(b, logger.Discard())

	rec, _ := serve(t, h, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)

	b.ready = false
	rec, env := serve(t, h, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "ST-ROUTE-5030", env.Code)
}

func TestStatus(t *testing.T) {
	h := New(newMockBackend(), logger.Discard())
	rec, env := serve(t, h, http.MethodGet, "/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var st StatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.True(t, st.Ready)
	assert.Equal(t, uint64(7), st.Snapshot)
	assert.Equal(t, "main", st.Root)
	assert.Equal(t, 1, st.Subdomains)
	assert.Equal(t, 3, st.Mandates)
	assert.Equal(t, 1, st.Invalid)
	assert.NotEmpty(t, st.Version)
}

func TestStatus_NoSnapshot(t *testing.T) {
	b := newMockBackend()
	b.snap, b.ready = nil, false
	_, env := serve(t, New(b, logger.Discard()), http.MethodGet, "/v1/status")

	var st StatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.False(t, st.Ready)
	assert.Zero(t, st.Snapshot)
	assert.Empty(t, st.Root)
}

func TestRoutes(t *testing.T) {
	b := newMockBackend()
	h := New(b, logger.Discard())

	rec, env := serve(t, h, http.MethodGet, "/v1/routes")
	require.Equal(t, http.StatusOK, rec.Code)
	var routes []Route
	require.NoError(t, json.Unmarshal(env.Data, &routes))
	assert.Equal(t, []Route{{"*", "main"}, {"blog", "blog"}}, routes)

	b.snap = nil
	rec, _ = serve(t, h, http.MethodGet, "/v1/routes")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMandates(t *testing.T) {
	h := New(newMockBackend(), logger.Discard())

	_, env := serve(t, h, http.MethodGet, "/v1/mandates")
	var list []MandateInfo
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 3)
	assert.Equal(t, "valid", list[0].State)
	assert.Equal(t, "invalid", list[2].State)
	assert.Empty(t, list[2].Diagnostics, "list omits diagnostics")

	rec, env := serve(t, h, http.MethodGet, "/v1/mandates/shop")
	require.Equal(t, http.StatusOK, rec.Code)
	var one MandateInfo
	require.NoError(t, json.Unmarshal(env.Data, &one))
	assert.Equal(t, []string{"shop.js:1:1 oops"}, one.Diagnostics)

	rec, env = serve(t, h, http.MethodGet, "/v1/mandates/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ST-MAND-4040", env.Code)
}

func TestRebuild(t *testing.T) {
	b := newMockBackend()
	h := New(b, logger.Discard())

	rec, _ := serve(t, h, http.MethodPost, "/v1/mandates/blog/rebuild")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"blog"}, b.rebuilt)

	b.rebuildErr = domain.ErrBuildFailed.WithDetails("blog")
	rec, env := serve(t, h, http.MethodPost, "/v1/mandates/blog/rebuild")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "ST-BUILD-5000", env.Code)

	b.rebuildErr = errors.New("disk on fire")
	rec, env = serve(t, h, http.MethodPost, "/v1/mandates/blog/rebuild")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", env.Message)
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := map[string]int{
		"ST-MAND-4040":  http.StatusNotFound,
		"ST-MAND-4000":  http.StatusBadRequest,
		"ST-ROUTE-5030": http.StatusServiceUnavailable,
		"ST-BUILD-5002": http.StatusUnprocessableEntity,
		"ST-ROUTE-5000": http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, errorCodeToHTTPStatus(code), code)
	}
}
