package localserver

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/sabertooth-go/internal/core/domain"
	"github.com/yndnr/sabertooth-go/internal/core/mandate"
	"github.com/yndnr/sabertooth-go/internal/core/registry"
	"github.com/yndnr/sabertooth-go/internal/telemetry/logger"
)

type fakeBackend struct {
	statuses   []mandate.Status
	snap       *registry.Snapshot
	rebuilt    []string
	rebuildErr error
}

func (b *fakeBackend) Mandates() []mandate.Status { return b.statuses }

func (b *fakeBackend) Mandate(name string) (mandate.Status, error) {
	for _, st := range b.statuses {
		if st.Name == name {
			return st, nil
		}
	}
	return mandate.Status{}, domain.ErrMandateNotFound.WithDetails(name)
}

func (b *fakeBackend) Rebuild(_ context.Context, name string) error {
	if _, err := b.Mandate(name); err != nil {
		return err
	}
	b.rebuilt = append(b.rebuilt, name)
	for i := range b.statuses {
		if b.statuses[i].Name == name {
			b.statuses[i].Build++
		}
	}
	return b.rebuildErr
}

func (b *fakeBackend) Snapshot() *registry.Snapshot { return b.snap }

func newBackend() *fakeBackend {
	blog := mandate.New("/srv/sites/blog.sbr", nil)
	main := mandate.New("/srv/sites/main.sbr", nil)
	return &fakeBackend{
		statuses: []mandate.Status{
			{Name: "blog", State: mandate.Valid, Build: 2, Subdomains: []string{"blog", "www"}, Sources: 1},
			{Name: "main", State: mandate.Valid, Build: 1, Root: true, Sources: 3},
			{
				Name:        "shop",
				State:       mandate.Invalid,
				LastAttempt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
				LastError:   "compile failed",
				Diagnostics: []string{"shop.js:3:1 unexpected token"},
			},
		},
		snap: &registry.Snapshot{
			Number:      4,
			Root:        main,
			Subdomains:  map[string]*mandate.Mandate{"www": blog, "blog": blog},
			PublishedAt: time.Now(),
		},
	}
}

func run(t *testing.T, h *Handler, line string) (string, bool) {
	t.Helper()
	var buf bytes.Buffer
	quit := h.Execute(context.Background(), &buf, line)
	return buf.String(), quit
}

func lastLine(out string) string {
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	return lines[len(lines)-1]
}

func TestHandler_Status(t *testing.T) {
	h := NewHandler(newBackend(), nil, logger.Discard())
	out, quit := run(t, h, "status")

	assert.False(t, quit)
	assert.Contains(t, out, "mandates: 3 (valid 2, invalid 1, building 0)")
	assert.Contains(t, out, "snapshot: 4 published")
	assert.Contains(t, out, "root: main")
	assert.Contains(t, out, "subdomains: 2")
	assert.Equal(t, ReplyOK, lastLine(out))
}

func TestHandler_StatusWithoutSnapshot(t *testing.T) {
	b := newBackend()
	b.snap = nil
	out, _ := run(t, NewHandler(b, nil, logger.Discard()), "STATUS")
	assert.Contains(t, out, "snapshot: none")
	assert.Equal(t, ReplyOK, lastLine(out))
}

func TestHandler_Mandates(t *testing.T) {
	out, _ := run(t, NewHandler(newBackend(), nil, logger.Discard()), "mandates")

	assert.Contains(t, out, "blog state=valid build=2 root=false subdomains=blog,www sources=1\n")
	assert.Contains(t, out, "main state=valid build=1 root=true subdomains=- sources=3\n")
	assert.Contains(t, out, `shop state=invalid build=0 root=false subdomains=- sources=0 error="compile failed"`)
	assert.Equal(t, ReplyOK, lastLine(out))
}

func TestHandler_Diagnostics(t *testing.T) {
	h := NewHandler(newBackend(), nil, logger.Discard())

	out, _ := run(t, h, "diagnostics shop")
	assert.Contains(t, out, "attempt: 2026-01-02T03:04:05Z")
	assert.Contains(t, out, "error: compile failed")
	assert.Contains(t, out, "  shop.js:3:1 unexpected token")
	assert.Equal(t, ReplyOK, lastLine(out))

	out, _ = run(t, h, "diagnostics blog")
	assert.Contains(t, out, "no failed build")

	out, _ = run(t, h, "diagnostics nope")
	assert.True(t, strings.HasPrefix(lastLine(out), ReplyErr+" [ST-MAND-4040]"), out)

	out, _ = run(t, h, "diagnostics")
	assert.Equal(t, ReplyErr+" expected one mandate name", lastLine(out))
}

func TestHandler_Routes(t *testing.T) {
	out, _ := run(t, NewHandler(newBackend(), nil, logger.Discard()), "routes")
	assert.Equal(t, "* -> main\nblog -> blog\nwww -> blog\n"+ReplyOK+"\n", out)

	b := newBackend()
	b.snap = nil
	out, _ = run(t, NewHandler(b, nil, logger.Discard()), "routes")
	assert.Equal(t, ReplyErr+" no snapshot published", lastLine(out))
}

func TestHandler_Rebuild(t *testing.T) {
	b := newBackend()
	h := NewHandler(b, nil, logger.Discard())

	out, _ := run(t, h, "rebuild blog")
	assert.Equal(t, "blog build=3\n"+ReplyOK+"\n", out)
	assert.Equal(t, []string{"blog"}, b.rebuilt)

	b.rebuildErr = fmt.Errorf("boom")
	out, _ = run(t, h, "rebuild main")
	assert.Equal(t, ReplyErr+" boom", lastLine(out))

	out, _ = run(t, h, "rebuild ghost")
	assert.Contains(t, lastLine(out), ReplyErr)
}

func TestHandler_Quit(t *testing.T) {
	for _, cmd := range []string{"quit", "exit", "shutdown"} {
		t.Run(cmd, func(t *testing.T) {
			var reason string
			h := NewHandler(newBackend(), func(r string) { reason = r }, logger.Discard())

			out, quit := run(t, h, cmd)
			assert.True(t, quit)
			assert.Equal(t, "console "+cmd, reason)
			assert.Equal(t, ReplyOK, lastLine(out))
		})
	}
}

func TestHandler_HelpUnknownBlank(t *testing.T) {
	h := NewHandler(newBackend(), nil, logger.Discard())

	out, _ := run(t, h, "help")
	assert.Contains(t, out, "rebuild <name>")
	assert.Equal(t, ReplyOK, lastLine(out))

	out, _ = run(t, h, "frobnicate")
	assert.Equal(t, ReplyErr+` unknown command "frobnicate", try help`, lastLine(out))

	out, quit := run(t, h, "   ")
	assert.Empty(t, out)
	require.False(t, quit)
}
