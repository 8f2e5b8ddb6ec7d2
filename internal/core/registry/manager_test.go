package registry

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/sabertooth-go/internal/core/domain"
	"github.com/yndnr/sabertooth-go/internal/core/mandate"
	"github.com/yndnr/sabertooth-go/internal/telemetry/logger"
	"github.com/yndnr/sabertooth-go/pkg/site"
)

type nameSite struct {
	site.Base
	body string
}

func (s nameSite) Get(context.Context, *site.Request) (*site.Reply, error) {
	return &site.Reply{Content: site.Text(s.body)}, nil
}

type lineModule struct {
	decls  []site.Declaration
	closed *atomic.Int32
}

func (m lineModule) Sites() []site.Declaration      { return m.decls }
func (m lineModule) RefreshInterval() time.Duration { return time.Hour }
func (m lineModule) Close() error                   { m.closed.Add(1); return nil }

// lineCompiler reads each source as a list of claims: "root", "sub <label>"
// or "fail".
type lineCompiler struct {
	closed atomic.Int32
	builds atomic.Int32
}

func (c *lineCompiler) Compile(_ context.Context, unit mandate.BuildUnit) (mandate.Module, error) {
	n := c.builds.Add(1)
	mod := lineModule{closed: &c.closed}
	for _, src := range unit.Sources {
		raw, err := os.ReadFile(src)
		if err != nil {
			return nil, err
		}
		sc := bufio.NewScanner(bytes.NewReader(raw))
		for sc.Scan() {
			fields := strings.Fields(sc.Text())
			if len(fields) == 0 {
				continue
			}
			d := site.Declaration{Name: unit.Name, Site: nameSite{body: unit.Name}}
			switch fields[0] {
			case "fail":
				return nil, &mandate.BuildError{Diagnostics: []string{"build " + string(rune('0'+n)) + " rejected"}}
			case "root":
				d.Root = true
			case "sub":
				d.Subdomains = fields[1:]
			}
			mod.decls = append(mod.decls, d)
		}
	}
	return mod, nil
}

func writeMandate(t *testing.T, dir, name, claims string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".txt"), []byte(claims), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+mandate.ManifestExt),
		[]byte("[SRC]\n"+name+".txt\n"), 0o644))
}

func startManager(t *testing.T, dir string) (*Manager, *lineCompiler) {
	t.Helper()
	c := &lineCompiler{}
	m := NewManager(dir, c,
		WithLogger(logger.Discard()),
		WithPollInterval(time.Hour),
	)
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(m.Stop)
	return m, c
}

func resolveBody(t *testing.T, m *Manager, host string) string {
	t.Helper()
	lease, err := m.Resolve(host)
	require.NoError(t, err)
	defer lease.Release()
	reply, err := lease.Site.Get(context.Background(), &site.Request{})
	require.NoError(t, err)
	return string(reply.Content.Data())
}

func TestManager_ResolveBySubdomain(t *testing.T) {
	dir := t.TempDir()
	writeMandate(t, dir, "home", "root\n")
	writeMandate(t, dir, "blog", "sub blog news\n")
	m, _ := startManager(t, dir)

	assert.Equal(t, "home", resolveBody(t, m, "example.com"))
	assert.Equal(t, "blog", resolveBody(t, m, "blog.example.com"))
	assert.Equal(t, "blog", resolveBody(t, m, "NEWS.example.com:8080"))
	assert.Equal(t, "home", resolveBody(t, m, "shop.example.com"))
	assert.Equal(t, "home", resolveBody(t, m, "127.0.0.1:8080"))

	for i := 0; i < 3; i++ {
		assert.Equal(t, "blog", resolveBody(t, m, "blog.example.com"), "resolution is idempotent")
	}
}

func TestManager_TieBreakFirstRegisteredWins(t *testing.T) {
	dir := t.TempDir()
	writeMandate(t, dir, "b-second", "root\nsub blog\n")
	writeMandate(t, dir, "a-first", "root\nsub blog\n")
	m, _ := startManager(t, dir)

	assert.Equal(t, "a-first", resolveBody(t, m, "example.com"))
	assert.Equal(t, "a-first", resolveBody(t, m, "blog.example.com"))

	_, conflicts := compose(1, m.mandates)
	assert.ElementsMatch(t, []Conflict{
		{Subdomain: "", Winner: "a-first", Loser: "b-second"},
		{Subdomain: "blog", Winner: "a-first", Loser: "b-second"},
	}, conflicts)
}

func TestManager_NoRoute(t *testing.T) {
	dir := t.TempDir()
	writeMandate(t, dir, "blog", "sub blog\n")
	m, _ := startManager(t, dir)

	_, err := m.Resolve("example.com")
	assert.ErrorIs(t, err, domain.ErrNoRoute)
}

func TestSnapshot_Lookup(t *testing.T) {
	root := mandate.New("home.sbr", &lineCompiler{})
	blog := mandate.New("blog.sbr", &lineCompiler{})
	snap := &Snapshot{Root: root, Subdomains: map[string]*mandate.Mandate{"blog": blog}}

	md, claim, ok := snap.Lookup("blog")
	assert.True(t, ok)
	assert.Same(t, blog, md)
	assert.Equal(t, "blog", claim)

	md, claim, ok = snap.Lookup("shop")
	assert.True(t, ok)
	assert.Same(t, root, md)
	assert.Empty(t, claim)

	_, _, ok = (&Snapshot{Subdomains: snap.Subdomains}).Lookup("")
	assert.False(t, ok)
}

func TestManager_StaleClaimFallsBackToRoot(t *testing.T) {
	dir := t.TempDir()
	writeMandate(t, dir, "home", "root\n")
	writeMandate(t, dir, "blog", "sub news\n")
	m, _ := startManager(t, dir)

	// blog no longer declares "blog" but the snapshot still routes it there.
	stale := &Snapshot{
		Number:     99,
		Root:       m.byName["home"],
		Subdomains: map[string]*mandate.Mandate{"blog": m.byName["blog"]},
	}
	m.snap.Store(stale)
	assert.Equal(t, "home", resolveBody(t, m, "blog.example.com"))

	m.snap.Store(&Snapshot{Number: 100, Subdomains: stale.Subdomains})
	_, err := m.Resolve("blog.example.com")
	assert.ErrorIs(t, err, domain.ErrNoRoute)
}

func TestManager_NotReady(t *testing.T) {
	m := NewManager(t.TempDir(), &lineCompiler{}, WithLogger(logger.Discard()))
	assert.False(t, m.Ready())
	_, err := m.Resolve("example.com")
	assert.ErrorIs(t, err, domain.ErrNotReady)
}

func TestManager_StartErrors(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing"), &lineCompiler{}, WithLogger(logger.Discard()))
	assert.Error(t, m.Start(context.Background()))
	m.Stop()
}

func TestManager_ColdStartToleratesFailedBuild(t *testing.T) {
	dir := t.TempDir()
	writeMandate(t, dir, "home", "root\n")
	writeMandate(t, dir, "broken", "fail\n")
	m, _ := startManager(t, dir)

	assert.Equal(t, "home", resolveBody(t, m, "example.com"))

	states := m.MetricStates()
	require.Len(t, states, 2)
	assert.Equal(t, "broken", states[0].Name)
	assert.Equal(t, "invalid", states[0].State)
	assert.Equal(t, "valid", states[1].State)
	assert.FileExists(t, mandate.DiagnosticsPath(dir, "broken"))
}

func TestManager_RebuildRepublishes(t *testing.T) {
	dir := t.TempDir()
	writeMandate(t, dir, "home", "root\n")
	writeMandate(t, dir, "blog", "sub blog\n")
	m, _ := startManager(t, dir)
	first := m.Snapshot().Number

	writeMandate(t, dir, "blog", "sub blog shop\n")
	require.NoError(t, m.Rebuild(context.Background(), "blog"))

	require.Eventually(t, func() bool {
		return m.Snapshot().Number > first
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "blog", resolveBody(t, m, "shop.example.com"))

	err := m.Rebuild(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrMandateNotFound)
	_, err = m.Mandate("nope")
	assert.ErrorIs(t, err, domain.ErrMandateNotFound)
}

func TestManager_FailedRebuildKeepsServing(t *testing.T) {
	dir := t.TempDir()
	writeMandate(t, dir, "home", "root\n")
	m, _ := startManager(t, dir)
	before := m.Snapshot()

	writeMandate(t, dir, "home", "fail\n")
	require.Error(t, m.Rebuild(context.Background(), "home"))

	assert.Same(t, before, m.Snapshot(), "failed builds never republish")
	assert.Equal(t, "home", resolveBody(t, m, "example.com"))

	st, err := m.Mandate("home")
	require.NoError(t, err)
	assert.Equal(t, mandate.Valid, st.State)
	assert.NotEmpty(t, st.Diagnostics)
	assert.FileExists(t, mandate.DiagnosticsPath(dir, "home"))
}

func TestManager_NotifyCoalesces(t *testing.T) {
	m := NewManager(t.TempDir(), &lineCompiler{}, WithLogger(logger.Discard()))
	for i := 0; i < 100; i++ {
		m.notify(nil)
	}
	assert.Len(t, m.signal, 1)
}

func TestManager_ConcurrentResolveDuringRebuilds(t *testing.T) {
	dir := t.TempDir()
	writeMandate(t, dir, "home", "root\nsub blog\n")
	m, _ := startManager(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				lease, err := m.Resolve("blog.example.com")
				if err != nil {
					failures.Add(1)
					continue
				}
				if _, err := lease.Site.Get(context.Background(), &site.Request{}); err != nil {
					failures.Add(1)
				}
				lease.Release()
			}
		}()
	}

	for i := 0; i < 20; i++ {
		require.NoError(t, m.Rebuild(context.Background(), "home"))
	}
	cancel()
	wg.Wait()
	assert.Zero(t, failures.Load())
}

func TestManager_StopClosesModules(t *testing.T) {
	dir := t.TempDir()
	writeMandate(t, dir, "home", "root\n")
	writeMandate(t, dir, "blog", "sub blog\n")
	c := &lineCompiler{}
	m := NewManager(dir, c, WithLogger(logger.Discard()), WithPollInterval(time.Hour))
	require.NoError(t, m.Start(context.Background()))

	lease, err := m.Resolve("blog.example.com")
	require.NoError(t, err)

	m.Stop()
	assert.Equal(t, int32(1), c.closed.Load(), "leased module stays open")
	lease.Release()
	assert.Equal(t, int32(2), c.closed.Load())

	m.Stop()
}
