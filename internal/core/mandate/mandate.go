package mandate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/sabertooth-go/internal/core/domain"
	"github.com/yndnr/sabertooth-go/internal/infra/fswatch"
	"github.com/yndnr/sabertooth-go/internal/telemetry/metric"
)

// Default timing.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultDebounce     = 100 * time.Millisecond
	DefaultBuildTimeout = 2 * time.Minute
)

// Mandate is one hot-reloadable build unit.
type Mandate struct {
	name     string
	path     string
	dir      string
	compiler Compiler

	logger       *slog.Logger
	metrics      *metric.Registry
	watcher      *fswatch.Watcher
	pollInterval time.Duration
	debounce     time.Duration
	buildTimeout time.Duration
	onBuilt      func(*Mandate)

	buildMu sync.Mutex
	state   atomic.Int32
	current atomic.Pointer[generation]
	builds  atomic.Uint64

	mu          sync.Mutex
	manifest    Manifest
	stamps      map[string]time.Time
	diagnostics []string
	lastErr     error
	lastAttempt time.Time

	sub      *fswatch.Subscription
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	stopOnce sync.Once
	done     chan struct{}
}

// Option configures a Mandate.
type Option func(*Mandate)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mandate) {
		m.logger = logger
	}
}

// WithMetrics records build outcomes.
func WithMetrics(r *metric.Registry) Option {
	return func(m *Mandate) {
		m.metrics = r
	}
}

// WithWatcher lets the watchdog wake on file events instead of waiting for
// the next poll.
func WithWatcher(w *fswatch.Watcher) Option {
	return func(m *Mandate) {
		m.watcher = w
	}
}

// WithPollInterval sets the default watchdog period.
func WithPollInterval(d time.Duration) Option {
	return func(m *Mandate) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithDebounce sets how long the watchdog waits after a file event before
// checking, so a burst of writes produces one build.
func WithDebounce(d time.Duration) Option {
	return func(m *Mandate) {
		if d >= 0 {
			m.debounce = d
		}
	}
}

// WithBuildTimeout bounds each compile.
func WithBuildTimeout(d time.Duration) Option {
	return func(m *Mandate) {
		if d > 0 {
			m.buildTimeout = d
		}
	}
}

// WithBuildHook registers fn to run after every successful build.
func WithBuildHook(fn func(*Mandate)) Option {
	return func(m *Mandate) {
		m.onBuilt = fn
	}
}

// New creates a mandate for the manifest at path. Nothing is read until
// Build is called.
func New(path string, compiler Compiler, opts ...Option) *Mandate {
	m := &Mandate{
		name:         NameOf(path),
		path:         path,
		dir:          filepath.Dir(path),
		compiler:     compiler,
		logger:       slog.Default(),
		pollInterval: DefaultPollInterval,
		debounce:     DefaultDebounce,
		buildTimeout: DefaultBuildTimeout,
		stamps:       make(map[string]time.Time),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("mandate", m.name)
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// Name returns the mandate name.
func (m *Mandate) Name() string { return m.name }

// Path returns the manifest path.
func (m *Mandate) Path() string { return m.path }

// State returns the current build state.
func (m *Mandate) State() State { return State(m.state.Load()) }

// Build reads the manifest, compiles it and, on success, replaces the
// generation in service. On failure the previous generation keeps serving
// and the diagnostics artifact is written. Builds are serialized.
func (m *Mandate) Build(ctx context.Context) error {
	m.buildMu.Lock()
	defer m.buildMu.Unlock()

	m.state.Store(int32(Building))
	started := time.Now()

	man, err := ReadManifest(m.path)
	if err != nil {
		m.mu.Lock()
		m.stamps = statAll([]string{m.path})
		m.mu.Unlock()
		return m.fail(started, domain.ErrManifestInvalid.WithCause(err), nil)
	}
	for _, missing := range man.Missing {
		m.logger.Error("manifest source does not exist", "source", missing)
	}

	paths := man.WatchPaths(m.path, m.dir)
	m.mu.Lock()
	m.manifest = man
	m.stamps = statAll(paths)
	sub := m.sub
	m.mu.Unlock()
	if sub != nil {
		sub.Update(paths)
	}

	unit := BuildUnit{
		Name:    m.name,
		Dir:     m.dir,
		Sources: man.Sources,
		Refs:    man.Refs,
	}

	cctx, cancel := context.WithTimeout(ctx, m.buildTimeout)
	defer cancel()

	mod, err := m.compiler.Compile(cctx, unit)
	if err != nil && ctx.Err() != nil {
		// Shutting down; not a verdict on the sources.
		m.restoreState()
		return fmt.Errorf("mandate %s: build interrupted: %w", m.name, ctx.Err())
	}
	if err != nil {
		var be *BuildError
		if errors.As(err, &be) {
			return m.fail(started, domain.ErrBuildFailed.WithCause(err), be.Diagnostics)
		}
		return m.fail(started, domain.ErrBuildFailed.WithCause(err), nil)
	}

	number := m.builds.Add(1)
	gen, ok := newGeneration(number, mod, m.logger)
	if !ok {
		if cerr := mod.Close(); cerr != nil {
			m.logger.Warn("failed to close rejected module", "error", cerr)
		}
		return m.fail(started, domain.ErrNoSites, nil)
	}

	prev := m.current.Swap(gen)
	if prev != nil {
		prev.retire()
	}
	m.state.Store(int32(Valid))

	m.mu.Lock()
	m.diagnostics = nil
	m.lastErr = nil
	m.lastAttempt = started
	m.mu.Unlock()

	if err := removeDiagnostics(DiagnosticsPath(m.dir, m.name)); err != nil {
		m.logger.Warn("failed to remove diagnostics artifact", "error", err)
	}

	m.metrics.BuildFinished(m.name, true)
	m.logger.Info("mandate built",
		"build", number,
		"sites", gen.names,
		"root", gen.root != nil,
		"subdomains", gen.claims(),
		"duration", time.Since(started),
	)

	if m.onBuilt != nil {
		m.onBuilt(m)
	}
	return nil
}

func (m *Mandate) restoreState() {
	if m.current.Load() != nil {
		m.state.Store(int32(Valid))
	} else {
		m.state.Store(int32(Invalid))
	}
}

// fail records a failed build. The state returns to Valid when a previous
// generation exists.
func (m *Mandate) fail(started time.Time, err error, lines []string) error {
	m.restoreState()

	m.mu.Lock()
	m.diagnostics = lines
	m.lastErr = err
	m.lastAttempt = started
	m.mu.Unlock()

	if werr := writeDiagnostics(DiagnosticsPath(m.dir, m.name), m.name, started, err, lines); werr != nil {
		m.logger.Error("failed to write diagnostics artifact", "error", werr)
	}

	m.metrics.BuildFinished(m.name, false)
	m.logger.Error("mandate build failed",
		"error", err,
		"diagnostics", len(lines),
		"serving_previous", m.current.Load() != nil,
	)
	for _, l := range lines {
		m.logger.Debug("build diagnostic", "line", l)
	}
	return fmt.Errorf("mandate %s: %w", m.name, err)
}

// Acquire resolves sub within the current generation and leases it. An
// empty or unclaimed sub falls back to the mandate's root site.
func (m *Mandate) Acquire(sub string) (*Lease, error) {
	for {
		g := m.current.Load()
		if g == nil {
			return nil, domain.ErrMandateNotBuilt.WithDetails(m.name)
		}
		d, ok := g.lookup(sub)
		if !ok {
			return nil, domain.ErrNoRoute.WithDetails(fmt.Sprintf("mandate %s has no site for %q", m.name, sub))
		}
		if g.acquire() {
			return &Lease{
				Site:     d.Site,
				SiteName: d.Name,
				Mandate:  m.name,
				Build:    g.number,
				g:        g,
			}, nil
		}
		// Retired and closed between Load and acquire; the successor is
		// already published.
	}
}

// Claims reports the routing claims of the generation in service.
func (m *Mandate) Claims() (root bool, subdomains []string, ok bool) {
	g := m.current.Load()
	if g == nil {
		return false, nil, false
	}
	return g.root != nil, g.claims(), true
}

// Status is a point-in-time view of a mandate.
type Status struct {
	Name        string
	State       State
	Build       uint64
	BuiltAt     time.Time
	Root        bool
	Subdomains  []string
	Sources     int
	LastAttempt time.Time
	LastError   string
	Diagnostics []string
}

// Status returns the mandate's current status.
func (m *Mandate) Status() Status {
	s := Status{Name: m.name, State: m.State()}
	if g := m.current.Load(); g != nil {
		s.Build = g.number
		s.BuiltAt = g.builtAt
		s.Root = g.root != nil
		s.Subdomains = g.claims()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s.Sources = len(m.manifest.Sources)
	s.LastAttempt = m.lastAttempt
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	s.Diagnostics = append([]string(nil), m.diagnostics...)
	return s
}

// Start launches the watchdog. Call after the first Build.
func (m *Mandate) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	if m.watcher != nil {
		paths := make([]string, 0, len(m.stamps))
		for p := range m.stamps {
			paths = append(paths, p)
		}
		m.sub = m.watcher.Subscribe(paths)
	}
	go m.watch()
}

// Stop stops the watchdog, cancelling an in-flight build, and waits for it.
func (m *Mandate) Stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		if started {
			<-m.done
		}
		m.mu.Lock()
		sub := m.sub
		m.mu.Unlock()
		if sub != nil {
			sub.Close()
		}
	})
}

// Close stops the watchdog and retires the generation in service.
func (m *Mandate) Close() {
	m.Stop()
	if g := m.current.Swap(nil); g != nil {
		g.retire()
	}
}
