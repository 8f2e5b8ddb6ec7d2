package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/sabertooth-go/internal/core/domain"
	"github.com/yndnr/sabertooth-go/internal/core/mandate"
	"github.com/yndnr/sabertooth-go/internal/infra/fswatch"
	"github.com/yndnr/sabertooth-go/internal/telemetry/metric"
	"github.com/yndnr/sabertooth-go/pkg/site"
)

// Manager owns the mandates of a sites directory and publishes the
// routing snapshot.
type Manager struct {
	dir      string
	compiler mandate.Compiler

	logger       *slog.Logger
	metrics      *metric.Registry
	watcher      *fswatch.Watcher
	pollInterval time.Duration
	debounce     time.Duration
	buildTimeout time.Duration

	mandates []*mandate.Mandate
	byName   map[string]*mandate.Mandate

	snap   atomic.Pointer[Snapshot]
	number uint64 // coordinator only
	signal chan struct{}

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithMetrics records builds and snapshot publication.
func WithMetrics(r *metric.Registry) Option {
	return func(m *Manager) {
		m.metrics = r
	}
}

// WithWatcher wakes watchdogs on file events.
func WithWatcher(w *fswatch.Watcher) Option {
	return func(m *Manager) {
		m.watcher = w
	}
}

// WithPollInterval sets the default watchdog period.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.pollInterval = d
	}
}

// WithDebounce sets the delay between a file event and the check.
func WithDebounce(d time.Duration) Option {
	return func(m *Manager) {
		m.debounce = d
	}
}

// WithBuildTimeout bounds each compile.
func WithBuildTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.buildTimeout = d
	}
}

// NewManager creates a manager for the manifests in dir.
func NewManager(dir string, compiler mandate.Compiler, opts ...Option) *Manager {
	m := &Manager{
		dir:          dir,
		compiler:     compiler,
		logger:       slog.Default(),
		pollInterval: mandate.DefaultPollInterval,
		debounce:     mandate.DefaultDebounce,
		buildTimeout: mandate.DefaultBuildTimeout,
		byName:       make(map[string]*mandate.Mandate),
		signal:       make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// Scan finds the manifests in the sites directory, sorted by name.
func Scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan sites directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), mandate.ManifestExt) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Start scans the sites directory, builds every mandate concurrently,
// publishes the first snapshot and starts the watchdogs and the
// coordinator. Build failures are not fatal; those mandates stay Invalid
// until their sources are fixed.
func (m *Manager) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return errors.New("registry: already started")
	}

	paths, err := Scan(m.dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		m.logger.Warn("no mandate manifests found", "dir", m.dir, "pattern", "*"+mandate.ManifestExt)
	}

	for _, p := range paths {
		md := mandate.New(p, m.compiler,
			mandate.WithLogger(m.logger),
			mandate.WithMetrics(m.metrics),
			mandate.WithWatcher(m.watcher),
			mandate.WithPollInterval(m.pollInterval),
			mandate.WithDebounce(m.debounce),
			mandate.WithBuildTimeout(m.buildTimeout),
			mandate.WithBuildHook(m.notify),
		)
		m.mandates = append(m.mandates, md)
		m.byName[md.Name()] = md
	}

	started := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for _, md := range m.mandates {
		g.Go(func() error {
			if err := md.Build(gctx); err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.closeMandates()
		return fmt.Errorf("registry: cold start: %w", err)
	}

	// Hooks fired during the cold builds are covered by this publish.
	select {
	case <-m.signal:
	default:
	}
	m.publish()

	valid := 0
	for _, md := range m.mandates {
		if md.State() == mandate.Valid {
			valid++
		}
		md.Start()
	}
	go m.coordinate()

	m.logger.Info("registry started",
		"mandates", len(m.mandates),
		"valid", valid,
		"duration", time.Since(started),
	)
	return nil
}

// notify is the build hook. The signal slot holds at most one pending
// request, so bursts collapse into one extra pass.
func (m *Manager) notify(*mandate.Mandate) {
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *Manager) coordinate() {
	defer close(m.done)
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.signal:
			m.publish()
		}
	}
}

func (m *Manager) publish() {
	m.number++
	snap, conflicts := compose(m.number, m.mandates)
	for _, c := range conflicts {
		if c.Subdomain == "" {
			m.logger.Warn("duplicate root claim ignored", "winner", c.Winner, "ignored", c.Loser)
			continue
		}
		m.logger.Warn("duplicate subdomain claim ignored",
			"subdomain", c.Subdomain,
			"winner", c.Winner,
			"ignored", c.Loser,
		)
	}
	m.snap.Store(snap)
	m.metrics.SnapshotPublished(snap.Number)

	root := ""
	if snap.Root != nil {
		root = snap.Root.Name()
	}
	m.logger.Info("routing snapshot published",
		"snapshot", snap.Number,
		"root", root,
		"subdomains", len(snap.Subdomains),
	)
}

// Snapshot returns the snapshot in service, or nil before Start.
func (m *Manager) Snapshot() *Snapshot {
	return m.snap.Load()
}

// Ready reports whether a snapshot has been published.
func (m *Manager) Ready() bool {
	return m.snap.Load() != nil
}

// Resolve leases the site serving host. The caller must release the lease.
func (m *Manager) Resolve(host string) (*mandate.Lease, error) {
	snap := m.snap.Load()
	if snap == nil {
		return nil, domain.ErrNotReady
	}

	md, claim, ok := snap.Lookup(site.SubdomainOf(host))
	if !ok {
		return nil, domain.ErrNoRoute.WithDetails(fmt.Sprintf("host %q", host))
	}
	lease, err := md.Acquire(claim)
	if err == nil || claim == "" || snap.Root == nil {
		return lease, err
	}
	// The owner rebuilt without this claim after the snapshot was composed
	// and the republish has not landed yet. The root answers meanwhile.
	m.logger.Warn("subdomain owner cannot serve, using root",
		"subdomain", claim, "mandate", md.Name(), "error", err)
	return snap.Root.Acquire("")
}

// Mandates returns the status of every mandate in registration order.
func (m *Manager) Mandates() []mandate.Status {
	out := make([]mandate.Status, len(m.mandates))
	for i, md := range m.mandates {
		out[i] = md.Status()
	}
	return out
}

// Mandate returns the status of one mandate.
func (m *Manager) Mandate(name string) (mandate.Status, error) {
	md, ok := m.byName[name]
	if !ok {
		return mandate.Status{}, domain.ErrMandateNotFound.WithDetails(name)
	}
	return md.Status(), nil
}

// Rebuild builds one mandate now, regardless of file changes.
func (m *Manager) Rebuild(ctx context.Context, name string) error {
	md, ok := m.byName[name]
	if !ok {
		return domain.ErrMandateNotFound.WithDetails(name)
	}
	m.logger.Info("manual rebuild requested", "mandate", name)
	return md.Build(ctx)
}

// MetricStates feeds metric.Collector.
func (m *Manager) MetricStates() []metric.MandateState {
	out := make([]metric.MandateState, len(m.mandates))
	for i, md := range m.mandates {
		st := md.Status()
		out[i] = metric.MandateState{Name: st.Name, State: st.State.String(), Build: st.Build}
	}
	return out
}

// Stop joins the watchdogs and the coordinator, then retires every
// generation. Modules still leased by in-flight requests close when the
// last lease is released.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.cancel()

		var wg sync.WaitGroup
		for _, md := range m.mandates {
			wg.Add(1)
			go func() {
				defer wg.Done()
				md.Stop()
			}()
		}
		wg.Wait()

		if m.started.Load() && m.snap.Load() != nil {
			<-m.done
		}
		m.closeMandates()
		m.logger.Info("registry stopped")
	})
}

func (m *Manager) closeMandates() {
	for _, md := range m.mandates {
		md.Close()
	}
}
