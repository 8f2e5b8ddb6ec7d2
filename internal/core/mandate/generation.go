package mandate

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/sabertooth-go/pkg/site"
)

// generation is one successful build: the module and its routing table.
// It is immutable apart from the lease bookkeeping.
type generation struct {
	number  uint64
	module  Module
	refresh time.Duration
	builtAt time.Time

	root  *site.Declaration
	subs  map[string]*site.Declaration
	names []string

	mu      sync.Mutex
	leases  int
	retired bool
	closed  bool
	logger  *slog.Logger
}

// newGeneration indexes the module's declarations. Within one module the
// first declaration of a claim wins. It returns ok=false when the module
// declares no sites.
func newGeneration(number uint64, mod Module, logger *slog.Logger) (*generation, bool) {
	decls := mod.Sites()
	if len(decls) == 0 {
		return nil, false
	}

	g := &generation{
		number:  number,
		module:  mod,
		refresh: mod.RefreshInterval(),
		builtAt: time.Now(),
		subs:    make(map[string]*site.Declaration),
		logger:  logger,
	}

	for i := range decls {
		d := &decls[i]
		if d.Site == nil {
			logger.Warn("site declared without implementation, skipped", "site", d.Name)
			continue
		}
		if d.Root {
			if g.root != nil {
				logger.Warn("multiple root claims in one mandate, keeping first",
					"kept", g.root.Name,
					"ignored", d.Name,
				)
			} else {
				g.root = d
			}
		}
		for _, sub := range d.Subdomains {
			sub = strings.ToLower(strings.TrimSpace(sub))
			if sub == "" {
				continue
			}
			if prev, dup := g.subs[sub]; dup {
				logger.Warn("duplicate subdomain claim in one mandate, keeping first",
					"subdomain", sub,
					"kept", prev.Name,
					"ignored", d.Name,
				)
				continue
			}
			g.subs[sub] = d
		}
		g.names = append(g.names, d.Name)
	}

	if g.root == nil && len(g.subs) == 0 {
		return nil, false
	}
	return g, true
}

// claims returns the sorted subdomains this generation serves.
func (g *generation) claims() []string {
	out := make([]string, 0, len(g.subs))
	for sub := range g.subs {
		out = append(out, sub)
	}
	sort.Strings(out)
	return out
}

// lookup picks the declaration for sub, falling back to the root site.
func (g *generation) lookup(sub string) (*site.Declaration, bool) {
	if sub != "" {
		if d, ok := g.subs[sub]; ok {
			return d, true
		}
	}
	if g.root != nil {
		return g.root, true
	}
	return nil, false
}

// acquire takes a lease. It fails once the module has been closed.
func (g *generation) acquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.leases++
	return true
}

func (g *generation) release() {
	g.mu.Lock()
	g.leases--
	closeNow := g.retired && g.leases == 0 && !g.closed
	if closeNow {
		g.closed = true
	}
	g.mu.Unlock()

	if closeNow {
		g.close()
	}
}

// retire marks the generation replaced. The module closes now if idle,
// otherwise when the last lease is released.
func (g *generation) retire() {
	g.mu.Lock()
	g.retired = true
	closeNow := g.leases == 0 && !g.closed
	if closeNow {
		g.closed = true
	}
	g.mu.Unlock()

	if closeNow {
		g.close()
	}
}

func (g *generation) close() {
	if err := g.module.Close(); err != nil {
		g.logger.Warn("failed to close retired module",
			"build", g.number,
			"error", err,
		)
		return
	}
	g.logger.Debug("retired module closed", "build", g.number)
}

// Lease pins a site's generation for the duration of one request.
type Lease struct {
	// Site is the resolved implementation.
	Site site.Site
	// SiteName is the declaration name.
	SiteName string
	// Mandate is the owning mandate's name.
	Mandate string
	// Build is the generation number.
	Build uint64

	g    *generation
	once sync.Once
}

// Release returns the lease. It is safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(l.g.release)
}
