package webserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/sabertooth-go/internal/core/mandate"
	"github.com/yndnr/sabertooth-go/internal/infra/buildinfo"
	"github.com/yndnr/sabertooth-go/internal/telemetry/metric"
)

// Resolver finds the site serving a Host header value.
type Resolver interface {
	Resolve(host string) (*mandate.Lease, error)
}

// Config holds the listener configuration.
type Config struct {
	Addr string
	// ReadTimeout bounds reading one request once its first byte arrived.
	ReadTimeout time.Duration
	// WriteTimeout bounds writing one response.
	WriteTimeout time.Duration
	// IdleTimeout bounds the wait for the next request.
	IdleTimeout time.Duration
	// RateLimit is requests per second per client IP. Zero disables it.
	RateLimit float64
	RateBurst int
	Limits    Limits
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
		RateBurst:    50,
		Limits:       DefaultLimits(),
	}
}

const limiterSweepInterval = time.Minute

type connState int

const (
	stateIdle connState = iota
	stateActive
)

// Server is the public HTTP/1.1 server.
type Server struct {
	cfg      Config
	resolver Resolver
	logger   *slog.Logger
	metrics  *metric.Registry
	limiter  *limiter
	header   string

	mu    sync.Mutex
	ln    net.Listener
	conns map[*conn]connState

	draining atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics records requests and connections.
func WithMetrics(r *metric.Registry) Option {
	return func(s *Server) {
		s.metrics = r
	}
}

// New creates a server. Zero timeouts take the defaults.
func New(cfg Config, resolver Resolver, opts ...Option) *Server {
	def := DefaultConfig()
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}

	s := &Server{
		cfg:      cfg,
		resolver: resolver,
		logger:   slog.Default(),
		limiter:  newLimiter(cfg.RateLimit, cfg.RateBurst),
		header:   buildinfo.ServerHeader(),
		conns:    make(map[*conn]connState),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen binds the listener. Serve calls it when needed.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until Shutdown. Connections inherit the
// values of ctx but not its cancellation; in-flight requests finish
// during a shutdown.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	s.logger.Info("web server listening", "address", ln.Addr().String())

	if s.limiter != nil {
		s.wg.Add(1)
		go s.sweepLimiter()
	}

	base := context.WithoutCancel(ctx)
	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.draining.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.Warn("accept timeout", "error", err)
				time.Sleep(5 * time.Millisecond)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}

		c := newConn(s, nc)
		if !s.track(c, stateIdle) {
			_ = nc.Close()
			continue
		}
		s.metrics.ConnOpened()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			c.serve(base)
		}()
	}
}

func (s *Server) sweepLimiter() {
	defer s.wg.Done()
	t := time.NewTicker(limiterSweepInterval)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			if n := s.limiter.sweep(10 * limiterSweepInterval); n > 0 {
				s.logger.Debug("rate limiter clients forgotten", "count", n)
			}
		}
	}
}

// track records a connection state change. It refuses new connections
// once draining has begun.
func (s *Server) track(c *conn, st connState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.conns[c]; !known && s.draining.Load() {
		return false
	}
	s.conns[c] = st
	return true
}

func (s *Server) forget(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.metrics.ConnClosed()
}

// closeIdle closes idle connections and reports whether none remain.
func (s *Server) closeIdle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c, st := range s.conns {
		if st == stateIdle {
			_ = c.nc.Close()
		}
	}
	return len(s.conns) == 0
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.nc.Close()
	}
}

// Draining reports whether Shutdown has been called.
func (s *Server) Draining() bool {
	return s.draining.Load()
}

// Shutdown stops accepting, closes idle connections and waits for active
// ones to finish their current exchange. When ctx ends first the remaining
// connections are closed forcibly.
func (s *Server) Shutdown(ctx context.Context) error {
	s.draining.Store(true)
	s.doneOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	var lnErr error
	if ln != nil {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			lnErr = err
		}
	}

	t := time.NewTicker(20 * time.Millisecond)
	defer t.Stop()
	for !s.closeIdle() {
		select {
		case <-ctx.Done():
			s.closeAll()
			s.wg.Wait()
			return ctx.Err()
		case <-t.C:
		}
	}
	s.wg.Wait()
	s.logger.Info("web server stopped")
	return lnErr
}
