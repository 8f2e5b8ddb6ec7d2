package webserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/sabertooth-go/internal/telemetry/logger"
	"github.com/yndnr/sabertooth-go/pkg/site"
)

// conn is one client connection.
type conn struct {
	srv *Server
	nc  net.Conn
	br  *bufio.Reader
	bw  *bufio.Writer
	id  string
	ip  string
}

func newConn(s *Server, nc net.Conn) *conn {
	return &conn{
		srv: s,
		nc:  nc,
		br:  bufio.NewReader(nc),
		bw:  bufio.NewWriter(nc),
		id:  ulid.Make().String(),
		ip:  clientIP(nc.RemoteAddr()),
	}
}

func (c *conn) serve(ctx context.Context) {
	defer func() {
		_ = c.nc.Close()
		c.srv.forget(c)
	}()

	ctx = logger.WithConnID(logger.WithLogger(ctx, c.srv.logger), c.id)
	log := logger.L(ctx)
	log.Debug("connection accepted", "remote", c.nc.RemoteAddr().String())

	for {
		if c.srv.draining.Load() {
			return
		}
		c.srv.track(c, stateIdle)

		// Idle wait for the first byte, then the tighter per-request deadline.
		_ = c.nc.SetReadDeadline(time.Now().Add(c.srv.cfg.IdleTimeout))
		if _, err := c.br.Peek(1); err != nil {
			c.readFailed(log, err)
			return
		}
		c.srv.track(c, stateActive)

		_ = c.nc.SetReadDeadline(time.Now().Add(c.srv.cfg.ReadTimeout))
		req, err := ReadRequest(c.br, c.srv.cfg.Limits)
		if err != nil {
			c.readFailed(log, err)
			return
		}
		req.RemoteAddr = c.nc.RemoteAddr().String()
		req.ReceivedAt = time.Now()

		if !c.exchange(ctx, req) {
			return
		}
	}
}

func (c *conn) readFailed(log *slog.Logger, err error) {
	var ne net.Error
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, ErrConnectionClosed), errors.Is(err, net.ErrClosed):
		log.Debug("connection closed by peer")
	case errors.As(err, &ne) && ne.Timeout():
		log.Debug("connection timed out")
	case errors.Is(err, ErrLimitExceeded):
		log.Warn("request limit exceeded", "remote", c.ip, "error", err)
	case errors.Is(err, ErrMalformedRequest):
		log.Info("malformed request", "remote", c.ip, "error", err)
	default:
		log.Debug("connection read error", "error", err)
	}
}

// exchange answers one request and reports whether to keep the connection.
func (c *conn) exchange(ctx context.Context, req *site.Request) bool {
	ctx = logger.WithRequestID(ctx, ulid.Make().String())
	log := logger.L(ctx)
	started := time.Now()

	resp, release := c.handle(ctx, req)
	defer release()
	if err := resp.Err(); err != nil {
		log.Error("site reply rejected", "host", req.Host, "path", req.Path, "error", err)
		_ = resp.Content.Close()
		resp = c.fail(StatusInternalServerError, true)
	}

	if req.Close || c.srv.draining.Load() {
		resp.Close = true
	}

	_ = c.nc.SetWriteDeadline(time.Now().Add(c.srv.cfg.WriteTimeout))
	err := resp.Write(c.bw, req.Method == "HEAD")
	if err == nil {
		err = c.bw.Flush()
	}

	elapsed := time.Since(started)
	c.srv.metrics.ObserveRequest(req.Method, resp.Status, elapsed)
	log.Debug("request served",
		"method", req.Method,
		"path", req.Path,
		"host", req.Host,
		"status", resp.Status,
		"duration", elapsed,
	)
	if err != nil {
		log.Warn("failed to write response", "status", resp.Status, "error", err)
		return false
	}
	return !resp.MustClose()
}

// handle produces the response for req. release must be called once the
// response has been written.
func (c *conn) handle(ctx context.Context, req *site.Request) (*Response, func()) {
	nop := func() {}
	log := logger.L(ctx)

	if !c.srv.limiter.allow(c.ip) {
		c.srv.metrics.Limited()
		log.Warn("rate limit exceeded", "remote", c.ip)
		return c.fail(StatusForbidden, true), nop
	}
	if req.Host == "" {
		return c.fail(StatusBadRequest, true), nop
	}
	switch req.Method {
	case "GET", "HEAD", "POST":
	default:
		return c.fail(StatusBadRequest, false), nop
	}

	lease, err := c.srv.resolver.Resolve(req.Host)
	if err != nil {
		log.Error("cannot route request", "host", req.Host, "error", err)
		return c.fail(StatusInternalServerError, true), nop
	}
	log = log.With("mandate", lease.Mandate, "site", lease.SiteName, "build", lease.Build)
	return c.dispatch(ctx, log, lease.Site, lease.SiteName, req), lease.Release
}

func (c *conn) dispatch(ctx context.Context, log *slog.Logger, st site.Site, name string, req *site.Request) *Response {
	var (
		ok    bool
		realm string
	)
	err := guard(func() (err error) {
		ok, realm, err = st.IsAuthorized(ctx, req, req.Credentials())
		return err
	})
	if err != nil {
		return c.siteFailed(log, "authorize", err)
	}
	if !ok {
		if realm == "" {
			realm = name
		}
		r := c.fail(StatusUnauthorized, false)
		r.AddHeader("WWW-Authenticate", `Basic realm="`+quoteRealm(realm)+`"`)
		return r
	}

	var meta site.CacheMetadata
	err = guard(func() (err error) {
		meta, err = st.CacheMetadata(ctx, req)
		return err
	})
	if err != nil {
		return c.siteFailed(log, "cache metadata", err)
	}
	if req.Method != "POST" && notModified(req, meta) {
		r := c.respond(StatusNotModified)
		addValidators(r, meta)
		r.MaxAge = meta.MaxAge
		return r
	}

	var reply *site.Reply
	err = guard(func() (err error) {
		if req.Method == "POST" {
			reply, err = st.Post(ctx, req, req.Body)
		} else {
			reply, err = st.Get(ctx, req)
		}
		return err
	})
	if errors.Is(err, site.ErrNotImplemented) {
		return c.fail(StatusNotImplemented, false)
	}
	if err != nil {
		return c.siteFailed(log, strings.ToLower(req.Method), err)
	}
	if reply == nil {
		reply = &site.Reply{}
	}

	r := c.respond(StatusOK)
	if reply.Redirect != "" {
		r.Status = StatusTemporaryRedirect
		r.AddHeader("Location", reply.Redirect)
	}
	for _, ck := range reply.Cookies {
		r.AddHeader("Set-Cookie", ck.String())
	}
	addValidators(r, meta)
	r.MaxAge = meta.MaxAge
	if reply.MaxAge > 0 {
		r.MaxAge = reply.MaxAge
	}
	r.Content = reply.Content
	return r
}

// guard converts a panic in site code into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}

func (c *conn) siteFailed(log *slog.Logger, call string, err error) *Response {
	log.Error("site call failed", "call", call, "error", err)
	return c.fail(StatusInternalServerError, true)
}

// respond starts a response with the Server and Date instructions.
func (c *conn) respond(status int) *Response {
	return NewResponse(status).
		AddHeader("Server", c.srv.header).
		AddHeader("Date", time.Now().UTC().Format(http.TimeFormat))
}

// fail builds a response with a generic body naming the status.
func (c *conn) fail(status int, close bool) *Response {
	r := c.respond(status)
	r.Content = site.Text(StatusText(status))
	r.Close = close
	return r
}

func addValidators(r *Response, meta site.CacheMetadata) {
	if !meta.LastModified.IsZero() {
		r.AddHeader("Last-Modified", meta.LastModified.UTC().Format(http.TimeFormat))
	}
	if meta.ETag != "" {
		r.AddHeader("ETag", meta.ETag)
	}
}

// notModified applies If-None-Match, or If-Modified-Since when no
// If-None-Match was sent.
func notModified(req *site.Request, meta site.CacheMetadata) bool {
	if req.IfNoneMatch != "" {
		return meta.ETag != "" && etagMatch(req.IfNoneMatch, meta.ETag)
	}
	if req.IfModifiedSince.IsZero() || meta.LastModified.IsZero() {
		return false
	}
	return !meta.LastModified.Truncate(time.Second).After(req.IfModifiedSince)
}

// etagMatch uses weak comparison against a comma-separated list.
func etagMatch(list, etag string) bool {
	want := strings.TrimPrefix(etag, "W/")
	for _, tag := range strings.Split(list, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" || strings.TrimPrefix(tag, "W/") == want {
			return true
		}
	}
	return false
}

func quoteRealm(realm string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(realm)
}
