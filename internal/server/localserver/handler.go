package localserver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/yndnr/sabertooth-go/internal/core/mandate"
	"github.com/yndnr/sabertooth-go/internal/core/registry"
	"github.com/yndnr/sabertooth-go/internal/infra/buildinfo"
)

// Reply terminators.
const (
	ReplyOK  = "+OK"
	ReplyErr = "-ERR"
)

// Backend is the part of the registry the console drives.
type Backend interface {
	Mandates() []mandate.Status
	Mandate(name string) (mandate.Status, error)
	Rebuild(ctx context.Context, name string) error
	Snapshot() *registry.Snapshot
}

// Handler executes console commands.
type Handler struct {
	backend  Backend
	shutdown func(reason string)
	started  time.Time
	logger   *slog.Logger
}

// NewHandler creates a handler. shutdown is called by quit.
func NewHandler(backend Backend, shutdown func(reason string), logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		backend:  backend,
		shutdown: shutdown,
		started:  time.Now(),
		logger:   logger,
	}
}

// Execute runs one command line and writes its reply. It reports whether
// the session should end.
func (h *Handler) Execute(ctx context.Context, w io.Writer, line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch cmd {
	case "status":
		err = h.status(w)
	case "mandates":
		err = h.mandates(w)
	case "diagnostics":
		err = h.withName(args, func(name string) error { return h.diagnostics(w, name) })
	case "routes":
		err = h.routes(w)
	case "rebuild":
		err = h.withName(args, func(name string) error { return h.rebuild(ctx, w, name) })
	case "quit", "exit", "shutdown":
		h.logger.Info("shutdown requested from console")
		fmt.Fprintln(w, "shutting down")
		if h.shutdown != nil {
			h.shutdown("console " + cmd)
		}
		quit = true
	case "help":
		h.help(w)
	default:
		err = fmt.Errorf("unknown command %q, try help", cmd)
	}

	if err != nil {
		fmt.Fprintln(w, ReplyErr, err.Error())
		return quit
	}
	fmt.Fprintln(w, ReplyOK)
	return quit
}

func (h *Handler) withName(args []string, fn func(string) error) error {
	if len(args) != 1 {
		return fmt.Errorf("expected one mandate name")
	}
	return fn(args[0])
}

func (h *Handler) status(w io.Writer) error {
	fmt.Fprintf(w, "version: %s\n", buildinfo.String())
	fmt.Fprintf(w, "uptime: %s\n", time.Since(h.started).Round(time.Second))

	counts := map[mandate.State]int{}
	all := h.backend.Mandates()
	for _, st := range all {
		counts[st.State]++
	}
	fmt.Fprintf(w, "mandates: %d (valid %d, invalid %d, building %d)\n",
		len(all), counts[mandate.Valid], counts[mandate.Invalid], counts[mandate.Building])

	snap := h.backend.Snapshot()
	if snap == nil {
		fmt.Fprintln(w, "snapshot: none")
		return nil
	}
	root := "-"
	if snap.Root != nil {
		root = snap.Root.Name()
	}
	fmt.Fprintf(w, "snapshot: %d published %s\n", snap.Number, snap.PublishedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "root: %s\n", root)
	fmt.Fprintf(w, "subdomains: %d\n", len(snap.Subdomains))
	return nil
}

func (h *Handler) mandates(w io.Writer) error {
	for _, st := range h.backend.Mandates() {
		subs := "-"
		if len(st.Subdomains) > 0 {
			subs = strings.Join(st.Subdomains, ",")
		}
		fmt.Fprintf(w, "%s state=%s build=%d root=%t subdomains=%s sources=%d",
			st.Name, st.State, st.Build, st.Root, subs, st.Sources)
		if st.LastError != "" {
			fmt.Fprintf(w, " error=%q", st.LastError)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func (h *Handler) diagnostics(w io.Writer, name string) error {
	st, err := h.backend.Mandate(name)
	if err != nil {
		return err
	}
	if st.LastError == "" {
		fmt.Fprintln(w, "no failed build")
		return nil
	}
	fmt.Fprintf(w, "attempt: %s\n", st.LastAttempt.Format(time.RFC3339))
	fmt.Fprintf(w, "error: %s\n", st.LastError)
	for _, l := range st.Diagnostics {
		fmt.Fprintln(w, "  "+l)
	}
	return nil
}

func (h *Handler) routes(w io.Writer) error {
	snap := h.backend.Snapshot()
	if snap == nil {
		return fmt.Errorf("no snapshot published")
	}
	if snap.Root != nil {
		fmt.Fprintf(w, "* -> %s\n", snap.Root.Name())
	}
	for _, r := range snap.Routes() {
		fmt.Fprintf(w, "%s -> %s\n", r[0], r[1])
	}
	return nil
}

func (h *Handler) rebuild(ctx context.Context, w io.Writer, name string) error {
	if err := h.backend.Rebuild(ctx, name); err != nil {
		return err
	}
	st, err := h.backend.Mandate(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s build=%d\n", st.Name, st.Build)
	return nil
}

func (h *Handler) help(w io.Writer) {
	fmt.Fprint(w, `status               server and snapshot summary
mandates             one line per mandate
diagnostics <name>   diagnostics of the last failed build
routes               subdomain to mandate table
rebuild <name>       build a mandate now
quit                 graceful shutdown (aliases exit, shutdown)
`)
}
