package command

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sabertooth-go/internal/core/domain"
	"github.com/yndnr/sabertooth-go/internal/core/mandate"
	"github.com/yndnr/sabertooth-go/internal/core/registry"
	"github.com/yndnr/sabertooth-go/internal/server/httpserver"
	"github.com/yndnr/sabertooth-go/internal/server/localserver"
	"github.com/yndnr/sabertooth-go/internal/telemetry/logger"
)

// fakeRegistry serves both the console and the admin API.
type fakeRegistry struct {
	ready    bool
	snap     *registry.Snapshot
	statuses []mandate.Status
}

func newFakeRegistry() *fakeRegistry {
	main := mandate.New("/sites/main.sbr", nil)
	blog := mandate.New("/sites/blog.sbr", nil)
	return &fakeRegistry{
		ready: true,
		snap: &registry.Snapshot{
			Number:      5,
			Root:        main,
			Subdomains:  map[string]*mandate.Mandate{"blog": blog},
			PublishedAt: time.Now(),
		},
		statuses: []mandate.Status{
			{Name: "blog", State: mandate.Valid, Build: 2, Subdomains: []string{"blog"}, Sources: 1},
			{Name: "main", State: mandate.Valid, Build: 1, Root: true, Sources: 2},
			{
				Name:        "shop",
				State:       mandate.Invalid,
				LastAttempt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
				LastError:   "build failed",
				Diagnostics: []string{"shop.js:2:5 SyntaxError"},
			},
		},
	}
}

func (f *fakeRegistry) Ready() bool                  { return f.ready }
func (f *fakeRegistry) Snapshot() *registry.Snapshot { return f.snap }
func (f *fakeRegistry) Mandates() []mandate.Status   { return f.statuses }

func (f *fakeRegistry) Mandate(name string) (mandate.Status, error) {
	for _, st := range f.statuses {
		if st.Name == name {
			return st, nil
		}
	}
	return mandate.Status{}, domain.ErrMandateNotFound.WithDetails(name)
}

func (f *fakeRegistry) Rebuild(_ context.Context, name string) error {
	for i := range f.statuses {
		if f.statuses[i].Name == name {
			f.statuses[i].Build++
			return nil
		}
	}
	return domain.ErrMandateNotFound.WithDetails(name)
}

type env struct {
	socket   string
	admin    string
	cliFile  string
	shutdown chan string
}

func startEnv(t *testing.T, reg *fakeRegistry) *env {
	t.Helper()
	dir, err := os.MkdirTemp("", "stcli")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	e := &env{
		socket:   filepath.Join(dir, "console.sock"),
		cliFile:  filepath.Join(dir, "cli.yaml"),
		shutdown: make(chan string, 1),
	}

	h := localserver.NewHandler(reg, func(r string) { e.shutdown <- r }, logger.Discard())
	console := localserver.New(e.socket, h, logger.Discard())
	if err := console.Listen(); err != nil {
		t.Fatal(err)
	}
	go console.Serve(context.Background())
	t.Cleanup(func() { console.Shutdown(context.Background()) })

	admin := httptest.NewServer(httpserver.NewRouter(&httpserver.RouterConfig{
		Backend: reg,
		Token:   "tok",
		Logger:  logger.Discard(),
	}))
	t.Cleanup(admin.Close)
	e.admin = admin.URL
	return e
}

// run executes the CLI and returns stdout, stderr and the error.
func (e *env) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = bytes.NewBufferString(stdin)
	app.ExitErrHandler = func(*cli.Context, error) {}

	full := append([]string{"sabertooth-cli", "--config", e.cliFile, "--socket", e.socket}, args...)
	err := app.Run(full)
	return out.String(), errOut.String(), err
}

func (e *env) withAdmin(args ...string) []string {
	return append([]string{"--admin", e.admin, "--token", "tok"}, args...)
}
