package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	goplugin "github.com/hashicorp/go-plugin"
	"github.com/oklog/ulid/v2"

	"github.com/yndnr/sabertooth-go/internal/core/domain"
	"github.com/yndnr/sabertooth-go/internal/core/mandate"
	"github.com/yndnr/sabertooth-go/internal/telemetry/logger"
	"github.com/yndnr/sabertooth-go/pkg/sitekit"
)

// Extension is the source file extension this compiler handles.
const Extension = ".go"

// DefaultStartTimeout bounds the plugin handshake.
const DefaultStartTimeout = 10 * time.Second

// DefaultCallTimeout bounds one call into a plugin process.
const DefaultCallTimeout = 10 * time.Second

var tagPattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

// Compiler builds mandates with the go tool.
type Compiler struct {
	goBinary     string
	buildDir     string
	env          []string
	startTimeout time.Duration
	callTimeout  time.Duration
	logger       *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithGoBinary sets the go command. The default is "go" from PATH.
func WithGoBinary(path string) Option {
	return func(c *Compiler) {
		if path != "" {
			c.goBinary = path
		}
	}
}

// WithBuildDir sets where binaries are written. The default is a
// directory under os.TempDir.
func WithBuildDir(dir string) Option {
	return func(c *Compiler) {
		if dir != "" {
			c.buildDir = dir
		}
	}
}

// WithEnv appends variables to the go build environment.
func WithEnv(env ...string) Option {
	return func(c *Compiler) {
		c.env = append(c.env, env...)
	}
}

// WithStartTimeout bounds the plugin handshake.
func WithStartTimeout(d time.Duration) Option {
	return func(c *Compiler) {
		if d > 0 {
			c.startTimeout = d
		}
	}
}

// WithCallTimeout bounds each call into a site served by the plugin.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Compiler) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithLogger sets the logger. Plugin output is forwarded to it.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = l
	}
}

// New creates a process compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		goBinary:     "go",
		buildDir:     filepath.Join(os.TempDir(), "sabertooth-build"),
		startTimeout: DefaultStartTimeout,
		callTimeout:  DefaultCallTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile builds and launches the plugin for unit.
func (c *Compiler) Compile(ctx context.Context, unit mandate.BuildUnit) (mandate.Module, error) {
	srcDir, tags, err := c.check(unit)
	if err != nil {
		return nil, err
	}

	goBin, err := exec.LookPath(c.goBinary)
	if err != nil {
		return nil, domain.ErrNoCompiler.WithDetails(c.goBinary).WithCause(err)
	}
	if err := os.MkdirAll(c.buildDir, 0o755); err != nil {
		return nil, fmt.Errorf("create build dir: %w", err)
	}

	bin := filepath.Join(c.buildDir, unit.Name+"-"+ulid.Make().String())
	args := []string{"build", "-o", bin}
	if len(tags) > 0 {
		args = append(args, "-tags", strings.Join(tags, ","))
	}
	for _, src := range unit.Sources {
		args = append(args, filepath.Base(src))
	}

	cmd := exec.CommandContext(ctx, goBin, args...)
	cmd.Dir = srcDir
	cmd.Env = append(os.Environ(), c.env...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = time.Second

	started := time.Now()
	if err := cmd.Run(); err != nil {
		_ = os.Remove(bin)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exit *exec.ExitError
		if errors.As(err, &exit) {
			be := mandate.Diagnosticsf(out.String())
			if len(be.Diagnostics) == 0 {
				be.Diagnostics = []string{err.Error()}
			}
			return nil, be
		}
		return nil, fmt.Errorf("run %s: %w", c.goBinary, err)
	}
	c.logger.Debug("plugin binary built",
		"mandate", unit.Name,
		"binary", bin,
		"elapsed", time.Since(started),
	)

	m, err := c.launch(ctx, unit.Name, bin)
	if err != nil {
		_ = os.Remove(bin)
		return nil, err
	}
	return m, nil
}

// check validates the unit before anything runs.
func (c *Compiler) check(unit mandate.BuildUnit) (string, []string, error) {
	var diags []string
	srcDir := ""
	for _, src := range unit.Sources {
		if filepath.Ext(src) != Extension {
			diags = append(diags, fmt.Sprintf("%s: not a %s file", src, Extension))
			continue
		}
		dir := filepath.Dir(src)
		switch {
		case srcDir == "":
			srcDir = dir
		case dir != srcDir:
			diags = append(diags, fmt.Sprintf("%s: sources must share one directory (%s)", src, srcDir))
		}
	}
	if len(unit.Sources) == 0 {
		diags = append(diags, "no sources")
	}

	var tags []string
	for _, ref := range unit.Refs {
		ref = strings.TrimSpace(ref)
		if !tagPattern.MatchString(ref) {
			diags = append(diags, fmt.Sprintf("%q: invalid build tag", ref))
			continue
		}
		tags = append(tags, ref)
	}

	if len(diags) > 0 {
		return "", nil, &mandate.BuildError{Diagnostics: diags}
	}
	return srcDir, tags, nil
}

func (c *Compiler) launch(ctx context.Context, name, bin string) (*module, error) {
	l := c.logger.With("mandate", name)
	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig:  sitekit.Handshake,
		Plugins:          sitekit.PluginMap(nil),
		Cmd:              exec.Command(bin),
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
		StartTimeout:     c.startTimeout,
		Logger:           logger.HCLog(l, "plugin"),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, &mandate.BuildError{Diagnostics: []string{"start plugin: " + err.Error()}}
	}
	raw, err := rpcClient.Dispense(sitekit.PluginName)
	if err != nil {
		client.Kill()
		return nil, &mandate.BuildError{Diagnostics: []string{"dispense plugin: " + err.Error()}}
	}
	stub, ok := raw.(*sitekit.RPCClient)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("dispense plugin: unexpected type %T", raw)
	}
	stub.SetCallTimeout(c.callTimeout)

	decls, desc, err := stub.Describe(ctx)
	if err != nil {
		client.Kill()
		return nil, &mandate.BuildError{Diagnostics: []string{"describe plugin: " + err.Error()}}
	}

	l.Info("plugin started", "binary", bin, "sites", len(decls))
	return &module{
		client:  client,
		bin:     bin,
		decls:   decls,
		refresh: desc.RefreshInterval,
		logger:  l,
	}, nil
}
