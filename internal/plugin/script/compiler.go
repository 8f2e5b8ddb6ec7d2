package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/yndnr/sabertooth-go/internal/core/mandate"
)

// Extension is the source file extension this compiler handles.
const Extension = ".js"

// DefaultCallTimeout bounds one call into script code.
const DefaultCallTimeout = 10 * time.Second

// Compiler builds mandates from JavaScript sources.
type Compiler struct {
	logger      *slog.Logger
	callTimeout time.Duration
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used by the console global.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// WithCallTimeout bounds each call into a script, and the initial
// evaluation.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Compiler) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// New creates a script compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		logger:      slog.Default(),
		callTimeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type unitFile struct {
	name string
	prog *goja.Program
}

// Compile parses every file first so all syntax errors are reported
// together, then evaluates references followed by sources.
func (c *Compiler) Compile(ctx context.Context, unit mandate.BuildUnit) (mandate.Module, error) {
	var (
		files []unitFile
		diags []string
	)

	paths := make([]string, 0, len(unit.Refs)+len(unit.Sources))
	for _, ref := range unit.Refs {
		if !strings.HasSuffix(ref, Extension) {
			diags = append(diags, fmt.Sprintf("%s: unsupported reference, expected a %s library", ref, Extension))
			continue
		}
		if !filepath.IsAbs(ref) {
			ref = filepath.Join(unit.Dir, ref)
		}
		paths = append(paths, ref)
	}
	paths = append(paths, unit.Sources...)

	for _, p := range paths {
		src, err := os.ReadFile(p)
		if err != nil {
			diags = append(diags, err.Error())
			continue
		}
		name := relName(unit.Dir, p)
		prog, err := goja.Compile(name, string(src), false)
		if err != nil {
			diags = append(diags, err.Error())
			continue
		}
		files = append(files, unitFile{name: name, prog: prog})
	}
	if len(diags) > 0 {
		return nil, &mandate.BuildError{Diagnostics: diags}
	}

	m := newModule(unit.Name, c.logger.With("mandate", unit.Name), c.callTimeout)
	if err := m.install(); err != nil {
		return nil, err
	}

	for _, f := range files {
		if err := m.run(ctx, f.prog); err != nil {
			return nil, &mandate.BuildError{Diagnostics: []string{f.name + ": " + describe(err)}}
		}
	}
	return m, nil
}

func relName(dir, p string) string {
	if rel, err := filepath.Rel(dir, p); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return p
}

// describe renders script failures without Go type noise.
func describe(err error) string {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return ex.Error()
	}
	var ie *goja.InterruptedError
	if errors.As(err, &ie) {
		return fmt.Sprintf("interrupted: %v", ie.Value())
	}
	return err.Error()
}
