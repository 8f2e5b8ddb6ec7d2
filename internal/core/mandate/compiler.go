package mandate

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/sabertooth-go/pkg/site"
)

// BuildUnit is everything a Compiler needs to produce a Module.
type BuildUnit struct {
	// Name is the mandate name (manifest file name without extension).
	Name string
	// Dir is the sites directory; relative references resolve against it.
	Dir string
	// Sources are absolute paths of the source files, in manifest order.
	Sources []string
	// Refs are the raw build reference lines. Their meaning is up to the
	// compiler.
	Refs []string
}

// Module is a loaded build result.
type Module interface {
	// Sites returns the declared sites. It is called once per build.
	Sites() []site.Declaration
	// RefreshInterval is the watchdog period the module asks for, or zero
	// for the configured default.
	RefreshInterval() time.Duration
	// Close releases the module. It is called after the generation has been
	// replaced and no request holds it any more.
	Close() error
}

// Compiler turns a BuildUnit into a Module.
type Compiler interface {
	// Compile returns a *BuildError when the sources are rejected.
	Compile(ctx context.Context, unit BuildUnit) (Module, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(ctx context.Context, unit BuildUnit) (Module, error)

// Compile calls f.
func (f CompilerFunc) Compile(ctx context.Context, unit BuildUnit) (Module, error) {
	return f(ctx, unit)
}

// BuildError carries compiler diagnostics for a rejected build.
type BuildError struct {
	Diagnostics []string
}

func (e *BuildError) Error() string {
	switch len(e.Diagnostics) {
	case 0:
		return "build failed"
	case 1:
		return "build failed: " + e.Diagnostics[0]
	}
	return "build failed: " + e.Diagnostics[0] + " (and " + strconv.Itoa(len(e.Diagnostics)-1) + " more)"
}

// Diagnosticsf builds a BuildError from lines of text.
func Diagnosticsf(text string) *BuildError {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimRight(l, "\r \t"); l != "" {
			lines = append(lines, l)
		}
	}
	return &BuildError{Diagnostics: lines}
}
