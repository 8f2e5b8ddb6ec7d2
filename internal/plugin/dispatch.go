// Package plugin selects a compiler for a mandate by its source extension.
package plugin

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yndnr/sabertooth-go/internal/core/domain"
	"github.com/yndnr/sabertooth-go/internal/core/mandate"
)

// Dispatcher is a mandate.Compiler that forwards to the compiler
// registered for the unit's source extension.
type Dispatcher struct {
	compilers map[string]mandate.Compiler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{compilers: make(map[string]mandate.Compiler)}
}

// Register binds ext (with the leading dot) to c.
func (d *Dispatcher) Register(ext string, c mandate.Compiler) *Dispatcher {
	d.compilers[strings.ToLower(ext)] = c
	return d
}

// Extensions lists the registered extensions in order.
func (d *Dispatcher) Extensions() []string {
	exts := make([]string, 0, len(d.compilers))
	for ext := range d.compilers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Compile implements mandate.Compiler. All sources of a unit must share
// one extension.
func (d *Dispatcher) Compile(ctx context.Context, unit mandate.BuildUnit) (mandate.Module, error) {
	if len(unit.Sources) == 0 {
		return nil, &mandate.BuildError{Diagnostics: []string{"manifest lists no existing sources"}}
	}

	ext := strings.ToLower(filepath.Ext(unit.Sources[0]))
	for _, src := range unit.Sources[1:] {
		if e := strings.ToLower(filepath.Ext(src)); e != ext {
			return nil, &mandate.BuildError{Diagnostics: []string{
				fmt.Sprintf("%s: mixed source kinds %q and %q", filepath.Base(src), ext, e),
			}}
		}
	}

	c, ok := d.compilers[ext]
	if !ok {
		return nil, domain.ErrNoCompiler.WithDetails(fmt.Sprintf("extension %q (have %s)", ext, strings.Join(d.Extensions(), ", ")))
	}
	return c.Compile(ctx, unit)
}
