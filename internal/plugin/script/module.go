package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/yndnr/sabertooth-go/pkg/site"
	"github.com/yndnr/sabertooth-go/pkg/sitekit"
)

var errClosed = errors.New("script: module closed")

// module owns one goja runtime and the sites its scripts declared.
type module struct {
	name    string
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	vm      *goja.Runtime
	decls   []site.Declaration
	refresh time.Duration
	closed  bool
}

func newModule(name string, logger *slog.Logger, timeout time.Duration) *module {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	return &module{
		name:    name,
		logger:  logger,
		timeout: timeout,
		vm:      vm,
	}
}

func (m *module) Sites() []site.Declaration      { return m.decls }
func (m *module) RefreshInterval() time.Duration { return m.refresh }

func (m *module) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// install defines the host globals.
func (m *module) install() error {
	globals := map[string]any{
		"console": m.console(),
		"auth": map[string]any{
			"checkPassword": sitekit.CheckPassword,
		},
		"site":    m.declare,
		"refresh": m.setRefresh,
	}
	for name, v := range globals {
		if err := m.vm.Set(name, v); err != nil {
			return fmt.Errorf("script: define %s: %w", name, err)
		}
	}
	return nil
}

func (m *module) console() map[string]any {
	logAt := func(level slog.Level) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			m.logger.Log(context.Background(), level, strings.Join(parts, " "), "source", "script")
			return goja.Undefined()
		}
	}
	return map[string]any{
		"log":   logAt(slog.LevelInfo),
		"info":  logAt(slog.LevelInfo),
		"debug": logAt(slog.LevelDebug),
		"warn":  logAt(slog.LevelWarn),
		"error": logAt(slog.LevelError),
	}
}

func (m *module) setRefresh(call goja.FunctionCall) goja.Value {
	ms := call.Argument(0).ToInteger()
	if ms <= 0 {
		panic(m.vm.NewTypeError("refresh: interval must be a positive number of milliseconds"))
	}
	m.refresh = time.Duration(ms) * time.Millisecond
	return goja.Undefined()
}

func (m *module) declare(call goja.FunctionCall) goja.Value {
	vm := m.vm
	arg := call.Argument(0)
	if !present(arg) {
		panic(vm.NewTypeError("site: expected a declaration object"))
	}
	obj := arg.ToObject(vm)

	s := &jsSite{m: m}
	s.name = fmt.Sprintf("site%d", len(m.decls)+1)
	if v := obj.Get("name"); present(v) {
		s.name = v.String()
	}
	s.realm = s.name
	if v := obj.Get("realm"); present(v) {
		s.realm = v.String()
	}

	var ok bool
	if s.get, ok = goja.AssertFunction(obj.Get("get")); !ok {
		panic(vm.NewTypeError("site %q: get must be a function", s.name))
	}
	for key, dst := range map[string]*goja.Callable{
		"post":      &s.post,
		"authorize": &s.authorize,
		"cache":     &s.cache,
	} {
		v := obj.Get(key)
		if !present(v) {
			continue
		}
		fn, ok := goja.AssertFunction(v)
		if !ok {
			panic(vm.NewTypeError("site %q: %s must be a function", s.name, key))
		}
		*dst = fn
	}

	decl := site.Declaration{Name: s.name, Site: s}
	if v := obj.Get("root"); present(v) {
		decl.Root = v.ToBoolean()
	}
	if v := obj.Get("subdomains"); present(v) {
		var subs []string
		if err := vm.ExportTo(v, &subs); err != nil {
			panic(vm.NewTypeError("site %q: subdomains must be an array of strings", s.name))
		}
		decl.Subdomains = subs
	}

	m.decls = append(m.decls, decl)
	return goja.Undefined()
}

// run evaluates a program during Compile.
func (m *module) run(ctx context.Context, prog *goja.Program) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stop := m.guard(ctx)
	defer stop()
	_, err := m.vm.RunProgram(prog)
	return err
}

// invoke runs fn with exclusive use of the runtime. fn must finish all
// conversions of script values before returning.
func (m *module) invoke(ctx context.Context, fn func(vm *goja.Runtime) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	stop := m.guard(ctx)
	defer stop()
	return fn(m.vm)
}

// guard interrupts the runtime when ctx ends or the call timeout passes.
// The returned stop must be called before the runtime is used again.
func (m *module) guard(ctx context.Context) (stop func()) {
	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-cctx.Done():
			m.vm.Interrupt(cctx.Err())
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-exited
		cancel()
		m.vm.ClearInterrupt()
	}
}

func present(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}
