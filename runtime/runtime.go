package runtime

import (
	"time"

	"go.uber.org/zap"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/api"
	"github.com/wippyai/objc-bridge/convert"
	"github.com/wippyai/objc-bridge/dispatch"
	"github.com/wippyai/objc-bridge/errors"
	"github.com/wippyai/objc-bridge/proxy"
	"github.com/wippyai/objc-bridge/resource"
)

// Config configures a Runtime.
type Config struct {
	// Resolver, Memory and Binder connect the runtime to the native process.
	Resolver bridge.SymbolResolver
	Memory   bridge.Memory
	Binder   bridge.Binder

	// Logger is used by the runtime and the components it creates.
	// Defaults to the package logger.
	Logger *zap.Logger

	// Registry holds the type converters. Defaults to convert.Default().
	Registry *convert.Registry

	// Defer runs fn after the current native callback has returned.
	// Defaults to a zero-delay timer.
	Defer func(fn func())

	// OnError is called with every error raised by scheduled work.
	OnError func(error)
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = Logger()
	}
	if c.Registry == nil {
		c.Registry = convert.Default()
	}
	if c.Defer == nil {
		c.Defer = func(fn func()) { time.AfterFunc(0, fn) }
	}
	if c.OnError == nil {
		c.OnError = func(error) {}
	}
	return c
}

// Runtime is the entry point to the bridge. It is created once by the
// embedding application and owns the class factory, the trampoline cache and
// the keep-alive registry.
type Runtime struct {
	cfg     Config
	log     *zap.Logger
	api     *api.API
	factory *proxy.Factory
	keep    *resource.Registry
	err     error
}

// New resolves the native entry points and enumerates classes. It never
// fails: when resolution is incomplete the runtime is returned unavailable
// and Err reports why.
func New(cfg Config) *Runtime {
	cfg = cfg.withDefaults()
	r := &Runtime{
		cfg:  cfg,
		log:  cfg.Logger,
		keep: resource.NewRegistry(),
	}

	if cfg.Resolver == nil || cfg.Binder == nil || cfg.Memory == nil {
		r.err = errors.NotAvailable("resolver, memory and binder are required")
		r.log.Warn("objc runtime unavailable", zap.Error(r.err))
		return r
	}

	a, err := api.Resolve(cfg.Resolver, cfg.Binder, cfg.Memory)
	if err != nil {
		r.err = err
		r.log.Warn("objc runtime unavailable", zap.Error(err))
		return r
	}

	cache := dispatch.NewCache(cfg.Binder, a.MsgSend(), dispatch.WithLogger(r.log))
	factory := proxy.NewFactory(a, cfg.Binder,
		proxy.WithRegistry(cfg.Registry),
		proxy.WithLogger(r.log),
		proxy.WithCache(cache))
	if err := factory.Refresh(); err != nil {
		r.err = err
		r.log.Warn("class enumeration failed", zap.Error(err))
		return r
	}

	r.api = a
	r.factory = factory
	return r
}

// Available reports whether every native entry point was resolved.
func (r *Runtime) Available() bool {
	return r.factory != nil
}

// Err returns the reason the runtime is unavailable, nil otherwise.
// A missing entry point yields *errors.MissingEntryPointsError.
func (r *Runtime) Err() error {
	return r.err
}

func (r *Runtime) check(op string) error {
	if r.factory == nil {
		return errors.New(errors.PhaseRuntime, errors.KindNotAvailable).
			Path(op).
			Cause(r.err).
			Detail("objc runtime not available").
			Build()
	}
	return nil
}

// Classes returns the known class names in discovery order.
func (r *Runtime) Classes() []string {
	if r.factory == nil {
		return nil
	}
	return r.factory.Classes()
}

// RefreshClasses picks up classes registered since the last refresh.
func (r *Runtime) RefreshClasses() error {
	if err := r.check("RefreshClasses"); err != nil {
		return err
	}
	return r.factory.Refresh()
}

// MainQueue returns the main dispatch queue.
func (r *Runtime) MainQueue() bridge.Pointer {
	if r.api == nil {
		return 0
	}
	return r.api.MainQueue()
}

// Use returns the class object for name.
func (r *Runtime) Use(name string) (*proxy.Object, error) {
	if err := r.check("Use"); err != nil {
		return nil, err
	}
	return r.factory.Use(name)
}

// Cast wraps handle as an instance of template's class. It returns nil
// when the runtime is unavailable.
func (r *Runtime) Cast(handle bridge.Pointer, template *proxy.Object) *proxy.Object {
	if r.factory == nil || template == nil {
		return nil
	}
	return r.factory.Cast(handle, template)
}

// Selector interns name and returns its selector.
func (r *Runtime) Selector(name string) (bridge.Pointer, error) {
	if err := r.check("Selector"); err != nil {
		return 0, err
	}
	return r.api.RegisterSelector(name)
}

// SelectorAsString returns the name of sel.
func (r *Runtime) SelectorAsString(sel bridge.Pointer) (string, error) {
	if err := r.check("SelectorAsString"); err != nil {
		return "", err
	}
	return r.api.SelectorName(sel)
}

// Implement creates a native callback typed like m, suitable for
// m.SetImplementation. fn receives the receiver and selector first.
// The callback stays alive until Close.
func (r *Runtime) Implement(m *proxy.Method, fn bridge.HostFunc) (bridge.NativeCallback, error) {
	if err := r.check("Implement"); err != nil {
		return nil, err
	}
	if m == nil || fn == nil {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "method and function are required")
	}
	cb, err := r.cfg.Binder.NewCallback(fn, m.ReturnType(), m.ArgumentTypes())
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidData, err, "implement "+m.SelectorName())
	}
	if _, err := r.keep.Retain(resource.KindImplementation, cb); err != nil {
		cb.Release()
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidData, err, "implement "+m.SelectorName())
	}
	return cb, nil
}

// Subscribe registers o for keep-alive lifecycle events.
func (r *Runtime) Subscribe(o resource.Observer) (unsubscribe func()) {
	return r.keep.Subscribe(o)
}

// PendingCallbacks returns the number of scheduled callbacks not yet
// released.
func (r *Runtime) PendingCallbacks() int {
	return r.keep.Count(resource.KindCallback)
}

// Close releases every callback the runtime keeps alive. Work still queued
// on a dispatch queue must not run afterwards.
func (r *Runtime) Close() error {
	return r.keep.Close()
}
