package proxy

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/api"
	"github.com/wippyai/objc-bridge/convert"
	"github.com/wippyai/objc-bridge/dispatch"
	"github.com/wippyai/objc-bridge/errors"
	"github.com/wippyai/objc-bridge/signature"
)

// Factory discovers classes and builds their proxies.
// Factory is safe for concurrent use; building a given class happens once.
type Factory struct {
	api        *api.API
	binder     bridge.Binder
	cache      *dispatch.Cache
	reg        *convert.Registry
	log        *zap.Logger
	byName     map[string]bridge.Pointer
	byHandle   map[bridge.Pointer]string
	classes    map[bridge.Pointer]*Class
	singletons map[bridge.Pointer]*Object
	group      singleflight.Group
	names      []string
	mu         sync.RWMutex
}

// Option configures a Factory.
type Option func(*Factory)

// WithRegistry sets the converter registry used to parse type encodings.
func WithRegistry(reg *convert.Registry) Option {
	return func(f *Factory) {
		f.reg = reg
	}
}

// WithLogger sets the factory's logger. The package logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(f *Factory) {
		f.log = l
	}
}

// WithCache shares a trampoline cache between factories.
func WithCache(c *dispatch.Cache) Option {
	return func(f *Factory) {
		f.cache = c
	}
}

// NewFactory creates a factory over a resolved API. Classes are not
// enumerated until Refresh is called.
func NewFactory(a *api.API, binder bridge.Binder, opts ...Option) *Factory {
	f := &Factory{
		api:        a,
		binder:     binder,
		byName:     make(map[string]bridge.Pointer),
		byHandle:   make(map[bridge.Pointer]string),
		classes:    make(map[bridge.Pointer]*Class),
		singletons: make(map[bridge.Pointer]*Object),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.reg == nil {
		f.reg = convert.Default()
	}
	if f.log == nil {
		f.log = Logger()
	}
	if f.cache == nil {
		f.cache = dispatch.NewCache(binder, a.MsgSend())
	}
	return f
}

// Cache returns the trampoline cache calls are dispatched through.
func (f *Factory) Cache() *dispatch.Cache {
	return f.cache
}

// Refresh enumerates the runtime's classes and records the ones not seen
// before. Classes that disappear from the runtime are kept.
func (f *Factory) Refresh() error {
	handles, err := f.api.ClassList()
	if err != nil {
		return errors.Wrap(errors.PhaseDiscovery, errors.KindInvalidData, err, "enumerate classes")
	}

	type entry struct {
		name   string
		handle bridge.Pointer
	}
	found := make([]entry, 0, len(handles))
	for _, h := range handles {
		name, err := f.api.ClassName(h)
		if err != nil {
			return errors.Wrap(errors.PhaseDiscovery, errors.KindInvalidData, err, fmt.Sprintf("name of class %#x", uintptr(h)))
		}
		found = append(found, entry{name: name, handle: h})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	added := 0
	for _, e := range found {
		if _, ok := f.byName[e.name]; ok {
			continue
		}
		f.byName[e.name] = e.handle
		f.byHandle[e.handle] = e.name
		f.names = append(f.names, e.name)
		added++
	}
	f.log.Debug("classes refreshed", zap.Int("total", len(f.names)), zap.Int("added", added))
	return nil
}

// Classes returns the known class names in discovery order.
func (f *Factory) Classes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.names...)
}

// Use returns the class object for name. Repeated calls return the same
// *Object.
func (f *Factory) Use(name string) (*Object, error) {
	f.mu.RLock()
	handle, ok := f.byName[name]
	obj := f.singletons[handle]
	f.mu.RUnlock()
	if !ok {
		return nil, errors.ClassNotFound(name)
	}
	if obj != nil {
		return obj, nil
	}

	cls, err := f.ensureClass(handle, name)
	if err != nil {
		return nil, err
	}
	return f.classObject(cls), nil
}

// Cast wraps handle as an instance of template's class without asking the
// runtime for its dynamic class.
func (f *Factory) Cast(handle bridge.Pointer, template *Object) *Object {
	return &Object{
		factory:     f,
		class:       template.class,
		classHandle: template.classHandle,
		handle:      handle,
	}
}

// Wrap returns a proxy for handle typed by its dynamic class. Handles of
// discovered classes yield the class object.
func (f *Factory) Wrap(handle bridge.Pointer) (*Object, error) {
	if handle.IsNull() {
		return nil, nil
	}

	f.mu.RLock()
	name, isClass := f.byHandle[handle]
	f.mu.RUnlock()
	if isClass {
		return f.Use(name)
	}

	clsHandle, err := f.api.ObjectClass(handle)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDiscovery, errors.KindInvalidData, err, fmt.Sprintf("class of %#x", uintptr(handle)))
	}
	cls, err := f.ensureClass(clsHandle, "")
	if err != nil {
		return nil, err
	}
	return &Object{
		factory:     f,
		class:       cls,
		classHandle: cls.handle,
		handle:      handle,
	}, nil
}

func (f *Factory) classObject(cls *Class) *Object {
	f.mu.Lock()
	defer f.mu.Unlock()
	if obj, ok := f.singletons[cls.handle]; ok {
		return obj
	}
	obj := &Object{factory: f, class: cls, classHandle: cls.handle}
	f.singletons[cls.handle] = obj
	return obj
}

func (f *Factory) ensureClass(handle bridge.Pointer, name string) (*Class, error) {
	f.mu.RLock()
	cls, ok := f.classes[handle]
	f.mu.RUnlock()
	if ok {
		return cls, nil
	}

	v, err, _ := f.group.Do(fmt.Sprintf("%x", uintptr(handle)), func() (any, error) {
		f.mu.RLock()
		cls, ok := f.classes[handle]
		f.mu.RUnlock()
		if ok {
			return cls, nil
		}
		return f.buildClass(handle, name)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Class), nil
}

func (f *Factory) buildClass(handle bridge.Pointer, name string) (*Class, error) {
	var err error
	if name == "" {
		if name, err = f.api.ClassName(handle); err != nil {
			return nil, errors.Wrap(errors.PhaseDiscovery, errors.KindInvalidData, err, fmt.Sprintf("name of class %#x", uintptr(handle)))
		}
	}

	superHandle, err := f.api.Superclass(handle)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDiscovery, errors.KindInvalidData, err, "superclass of "+name)
	}
	var super *Class
	if !superHandle.IsNull() {
		if super, err = f.ensureClass(superHandle, ""); err != nil {
			return nil, err
		}
	}

	cls := newClass(name, handle, super)

	meta, err := f.api.ObjectClass(handle)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDiscovery, errors.KindInvalidData, err, "metaclass of "+name)
	}
	classSide, err := f.collect(cls, meta, true)
	if err != nil {
		return nil, err
	}
	instanceSide, err := f.collect(cls, handle, false)
	if err != nil {
		return nil, err
	}

	for _, r := range append(classSide, instanceSide...) {
		if r.err != nil {
			cls.skipped = append(cls.skipped, SkippedMethod{Selector: r.selector, Types: r.types, Err: r.err})
			f.log.Debug("method skipped",
				zap.String("class", name),
				zap.String("selector", r.selector),
				zap.String("types", r.types),
				zap.Error(r.err))
			continue
		}
		if prev := cls.add(r.method); prev != nil {
			f.log.Debug("method name shadowed",
				zap.String("class", name),
				zap.String("name", r.method.name),
				zap.String("selector", r.method.selName),
				zap.String("previous", prev.selName))
		}
	}

	f.mu.Lock()
	f.classes[handle] = cls
	f.mu.Unlock()

	f.log.Debug("class built",
		zap.String("class", name),
		zap.Int("methods", len(cls.order)),
		zap.Int("skipped", len(cls.skipped)))
	return cls, nil
}

// methodResult is the outcome of resolving one entry of a method list.
type methodResult struct {
	method   *Method
	err      error
	selector string
	types    string
}

func (f *Factory) collect(cls *Class, listHandle bridge.Pointer, static bool) ([]methodResult, error) {
	methods, err := f.api.MethodList(listHandle)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDiscovery, errors.KindInvalidData, err, "method list of "+cls.name)
	}
	results := make([]methodResult, 0, len(methods))
	for _, m := range methods {
		results = append(results, f.resolveMethod(cls, m, static))
	}
	return results, nil
}

func (f *Factory) resolveMethod(cls *Class, m bridge.Pointer, static bool) methodResult {
	var r methodResult

	sel, err := f.api.MethodSelector(m)
	if err != nil {
		r.err = err
		return r
	}
	if r.selector, err = f.api.SelectorName(sel); err != nil {
		r.err = err
		return r
	}
	if r.types, err = f.api.MethodTypeEncoding(m); err != nil {
		r.err = err
		return r
	}
	sig, err := signature.Parse(r.types, f.reg)
	if err != nil {
		r.err = err
		return r
	}

	r.method = &Method{
		factory: f,
		class:   cls,
		name:    methodName(r.selector),
		selName: r.selector,
		sel:     sel,
		handle:  m,
		sig:     sig,
		static:  static,
	}
	return r
}
