package api

import (
	"fmt"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/convert"
	"github.com/wippyai/objc-bridge/errors"
)

const (
	ModuleMalloc   = "libsystem_malloc.dylib"
	ModuleObjC     = "libobjc.A.dylib"
	ModuleDispatch = "libdispatch.dylib"
)

type entryPoint struct {
	module string
	name   string
	ret    bridge.Type
	args   []bridge.Type
	kind   bridge.ExportKind
	// raw entry points are recorded by address only
	raw bool
}

var (
	tPtr  = bridge.TypePointer
	tInt  = bridge.TypeInt
	tVoid = bridge.TypeVoid
)

var entryPoints = []entryPoint{
	{module: ModuleMalloc, name: "free", ret: tVoid, args: []bridge.Type{tPtr}},

	{module: ModuleObjC, name: "objc_msgSend", raw: true},
	{module: ModuleObjC, name: "objc_getClassList", ret: tInt, args: []bridge.Type{tPtr, tInt}},
	{module: ModuleObjC, name: "class_getName", ret: tPtr, args: []bridge.Type{tPtr}},
	{module: ModuleObjC, name: "class_copyMethodList", ret: tPtr, args: []bridge.Type{tPtr, tPtr}},
	{module: ModuleObjC, name: "class_getSuperclass", ret: tPtr, args: []bridge.Type{tPtr}},
	{module: ModuleObjC, name: "object_getClass", ret: tPtr, args: []bridge.Type{tPtr}},
	{module: ModuleObjC, name: "method_getName", ret: tPtr, args: []bridge.Type{tPtr}},
	{module: ModuleObjC, name: "method_getTypeEncoding", ret: tPtr, args: []bridge.Type{tPtr}},
	{module: ModuleObjC, name: "method_getImplementation", ret: tPtr, args: []bridge.Type{tPtr}},
	{module: ModuleObjC, name: "method_setImplementation", ret: tPtr, args: []bridge.Type{tPtr, tPtr}},
	{module: ModuleObjC, name: "sel_getName", ret: tPtr, args: []bridge.Type{tPtr}},
	{module: ModuleObjC, name: "sel_registerName", ret: tPtr, args: []bridge.Type{tPtr}},

	{module: ModuleDispatch, name: "dispatch_async_f", ret: tVoid, args: []bridge.Type{tPtr, tPtr, tPtr}},
	{module: ModuleDispatch, name: "_dispatch_main_q", kind: bridge.ExportVariable},
}

// API holds the resolved entry points.
type API struct {
	mem       bridge.Memory
	funcs     map[string]bridge.NativeFunction
	msgSend   bridge.Pointer
	mainQueue bridge.Pointer
}

// Resolve looks up every required entry point and binds the callable ones.
func Resolve(resolver bridge.SymbolResolver, binder bridge.Binder, mem bridge.Memory) (*API, error) {
	a := &API{
		mem:   mem,
		funcs: make(map[string]bridge.NativeFunction),
	}

	byModule := make(map[string][]entryPoint)
	var modules []string
	for _, ep := range entryPoints {
		if _, ok := byModule[ep.module]; !ok {
			modules = append(modules, ep.module)
		}
		byModule[ep.module] = append(byModule[ep.module], ep)
	}

	var missing []string
	for _, mod := range modules {
		eps := byModule[mod]
		names := make([]string, len(eps))
		for i, ep := range eps {
			names[i] = ep.name
		}

		exports, err := resolver.ResolveExports(mod, names)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseResolve, errors.KindMissingEntryPoint, err, "resolve exports of "+mod)
		}
		found := make(map[string]bridge.Export, len(exports))
		for _, exp := range exports {
			found[exp.Name] = exp
		}

		for _, ep := range eps {
			exp, ok := found[ep.name]
			if !ok || exp.Kind != ep.kind {
				missing = append(missing, mod+"!"+ep.name)
				continue
			}
			if err := a.bind(binder, ep, exp.Address); err != nil {
				return nil, err
			}
		}
	}

	if len(missing) > 0 {
		return nil, errors.NewMissingEntryPointsError(missing)
	}
	return a, nil
}

func (a *API) bind(binder bridge.Binder, ep entryPoint, addr bridge.Pointer) error {
	switch {
	case ep.kind == bridge.ExportVariable:
		// _dispatch_main_q is the queue object itself
		a.mainQueue = addr
	case ep.raw:
		a.msgSend = addr
	default:
		fn, err := binder.NewFunction(addr, ep.ret, ep.args)
		if err != nil {
			return errors.Wrap(errors.PhaseResolve, errors.KindInvalidData, err, "bind "+ep.name)
		}
		a.funcs[ep.name] = fn
	}
	return nil
}

// Memory returns the memory service the API was resolved with.
func (a *API) Memory() bridge.Memory {
	return a.mem
}

// MsgSend returns the address of objc_msgSend.
func (a *API) MsgSend() bridge.Pointer {
	return a.msgSend
}

// MainQueue returns the main dispatch queue.
func (a *API) MainQueue() bridge.Pointer {
	return a.mainQueue
}

func (a *API) call(name string, args ...any) (any, error) {
	ret, err := a.funcs[name].Call(args...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDispatch, errors.KindInvalidData, err, name)
	}
	return ret, nil
}

func (a *API) callPointer(name string, args ...any) (bridge.Pointer, error) {
	ret, err := a.call(name, args...)
	if err != nil {
		return 0, err
	}
	ptr, ok := convert.AsPointer(ret)
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseDispatch, []string{name}, fmt.Sprintf("%T", ret), "pointer")
	}
	return ptr, nil
}

func (a *API) callString(name string, args ...any) (string, error) {
	ptr, err := a.callPointer(name, args...)
	if err != nil {
		return "", err
	}
	if ptr.IsNull() {
		return "", errors.NilPointer(errors.PhaseDispatch, []string{name}, "result")
	}
	return a.mem.ReadCString(ptr)
}

// Free releases memory returned by the foreign runtime.
func (a *API) Free(ptr bridge.Pointer) error {
	_, err := a.call("free", ptr)
	return err
}

// ClassList returns the handles of all registered classes.
func (a *API) ClassList() ([]bridge.Pointer, error) {
	ret, err := a.call("objc_getClassList", bridge.Pointer(0), int32(0))
	if err != nil {
		return nil, err
	}
	n, _ := convert.AsInt64(ret)
	if n <= 0 {
		return nil, nil
	}

	size := a.mem.PointerSize()
	buf, err := a.mem.Alloc(int(n) * size)
	if err != nil {
		return nil, err
	}
	defer a.mem.Free(buf)

	ret, err = a.call("objc_getClassList", buf, int32(n))
	if err != nil {
		return nil, err
	}
	// classes may have been registered between the two calls
	got, _ := convert.AsInt64(ret)
	if got < n {
		n = got
	}

	classes := make([]bridge.Pointer, 0, n)
	for i := int64(0); i < n; i++ {
		cls, err := a.mem.ReadPointer(buf + bridge.Pointer(i*int64(size)))
		if err != nil {
			return nil, err
		}
		classes = append(classes, cls)
	}
	return classes, nil
}

// ClassName returns the name of cls.
func (a *API) ClassName(cls bridge.Pointer) (string, error) {
	return a.callString("class_getName", cls)
}

// Superclass returns the superclass of cls, null for root classes.
func (a *API) Superclass(cls bridge.Pointer) (bridge.Pointer, error) {
	return a.callPointer("class_getSuperclass", cls)
}

// ObjectClass returns the class of obj. For a class object this is its metaclass.
func (a *API) ObjectClass(obj bridge.Pointer) (bridge.Pointer, error) {
	return a.callPointer("object_getClass", obj)
}

// MethodList returns the methods declared directly on cls.
func (a *API) MethodList(cls bridge.Pointer) ([]bridge.Pointer, error) {
	countBuf, err := a.mem.Alloc(4)
	if err != nil {
		return nil, err
	}
	defer a.mem.Free(countBuf)

	list, err := a.callPointer("class_copyMethodList", cls, countBuf)
	if err != nil {
		return nil, err
	}
	if list.IsNull() {
		return nil, nil
	}
	defer a.Free(list)

	n, err := a.mem.ReadU32(countBuf)
	if err != nil {
		return nil, err
	}

	size := bridge.Pointer(a.mem.PointerSize())
	methods := make([]bridge.Pointer, 0, n)
	for i := uint32(0); i < n; i++ {
		m, err := a.mem.ReadPointer(list + bridge.Pointer(i)*size)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, nil
}

// MethodSelector returns the selector of method m.
func (a *API) MethodSelector(m bridge.Pointer) (bridge.Pointer, error) {
	return a.callPointer("method_getName", m)
}

// MethodTypeEncoding returns the raw type encoding of method m.
func (a *API) MethodTypeEncoding(m bridge.Pointer) (string, error) {
	return a.callString("method_getTypeEncoding", m)
}

// MethodImplementation returns the current implementation of method m.
func (a *API) MethodImplementation(m bridge.Pointer) (bridge.Pointer, error) {
	return a.callPointer("method_getImplementation", m)
}

// SetMethodImplementation replaces the implementation of m and returns the previous one.
func (a *API) SetMethodImplementation(m, imp bridge.Pointer) (bridge.Pointer, error) {
	return a.callPointer("method_setImplementation", m, imp)
}

// SelectorName returns the name of sel.
func (a *API) SelectorName(sel bridge.Pointer) (string, error) {
	return a.callString("sel_getName", sel)
}

// RegisterSelector interns name and returns its selector.
func (a *API) RegisterSelector(name string) (bridge.Pointer, error) {
	str, err := a.mem.AllocCString(name)
	if err != nil {
		return 0, err
	}
	defer a.mem.Free(str)
	return a.callPointer("sel_registerName", str)
}

// DispatchAsync enqueues work on queue with the given context argument.
func (a *API) DispatchAsync(queue, context, work bridge.Pointer) error {
	_, err := a.call("dispatch_async_f", queue, context, work)
	return err
}
