package sim

import (
	"fmt"
	"sort"
	"sync"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/convert"
	"github.com/wippyai/objc-bridge/errors"
)

const (
	codeBase   = bridge.Pointer(0x7f0000000000)
	codeStride = 16
)

// native is the Go body behind a simulated code address.
type native func(args []any) (any, error)

// Process is a simulated foreign process. It implements bridge.SymbolResolver
// and bridge.Binder, and owns a Memory, an Objective-C runtime and dispatch
// queues.
type Process struct {
	mem       *Memory
	objc      *objcState
	found     *foundation
	natives   map[bridge.Pointer]native
	exports   map[string]map[string]bridge.Export
	bindCount map[bridge.Pointer]int
	queues    map[bridge.Pointer]*queue
	mainQueue bridge.Pointer
	ticks     []func()
	errs      []error
	nextCode  bridge.Pointer
	callbacks int
	mu        sync.Mutex
}

// Option configures a Process.
type Option func(*Process)

// WithoutExport hides an export, simulating a process where it is missing.
func WithoutExport(module, name string) Option {
	return func(p *Process) {
		delete(p.exports[module], name)
	}
}

// New creates a process with the Objective-C runtime, libdispatch and the
// Foundation classes installed.
func New(opts ...Option) *Process {
	p := &Process{
		mem:       NewMemory(),
		natives:   make(map[bridge.Pointer]native),
		exports:   make(map[string]map[string]bridge.Export),
		bindCount: make(map[bridge.Pointer]int),
		queues:    make(map[bridge.Pointer]*queue),
		nextCode:  codeBase,
	}
	p.objc = newObjCState(p)
	p.installLibc()
	p.installObjC()
	p.installDispatch()
	p.found = installFoundation(p)

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Memory returns the process heap.
func (p *Process) Memory() *Memory {
	return p.mem
}

func (p *Process) registerNative(fn native) bridge.Pointer {
	p.mu.Lock()
	defer p.mu.Unlock()
	addr := p.nextCode
	p.nextCode += codeStride
	p.natives[addr] = fn
	return addr
}

func (p *Process) lookupNative(addr bridge.Pointer) (native, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn, ok := p.natives[addr]
	return fn, ok
}

func (p *Process) export(module, name string, kind bridge.ExportKind, addr bridge.Pointer) {
	if p.exports[module] == nil {
		p.exports[module] = make(map[string]bridge.Export)
	}
	p.exports[module][name] = bridge.Export{Name: name, Address: addr, Kind: kind}
}

func (p *Process) exportFunc(module, name string, fn native) {
	p.export(module, name, bridge.ExportFunction, p.registerNative(fn))
}

// ResolveExports implements bridge.SymbolResolver.
func (p *Process) ResolveExports(module string, names []string) ([]bridge.Export, error) {
	mod, ok := p.exports[module]
	if !ok {
		return nil, nil
	}
	var out []bridge.Export
	for _, name := range names {
		if exp, ok := mod[name]; ok {
			out = append(out, exp)
		}
	}
	return out, nil
}

// Exports lists the export names of module in sorted order.
func (p *Process) Exports(module string) []string {
	var names []string
	for name := range p.exports[module] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type function struct {
	fn   native
	ret  bridge.Type
	args []bridge.Type
	addr bridge.Pointer
}

func (f *function) Address() bridge.Pointer {
	return f.addr
}

func (f *function) Call(args ...any) (any, error) {
	in, err := coerceArgs(args, f.args)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDispatch, errors.KindArgumentCount, err, fmt.Sprintf("call %#x", uintptr(f.addr)))
	}
	out, err := f.fn(in)
	if err != nil {
		return nil, err
	}
	return coerce(out, f.ret)
}

// NewFunction implements bridge.Binder.
func (p *Process) NewFunction(addr bridge.Pointer, ret bridge.Type, args []bridge.Type) (bridge.NativeFunction, error) {
	fn, ok := p.lookupNative(addr)
	if !ok {
		return nil, errors.NotFound(errors.PhaseDispatch, "native function", fmt.Sprintf("%#x", uintptr(addr)))
	}
	p.mu.Lock()
	p.bindCount[addr]++
	p.mu.Unlock()
	return &function{
		fn:   fn,
		ret:  ret,
		args: fixedTypes(args),
		addr: addr,
	}, nil
}

// BindCount returns how many functions have been bound to addr.
func (p *Process) BindCount(addr bridge.Pointer) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bindCount[addr]
}

type callback struct {
	proc *Process
	addr bridge.Pointer
	once sync.Once
}

func (c *callback) Address() bridge.Pointer {
	return c.addr
}

func (c *callback) Release() {
	c.once.Do(func() {
		c.proc.mu.Lock()
		delete(c.proc.natives, c.addr)
		c.proc.callbacks--
		c.proc.mu.Unlock()
	})
}

// NewCallback implements bridge.Binder.
func (p *Process) NewCallback(fn bridge.HostFunc, ret bridge.Type, args []bridge.Type) (bridge.NativeCallback, error) {
	if fn == nil {
		return nil, errors.InvalidInput(errors.PhaseDispatch, "callback function is nil")
	}
	types := fixedTypes(args)
	addr := p.registerNative(func(in []any) (any, error) {
		coerced, err := coerceArgs(in, types)
		if err != nil {
			return nil, err
		}
		out, err := fn(coerced...)
		if err != nil {
			return nil, err
		}
		return coerce(out, ret)
	})
	p.mu.Lock()
	p.callbacks++
	p.mu.Unlock()
	return &callback{proc: p, addr: addr}, nil
}

// LiveCallbacks returns the number of callbacks not yet released.
func (p *Process) LiveCallbacks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.callbacks
}

// invoke calls the native at addr directly.
func (p *Process) invoke(addr bridge.Pointer, args ...any) (any, error) {
	fn, ok := p.lookupNative(addr)
	if !ok {
		return nil, errors.NotFound(errors.PhaseDispatch, "native function", fmt.Sprintf("%#x", uintptr(addr)))
	}
	return fn(args)
}

func (p *Process) installLibc() {
	p.exportFunc("libsystem_malloc.dylib", "free", func(args []any) (any, error) {
		p.mem.Free(pointerArg(args, 0))
		return nil, nil
	})
}

func pointerArg(args []any, i int) bridge.Pointer {
	if i >= len(args) {
		return 0
	}
	ptr, _ := args[i].(bridge.Pointer)
	return ptr
}

func intArg(args []any, i int) int64 {
	if i >= len(args) {
		return 0
	}
	if ptr, ok := args[i].(bridge.Pointer); ok {
		return int64(ptr)
	}
	n, _ := convert.AsInt64(args[i])
	return n
}
