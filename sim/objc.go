package sim

import (
	"fmt"
	"sync"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/errors"
)

// Class is a simulated Objective-C class or metaclass.
type Class struct {
	proc    *Process
	super   *Class
	meta    *Class
	name    string
	methods []*method
	handle  bridge.Pointer
	nameStr bridge.Pointer
	isMeta  bool
}

type method struct {
	name     string
	types    string
	sel      bridge.Pointer
	typesStr bridge.Pointer
	imp      bridge.Pointer
	handle   bridge.Pointer
}

// Handle returns the class handle.
func (c *Class) Handle() bridge.Pointer {
	return c.handle
}

// Name returns the class name.
func (c *Class) Name() string {
	return c.name
}

// Meta returns the metaclass holding class-side methods.
func (c *Class) Meta() *Class {
	return c.meta
}

// Super returns the superclass, nil for root classes.
func (c *Class) Super() *Class {
	return c.super
}

// Call is the receiver, selector and arguments of a simulated method invocation.
type Call struct {
	Proc     *Process
	Class    *Class // class the method was found on
	Args     []any
	Self     bridge.Pointer
	Selector bridge.Pointer
}

// Impl is the Go body of a simulated method.
type Impl func(call *Call) (any, error)

// Pointer returns argument i as a pointer.
func (c *Call) Pointer(i int) bridge.Pointer {
	return pointerArg(c.Args, i)
}

// Int returns argument i as an integer.
func (c *Call) Int(i int) int64 {
	return intArg(c.Args, i)
}

// Bool returns argument i as a boolean.
func (c *Call) Bool(i int) bool {
	return intArg(c.Args, i) != 0
}

// String reads argument i as a C string; a null pointer yields "".
func (c *Call) String(i int) (string, error) {
	ptr := c.Pointer(i)
	if ptr.IsNull() {
		return "", nil
	}
	return c.Proc.mem.ReadCString(ptr)
}

// SelectorName returns the name of the invoked selector.
func (c *Call) SelectorName() string {
	return c.Proc.objc.selectorName(c.Selector)
}

// ClassMethod adds a class-side method and returns c for chaining.
func (c *Class) ClassMethod(selector, types string, impl Impl) *Class {
	c.meta.addMethod(selector, types, impl)
	return c
}

// InstanceMethod adds an instance-side method and returns c for chaining.
func (c *Class) InstanceMethod(selector, types string, impl Impl) *Class {
	c.addMethod(selector, types, impl)
	return c
}

func (c *Class) addMethod(selector, types string, impl Impl) {
	p := c.proc
	owner := c
	imp := p.registerNative(func(args []any) (any, error) {
		return impl(&Call{
			Proc:     p,
			Class:    owner,
			Self:     pointerArg(args, 0),
			Selector: pointerArg(args, 1),
			Args:     args[min(2, len(args)):],
		})
	})

	handle, _ := p.mem.Alloc(3 * ptrSize)
	typesStr, _ := p.mem.AllocCString(types)
	m := &method{
		name:     selector,
		types:    types,
		sel:      p.objc.registerSelector(selector),
		typesStr: typesStr,
		imp:      imp,
		handle:   handle,
	}

	p.objc.mu.Lock()
	defer p.objc.mu.Unlock()
	c.methods = append(c.methods, m)
	p.objc.methods[handle] = m
}

type objcState struct {
	proc      *Process
	classes   map[bridge.Pointer]*Class // classes and metaclasses
	byName    map[string]*Class
	order     []*Class
	selectors map[string]bridge.Pointer
	selNames  map[bridge.Pointer]string
	isa       map[bridge.Pointer]*Class
	methods   map[bridge.Pointer]*method
	trace     []Invocation
	mu        sync.Mutex
}

// Invocation records one message delivered through objc_msgSend.
type Invocation struct {
	Class    string
	Selector string
	Static   bool
}

func newObjCState(p *Process) *objcState {
	return &objcState{
		proc:      p,
		classes:   make(map[bridge.Pointer]*Class),
		byName:    make(map[string]*Class),
		selectors: make(map[string]bridge.Pointer),
		selNames:  make(map[bridge.Pointer]string),
		isa:       make(map[bridge.Pointer]*Class),
		methods:   make(map[bridge.Pointer]*method),
	}
}

func (s *objcState) registerSelector(name string) bridge.Pointer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sel, ok := s.selectors[name]; ok {
		return sel
	}
	sel, _ := s.proc.mem.AllocCString(name)
	s.selectors[name] = sel
	s.selNames[sel] = name
	return sel
}

func (s *objcState) selectorName(sel bridge.Pointer) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selNames[sel]
}

// DefineClass registers a class named name with the given superclass.
// An empty super defines a root class.
func (p *Process) DefineClass(name, super string) (*Class, error) {
	s := p.objc
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[name]; exists {
		return nil, errors.InvalidInput(errors.PhaseCatalog, fmt.Sprintf("class %q already defined", name))
	}
	var superClass *Class
	if super != "" {
		var ok bool
		superClass, ok = s.byName[super]
		if !ok {
			return nil, errors.ClassNotFound(super)
		}
	}

	cls := &Class{proc: p, name: name, super: superClass}
	meta := &Class{proc: p, name: name, isMeta: true}
	cls.meta = meta
	if superClass != nil {
		meta.super = superClass.meta
	} else {
		// the root metaclass inherits from the root class
		meta.super = cls
	}

	cls.handle, _ = p.mem.Alloc(8 * ptrSize)
	meta.handle, _ = p.mem.Alloc(8 * ptrSize)
	cls.nameStr, _ = p.mem.AllocCString(name)
	meta.nameStr = cls.nameStr

	s.classes[cls.handle] = cls
	s.classes[meta.handle] = meta
	s.isa[cls.handle] = meta
	s.isa[meta.handle] = meta
	s.byName[name] = cls
	s.order = append(s.order, cls)
	return cls, nil
}

// MustDefineClass is like DefineClass but panics on error.
func (p *Process) MustDefineClass(name, super string) *Class {
	cls, err := p.DefineClass(name, super)
	if err != nil {
		panic(err)
	}
	return cls
}

// Class returns the class registered under name.
func (p *Process) Class(name string) (*Class, bool) {
	p.objc.mu.Lock()
	defer p.objc.mu.Unlock()
	cls, ok := p.objc.byName[name]
	return cls, ok
}

// NewObject allocates an instance of cls.
func (p *Process) NewObject(cls *Class) bridge.Pointer {
	handle, _ := p.mem.Alloc(4 * ptrSize)
	p.objc.mu.Lock()
	p.objc.isa[handle] = cls
	p.objc.mu.Unlock()
	return handle
}

// ClassOf returns the class of the object with the given handle.
func (p *Process) ClassOf(obj bridge.Pointer) (*Class, bool) {
	p.objc.mu.Lock()
	defer p.objc.mu.Unlock()
	cls, ok := p.objc.isa[obj]
	return cls, ok
}

// Selector interns name and returns the selector handle.
func (p *Process) Selector(name string) bridge.Pointer {
	return p.objc.registerSelector(name)
}

// Trace returns every message delivered through objc_msgSend so far.
func (p *Process) Trace() []Invocation {
	p.objc.mu.Lock()
	defer p.objc.mu.Unlock()
	return append([]Invocation(nil), p.objc.trace...)
}

func (s *objcState) lookup(cls *Class, sel bridge.Pointer) (*method, *Class) {
	for c := cls; c != nil; c = c.super {
		// later additions shadow earlier ones, as with categories
		for i := len(c.methods) - 1; i >= 0; i-- {
			if c.methods[i].sel == sel {
				return c.methods[i], c
			}
		}
	}
	return nil, nil
}

func (s *objcState) msgSend(args []any) (any, error) {
	self := pointerArg(args, 0)
	sel := pointerArg(args, 1)
	if self.IsNull() {
		// messages to nil return zero
		return bridge.Pointer(0), nil
	}

	s.mu.Lock()
	cls, ok := s.isa[self]
	if !ok {
		s.mu.Unlock()
		return nil, errors.InvalidData(errors.PhaseDispatch, nil, fmt.Sprintf("%#x is not an object", uintptr(self)))
	}
	m, _ := s.lookup(cls, sel)
	name := s.selNames[sel]
	if m == nil {
		s.mu.Unlock()
		kind := "instance"
		if cls.isMeta {
			kind = "class"
		}
		return nil, errors.New(errors.PhaseDispatch, errors.KindMethodNotFound).
			Path(cls.name, name).
			Detail("unrecognized selector sent to %s", kind).
			Build()
	}
	s.trace = append(s.trace, Invocation{Class: cls.name, Selector: name, Static: cls.isMeta})
	imp := m.imp
	s.mu.Unlock()

	return s.proc.invoke(imp, args...)
}

func (p *Process) installObjC() {
	const lib = "libobjc.A.dylib"
	s := p.objc

	p.exportFunc(lib, "objc_msgSend", s.msgSend)

	p.exportFunc(lib, "objc_getClassList", func(args []any) (any, error) {
		buf := pointerArg(args, 0)
		capacity := int(intArg(args, 1))
		s.mu.Lock()
		classes := append([]*Class(nil), s.order...)
		s.mu.Unlock()
		if !buf.IsNull() {
			for i := 0; i < capacity && i < len(classes); i++ {
				if err := p.mem.WritePointer(buf+bridge.Pointer(i*ptrSize), classes[i].handle); err != nil {
					return nil, err
				}
			}
		}
		return int32(len(classes)), nil
	})

	p.exportFunc(lib, "class_getName", func(args []any) (any, error) {
		cls, err := s.class(pointerArg(args, 0))
		if err != nil {
			return nil, err
		}
		return cls.nameStr, nil
	})

	p.exportFunc(lib, "class_getSuperclass", func(args []any) (any, error) {
		cls, err := s.class(pointerArg(args, 0))
		if err != nil {
			return nil, err
		}
		if cls.super == nil {
			return bridge.Pointer(0), nil
		}
		return cls.super.handle, nil
	})

	p.exportFunc(lib, "object_getClass", func(args []any) (any, error) {
		obj := pointerArg(args, 0)
		if obj.IsNull() {
			return bridge.Pointer(0), nil
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		cls, ok := s.isa[obj]
		if !ok {
			return nil, errors.InvalidData(errors.PhaseDispatch, nil, fmt.Sprintf("%#x is not an object", uintptr(obj)))
		}
		return cls.handle, nil
	})

	p.exportFunc(lib, "class_copyMethodList", func(args []any) (any, error) {
		cls, err := s.class(pointerArg(args, 0))
		if err != nil {
			return nil, err
		}
		outCount := pointerArg(args, 1)

		s.mu.Lock()
		methods := append([]*method(nil), cls.methods...)
		s.mu.Unlock()

		if !outCount.IsNull() {
			if err := p.mem.WriteU32(outCount, uint32(len(methods))); err != nil {
				return nil, err
			}
		}
		if len(methods) == 0 {
			return bridge.Pointer(0), nil
		}
		list, _ := p.mem.Alloc(len(methods) * ptrSize)
		for i, m := range methods {
			if err := p.mem.WritePointer(list+bridge.Pointer(i*ptrSize), m.handle); err != nil {
				return nil, err
			}
		}
		return list, nil
	})

	p.exportFunc(lib, "method_getName", func(args []any) (any, error) {
		m, err := s.method(pointerArg(args, 0))
		if err != nil {
			return nil, err
		}
		return m.sel, nil
	})

	p.exportFunc(lib, "method_getTypeEncoding", func(args []any) (any, error) {
		m, err := s.method(pointerArg(args, 0))
		if err != nil {
			return nil, err
		}
		return m.typesStr, nil
	})

	p.exportFunc(lib, "method_getImplementation", func(args []any) (any, error) {
		m, err := s.method(pointerArg(args, 0))
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return m.imp, nil
	})

	p.exportFunc(lib, "method_setImplementation", func(args []any) (any, error) {
		m, err := s.method(pointerArg(args, 0))
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		old := m.imp
		m.imp = pointerArg(args, 1)
		return old, nil
	})

	p.exportFunc(lib, "sel_getName", func(args []any) (any, error) {
		sel := pointerArg(args, 0)
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.selNames[sel]; !ok {
			return nil, errors.InvalidData(errors.PhaseDispatch, nil, fmt.Sprintf("%#x is not a selector", uintptr(sel)))
		}
		// selectors are interned C strings
		return sel, nil
	})

	p.exportFunc(lib, "sel_registerName", func(args []any) (any, error) {
		name, err := p.mem.ReadCString(pointerArg(args, 0))
		if err != nil {
			return nil, err
		}
		return s.registerSelector(name), nil
	})
}

func (s *objcState) class(handle bridge.Pointer) (*Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cls, ok := s.classes[handle]
	if !ok {
		return nil, errors.InvalidData(errors.PhaseDispatch, nil, fmt.Sprintf("%#x is not a class", uintptr(handle)))
	}
	return cls, nil
}

func (s *objcState) method(handle bridge.Pointer) (*method, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.methods[handle]
	if !ok {
		return nil, errors.InvalidData(errors.PhaseDispatch, nil, fmt.Sprintf("%#x is not a method", uintptr(handle)))
	}
	return m, nil
}
