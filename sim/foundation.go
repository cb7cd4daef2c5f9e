package sim

import (
	"fmt"
	"sync"

	bridge "github.com/wippyai/objc-bridge"
)

// foundation holds the state behind the simulated Foundation classes.
type foundation struct {
	strings   map[bridge.Pointer]string
	utf8      map[bridge.Pointer]bridge.Pointer
	retains   map[bridge.Pointer]int
	pools     []bridge.Pointer
	poolsMade int
	drained   int
	mu        sync.Mutex
}

func installFoundation(p *Process) *foundation {
	f := &foundation{
		strings: make(map[bridge.Pointer]string),
		utf8:    make(map[bridge.Pointer]bridge.Pointer),
		retains: make(map[bridge.Pointer]int),
	}

	p.MustDefineClass("NSObject", "").
		ClassMethod("alloc", "@16@0:8", func(c *Call) (any, error) {
			return c.Proc.allocInstance(c.Self)
		}).
		ClassMethod("new", "@16@0:8", func(c *Call) (any, error) {
			return c.Proc.allocInstance(c.Self)
		}).
		ClassMethod("class", "#16@0:8", func(c *Call) (any, error) {
			return c.Self, nil
		}).
		InstanceMethod("init", "@16@0:8", func(c *Call) (any, error) {
			return c.Self, nil
		}).
		InstanceMethod("retain", "@16@0:8", func(c *Call) (any, error) {
			f.mu.Lock()
			f.retains[c.Self]++
			f.mu.Unlock()
			return c.Self, nil
		}).
		InstanceMethod("release", "Vv16@0:8", func(c *Call) (any, error) {
			f.mu.Lock()
			f.retains[c.Self]--
			f.mu.Unlock()
			return nil, nil
		}).
		InstanceMethod("class", "#16@0:8", func(c *Call) (any, error) {
			cls, ok := c.Proc.ClassOf(c.Self)
			if !ok {
				return bridge.Pointer(0), nil
			}
			return cls.handle, nil
		}).
		InstanceMethod("hash", "Q16@0:8", func(c *Call) (any, error) {
			return uint64(c.Self), nil
		}).
		InstanceMethod("isEqual:", "c24@0:8@16", func(c *Call) (any, error) {
			return boolByte(c.Pointer(0) == c.Self), nil
		}).
		InstanceMethod("description", "@16@0:8", func(c *Call) (any, error) {
			cls, _ := c.Proc.ClassOf(c.Self)
			name := "?"
			if cls != nil {
				name = cls.name
			}
			return c.Proc.NewString(fmt.Sprintf("<%s: %#x>", name, uintptr(c.Self))), nil
		}).
		InstanceMethod("respondsToSelector:", "c24@0:8:16", func(c *Call) (any, error) {
			cls, ok := c.Proc.ClassOf(c.Self)
			if !ok {
				return boolByte(false), nil
			}
			c.Proc.objc.mu.Lock()
			m, _ := c.Proc.objc.lookup(cls, c.Pointer(0))
			c.Proc.objc.mu.Unlock()
			return boolByte(m != nil), nil
		}).
		InstanceMethod("isKindOfClass:", "c24@0:8#16", func(c *Call) (any, error) {
			cls, _ := c.Proc.ClassOf(c.Self)
			for ; cls != nil; cls = cls.super {
				if cls.handle == c.Pointer(0) {
					return boolByte(true), nil
				}
			}
			return boolByte(false), nil
		})

	p.MustDefineClass("NSString", "NSObject").
		ClassMethod("stringWithUTF8String:", "@24@0:8r*16", func(c *Call) (any, error) {
			s, err := c.String(0)
			if err != nil {
				return nil, err
			}
			return c.Proc.NewString(s), nil
		}).
		InstanceMethod("initWithUTF8String:", "@24@0:8r*16", func(c *Call) (any, error) {
			s, err := c.String(0)
			if err != nil {
				return nil, err
			}
			f.mu.Lock()
			f.strings[c.Self] = s
			f.mu.Unlock()
			return c.Self, nil
		}).
		InstanceMethod("UTF8String", "r*16@0:8", func(c *Call) (any, error) {
			return f.cString(c.Proc, c.Self)
		}).
		InstanceMethod("length", "Q16@0:8", func(c *Call) (any, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			return uint64(len([]rune(f.strings[c.Self]))), nil
		}).
		InstanceMethod("isEqualToString:", "c24@0:8@16", func(c *Call) (any, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			a, okA := f.strings[c.Self]
			b, okB := f.strings[c.Pointer(0)]
			return boolByte(okA && okB && a == b), nil
		}).
		InstanceMethod("description", "@16@0:8", func(c *Call) (any, error) {
			return c.Self, nil
		})

	p.MustDefineClass("NSAutoreleasePool", "NSObject").
		InstanceMethod("init", "@16@0:8", func(c *Call) (any, error) {
			f.mu.Lock()
			f.pools = append(f.pools, c.Self)
			f.poolsMade++
			f.mu.Unlock()
			return c.Self, nil
		}).
		InstanceMethod("drain", "v16@0:8", func(c *Call) (any, error) {
			f.popPool(c.Self)
			return nil, nil
		}).
		InstanceMethod("release", "Vv16@0:8", func(c *Call) (any, error) {
			f.popPool(c.Self)
			return nil, nil
		})

	return f
}

func (p *Process) allocInstance(classHandle bridge.Pointer) (bridge.Pointer, error) {
	cls, err := p.objc.class(classHandle)
	if err != nil {
		return 0, err
	}
	return p.NewObject(cls), nil
}

func (f *foundation) cString(p *Process, str bridge.Pointer) (bridge.Pointer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ptr, ok := f.utf8[str]; ok {
		return ptr, nil
	}
	ptr, err := p.mem.AllocCString(f.strings[str])
	if err != nil {
		return 0, err
	}
	f.utf8[str] = ptr
	return ptr, nil
}

// popPool drains pool and every pool pushed after it.
func (f *foundation) popPool(pool bridge.Pointer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.pools) - 1; i >= 0; i-- {
		if f.pools[i] == pool {
			f.drained += len(f.pools) - i
			f.pools = f.pools[:i]
			return
		}
	}
}

func boolByte(b bool) int8 {
	if b {
		return 1
	}
	return 0
}

// NewString creates an NSString instance holding s.
func (p *Process) NewString(s string) bridge.Pointer {
	cls, _ := p.Class("NSString")
	handle := p.NewObject(cls)
	p.found.mu.Lock()
	p.found.strings[handle] = s
	p.found.mu.Unlock()
	return handle
}

// StringValue returns the contents of an NSString instance.
func (p *Process) StringValue(handle bridge.Pointer) (string, bool) {
	p.found.mu.Lock()
	defer p.found.mu.Unlock()
	s, ok := p.found.strings[handle]
	return s, ok
}

// PoolDepth returns the number of autorelease pools currently pushed.
func (p *Process) PoolDepth() int {
	p.found.mu.Lock()
	defer p.found.mu.Unlock()
	return len(p.found.pools)
}

// PoolsDrained returns the total number of autorelease pools created and
// the number drained so far.
func (p *Process) PoolsDrained() (created, drained int) {
	p.found.mu.Lock()
	defer p.found.mu.Unlock()
	return p.found.poolsMade, p.found.drained
}
