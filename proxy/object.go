package proxy

import (
	"fmt"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/errors"
)

// Object is a proxy for a foreign object or, with a null handle, for a class.
type Object struct {
	factory     *Factory
	class       *Class
	classHandle bridge.Pointer
	handle      bridge.Pointer
}

// Handle returns the foreign object handle. A nil *Object and class objects
// return a null handle.
func (o *Object) Handle() bridge.Pointer {
	if o == nil {
		return 0
	}
	return o.handle
}

// ClassHandle returns the handle of the object's class.
func (o *Object) ClassHandle() bridge.Pointer {
	return o.classHandle
}

// Class returns the proxy class record.
func (o *Object) Class() *Class {
	return o.class
}

// IsClass reports whether o stands for a class rather than an instance.
func (o *Object) IsClass() bool {
	return o.handle.IsNull()
}

// Method finds a method by name.
func (o *Object) Method(name string) (*Method, bool) {
	return o.class.Lookup(name)
}

// RespondsTo reports whether name resolves on the object's class chain.
func (o *Object) RespondsTo(name string) bool {
	_, ok := o.class.Lookup(name)
	return ok
}

// Call sends the named method with args and returns the converted result.
func (o *Object) Call(name string, args ...any) (any, error) {
	m, ok := o.class.Lookup(name)
	if !ok {
		return nil, errors.MethodNotFound(o.class.name, name)
	}
	return m.Call(o, args...)
}

// CallObject is Call for methods returning an object. A nil result yields
// a nil *Object.
func (o *Object) CallObject(name string, args ...any) (*Object, error) {
	v, err := o.Call(name, args...)
	if err != nil {
		return nil, err
	}
	switch r := v.(type) {
	case nil:
		return nil, nil
	case *Object:
		return r, nil
	default:
		return nil, errors.TypeMismatch(errors.PhaseConvert, []string{o.class.name, name}, fmt.Sprintf("%T", v), "@")
	}
}

// String returns the object's description. Class objects print their name.
func (o *Object) String() string {
	if o == nil {
		return "nil"
	}
	if o.IsClass() {
		return o.class.name
	}
	if s, ok := o.describe(); ok {
		return s
	}
	return fmt.Sprintf("<%s: %#x>", o.class.name, uintptr(o.handle))
}

func (o *Object) describe() (string, bool) {
	if !o.RespondsTo("description") {
		return "", false
	}
	desc, err := o.CallObject("description")
	if err != nil || desc == nil {
		return "", false
	}
	v, err := desc.Call("UTF8String")
	if err != nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
