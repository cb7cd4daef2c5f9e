package proxy

import (
	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/errors"
	"github.com/wippyai/objc-bridge/signature"
)

// Method is a foreign method bound to its parsed signature.
type Method struct {
	factory *Factory
	class   *Class
	sig     *signature.Signature
	name    string
	selName string
	sel     bridge.Pointer
	handle  bridge.Pointer
	static  bool
}

// Name returns the Go-side method name.
func (m *Method) Name() string {
	return m.name
}

// SelectorName returns the selector as declared by the runtime.
func (m *Method) SelectorName() string {
	return m.selName
}

// Selector returns the selector handle.
func (m *Method) Selector() bridge.Pointer {
	return m.sel
}

// Class returns the class that declares the method.
func (m *Method) Class() *Class {
	return m.class
}

// Static reports whether this is a class-side method.
func (m *Method) Static() bool {
	return m.static
}

// Signature returns the parsed type encoding.
func (m *Method) Signature() *signature.Signature {
	return m.sig
}

// ReturnType returns the native return type.
func (m *Method) ReturnType() bridge.Type {
	return m.sig.ReturnType()
}

// ArgumentTypes returns the native types of every argument slot,
// receiver and selector included.
func (m *Method) ArgumentTypes() []bridge.Type {
	return m.sig.ArgumentTypes()
}

// Implementation binds the method's current implementation as a callable.
// It is called with receiver and selector as the first two arguments.
func (m *Method) Implementation() (bridge.NativeFunction, error) {
	imp, err := m.factory.api.MethodImplementation(m.handle)
	if err != nil {
		return nil, err
	}
	return m.factory.binder.NewFunction(imp, m.ReturnType(), m.ArgumentTypes())
}

// SetImplementation replaces the method's implementation and returns the
// previous one.
func (m *Method) SetImplementation(imp bridge.Pointer) (bridge.Pointer, error) {
	if imp.IsNull() {
		return 0, errors.NilPointer(errors.PhaseDispatch, []string{m.class.name, m.name}, "implementation")
	}
	return m.factory.api.SetMethodImplementation(m.handle, imp)
}

// Call sends the method to recv. Class-side methods are sent to the class,
// instance-side methods to the instance.
func (m *Method) Call(recv *Object, args ...any) (any, error) {
	if recv == nil {
		return nil, errors.NilPointer(errors.PhaseDispatch, []string{m.class.name, m.name}, "receiver")
	}
	params := m.sig.Params()
	if len(args) != len(params) {
		return nil, errors.ArgumentCount(errors.PhaseDispatch, []string{m.class.name, m.name}, len(params), len(args))
	}

	fn, err := m.factory.cache.Trampoline(m.sig)
	if err != nil {
		return nil, err
	}

	env := &callEnv{factory: m.factory, recv: recv}
	target := recv.handle
	if m.static {
		target = recv.classHandle
	}

	native := make([]any, 0, len(args)+signature.ImplicitArgs)
	native = append(native, target, m.sel)
	for i, p := range params {
		v := args[i]
		if p.Converter.ToNative != nil {
			if v, err = p.Converter.ToNative(env, v); err != nil {
				return nil, errors.New(errors.PhaseConvert, errors.KindTypeMismatch).
					Path(m.class.name, m.name).
					Encoding(p.Encoding).
					Cause(err).
					Detail("argument %d", i).
					Build()
			}
		}
		native = append(native, v)
	}

	ret, err := fn.Call(native...)
	if err != nil {
		return nil, errors.New(errors.PhaseDispatch, errors.KindInvalidData).
			Path(m.class.name, m.name).
			Cause(err).
			Detail("message send failed").
			Build()
	}

	rc := m.sig.Return.Converter
	if rc.Type == bridge.TypeVoid {
		return nil, nil
	}
	if rc.FromNative != nil {
		out, err := rc.FromNative(env, ret)
		if err != nil {
			return nil, errors.New(errors.PhaseConvert, errors.KindTypeMismatch).
				Path(m.class.name, m.name).
				Encoding(m.sig.Return.Encoding).
				Cause(err).
				Detail("return value").
				Build()
		}
		return out, nil
	}
	return ret, nil
}
