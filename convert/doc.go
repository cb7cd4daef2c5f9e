// Package convert maps elementary type-encoding tags to converters.
//
// Each Converter carries the native calling-convention type used when binding
// trampolines, plus optional functions translating values between their native
// representation and the representation Go callers see:
//
//	c, B      char/bool      int8 <-> bool
//	C s S     8/16-bit ints  pass-through
//	i I l L   32-bit ints    pass-through
//	q Q       64-bit ints    pass-through
//	f d       floats         pass-through
//	v         void           no return value
//	*         C string       Pointer -> string (read only)
//	@         object         Pointer <-> proxy object
//	@? # : ^… pointers       opaque Pointer
//
// Converters are stateless. Anything they need from the surrounding call (the
// receiver, object wrapping, string allocation) comes through Env.
package convert
