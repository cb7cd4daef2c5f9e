package objcbridge

// Pointer is a native address or opaque handle in the foreign process.
// The zero Pointer is the null pointer.
type Pointer uintptr

// IsNull reports whether p is the null pointer.
func (p Pointer) IsNull() bool {
	return p == 0
}

// Type is the native calling-convention type of a single argument or return slot.
type Type string

const (
	TypeVoid     Type = "void"
	TypeChar     Type = "char"
	TypeUChar    Type = "uchar"
	TypeInt16    Type = "int16"
	TypeUInt16   Type = "uint16"
	TypeInt      Type = "int"
	TypeUInt     Type = "uint"
	TypeInt64    Type = "int64"
	TypeUInt64   Type = "uint64"
	TypeFloat    Type = "float"
	TypeDouble   Type = "double"
	TypePointer  Type = "pointer"
	TypeVariadic Type = "..." // marks where variadic arguments begin
)

// ExportKind distinguishes function exports from variable exports.
type ExportKind uint8

const (
	ExportFunction ExportKind = iota
	ExportVariable
)

// Export is a resolved symbol of a loaded module.
type Export struct {
	Name    string
	Address Pointer
	Kind    ExportKind
}

// SymbolResolver looks up exported symbols of loaded modules.
type SymbolResolver interface {
	// ResolveExports returns the subset of names exported by module.
	// Names that are not exported are simply absent from the result.
	ResolveExports(module string, names []string) ([]Export, error)
}

// Memory provides raw access to the foreign address space.
type Memory interface {
	PointerSize() int
	ReadPointer(addr Pointer) (Pointer, error)
	ReadU32(addr Pointer) (uint32, error)
	ReadCString(addr Pointer) (string, error)
	Alloc(size int) (Pointer, error)
	AllocCString(s string) (Pointer, error)
	Free(addr Pointer)
}

// NativeFunction is a callable bound to a native entry point with a fixed shape.
type NativeFunction interface {
	Address() Pointer
	Call(args ...any) (any, error)
}

// HostFunc is a Go function invoked from native code through a NativeCallback.
type HostFunc func(args ...any) (any, error)

// NativeCallback is a native-callable stub that forwards into a HostFunc.
// The stub stays valid until Release is called.
type NativeCallback interface {
	Address() Pointer
	Release()
}

// Binder creates call stubs in both directions.
type Binder interface {
	NewFunction(addr Pointer, ret Type, args []Type) (NativeFunction, error)
	NewCallback(fn HostFunc, ret Type, args []Type) (NativeCallback, error)
}
