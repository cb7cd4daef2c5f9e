package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseParse     Phase = "parse"     // type encoding parsing
	PhaseConvert   Phase = "convert"   // Go <-> native value conversion
	PhaseDispatch  Phase = "dispatch"  // trampoline binding and message sends
	PhaseDiscovery Phase = "discovery" // class enumeration and proxy building
	PhaseResolve   Phase = "resolve"   // entry point resolution
	PhaseSchedule  Phase = "schedule"  // queue scheduling
	PhaseRuntime   Phase = "runtime"   // facade operations
	PhaseCatalog   Phase = "catalog"   // simulated runtime catalogs
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch            Kind = "type_mismatch"
	KindInvalidData             Kind = "invalid_data"
	KindUnsupported             Kind = "unsupported"
	KindUnsupportedTypeEncoding Kind = "unsupported_type_encoding"
	KindAllocation              Kind = "allocation"
	KindNilPointer              Kind = "nil_pointer"
	KindOutOfBounds             Kind = "out_of_bounds"
	KindNotFound                Kind = "not_found"
	KindClassNotFound           Kind = "class_not_found"
	KindMethodNotFound          Kind = "method_not_found"
	KindMissingEntryPoint       Kind = "missing_entry_point"
	KindNotAvailable            Kind = "not_available"
	KindArgumentCount           Kind = "argument_count"
	KindInvalidInput            Kind = "invalid_input"
	KindPanic                   Kind = "panic"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	Encoding string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.Encoding != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.Encoding != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", encoding ")
			b.WriteString(e.Encoding)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("encoding ")
			b.WriteString(e.Encoding)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.Encoding != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches any phase.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return (t.Phase == "" || e.Phase == t.Phase) && e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrClassNotFound           = &Error{Kind: KindClassNotFound}
	ErrMethodNotFound          = &Error{Kind: KindMethodNotFound}
	ErrUnsupportedTypeEncoding = &Error{Kind: KindUnsupportedTypeEncoding}
	ErrNotAvailable            = &Error{Kind: KindNotAvailable}
)

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the path (class, selector, argument)
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Encoding sets the native type encoding
func (b *Builder) Encoding(enc string) *Builder {
	b.err.Encoding = enc
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// ClassNotFound creates an error for an unknown class name
func ClassNotFound(name string) *Error {
	return &Error{
		Phase:  PhaseDiscovery,
		Kind:   KindClassNotFound,
		Detail: fmt.Sprintf("cannot find class %q", name),
		Value:  name,
	}
}

// MethodNotFound creates an error for a method missing from a class and its ancestors
func MethodNotFound(class, method string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindMethodNotFound,
		Path:   []string{class, method},
		Detail: fmt.Sprintf("%s does not respond to %s", class, method),
	}
}

// UnsupportedTypeEncoding creates an error carrying the offending type tag
func UnsupportedTypeEncoding(tag string) *Error {
	return &Error{
		Phase:    PhaseParse,
		Kind:     KindUnsupportedTypeEncoding,
		Encoding: tag,
		Detail:   "no converter for type",
		Value:    tag,
	}
}

// NotAvailable creates an error for operations that need unresolved entry points
func NotAvailable(what string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindNotAvailable,
		Detail: fmt.Sprintf("%s: objc runtime not available", what),
	}
}

// ArgumentCount creates an arity mismatch error
func ArgumentCount(phase Phase, path []string, want, got int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindArgumentCount,
		Path:   path,
		Detail: fmt.Sprintf("expected %d argument(s), got %d", want, got),
		Value:  got,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, encoding string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Path:     path,
		GoType:   goType,
		Encoding: encoding,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		Detail: fmt.Sprintf("%s is null", what),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Panic converts a recovered panic value into an error
func Panic(phase Phase, value any) *Error {
	if err, ok := value.(error); ok {
		return &Error{
			Phase:  phase,
			Kind:   KindPanic,
			Detail: "recovered panic",
			Cause:  err,
			Value:  value,
		}
	}
	return &Error{
		Phase:  phase,
		Kind:   KindPanic,
		Detail: fmt.Sprintf("recovered panic: %v", value),
		Value:  value,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingEntryPoint represents a single unresolved native export
type MissingEntryPoint struct {
	Module string // e.g., "libobjc.A.dylib"
	Name   string // e.g., "objc_msgSend"
}

// MissingEntryPointsError is returned when not every required entry point was found
type MissingEntryPointsError struct {
	EntryPoints []MissingEntryPoint
}

// NewMissingEntryPointsError creates an error from a list of "module!name" strings
func NewMissingEntryPointsError(keys []string) *MissingEntryPointsError {
	result := &MissingEntryPointsError{
		EntryPoints: make([]MissingEntryPoint, 0, len(keys)),
	}
	for _, key := range keys {
		mod, name := parseEntryPointKey(key)
		result.EntryPoints = append(result.EntryPoints, MissingEntryPoint{
			Module: mod,
			Name:   name,
		})
	}
	return result
}

func parseEntryPointKey(key string) (module, name string) {
	mod, n, found := strings.Cut(key, "!")
	if found {
		return mod, n
	}
	return "", key
}

func (e *MissingEntryPointsError) Error() string {
	if len(e.EntryPoints) == 0 {
		return "[resolve] missing_entry_point: no entry points specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("missing %d entry point(s):\n", len(e.EntryPoints)))

	// Group by module for cleaner output
	byModule := make(map[string][]string)
	var order []string
	for _, ep := range e.EntryPoints {
		if _, exists := byModule[ep.Module]; !exists {
			order = append(order, ep.Module)
		}
		byModule[ep.Module] = append(byModule[ep.Module], ep.Name)
	}

	for _, mod := range order {
		b.WriteString("\n  ")
		b.WriteString(mod)
		b.WriteString(":\n")
		for _, name := range byModule[mod] {
			b.WriteString("    - ")
			b.WriteString(name)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingEntryPointsError) Is(target error) bool {
	_, ok := target.(*MissingEntryPointsError)
	return ok
}
