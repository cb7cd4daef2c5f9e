// Package errors provides structured error types for the objc bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: path (class, selector), Go type, type
// encoding and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConvert, errors.KindTypeMismatch).
//		Path("NSSound", "initWithContentsOfFile:byReference:").
//		GoType("int").
//		Encoding("@").
//		Detail("argument 0").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ClassNotFound("NSSound")
//	err := errors.UnsupportedTypeEncoding("{CGRect={CGPoint=dd}{CGSize=dd}}")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
