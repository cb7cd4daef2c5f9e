// Package objcbridge lets Go code call into, and be called back from, an
// Objective-C style runtime whose classes are only known at run time.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	objcbridge/          Root package with Pointer, Type and collaborator interfaces
//	├── runtime/         Facade: Use, Cast, Implement, Selector, Schedule
//	├── proxy/           Class discovery, proxy classes, bound methods, objects
//	├── dispatch/        Per-signature objc_msgSend trampoline cache
//	├── signature/       Type-encoding parser
//	├── convert/         Type tag to converter registry
//	├── api/             Entry point resolution and typed wrappers
//	├── resource/        Keep-alive table for in-flight scheduled callbacks
//	├── errors/          Structured error types for debugging
//	└── sim/             In-process simulated foreign runtime
//
// # Quick Start
//
//	rt := runtime.New(runtime.Config{
//	    Resolver: resolver,
//	    Memory:   memory,
//	    Binder:   binder,
//	})
//	if !rt.Available() {
//	    log.Fatal("objc runtime not available")
//	}
//
//	sound, err := rt.Use("NSSound")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	obj, err := sound.CallObject("alloc")
//	...
//	obj, err = obj.CallObject("initWithContentsOfFile_byReference_", "/tmp/x.mp3", true)
//
// # Collaborators
//
// Symbol resolution, raw memory access and native call stubs are supplied by
// the embedding application through SymbolResolver, Memory and Binder. The sim
// package provides pure Go implementations of all three.
//
// # Thread Safety
//
// Class discovery is expected to run on one goroutine at a time. Lazily built
// classes and trampolines are guarded per key, so concurrent first use of the
// same class or signature builds it once.
//
// # Memory Model
//
// The bridge never retains or releases foreign objects. Callers own the
// lifetime of every object they obtain.
package objcbridge
