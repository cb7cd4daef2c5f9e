// Package runtime provides the high-level API of the bridge.
//
// # Quick Start
//
//	rt := runtime.New(runtime.Config{
//	    Resolver: resolver,
//	    Memory:   memory,
//	    Binder:   binder,
//	    Logger:   logger,
//	})
//	if !rt.Available() {
//	    log.Fatal(rt.Err())
//	}
//
//	sound, err := rt.Use("NSSound")
//	obj, err := sound.CallObject("alloc")
//	obj, err = obj.CallObject("initWithContentsOfFile_byReference_", path, true)
//	_, err = obj.Call("play")
//
// # Availability
//
// New never fails. When an entry point cannot be resolved the runtime is
// unavailable: Available reports false, Err returns the
// *errors.MissingEntryPointsError, and every operation returns a
// not_available error.
//
// # Replacing Methods
//
// Implement turns a Go function into a native callback typed like an
// existing method; install it with Method.SetImplementation:
//
//	m, _ := obj.Method("play")
//	cb, err := rt.Implement(m, func(args ...any) (any, error) {
//	    return args[0], nil // self
//	})
//	prev, err := m.SetImplementation(cb.Address())
//
// # Scheduling
//
// Schedule runs Go code on a dispatch queue:
//
//	err := rt.Schedule(rt.MainQueue(), func() error {
//	    _, err := obj.Call("play")
//	    return err
//	})
//
// Work runs inside an NSAutoreleasePool. Its callback is kept alive in a
// resource.Registry until the work has returned; PendingCallbacks reports
// how many are in flight. Errors and panics from work are reported to
// Config.OnError after cleanup and returned to the queue.
package runtime
