// Package sim provides an in-process stand-in for a native Objective-C process.
//
// A Process implements bridge.SymbolResolver and bridge.Binder and exposes a
// sparse heap through Memory. It exports the libobjc, libdispatch and libc
// entry points the bridge resolves, with a class model behind objc_msgSend:
//
//	p := sim.New()
//	p.MustDefineClass("Sound", "NSObject").
//		InstanceMethod("play", "v16@0:8", func(c *sim.Call) (any, error) {
//			return nil, nil
//		})
//
// Classes can also be loaded from TOML catalogs with LoadCatalog and Install.
//
// Work submitted through dispatch_async_f is queued per dispatch queue and runs
// when Drain is called. Functions registered with Defer run as next-tick work
// in the same loop.
package sim
