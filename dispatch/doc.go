// Package dispatch caches objc_msgSend trampolines per call shape.
//
// objc_msgSend is a single entry point that must be called with the exact
// native types of the target method. Cache binds it once per distinct
// signature identity, so the number of stubs grows with the number of call
// shapes observed rather than the number of methods.
//
//	cache := dispatch.NewCache(binder, msgSendAddr)
//	fn, err := cache.Trampoline(sig)
//	ret, err := fn.Call(receiver, selector, args...)
package dispatch
