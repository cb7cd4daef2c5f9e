// Package resource keeps host values alive while native code references them.
//
// A native callback handed to a dispatch queue must stay reachable until the
// queue has called it. The Registry maps integer handles to such values:
//
//	reg := resource.NewRegistry()
//	h, err := reg.Retain(resource.KindCallback, cb)
//	...
//	reg.Release(h) // calls cb.Release()
//
// Observers see every retain and release:
//
//	reg.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    if e.Type == resource.EventReleased {
//	        log.Printf("%s %d released", e.Kind, e.Handle)
//	    }
//	}))
//
// Close releases everything still retained.
package resource
