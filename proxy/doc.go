// Package proxy builds Go-side proxies for classes of the foreign runtime.
//
// A Factory enumerates the classes registered with the runtime and builds a
// Class record on first use: name, superclass link and an ordered method
// table. Methods are resolved from the runtime's class-side and
// instance-side method lists; a method whose type encoding cannot be parsed
// is skipped and the rest of the class stays usable.
//
// Calls go through the dispatch cache, so every method sharing a signature
// identity shares one objc_msgSend trampoline.
//
//	sound, err := factory.Use("NSSound")
//	obj, err := sound.CallObject("alloc")
//	obj, err = obj.CallObject("initWithContentsOfFile_byReference_", path, true)
//	_, err = obj.Call("play")
//
// Method names are selectors with ':' rewritten to '_'. When two selectors
// rewrite to the same name the one enumerated last wins.
package proxy
