// Package api resolves the native entry points the bridge depends on and
// exposes them as typed Go methods.
//
// Required exports:
//
//	libsystem_malloc.dylib  free
//	libobjc.A.dylib         objc_msgSend, objc_getClassList, class_getName,
//	                        class_copyMethodList, class_getSuperclass,
//	                        object_getClass, method_getName,
//	                        method_getTypeEncoding, method_getImplementation,
//	                        method_setImplementation, sel_getName,
//	                        sel_registerName
//	libdispatch.dylib       dispatch_async_f, _dispatch_main_q (variable)
//
// Resolve fails with *errors.MissingEntryPointsError unless every one of them
// is found.
package api
