// Package signature parses Objective-C method type encodings.
//
// An encoding such as
//
//	@24@0:8r*16
//
// lists the return type followed by every argument, each optionally prefixed
// by qualifiers (r const, n in, N inout, o out, O bycopy, R byref, V oneway)
// and followed by its stack offset. Parse turns it into a Signature whose
// types are resolved against a convert.Registry.
//
// The first two arguments of every method are the receiver and the selector.
// They are part of Signature.Args and of the signature identity, but are not
// exposed through Signature.Params.
package signature
