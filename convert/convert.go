package convert

import (
	"fmt"
	"sort"
	"sync"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/errors"
)

// Env is the per-call context a converter runs in.
type Env interface {
	// Receiver returns the proxy the current call was made on.
	Receiver() any
	// ReceiverHandle returns the receiver's object handle (null for class objects).
	ReceiverHandle() bridge.Pointer
	// WrapObject wraps handle in a proxy of its dynamic class.
	WrapObject(handle bridge.Pointer) (any, error)
	// NewString creates a foreign string object and returns its handle.
	NewString(s string) (bridge.Pointer, error)
	// ReadCString decodes a NUL-terminated UTF-8 string.
	ReadCString(p bridge.Pointer) (string, error)
}

// FromNativeFunc converts a native value into its Go-visible form.
type FromNativeFunc func(env Env, v any) (any, error)

// ToNativeFunc converts a Go value into its native form.
type ToNativeFunc func(env Env, v any) (any, error)

// Converter describes one elementary type tag.
type Converter struct {
	FromNative FromNativeFunc
	ToNative   ToNativeFunc
	Tag        string
	Type       bridge.Type
}

// Handler is implemented by values that wrap a foreign object handle.
type Handler interface {
	Handle() bridge.Pointer
}

// Registry maps type tags to converters.
type Registry struct {
	byTag map[string]*Converter
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byTag: make(map[string]*Converter),
	}
}

// Register adds c under its tag, replacing any previous converter.
func (r *Registry) Register(c *Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTag[c.Tag] = c
}

// Lookup returns the converter registered for tag.
func (r *Registry) Lookup(tag string) (*Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byTag[tag]
	return c, ok
}

// Tags returns all registered tags in sorted order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.byTag))
	for tag := range r.byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the shared registry holding the standard tag table.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		for _, c := range standardConverters() {
			defaultRegistry.Register(c)
		}
	})
	return defaultRegistry
}

func standardConverters() []*Converter {
	convs := []*Converter{
		{Tag: "c", Type: bridge.TypeChar, FromNative: boolFromNative, ToNative: boolToNative},
		{Tag: "B", Type: bridge.TypeChar, FromNative: boolFromNative, ToNative: boolToNative},
		{Tag: "C", Type: bridge.TypeUChar},
		{Tag: "s", Type: bridge.TypeInt16},
		{Tag: "S", Type: bridge.TypeUInt16},
		{Tag: "i", Type: bridge.TypeInt},
		{Tag: "I", Type: bridge.TypeUInt},
		{Tag: "l", Type: bridge.TypeInt},
		{Tag: "L", Type: bridge.TypeUInt},
		{Tag: "q", Type: bridge.TypeInt64},
		{Tag: "Q", Type: bridge.TypeUInt64},
		{Tag: "f", Type: bridge.TypeFloat},
		{Tag: "d", Type: bridge.TypeDouble},
		{Tag: "v", Type: bridge.TypeVoid},
		{Tag: "*", Type: bridge.TypePointer, FromNative: cStringFromNative},
		{Tag: "@", Type: bridge.TypePointer, FromNative: objectFromNative, ToNative: objectToNative},
	}
	for _, tag := range []string{
		"@?", "#", ":",
		"^v", "^?", "^i", "^q", "^S", "^^S", "^Q", "^*", "^@",
		"^{}", "^[]", "^()",
	} {
		convs = append(convs, &Converter{Tag: tag, Type: bridge.TypePointer})
	}
	return convs
}

func boolFromNative(_ Env, v any) (any, error) {
	n, ok := AsInt64(v)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseConvert, nil, fmt.Sprintf("%T", v), "c")
	}
	return n != 0, nil
}

func boolToNative(_ Env, v any) (any, error) {
	switch b := v.(type) {
	case bool:
		if b {
			return int8(1), nil
		}
		return int8(0), nil
	default:
		n, ok := AsInt64(v)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseConvert, nil, fmt.Sprintf("%T", v), "c")
		}
		if n != 0 {
			return int8(1), nil
		}
		return int8(0), nil
	}
}

func cStringFromNative(env Env, v any) (any, error) {
	p, ok := AsPointer(v)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseConvert, nil, fmt.Sprintf("%T", v), "*")
	}
	if p.IsNull() {
		return nil, nil
	}
	return env.ReadCString(p)
}

// objectFromNative preserves identity for self-returning methods: when the
// returned handle is the receiver's own, the receiver proxy itself is returned.
func objectFromNative(env Env, v any) (any, error) {
	p, ok := AsPointer(v)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseConvert, nil, fmt.Sprintf("%T", v), "@")
	}
	if p.IsNull() {
		return nil, nil
	}
	if p == env.ReceiverHandle() {
		return env.Receiver(), nil
	}
	return env.WrapObject(p)
}

func objectToNative(env Env, v any) (any, error) {
	if s, ok := v.(string); ok {
		return env.NewString(s)
	}
	p, ok := AsPointer(v)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseConvert, nil, fmt.Sprintf("%T", v), "@")
	}
	return p, nil
}

// AsPointer normalizes pointer-like Go values.
func AsPointer(v any) (bridge.Pointer, bool) {
	switch p := v.(type) {
	case nil:
		return 0, true
	case bridge.Pointer:
		return p, true
	case uintptr:
		return bridge.Pointer(p), true
	case uint64:
		return bridge.Pointer(p), true
	case Handler:
		return p.Handle(), true
	default:
		return 0, false
	}
}

// AsInt64 normalizes integer-like Go values.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
