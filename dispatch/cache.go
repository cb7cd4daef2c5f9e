package dispatch

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/errors"
	"github.com/wippyai/objc-bridge/signature"
)

// Cache maps signature identities to bound trampolines.
// Cache is safe for concurrent use.
type Cache struct {
	binder  bridge.Binder
	log     *zap.Logger
	byID    map[string]bridge.NativeFunction
	group   singleflight.Group
	msgSend bridge.Pointer
	mu      sync.RWMutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the cache's logger. The package logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		c.log = l
	}
}

// NewCache creates a cache binding trampolines to the msgSend entry point.
func NewCache(binder bridge.Binder, msgSend bridge.Pointer, opts ...Option) *Cache {
	c := &Cache{
		binder:  binder,
		msgSend: msgSend,
		byID:    make(map[string]bridge.NativeFunction),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = Logger()
	}
	return c
}

// Trampoline returns the trampoline for sig, binding it on first request.
func (c *Cache) Trampoline(sig *signature.Signature) (bridge.NativeFunction, error) {
	c.mu.RLock()
	fn, ok := c.byID[sig.ID]
	c.mu.RUnlock()
	if ok {
		return fn, nil
	}

	v, err, _ := c.group.Do(sig.ID, func() (any, error) {
		c.mu.RLock()
		fn, ok := c.byID[sig.ID]
		c.mu.RUnlock()
		if ok {
			return fn, nil
		}

		fn, err := c.binder.NewFunction(c.msgSend, sig.ReturnType(), ArgumentTypes(sig))
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDispatch, errors.KindInvalidData, err, "bind trampoline "+sig.ID)
		}

		c.mu.Lock()
		c.byID[sig.ID] = fn
		c.mu.Unlock()

		c.log.Debug("trampoline bound", zap.String("signature", sig.ID))
		return fn, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(bridge.NativeFunction), nil
}

// Len returns the number of distinct trampolines bound so far.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// ArgumentTypes returns the native argument list for binding msgSend to sig:
// the declared types with a variadic marker right after the selector slot.
func ArgumentTypes(sig *signature.Signature) []bridge.Type {
	types := make([]bridge.Type, 0, len(sig.Args)+1)
	for i, a := range sig.Args {
		types = append(types, a.NativeType())
		if i == signature.ImplicitArgs-1 {
			types = append(types, bridge.TypeVariadic)
		}
	}
	return types
}
