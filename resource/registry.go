package resource

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("resource registry closed")

// Registry keeps host values reachable while native code holds references
// to them. Releasing an entry calls Release on values implementing Releaser.
type Registry struct {
	entries   []entry
	freeList  []Handle
	observers []subscription
	nextObs   int
	obsMu     sync.RWMutex
	mu        sync.RWMutex
	closed    bool
}

type subscription struct {
	observer Observer
	id       int
}

type entry struct {
	value any
	kind  Kind
	valid bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:  make([]entry, 0, 16),
		freeList: make([]Handle, 0, 16),
	}
}

// Retain stores value and returns its handle.
func (r *Registry) Retain(kind Kind, value any) (Handle, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, ErrClosed
	}

	e := entry{kind: kind, value: value, valid: true}
	var handle Handle
	if n := len(r.freeList); n > 0 {
		handle = r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
		r.entries[handle-1] = e
	} else {
		r.entries = append(r.entries, e)
		handle = Handle(len(r.entries))
	}
	r.mu.Unlock()

	r.notify(Event{Type: EventRetained, Handle: handle, Kind: kind, Value: value})
	return handle, nil
}

// Get retrieves a retained value.
func (r *Registry) Get(handle Handle) (any, bool) {
	if handle == 0 {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := int(handle - 1)
	if idx >= len(r.entries) || !r.entries[idx].valid {
		return nil, false
	}
	return r.entries[idx].value, true
}

// Release drops the entry for handle and returns its value.
func (r *Registry) Release(handle Handle) (any, bool) {
	if handle == 0 {
		return nil, false
	}

	r.mu.Lock()
	idx := int(handle - 1)
	if idx >= len(r.entries) || !r.entries[idx].valid {
		r.mu.Unlock()
		return nil, false
	}
	e := r.entries[idx]
	r.entries[idx] = entry{}
	r.freeList = append(r.freeList, handle)
	r.mu.Unlock()

	if rel, ok := e.value.(Releaser); ok {
		rel.Release()
	}
	r.notify(Event{Type: EventReleased, Handle: handle, Kind: e.kind, Value: e.value})
	return e.value, true
}

// Len returns the number of retained values.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries) - len(r.freeList)
}

// Count returns the number of retained values of kind.
func (r *Registry) Count(kind Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.entries {
		if e.valid && e.kind == kind {
			n++
		}
	}
	return n
}

// Each calls fn for every retained value until fn returns false.
func (r *Registry) Each(fn func(Handle, Kind, any) bool) {
	r.mu.RLock()
	snapshot := append([]entry(nil), r.entries...)
	r.mu.RUnlock()
	for i, e := range snapshot {
		if e.valid && !fn(Handle(i+1), e.kind, e.value) {
			return
		}
	}
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it.
func (r *Registry) Subscribe(o Observer) (unsubscribe func()) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.nextObs++
	id := r.nextObs
	r.observers = append(r.observers, subscription{id: id, observer: o})
	return func() {
		r.obsMu.Lock()
		defer r.obsMu.Unlock()
		for i, sub := range r.observers {
			if sub.id == id {
				r.observers = append(r.observers[:i], r.observers[i+1:]...)
				return
			}
		}
	}
}

// Close releases every retained value and stops accepting new ones.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	var handles []Handle
	r.Each(func(h Handle, _ Kind, _ any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		r.Release(h)
	}
	return nil
}

func (r *Registry) notify(e Event) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, sub := range r.observers {
		sub.observer.OnResourceEvent(e)
	}
}
