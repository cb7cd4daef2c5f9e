package sim

import (
	"fmt"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/errors"
)

type workItem struct {
	context bridge.Pointer
	fn      bridge.Pointer
}

// queue is a serial dispatch queue. Items run in submission order when the
// process is drained.
type queue struct {
	label  string
	handle bridge.Pointer
	items  []workItem
}

func (p *Process) installDispatch() {
	p.mainQueue = p.NewQueue("com.apple.main-thread")
	p.export("libdispatch.dylib", "_dispatch_main_q", bridge.ExportVariable, p.mainQueue)

	p.exportFunc("libdispatch.dylib", "dispatch_async_f", func(args []any) (any, error) {
		q := pointerArg(args, 0)
		p.mu.Lock()
		defer p.mu.Unlock()
		dq, ok := p.queues[q]
		if !ok {
			return nil, errors.NotFound(errors.PhaseSchedule, "dispatch queue", fmt.Sprintf("%#x", uintptr(q)))
		}
		dq.items = append(dq.items, workItem{context: pointerArg(args, 1), fn: pointerArg(args, 2)})
		return nil, nil
	})
}

// NewQueue creates a serial queue and returns its handle.
func (p *Process) NewQueue(label string) bridge.Pointer {
	handle, _ := p.mem.Alloc(64)
	p.mu.Lock()
	p.queues[handle] = &queue{label: label, handle: handle}
	p.mu.Unlock()
	return handle
}

// MainQueue returns the handle of the main queue.
func (p *Process) MainQueue() bridge.Pointer {
	return p.mainQueue
}

// Pending returns the number of queued work items across all queues.
func (p *Process) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, q := range p.queues {
		n += len(q.items)
	}
	return n
}

// Defer runs fn on the next tick, after the currently executing work item
// has fully returned.
func (p *Process) Defer(fn func()) {
	p.mu.Lock()
	p.ticks = append(p.ticks, fn)
	p.mu.Unlock()
}

// Drain runs queued work items and tick callbacks until both are exhausted.
// Queues are serviced in creation order, each one serially. Errors returned by
// work items are collected and also kept for Errors.
func (p *Process) Drain() []error {
	var errs []error
	for {
		p.runTicks()
		item, ok := p.dequeue()
		if !ok {
			p.runTicks()
			if !p.hasTicks() {
				return errs
			}
			continue
		}
		if _, err := p.invoke(item.fn, item.context); err != nil {
			errs = append(errs, err)
			p.mu.Lock()
			p.errs = append(p.errs, err)
			p.mu.Unlock()
		}
	}
}

// Errors returns every error raised by drained work items so far.
func (p *Process) Errors() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]error(nil), p.errs...)
}

func (p *Process) dequeue() (workItem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var first *queue
	for _, q := range p.queues {
		if len(q.items) == 0 {
			continue
		}
		if first == nil || q.handle < first.handle {
			first = q
		}
	}
	if first == nil {
		return workItem{}, false
	}
	item := first.items[0]
	first.items = first.items[1:]
	return item, true
}

func (p *Process) hasTicks() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ticks) > 0
}

func (p *Process) runTicks() {
	p.mu.Lock()
	ticks := p.ticks
	p.ticks = nil
	p.mu.Unlock()
	for _, fn := range ticks {
		fn()
	}
}

// QueueLabel returns the label of the queue with the given handle.
func (p *Process) QueueLabel(handle bridge.Pointer) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, ok := p.queues[handle]
	if !ok {
		return "", false
	}
	return q.label, true
}
