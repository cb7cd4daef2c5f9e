package runtime

import (
	"go.uber.org/zap"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/errors"
	"github.com/wippyai/objc-bridge/proxy"
	"github.com/wippyai/objc-bridge/resource"
)

// Schedule enqueues work on queue and returns immediately.
//
// When the queue runs it, work executes inside an autorelease pool. The pool
// is released whether work fails or panics, the callback is released on the
// next tick, and only then is the error from work returned to the queue and
// reported to Config.OnError.
func (r *Runtime) Schedule(queue bridge.Pointer, work func() error) error {
	if err := r.check("Schedule"); err != nil {
		return err
	}
	if work == nil {
		return errors.InvalidInput(errors.PhaseSchedule, "work is nil")
	}

	var handle resource.Handle
	cb, err := r.cfg.Binder.NewCallback(func(args ...any) (any, error) {
		return nil, r.run(handle, work)
	}, bridge.TypeVoid, []bridge.Type{bridge.TypePointer})
	if err != nil {
		return errors.Wrap(errors.PhaseSchedule, errors.KindInvalidData, err, "create callback")
	}

	handle, err = r.keep.Retain(resource.KindCallback, cb)
	if err != nil {
		cb.Release()
		return errors.Wrap(errors.PhaseSchedule, errors.KindInvalidData, err, "retain callback")
	}

	if err := r.api.DispatchAsync(queue, 0, cb.Address()); err != nil {
		r.keep.Release(handle)
		return errors.Wrap(errors.PhaseSchedule, errors.KindInvalidData, err, "dispatch_async_f")
	}
	return nil
}

func (r *Runtime) run(handle resource.Handle, work func() error) error {
	var err error
	pool, poolErr := r.newPool()
	if poolErr != nil {
		err = errors.Wrap(errors.PhaseSchedule, errors.KindInvalidData, poolErr, "create autorelease pool")
	} else {
		err = invoke(work)
		if _, relErr := pool.Call("release"); relErr != nil {
			r.log.Warn("autorelease pool release failed", zap.Error(relErr))
		}
	}

	// the queue still holds the callback until this call returns
	r.cfg.Defer(func() {
		r.keep.Release(handle)
	})

	if err != nil {
		r.log.Error("scheduled work failed", zap.Error(err))
		r.cfg.OnError(err)
	}
	return err
}

func (r *Runtime) newPool() (*proxy.Object, error) {
	cls, err := r.factory.Use("NSAutoreleasePool")
	if err != nil {
		return nil, err
	}
	pool, err := cls.CallObject("alloc")
	if err != nil {
		return nil, err
	}
	if pool, err = pool.CallObject("init"); err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, errors.NilPointer(errors.PhaseSchedule, []string{"NSAutoreleasePool", "init"}, "pool")
	}
	return pool, nil
}

func invoke(work func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = errors.Panic(errors.PhaseSchedule, v)
		}
	}()
	return work()
}
