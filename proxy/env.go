package proxy

import (
	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/errors"
)

// callEnv is the convert.Env of a single method call.
type callEnv struct {
	factory *Factory
	recv    *Object
}

func (e *callEnv) Receiver() any {
	return e.recv
}

func (e *callEnv) ReceiverHandle() bridge.Pointer {
	return e.recv.handle
}

func (e *callEnv) WrapObject(handle bridge.Pointer) (any, error) {
	obj, err := e.factory.Wrap(handle)
	if err != nil || obj == nil {
		return nil, err
	}
	return obj, nil
}

func (e *callEnv) NewString(s string) (bridge.Pointer, error) {
	nsString, err := e.factory.Use("NSString")
	if err != nil {
		return 0, err
	}
	mem := e.factory.api.Memory()
	text, err := mem.AllocCString(s)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseConvert, errors.KindAllocation, err, "string argument")
	}
	defer mem.Free(text)

	str, err := nsString.CallObject("stringWithUTF8String_", text)
	if err != nil {
		return 0, err
	}
	if str == nil {
		return 0, errors.NilPointer(errors.PhaseConvert, []string{"NSString", "stringWithUTF8String_"}, "result")
	}
	return str.handle, nil
}

func (e *callEnv) ReadCString(p bridge.Pointer) (string, error) {
	return e.factory.api.Memory().ReadCString(p)
}
