package main

import (
	"fmt"
	"strconv"
	"strings"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/proxy"
	"github.com/wippyai/objc-bridge/signature"
)

func parseArgs(env *environment, m *proxy.Method, raw []string) ([]any, error) {
	params := m.Signature().Params()
	if len(raw) != len(params) {
		return nil, fmt.Errorf("%s takes %d argument(s), got %d", m.Name(), len(params), len(raw))
	}
	args := make([]any, len(raw))
	for i, value := range raw {
		v, err := convertArg(env, strings.TrimSpace(value), params[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

func convertArg(env *environment, value string, t signature.Type) (any, error) {
	switch t.Tag {
	case "@":
		// becomes an NSString
		return value, nil
	case "*":
		return env.proc.Memory().AllocCString(value)
	case ":":
		return env.rt.Selector(value)
	case "c", "B":
		return value == "true" || value == "1" || value == "YES", nil
	case "f":
		v, err := strconv.ParseFloat(value, 32)
		return float32(v), err
	case "d":
		v, err := strconv.ParseFloat(value, 64)
		return v, err
	}

	switch t.NativeType() {
	case bridge.TypePointer:
		v, err := strconv.ParseUint(value, 0, 64)
		return bridge.Pointer(v), err
	case bridge.TypeUChar, bridge.TypeUInt16, bridge.TypeUInt, bridge.TypeUInt64:
		return strconv.ParseUint(value, 0, 64)
	default:
		return strconv.ParseInt(value, 0, 64)
	}
}

func formatResult(v any) string {
	switch r := v.(type) {
	case nil:
		return "nil"
	case *proxy.Object:
		return fmt.Sprintf("%s (%s %#x)", r.String(), r.Class().Name(), uintptr(r.Handle()))
	case string:
		return strconv.Quote(r)
	case bridge.Pointer:
		return fmt.Sprintf("%#x", uintptr(r))
	default:
		return fmt.Sprintf("%v", r)
	}
}

func formatName(m *proxy.Method) string {
	if m.Static() {
		return "+" + m.Name()
	}
	return "-" + m.Name()
}

func formatMethod(m *proxy.Method) string {
	var params []string
	for _, p := range m.Signature().Params() {
		params = append(params, p.Encoding)
	}
	return fmt.Sprintf("%s(%s) -> %s", formatName(m), strings.Join(params, ", "), m.Signature().Return.Encoding)
}
