package sim

import (
	"fmt"
	"math"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/convert"
)

// coerce converts a Go value to the canonical Go type for a native slot,
// the way a real calling convention would truncate or widen it.
func coerce(v any, t bridge.Type) (any, error) {
	switch t {
	case bridge.TypeVoid:
		return nil, nil
	case bridge.TypePointer:
		p, ok := convert.AsPointer(v)
		if !ok {
			return nil, fmt.Errorf("cannot coerce %T to pointer", v)
		}
		return p, nil
	case bridge.TypeFloat, bridge.TypeDouble:
		f, ok := asFloat64(v)
		if !ok {
			return nil, fmt.Errorf("cannot coerce %T to %s", v, t)
		}
		if t == bridge.TypeFloat {
			return float32(f), nil
		}
		return f, nil
	}

	n, ok := convert.AsInt64(v)
	if !ok {
		if p, isPtr := v.(bridge.Pointer); isPtr {
			n, ok = int64(p), true
		}
	}
	if !ok {
		return nil, fmt.Errorf("cannot coerce %T to %s", v, t)
	}
	switch t {
	case bridge.TypeChar:
		return int8(n), nil
	case bridge.TypeUChar:
		return uint8(n), nil
	case bridge.TypeInt16:
		return int16(n), nil
	case bridge.TypeUInt16:
		return uint16(n), nil
	case bridge.TypeInt:
		return int32(n), nil
	case bridge.TypeUInt:
		return uint32(n), nil
	case bridge.TypeInt64:
		return n, nil
	case bridge.TypeUInt64:
		return uint64(n), nil
	default:
		return nil, fmt.Errorf("unknown native type %q", t)
	}
}

func asFloat64(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	case bridge.Pointer:
		return float64(f), true
	default:
		n, ok := convert.AsInt64(v)
		if !ok {
			return math.NaN(), false
		}
		return float64(n), true
	}
}

// fixedTypes drops the variadic marker from a bound argument list.
func fixedTypes(types []bridge.Type) []bridge.Type {
	out := make([]bridge.Type, 0, len(types))
	for _, t := range types {
		if t != bridge.TypeVariadic {
			out = append(out, t)
		}
	}
	return out
}

func coerceArgs(args []any, types []bridge.Type) ([]any, error) {
	if len(args) != len(types) {
		return nil, fmt.Errorf("expected %d argument(s), got %d", len(types), len(args))
	}
	out := make([]any, len(args))
	for i, a := range args {
		v, err := coerce(a, types[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
