package convert

import (
	"errors"
	"testing"

	bridge "github.com/wippyai/objc-bridge"
	bridgeerrors "github.com/wippyai/objc-bridge/errors"
)

type fakeObject struct {
	handle bridge.Pointer
}

func (o *fakeObject) Handle() bridge.Pointer { return o.handle }

type fakeEnv struct {
	receiver *fakeObject
	strings  map[bridge.Pointer]string
	created  []string
	wrapped  []bridge.Pointer
}

func (e *fakeEnv) Receiver() any { return e.receiver }

func (e *fakeEnv) ReceiverHandle() bridge.Pointer { return e.receiver.handle }

func (e *fakeEnv) WrapObject(h bridge.Pointer) (any, error) {
	e.wrapped = append(e.wrapped, h)
	return &fakeObject{handle: h}, nil
}

func (e *fakeEnv) NewString(s string) (bridge.Pointer, error) {
	e.created = append(e.created, s)
	return bridge.Pointer(0x9000 + len(e.created)), nil
}

func (e *fakeEnv) ReadCString(p bridge.Pointer) (string, error) {
	s, ok := e.strings[p]
	if !ok {
		return "", errors.New("bad pointer")
	}
	return s, nil
}

func newEnv() *fakeEnv {
	return &fakeEnv{
		receiver: &fakeObject{handle: 0x1000},
		strings:  map[bridge.Pointer]string{0x2000: "/tmp/x.mp3"},
	}
}

func mustLookup(t *testing.T, tag string) *Converter {
	t.Helper()
	c, ok := Default().Lookup(tag)
	if !ok {
		t.Fatalf("no converter for %q", tag)
	}
	return c
}

func TestDefault_Types(t *testing.T) {
	tests := []struct {
		tag  string
		want bridge.Type
	}{
		{"c", bridge.TypeChar},
		{"B", bridge.TypeChar},
		{"C", bridge.TypeUChar},
		{"s", bridge.TypeInt16},
		{"S", bridge.TypeUInt16},
		{"i", bridge.TypeInt},
		{"I", bridge.TypeUInt},
		{"q", bridge.TypeInt64},
		{"Q", bridge.TypeUInt64},
		{"f", bridge.TypeFloat},
		{"d", bridge.TypeDouble},
		{"v", bridge.TypeVoid},
		{"*", bridge.TypePointer},
		{"@", bridge.TypePointer},
		{"@?", bridge.TypePointer},
		{"#", bridge.TypePointer},
		{":", bridge.TypePointer},
		{"^v", bridge.TypePointer},
		{"^{}", bridge.TypePointer},
		{"^[]", bridge.TypePointer},
		{"^()", bridge.TypePointer},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			c := mustLookup(t, tt.tag)
			if c.Type != tt.want {
				t.Errorf("Type = %v, want %v", c.Type, tt.want)
			}
		})
	}
}

func TestDefault_Unknown(t *testing.T) {
	for _, tag := range []string{"b4", "{CGPoint=dd}", "^^i", "", "x"} {
		if _, ok := Default().Lookup(tag); ok {
			t.Errorf("tag %q should be unsupported", tag)
		}
	}
}

func TestDefault_PassThroughHasNoConverters(t *testing.T) {
	for _, tag := range []string{"C", "s", "S", "i", "I", "q", "Q", "f", "d", "v", "#", ":", "^v"} {
		c := mustLookup(t, tag)
		if c.FromNative != nil || c.ToNative != nil {
			t.Errorf("tag %q should be pass-through", tag)
		}
	}
}

func TestBool_RoundTrip(t *testing.T) {
	c := mustLookup(t, "c")
	env := newEnv()

	for _, b := range []bool{true, false} {
		native, err := c.ToNative(env, b)
		if err != nil {
			t.Fatalf("ToNative(%v): %v", b, err)
		}
		back, err := c.FromNative(env, native)
		if err != nil {
			t.Fatalf("FromNative(%v): %v", native, err)
		}
		if back != b {
			t.Errorf("round trip %v -> %v -> %v", b, native, back)
		}
	}
}

func TestBool_FromNativeNonZero(t *testing.T) {
	c := mustLookup(t, "c")
	v, err := c.FromNative(newEnv(), int8(42))
	if err != nil {
		t.Fatal(err)
	}
	if v != true {
		t.Errorf("got %v, want true", v)
	}

	if _, err := c.FromNative(newEnv(), "yes"); !errors.Is(err, &bridgeerrors.Error{Kind: bridgeerrors.KindTypeMismatch}) {
		t.Errorf("expected type mismatch, got %v", err)
	}
}

func TestCString(t *testing.T) {
	c := mustLookup(t, "*")
	env := newEnv()

	v, err := c.FromNative(env, bridge.Pointer(0))
	if err != nil || v != nil {
		t.Errorf("null pointer: got %v, %v", v, err)
	}

	v, err = c.FromNative(env, bridge.Pointer(0x2000))
	if err != nil {
		t.Fatal(err)
	}
	if v != "/tmp/x.mp3" {
		t.Errorf("got %v", v)
	}

	if c.ToNative != nil {
		t.Error("C strings are not settable")
	}
}

func TestObject_FromNative(t *testing.T) {
	c := mustLookup(t, "@")

	t.Run("null", func(t *testing.T) {
		env := newEnv()
		v, err := c.FromNative(env, bridge.Pointer(0))
		if err != nil || v != nil {
			t.Errorf("got %v, %v", v, err)
		}
		if len(env.wrapped) != 0 {
			t.Error("null must not be wrapped")
		}
	})

	t.Run("receiver identity", func(t *testing.T) {
		env := newEnv()
		v, err := c.FromNative(env, bridge.Pointer(0x1000))
		if err != nil {
			t.Fatal(err)
		}
		if v != env.receiver {
			t.Error("self return should yield the receiver instance")
		}
		if len(env.wrapped) != 0 {
			t.Error("self return must not allocate a new proxy")
		}
	})

	t.Run("other handle", func(t *testing.T) {
		env := newEnv()
		v, err := c.FromNative(env, bridge.Pointer(0x3000))
		if err != nil {
			t.Fatal(err)
		}
		obj, ok := v.(*fakeObject)
		if !ok {
			t.Fatalf("got %T", v)
		}
		if obj.Handle() != 0x3000 {
			t.Errorf("handle = %#x, want 0x3000", obj.Handle())
		}
	})
}

func TestObject_ToNative(t *testing.T) {
	c := mustLookup(t, "@")
	env := newEnv()

	tests := []struct {
		name string
		in   any
		want bridge.Pointer
	}{
		{"pointer", bridge.Pointer(0x4000), 0x4000},
		{"nil", nil, 0},
		{"handler", &fakeObject{handle: 0x5000}, 0x5000},
		{"uintptr", uintptr(0x6000), 0x6000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := c.ToNative(env, tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if v != tt.want {
				t.Errorf("got %v, want %v", v, tt.want)
			}
		})
	}

	t.Run("string creates NSString", func(t *testing.T) {
		v, err := c.ToNative(env, "hello")
		if err != nil {
			t.Fatal(err)
		}
		if len(env.created) != 1 || env.created[0] != "hello" {
			t.Errorf("created = %v", env.created)
		}
		if p, ok := v.(bridge.Pointer); !ok || p.IsNull() {
			t.Errorf("got %v", v)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if _, err := c.ToNative(env, 3.5); err == nil {
			t.Error("expected error for float")
		}
	})
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Lookup("i"); ok {
		t.Fatal("new registry should be empty")
	}
	r.Register(&Converter{Tag: "i", Type: bridge.TypeInt})
	r.Register(&Converter{Tag: "@", Type: bridge.TypePointer})
	if got := r.Tags(); len(got) != 2 || got[0] != "@" || got[1] != "i" {
		t.Errorf("Tags() = %v", got)
	}
}
