package proxy

import (
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/errors"
	"github.com/wippyai/objc-bridge/sim"
)

func TestObject_SoundScenario(t *testing.T) {
	p := newProcess(t)
	f, a := newFactory(t, p)

	path, _ := p.Memory().AllocCString("/tmp/x.mp3")
	defer p.Memory().Free(path)

	sound := use(t, f, "Sound")
	obj, err := sound.CallObject("alloc")
	if err != nil {
		t.Fatalf("alloc failed: %v", err)
	}
	inited, err := obj.CallObject("initWithPath_", path)
	if err != nil {
		t.Fatalf("initWithPath_ failed: %v", err)
	}
	played, err := inited.CallObject("play")
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}

	// self-returning methods hand back the receiver itself
	if inited != obj || played != obj {
		t.Fatal("expected the receiver proxy to be returned")
	}

	// @16@0:8 and @24@0:8*16
	if f.Cache().Len() != 2 {
		t.Fatalf("expected 2 trampolines, got %d", f.Cache().Len())
	}
	if n := p.BindCount(a.MsgSend()); n != 2 {
		t.Fatalf("objc_msgSend bound %d times", n)
	}

	want := []sim.Invocation{
		{Class: "Sound", Selector: "alloc", Static: true},
		{Class: "Sound", Selector: "initWithPath:"},
		{Class: "Sound", Selector: "play"},
	}
	if diff := cmp.Diff(want, p.Trace()); diff != "" {
		t.Errorf("trace (-want +got):\n%s", diff)
	}
}

func TestObject_ReturnValues(t *testing.T) {
	p := newProcess(t)
	f, _ := newFactory(t, p)
	obj, err := use(t, f, "Sound").CallObject("defaultSound")
	if err != nil {
		t.Fatalf("defaultSound failed: %v", err)
	}

	tests := []struct {
		method string
		args   []any
		want   any
	}{
		{"isPlaying", nil, true},
		{"duration", nil, 2.5},
		{"stop", nil, nil},
		{"setVolume_", []any{float32(0.5)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got, err := obj.Call(tt.method, tt.args...)
			if err != nil {
				t.Fatalf("Call failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("result (-want +got):\n%s", diff)
			}
		})
	}

	title, err := obj.CallObject("title")
	if err != nil {
		t.Fatalf("title failed: %v", err)
	}
	if title.Class().Name() != "NSString" {
		t.Fatalf("title class = %s", title.Class().Name())
	}
	if title.String() != "ding" {
		t.Fatalf("title = %q", title.String())
	}
	utf8, _ := title.Call("UTF8String")
	if utf8 != "ding" {
		t.Fatalf("UTF8String = %v", utf8)
	}
}

func TestObject_StringArgument(t *testing.T) {
	p := newProcess(t)
	f, _ := newFactory(t, p)
	obj, _ := use(t, f, "Sound").CallObject("defaultSound")
	live := p.Memory().Live()

	if _, err := obj.Call("setName_", "bell"); err != nil {
		t.Fatalf("setName_ failed: %v", err)
	}

	trace := p.Trace()
	last := trace[len(trace)-2:]
	want := []sim.Invocation{
		{Class: "NSString", Selector: "stringWithUTF8String:", Static: true},
		{Class: "Sound", Selector: "setName:"},
	}
	if diff := cmp.Diff(want, last); diff != "" {
		t.Errorf("trace (-want +got):\n%s", diff)
	}
	// one NSString instance; the scratch C string is freed
	if got := p.Memory().Live() - live; got != 1 {
		t.Fatalf("expected 1 new live block, got %d", got)
	}
}

func TestObject_ObjectArguments(t *testing.T) {
	p := newProcess(t)
	f, _ := newFactory(t, p)
	obj, _ := use(t, f, "Sound").CallObject("defaultSound")
	other, _ := use(t, f, "Chime").CallObject("defaultSound")

	tests := []struct {
		name string
		arg  any
	}{
		{"proxy", other},
		{"pointer", other.Handle()},
		{"nil", nil},
		{"nil proxy", (*Object)(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := obj.Call("setName_", tt.arg); err != nil {
				t.Fatalf("setName_ failed: %v", err)
			}
		})
	}

	_, err := obj.Call("setName_", 3.5)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Phase != errors.PhaseConvert {
		t.Fatalf("expected convert error, got %v", err)
	}
}

func TestObject_Errors(t *testing.T) {
	f, _ := newFactory(t, newProcess(t))
	sound := use(t, f, "Sound")

	_, err := sound.Call("fly")
	if !stderrors.Is(err, errors.ErrMethodNotFound) {
		t.Fatalf("expected method not found, got %v", err)
	}

	_, err = sound.Call("alloc", 1)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindArgumentCount {
		t.Fatalf("expected argument count error, got %v", err)
	}

	_, err = sound.CallObject("isPlaying")
	if err == nil {
		t.Fatal("expected CallObject on a bool method to fail")
	}
}

func TestObject_InstanceMethodOnClass(t *testing.T) {
	f, _ := newFactory(t, newProcess(t))

	// instance methods sent to a class object go to a null receiver
	got, err := use(t, f, "Sound").Call("duration")
	if err != nil {
		t.Fatalf("duration failed: %v", err)
	}
	if got != 0.0 {
		t.Fatalf("duration on class = %v", got)
	}
}

func TestObject_String(t *testing.T) {
	p := newProcess(t)
	f, _ := newFactory(t, p)

	nsObject := use(t, f, "NSObject")
	if nsObject.String() != "NSObject" {
		t.Fatalf("class String = %q", nsObject.String())
	}

	obj, _ := nsObject.CallObject("new")
	if got, want := obj.String(), "<NSObject: 0x"; len(got) < len(want) || got[:len(want)] != want {
		t.Fatalf("instance String = %q", got)
	}

	var nilObj *Object
	if nilObj.String() != "nil" || nilObj.Handle() != 0 {
		t.Fatal("nil object should be printable")
	}
}

func TestMethod_Introspection(t *testing.T) {
	p := newProcess(t)
	f, _ := newFactory(t, p)
	cls := use(t, f, "Sound").Class()

	tests := []struct {
		name     string
		selector string
		ret      bridge.Type
		args     []bridge.Type
		static   bool
	}{
		{"initWithPath_", "initWithPath:", bridge.TypePointer, []bridge.Type{bridge.TypePointer, bridge.TypePointer, bridge.TypePointer}, false},
		{"setVolume_", "setVolume:", bridge.TypeVoid, []bridge.Type{bridge.TypePointer, bridge.TypePointer, bridge.TypeFloat}, false},
		{"isPlaying", "isPlaying", bridge.TypeChar, []bridge.Type{bridge.TypePointer, bridge.TypePointer}, false},
		{"defaultSound", "defaultSound", bridge.TypePointer, []bridge.Type{bridge.TypePointer, bridge.TypePointer}, true},
		{"alloc", "alloc", bridge.TypePointer, []bridge.Type{bridge.TypePointer, bridge.TypePointer}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := cls.Lookup(tt.name)
			if !ok {
				t.Fatal("method not found")
			}
			if m.SelectorName() != tt.selector || m.Selector() != p.Selector(tt.selector) {
				t.Errorf("selector = %q (%#x)", m.SelectorName(), m.Selector())
			}
			if m.ReturnType() != tt.ret {
				t.Errorf("return type = %s, want %s", m.ReturnType(), tt.ret)
			}
			if diff := cmp.Diff(tt.args, m.ArgumentTypes()); diff != "" {
				t.Errorf("argument types (-want +got):\n%s", diff)
			}
			if m.Static() != tt.static {
				t.Errorf("static = %v", m.Static())
			}
		})
	}
}

func TestMethod_Implementation(t *testing.T) {
	p := newProcess(t)
	f, _ := newFactory(t, p)
	obj, _ := use(t, f, "Sound").CallObject("defaultSound")
	m, _ := obj.Method("duration")

	impl, err := m.Implementation()
	if err != nil {
		t.Fatalf("Implementation failed: %v", err)
	}
	got, err := impl.Call(obj.Handle(), m.Selector())
	if err != nil || got != 2.5 {
		t.Fatalf("direct call = %v, %v", got, err)
	}

	cb, err := p.NewCallback(func(args ...any) (any, error) {
		return 9.0, nil
	}, m.ReturnType(), m.ArgumentTypes())
	if err != nil {
		t.Fatalf("NewCallback failed: %v", err)
	}
	defer cb.Release()

	prev, err := m.SetImplementation(cb.Address())
	if err != nil {
		t.Fatalf("SetImplementation failed: %v", err)
	}
	if prev != impl.Address() {
		t.Fatalf("previous implementation = %#x, want %#x", prev, impl.Address())
	}
	if got, _ := obj.Call("duration"); got != 9.0 {
		t.Fatalf("duration after replacement = %v", got)
	}

	if _, err := m.SetImplementation(0); err == nil {
		t.Fatal("expected null implementation to be rejected")
	}
}
