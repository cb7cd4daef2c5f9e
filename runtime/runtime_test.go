package runtime

import (
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	bridge "github.com/wippyai/objc-bridge"
	"github.com/wippyai/objc-bridge/api"
	"github.com/wippyai/objc-bridge/errors"
	"github.com/wippyai/objc-bridge/sim"
)

func newProcess(t *testing.T) *sim.Process {
	t.Helper()
	p := sim.New()
	cat, err := sim.LoadCatalogFile("../sim/testdata/sound.toml")
	if err != nil {
		t.Fatalf("LoadCatalogFile failed: %v", err)
	}
	if err := p.Install(cat); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	return p
}

func newRuntime(t *testing.T, p *sim.Process, mutate ...func(*Config)) *Runtime {
	t.Helper()
	cfg := Config{
		Resolver: p,
		Memory:   p.Memory(),
		Binder:   p,
		Defer:    p.Defer,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	rt := New(cfg)
	if !rt.Available() {
		t.Fatalf("runtime unavailable: %v", rt.Err())
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestNew_Available(t *testing.T) {
	p := newProcess(t)
	rt := newRuntime(t, p)

	if rt.Err() != nil {
		t.Fatalf("Err = %v", rt.Err())
	}
	want := []string{"NSObject", "NSString", "NSAutoreleasePool", "Sound", "Chime"}
	if diff := cmp.Diff(want, rt.Classes()); diff != "" {
		t.Errorf("classes (-want +got):\n%s", diff)
	}
	if rt.MainQueue() != p.MainQueue() {
		t.Fatalf("MainQueue = %#x, want %#x", rt.MainQueue(), p.MainQueue())
	}
}

func TestNew_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func(p *sim.Process) Config
		missing bool
	}{
		{
			name: "missing entry point",
			cfg: func(p *sim.Process) Config {
				return Config{Resolver: p, Memory: p.Memory(), Binder: p}
			},
			missing: true,
		},
		{
			name: "no collaborators",
			cfg:  func(*sim.Process) Config { return Config{} },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := sim.New(sim.WithoutExport(api.ModuleObjC, "objc_msgSend"))
			rt := New(tt.cfg(p))

			if rt.Available() {
				t.Fatal("expected runtime to be unavailable")
			}
			var missing *errors.MissingEntryPointsError
			if got := stderrors.As(rt.Err(), &missing); got != tt.missing {
				t.Fatalf("MissingEntryPointsError = %v, want %v (err %v)", got, tt.missing, rt.Err())
			}

			if _, err := rt.Use("NSObject"); !stderrors.Is(err, errors.ErrNotAvailable) {
				t.Errorf("Use: expected not available, got %v", err)
			}
			if _, err := rt.Selector("init"); !stderrors.Is(err, errors.ErrNotAvailable) {
				t.Errorf("Selector: expected not available, got %v", err)
			}
			if err := rt.Schedule(0, func() error { return nil }); !stderrors.Is(err, errors.ErrNotAvailable) {
				t.Errorf("Schedule: expected not available, got %v", err)
			}
			if err := rt.RefreshClasses(); !stderrors.Is(err, errors.ErrNotAvailable) {
				t.Errorf("RefreshClasses: expected not available, got %v", err)
			}
			if rt.Classes() != nil || rt.MainQueue() != 0 || rt.Cast(1, nil) != nil {
				t.Error("expected zero values from an unavailable runtime")
			}
		})
	}
}

func TestRuntime_UseAndCast(t *testing.T) {
	p := newProcess(t)
	rt := newRuntime(t, p)

	sound, err := rt.Use("Sound")
	if err != nil {
		t.Fatalf("Use failed: %v", err)
	}
	again, _ := rt.Use("Sound")
	if sound != again {
		t.Fatal("Use should return the same class object")
	}
	if _, err := rt.Use("Trumpet"); !stderrors.Is(err, errors.ErrClassNotFound) {
		t.Fatalf("expected class not found, got %v", err)
	}

	cls, _ := p.Class("Sound")
	handle := p.NewObject(cls)
	obj := rt.Cast(handle, sound)
	got, err := obj.Call("duration")
	if err != nil || got != 2.5 {
		t.Fatalf("duration on cast object = %v, %v", got, err)
	}
}

func TestRuntime_RefreshClasses(t *testing.T) {
	p := newProcess(t)
	rt := newRuntime(t, p)

	if _, err := rt.Use("Bell"); !stderrors.Is(err, errors.ErrClassNotFound) {
		t.Fatalf("expected class not found, got %v", err)
	}
	p.MustDefineClass("Bell", "Sound")
	if err := rt.RefreshClasses(); err != nil {
		t.Fatalf("RefreshClasses failed: %v", err)
	}
	bell, err := rt.Use("Bell")
	if err != nil {
		t.Fatalf("Use after refresh failed: %v", err)
	}
	if !bell.RespondsTo("play") {
		t.Fatal("Bell should inherit play")
	}
}

func TestRuntime_Selectors(t *testing.T) {
	p := newProcess(t)
	rt := newRuntime(t, p)

	sel, err := rt.Selector("initWithPath:")
	if err != nil {
		t.Fatalf("Selector failed: %v", err)
	}
	if sel != p.Selector("initWithPath:") {
		t.Fatal("Selector should return the interned selector")
	}
	name, err := rt.SelectorAsString(sel)
	if err != nil || name != "initWithPath:" {
		t.Fatalf("SelectorAsString = %q, %v", name, err)
	}
}

func TestRuntime_Implement(t *testing.T) {
	p := newProcess(t)
	rt := newRuntime(t, p)

	sound, _ := rt.Use("Sound")
	obj, _ := sound.CallObject("defaultSound")
	m, _ := obj.Method("duration")

	var self bridge.Pointer
	cb, err := rt.Implement(m, func(args ...any) (any, error) {
		self = args[0].(bridge.Pointer)
		return 7.0, nil
	})
	if err != nil {
		t.Fatalf("Implement failed: %v", err)
	}
	if _, err := m.SetImplementation(cb.Address()); err != nil {
		t.Fatalf("SetImplementation failed: %v", err)
	}

	got, err := obj.Call("duration")
	if err != nil || got != 7.0 {
		t.Fatalf("duration = %v, %v", got, err)
	}
	if self != obj.Handle() {
		t.Fatalf("implementation received self %#x, want %#x", self, obj.Handle())
	}
	if rt.PendingCallbacks() != 0 {
		t.Fatal("implementations are not pending callbacks")
	}

	if _, err := rt.Implement(m, nil); err == nil {
		t.Fatal("expected nil function to be rejected")
	}

	live := p.LiveCallbacks()
	rt.Close()
	if p.LiveCallbacks() != live-1 {
		t.Fatalf("Close should release the implementation: %d -> %d", live, p.LiveCallbacks())
	}
}

func TestRuntime_Logging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	p := newProcess(t)
	rt := newRuntime(t, p, func(c *Config) { c.Logger = zap.New(core) })

	if _, err := rt.Use("Sound"); err != nil {
		t.Fatalf("Use failed: %v", err)
	}
	skipped := logs.FilterMessage("method skipped").All()
	if len(skipped) != 1 || skipped[0].ContextMap()["selector"] != "frameWithRect:" {
		t.Fatalf("expected one skipped method log, got %v", skipped)
	}
	if logs.FilterMessage("class built").FilterField(zap.String("class", "Sound")).Len() != 1 {
		t.Fatal("expected class built log for Sound")
	}

	sound, _ := rt.Use("Sound")
	if _, err := sound.CallObject("alloc"); err != nil {
		t.Fatalf("alloc failed: %v", err)
	}
	if logs.FilterMessage("trampoline bound").Len() != 1 {
		t.Fatal("expected one trampoline bound log")
	}
}
