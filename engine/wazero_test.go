package engine

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/wrenit/errors"
	"github.com/wippyai/wrenit/wren"
)

type bindCall struct {
	id                 uint64
	module, class, sig string
	static             bool
}

type recordingHost struct {
	writes  []string
	modules map[string]string
	binds   []bindCall
	calls   []uint64
}

func (h *recordingHost) Write(vm uint64, text string) { h.writes = append(h.writes, text) }

func (h *recordingHost) Error(uint64, wren.ErrorType, string, int, string) {}

func (h *recordingHost) ResolveModule(_ uint64, _, name string) (string, bool) { return name, true }

func (h *recordingHost) LoadModule(_ uint64, name string) (string, bool) {
	src, ok := h.modules[name]
	return src, ok
}

func (h *recordingHost) BindForeignMethod(vm uint64, module, className string, isStatic bool, sig string) uint64 {
	h.binds = append(h.binds, bindCall{id: vm, module: module, class: className, sig: sig, static: isStatic})
	return 7
}

func (h *recordingHost) BindForeignClass(uint64, string, string) uint64 { return 0 }

func (h *recordingHost) CallForeign(_ uint64, method uint64) { h.calls = append(h.calls, method) }

func (h *recordingHost) Allocate(uint64, uint64) {}

func (h *recordingHost) Finalize(uint64, wren.Ptr, uint64) {}

func newTestEngine(t *testing.T) *WazeroEngine {
	t.Helper()
	ctx := context.Background()
	e, err := NewWazeroEngine(ctx, fakeGuest(true), nil)
	if err != nil {
		t.Fatalf("NewWazeroEngine failed: %v", err)
	}
	t.Cleanup(func() { e.Close(ctx) })
	return e
}

func TestWazeroEngine_Version(t *testing.T) {
	e := newTestEngine(t)
	if e.Version() != wren.VersionNumber {
		t.Errorf("version = %d, want %d", e.Version(), wren.VersionNumber)
	}
}

func TestWazeroEngine_HostCallbacks(t *testing.T) {
	e := newTestEngine(t)
	host := &recordingHost{modules: map[string]string{"known": "var x = 1"}}

	vm, err := e.NewVM(wren.NativeConfig{UserData: 42}, host)
	if err != nil {
		t.Fatal(err)
	}
	if vm != 16 {
		t.Errorf("vm = %d", vm)
	}

	if r := e.Interpret(vm, "main", "System.print(1)"); r != wren.ResultSuccess {
		t.Errorf("Interpret = %v", r)
	}
	if len(host.writes) != 1 || host.writes[0] != "System.print(1)" {
		t.Errorf("writes = %q", host.writes)
	}

	if !e.HasModule(vm, "known") {
		t.Error("known module not found")
	}
	if e.HasModule(vm, "unknown") {
		t.Error("unknown module found")
	}

	handle := e.MakeCallHandle(vm, "call()")
	if handle != guestNameAddr {
		t.Fatalf("handle = %d", handle)
	}
	if r := e.Call(vm, handle); r != wren.ResultSuccess {
		t.Errorf("Call = %v", r)
	}
	want := bindCall{id: 42, module: guestName, class: guestName, sig: guestName, static: true}
	if len(host.binds) != 1 || host.binds[0] != want {
		t.Errorf("binds = %+v", host.binds)
	}
	if len(host.calls) != 1 || host.calls[0] != 7 {
		t.Errorf("calls = %v", host.calls)
	}

	e.FreeVM(vm)
	e.Interpret(vm, "main", "dropped")
	if len(host.writes) != 1 {
		t.Errorf("write delivered after FreeVM: %q", host.writes)
	}
}

func TestWazeroEngine_Slots(t *testing.T) {
	e := newTestEngine(t)
	vm, err := e.NewVM(wren.NativeConfig{}, &recordingHost{})
	if err != nil {
		t.Fatal(err)
	}

	e.SetSlotDouble(vm, 0, 3.25)
	if got := e.GetSlotDouble(vm, 0); got != 3.25 {
		t.Errorf("slot double = %v", got)
	}

	// Exports the guest lacks are reported as zero values.
	if got := e.GetSlotCount(vm); got != 0 {
		t.Errorf("slot count = %d", got)
	}
}

func TestWazeroEngine_StartErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		wasm []byte
		kind errors.Kind
	}{
		{"not wasm", []byte("not wasm"), errors.KindInvalidInput},
		{"missing export", fakeGuest(false), errors.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewWazeroEngine(ctx, tt.wasm, nil)
			if err == nil {
				e.Close(ctx)
				t.Fatal("expected error")
			}
			var werr *errors.Error
			if !stderrors.As(err, &werr) || werr.Kind != tt.kind {
				t.Errorf("error = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestWazeroEngine_MemoryLimit(t *testing.T) {
	ctx := context.Background()
	var stdout bytes.Buffer
	e, err := NewWazeroEngine(ctx, fakeGuest(true), &Config{MemoryLimitPages: 4, Stdout: &stdout, ModuleName: "guest"})
	if err != nil {
		t.Fatalf("NewWazeroEngine failed: %v", err)
	}
	defer e.Close(ctx)

	if e.guest.Name() != "guest" {
		t.Errorf("module name = %q", e.guest.Name())
	}
}

func TestWazeroEngine_WithVM(t *testing.T) {
	e := newTestEngine(t)

	var out bytes.Buffer
	var called []string
	cfg := wren.DefaultConfig()
	cfg.Write = func(_ *wren.VM, text string) { out.WriteString(text) }
	cfg.BindForeignMethod = func(_ *wren.VM, module, className string, isStatic bool, sig string) wren.ForeignMethod {
		if module != guestName || !isStatic {
			return nil
		}
		return func(*wren.VM) { called = append(called, className+"."+sig) }
	}

	vm, err := wren.New(e, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer vm.Close()

	if err := vm.Interpret("main", "hello"); err != nil {
		t.Fatal(err)
	}
	if out.String() != "hello" {
		t.Errorf("output = %q", out.String())
	}

	h, err := vm.MakeCallHandle("call()")
	if err != nil {
		t.Fatal(err)
	}
	if err := vm.Call(h); err != nil {
		t.Fatal(err)
	}
	if len(called) != 1 || called[0] != "Point.Point" {
		t.Errorf("called = %v", called)
	}
}
