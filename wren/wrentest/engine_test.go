package wrentest

import (
	"strings"
	"testing"

	"github.com/wippyai/wrenit/wren"
)

type report struct {
	kind    wren.ErrorType
	module  string
	line    int
	message string
}

// recordingHost is a Host with a fixed set of modules and foreign bindings.
type recordingHost struct {
	eng     *Engine
	vm      wren.Ptr
	modules map[string]string
	methods map[string]func(e *Engine, vm wren.Ptr)
	out     strings.Builder
	errors  []report
	binds   []string
	final   []wren.Ptr
	fns     []func(e *Engine, vm wren.Ptr)
}

func newHost() *recordingHost {
	return &recordingHost{
		modules: make(map[string]string),
		methods: make(map[string]func(e *Engine, vm wren.Ptr)),
	}
}

func (h *recordingHost) Write(_ uint64, text string) { h.out.WriteString(text) }

func (h *recordingHost) Error(_ uint64, kind wren.ErrorType, module string, line int, message string) {
	h.errors = append(h.errors, report{kind, module, line, message})
}

func (h *recordingHost) ResolveModule(_ uint64, _, name string) (string, bool) { return name, true }

func (h *recordingHost) LoadModule(_ uint64, name string) (string, bool) {
	src, ok := h.modules[name]
	return src, ok
}

func (h *recordingHost) BindForeignMethod(_ uint64, module, className string, isStatic bool, sig string) uint64 {
	key := module + " " + className + " " + sig
	if isStatic {
		key = "static " + key
	}
	h.binds = append(h.binds, key)
	fn, ok := h.methods[key]
	if !ok {
		return 0
	}
	h.fns = append(h.fns, fn)
	return uint64(len(h.fns))
}

func (h *recordingHost) BindForeignClass(_ uint64, module, className string) uint64 {
	h.binds = append(h.binds, "class "+module+" "+className)
	return 1
}

func (h *recordingHost) CallForeign(_ uint64, method uint64) {
	h.fns[method-1](h.eng, h.vm)
}

func (h *recordingHost) Allocate(_ uint64, _ uint64) {
	h.eng.SetSlotNewForeign(h.vm, 0, 0, 8)
}

func (h *recordingHost) Finalize(_ uint64, data wren.Ptr, _ uint64) {
	h.final = append(h.final, data)
}

func setup(t *testing.T, h *recordingHost) (*Engine, wren.Ptr) {
	t.Helper()
	eng := New()
	vm, err := eng.NewVM(wren.NativeConfig{UserData: 1}, h)
	if err != nil {
		t.Fatal(err)
	}
	h.eng, h.vm = eng, vm
	return eng, vm
}

func TestInterpretPrint(t *testing.T) {
	h := newHost()
	eng, vm := setup(t, h)

	src := `
var x = 1 + 2 * 3
System.print(x)
System.print("a" + "b")
System.print([1, "two", null, true])
System.print(10 / 4)
`
	if r := eng.Interpret(vm, "main", src); r != wren.ResultSuccess {
		t.Fatalf("result = %v, errors %v", r, h.errors)
	}
	want := "7\nab\n[1, two, null, true]\n2.5\n"
	if got := h.out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if !eng.HasVariable(vm, "main", "x") {
		t.Error("x not defined")
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"undefined variable", "System.print(y)", 1},
		{"unterminated string", `var s = "abc`, 1},
		{"redefinition", "var a = 1\nvar a = 2", 2},
		{"bad token", "var a = 1\nvar b = $", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHost()
			eng, vm := setup(t, h)
			if r := eng.Interpret(vm, "main", tt.src); r != wren.ResultCompileError {
				t.Fatalf("result = %v, want compile error", r)
			}
			if len(h.errors) != 1 || h.errors[0].kind != wren.ErrorCompile {
				t.Fatalf("errors = %v", h.errors)
			}
			if h.errors[0].line != tt.line {
				t.Errorf("line = %d, want %d", h.errors[0].line, tt.line)
			}
		})
	}
}

func TestRuntimeError(t *testing.T) {
	h := newHost()
	eng, vm := setup(t, h)

	if r := eng.Interpret(vm, "main", "var a = 1\nvar b = a + \"x\""); r != wren.ResultRuntimeError {
		t.Fatalf("result = %v", r)
	}
	if len(h.errors) != 2 {
		t.Fatalf("errors = %v", h.errors)
	}
	if h.errors[0].kind != wren.ErrorRuntime || h.errors[0].message != "Right operand must be a number." {
		t.Errorf("runtime report = %+v", h.errors[0])
	}
	if h.errors[1].kind != wren.ErrorStackTrace || h.errors[1].module != "main" || h.errors[1].line != 2 {
		t.Errorf("stack trace = %+v", h.errors[1])
	}
}

func TestForeignBinding(t *testing.T) {
	h := newHost()
	h.methods["main Point init new(_,_)"] = func(e *Engine, vm wren.Ptr) {}
	h.methods["main Point x"] = func(e *Engine, vm wren.Ptr) { e.SetSlotDouble(vm, 0, 3) }
	h.methods["static main Point origin"] = func(e *Engine, vm wren.Ptr) { e.SetSlotString(vm, 0, "origin") }
	h.methods["main Point +(_)"] = func(e *Engine, vm wren.Ptr) { e.SetSlotDouble(vm, 0, 42) }
	h.methods["main Point [_]=(_)"] = func(e *Engine, vm wren.Ptr) { e.SetSlotDouble(vm, 0, e.GetSlotDouble(vm, 2)) }
	eng, vm := setup(t, h)

	src := `
#doc = "a point"
foreign class Point {
  foreign construct new(x, y)
  foreign x
  foreign static origin
  foreign +(other)
  foreign [index]=(value)
  toString { "point" }
}
var p = Point.new(1, 2)
System.print(p.x)
System.print(Point.origin)
System.print(p + p)
System.print(p[0] = 7)
`
	if r := eng.Interpret(vm, "main", src); r != wren.ResultSuccess {
		t.Fatalf("result = %v, errors %v", r, h.errors)
	}
	if got, want := h.out.String(), "3\norigin\n42\n7\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	wantBinds := []string{
		"class main Point",
		"main Point init new(_,_)",
		"main Point x",
		"static main Point origin",
		"main Point +(_)",
		"main Point [_]=(_)",
	}
	if strings.Join(h.binds, "|") != strings.Join(wantBinds, "|") {
		t.Errorf("binds = %v", h.binds)
	}
	if eng.Blocks(vm) != 1 {
		t.Errorf("blocks = %d, want 1", eng.Blocks(vm))
	}
}

func TestMissingForeignMethod(t *testing.T) {
	h := newHost()
	eng, vm := setup(t, h)
	src := "class Util {\n  foreign static nope()\n}"
	if r := eng.Interpret(vm, "main", src); r != wren.ResultRuntimeError {
		t.Fatalf("result = %v", r)
	}
	if !strings.Contains(h.errors[0].message, "Could not find foreign method 'nope()'") {
		t.Errorf("message = %q", h.errors[0].message)
	}
}

func TestAbortFiber(t *testing.T) {
	h := newHost()
	h.methods["static main Util fail()"] = func(e *Engine, vm wren.Ptr) {
		e.SetSlotString(vm, 0, "boom")
		e.AbortFiber(vm, 0)
	}
	eng, vm := setup(t, h)
	src := "class Util {\n  foreign static fail()\n}\nUtil.fail()"
	if r := eng.Interpret(vm, "main", src); r != wren.ResultRuntimeError {
		t.Fatalf("result = %v", r)
	}
	if h.errors[0].message != "boom" || h.errors[1].line != 4 {
		t.Errorf("errors = %v", h.errors)
	}
}

func TestImport(t *testing.T) {
	h := newHost()
	h.modules["lib"] = "var Answer = 42\nvar Other = 1"
	eng, vm := setup(t, h)

	if r := eng.Interpret(vm, "main", `import "lib" for Answer, Other as O
System.print(Answer + O)`); r != wren.ResultSuccess {
		t.Fatalf("result = %v, errors %v", r, h.errors)
	}
	if h.out.String() != "43\n" {
		t.Errorf("output = %q", h.out.String())
	}
	if !eng.HasModule(vm, "lib") {
		t.Error("lib not loaded")
	}

	if r := eng.Interpret(vm, "other", `import "missing"`); r != wren.ResultRuntimeError {
		t.Errorf("missing import result = %v", r)
	}
}

func TestCollectReusesBlocks(t *testing.T) {
	h := newHost()
	h.methods["main Box init new()"] = func(e *Engine, vm wren.Ptr) {}
	eng, vm := setup(t, h)

	src := "foreign class Box {\n  foreign construct new()\n}\nvar a = Box.new()\nvar b = Box.new()"
	if r := eng.Interpret(vm, "main", src); r != wren.ResultSuccess {
		t.Fatalf("result = %v, errors %v", r, h.errors)
	}
	if eng.Blocks(vm) != 2 {
		t.Fatalf("blocks = %d", eng.Blocks(vm))
	}

	eng.Interpret(vm, "main", "a = null")
	eng.CollectGarbage(vm)
	if len(h.final) != 1 || h.final[0] != firstBlock {
		t.Fatalf("finalized = %v", h.final)
	}

	eng.Interpret(vm, "main", "var c = Box.new()")
	eng.EnsureSlots(vm, 1)
	eng.GetVariable(vm, "main", "c", 0)
	if got := eng.GetSlotForeign(vm, 0); got != firstBlock {
		t.Errorf("reused block = %#x, want %#x", got, firstBlock)
	}

	eng.FreeVM(vm)
	if len(h.final) != 3 {
		t.Errorf("finalized after free = %v", h.final)
	}
	if eng.Machines() != 0 {
		t.Errorf("machines = %d", eng.Machines())
	}
}

func TestHandleKeepsInstanceAlive(t *testing.T) {
	h := newHost()
	h.methods["main Box init new()"] = func(e *Engine, vm wren.Ptr) {}
	eng, vm := setup(t, h)

	eng.Interpret(vm, "main", "foreign class Box {\n  foreign construct new()\n}\nvar a = Box.new()")
	eng.EnsureSlots(vm, 1)
	eng.GetVariable(vm, "main", "a", 0)
	handle := eng.GetSlotHandle(vm, 0)
	eng.SetSlotNull(vm, 0)
	eng.Interpret(vm, "main", "a = null")

	eng.CollectGarbage(vm)
	if len(h.final) != 0 {
		t.Fatalf("finalized while handle held: %v", h.final)
	}
	eng.ReleaseHandle(vm, handle)
	eng.CollectGarbage(vm)
	if len(h.final) != 1 {
		t.Errorf("finalized = %v", h.final)
	}
}

func TestCallHandle(t *testing.T) {
	h := newHost()
	eng, vm := setup(t, h)

	sig := eng.MakeCallHandle(vm, "+(_)")
	eng.EnsureSlots(vm, 2)
	eng.SetSlotDouble(vm, 0, 40)
	eng.SetSlotDouble(vm, 1, 2)
	if r := eng.Call(vm, sig); r != wren.ResultSuccess {
		t.Fatalf("result = %v, errors %v", r, h.errors)
	}
	if got := eng.GetSlotDouble(vm, 0); got != 42 {
		t.Errorf("result = %v", got)
	}
	if eng.GetSlotCount(vm) != 1 {
		t.Errorf("slot count = %d", eng.GetSlotCount(vm))
	}
	if eng.MakeCallHandle(vm, "") != 0 {
		t.Error("empty signature accepted")
	}
}

func TestListsAndMaps(t *testing.T) {
	eng, vm := setup(t, newHost())
	eng.EnsureSlots(vm, 3)

	eng.SetSlotNewList(vm, 0)
	for i, v := range []float64{1, 2, 3} {
		eng.SetSlotDouble(vm, 1, v)
		eng.InsertInList(vm, 0, -1, 1)
		if eng.GetListCount(vm, 0) != i+1 {
			t.Fatalf("count = %d", eng.GetListCount(vm, 0))
		}
	}
	eng.SetSlotDouble(vm, 1, 0)
	eng.InsertInList(vm, 0, 0, 1)
	eng.GetListElement(vm, 0, -1, 2)
	if eng.GetSlotDouble(vm, 2) != 3 {
		t.Errorf("last = %v", eng.GetSlotDouble(vm, 2))
	}
	eng.GetListElement(vm, 0, 0, 2)
	if eng.GetSlotDouble(vm, 2) != 0 {
		t.Errorf("first = %v", eng.GetSlotDouble(vm, 2))
	}

	eng.SetSlotNewMap(vm, 0)
	eng.SetSlotString(vm, 1, "k")
	eng.SetSlotDouble(vm, 2, 9)
	eng.SetMapValue(vm, 0, 1, 2)
	if !eng.GetMapContainsKey(vm, 0, 1) || eng.GetMapCount(vm, 0) != 1 {
		t.Fatal("map value not stored")
	}
	eng.RemoveMapValue(vm, 0, 1, 2)
	if eng.GetSlotDouble(vm, 2) != 9 || eng.GetMapCount(vm, 0) != 0 {
		t.Error("map value not removed")
	}
}
