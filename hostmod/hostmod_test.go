package hostmod

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/wippyai/wrenit/binding"
	"github.com/wippyai/wrenit/errors"
	"github.com/wippyai/wrenit/wren"
	"github.com/wippyai/wrenit/wren/wrentest"
)

type session struct {
	vm     *wren.VM
	assets *Assets
	mods   []*binding.Module
	out    strings.Builder
	errs   []string
}

func newSession(t *testing.T) *session {
	t.Helper()
	s := &session{assets: NewAssets()}
	cfg := wren.DefaultConfig()
	cfg.Write = func(_ *wren.VM, text string) { s.out.WriteString(text) }
	cfg.Error = func(_ *wren.VM, _ wren.ErrorType, _ string, _ int, msg string) {
		s.errs = append(s.errs, msg)
	}

	mods, err := Bind(binding.NewRegistry(), cfg, Sources(s.assets)...)
	if err != nil {
		t.Fatal(err)
	}
	s.mods = mods

	s.vm, err = wren.New(wrentest.New(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.vm.Close() })
	return s
}

func (s *session) run(t *testing.T, src string) {
	t.Helper()
	if err := s.vm.Interpret("main", src); err != nil {
		t.Fatalf("Interpret: %v %v", err, s.errs)
	}
}

func TestConstants(t *testing.T) {
	s := newSession(t)
	s.run(t, `import "Constants" for PI, HelloWorld, Wrapper, Version
System.print(PI)
System.print(HelloWorld)
System.print(Wrapper)
System.print(Version.asString())
System.print(Version.asMonotone())`)

	want := "3.14159\nHello World\nWrenit\n0.4.0\n4000\n"
	if got := s.out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestMathImportsConstants(t *testing.T) {
	s := newSession(t)
	s.run(t, `import "Math" for PI2, Vector
System.print(PI2)`)
	if got := s.out.String(); got != "6.28318\n" {
		t.Errorf("output = %q", got)
	}

	var math *binding.Module
	for _, m := range s.mods {
		if m.Name() == MathModule {
			math = m
		}
	}
	src := math.Source()
	for _, line := range []string{
		`import "Constants" for PI, Version`,
		`import "Constants" for Wrapper as W`,
		"foreign class Vector {",
		"\tforeign construct new(a, b)",
		"\tforeign -",
		"\tforeign -(a)",
		"\tforeign [a]",
	} {
		if !strings.Contains(src, line+"\n") {
			t.Errorf("source missing %q:\n%s", line, src)
		}
	}
}

func TestVector(t *testing.T) {
	s := newSession(t)
	s.run(t, `import "Math" for Vector
var a = Vector.new(1, 2)
var b = Vector.new(3, 4)
System.print(a + b)
System.print(b - a)
System.print(-a)
System.print(a == Vector.new(1, 2))
System.print(a == b)
a.add(1, 1)
System.print(a)
System.print(a * 2)
a.x = 10
System.print(a.x)
System.print(a[1])`)

	want := "{4, 6}\n{2, 2}\n{-1, -2}\ntrue\nfalse\n{2, 3}\n{4, 6}\n10\n6\n"
	if got := s.out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestVectorErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"bad operand", "var v = Vector.new(1, 2) + 3", "Right operand must be a Vector."},
		{"bad argument", `var v = Vector.new("a", 2)`, "Expected number type"},
		{"bad subscript", "var v = Vector.new(1, 2)[2]", "Subscript out of bounds."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t)
			err := s.vm.Interpret("main", "import \"Math\" for Vector\n"+tt.src)
			if wren.ResultOf(err) != wren.ResultRuntimeError {
				t.Fatalf("err = %v", err)
			}
			if len(s.errs) == 0 || s.errs[0] != tt.msg {
				t.Errorf("errors = %v", s.errs)
			}
		})
	}
}

func TestAssets(t *testing.T) {
	s := newSession(t)
	s.run(t, `import "Assets" for AssetSystem
var a = AssetSystem.load("hero.png")
var b = AssetSystem.load("map.json", 1)
System.print(a.path)
System.print(a.id)
System.print(b.id)`)

	if got := s.out.String(); got != "hero.png\n1\n2\n" {
		t.Errorf("output = %q", got)
	}
	live := s.assets.Live()
	if len(live) != 2 || live[0].Path != "hero.png" || live[1].Path != "map.json" {
		t.Fatalf("live = %+v", live)
	}

	s.run(t, "a = null")
	s.vm.CollectGarbage()
	live = s.assets.Live()
	if len(live) != 1 || live[0].ID != 2 {
		t.Errorf("live after gc = %+v", live)
	}

	s.vm.Close()
	if n := len(s.assets.Live()); n != 0 {
		t.Errorf("live after close = %d", n)
	}
}

func TestAssetObjectTable(t *testing.T) {
	s := newSession(t)
	if n := s.vm.LiveObjects(); n != 0 {
		t.Fatalf("objects before load = %d", n)
	}
	s.run(t, `import "Assets" for AssetSystem
var asset = AssetSystem.load("a/b")
System.print(asset.path)`)

	if got := s.out.String(); got != "a/b\n" {
		t.Errorf("output = %q", got)
	}
	if n := s.vm.LiveObjects(); n != 1 {
		t.Fatalf("objects after load = %d, want 1", n)
	}

	s.vm.CollectGarbage()
	if n := s.vm.LiveObjects(); n != 1 {
		t.Errorf("objects while referenced = %d, want 1", n)
	}

	s.run(t, "asset = null")
	s.vm.CollectGarbage()
	if n := s.vm.LiveObjects(); n != 0 {
		t.Errorf("objects after collection = %d, want 0", n)
	}
	if n := len(s.assets.Live()); n != 0 {
		t.Errorf("live assets after collection = %d", n)
	}
}

func TestAssetLoadErrors(t *testing.T) {
	s := newSession(t)
	err := s.vm.Interpret("main", "import \"Assets\" for AssetSystem\nAssetSystem.load(42)")
	if wren.ResultOf(err) != wren.ResultRuntimeError {
		t.Fatalf("err = %v", err)
	}
	if len(s.errs) == 0 || s.errs[0] != "Expected string type" {
		t.Errorf("errors = %v", s.errs)
	}
	if len(s.assets.Live()) != 0 {
		t.Error("asset allocated for bad argument")
	}
}

type imageAssets struct {
	assets *Assets
}

func (s imageAssets) DefineModule(m *binding.ModuleBuilder) {
	m.ImportModule(s.assets, Asset{})
	m.Class("ImageAsset", func(c *binding.ClassBuilder) { c.Inherit(Asset{}) })
}

func TestAssetCannotBeInherited(t *testing.T) {
	_, err := binding.NewRegistry().Module(imageAssets{assets: NewAssets()})
	if !stderrors.Is(err, errors.ErrInvalidOperation) {
		t.Errorf("err = %v", err)
	}
}

func TestBindNonModule(t *testing.T) {
	cfg := wren.DefaultConfig()
	_, err := Bind(binding.NewRegistry(), cfg, Constants{}, nil)
	if !stderrors.Is(err, &errors.Error{Kind: errors.KindInvalidInput}) {
		t.Errorf("err = %v", err)
	}
	if len(cfg.Binders()) != 0 {
		t.Error("modules bound despite error")
	}
}
