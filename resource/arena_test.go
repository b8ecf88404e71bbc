package resource

import (
	"errors"
	"testing"
)

func TestArena_Basic(t *testing.T) {
	a := NewArena[string](NamespaceForeignMethod)

	h, err := a.Insert("load")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := a.Get(h)
	if !ok || val != "load" {
		t.Fatalf("Get = %q, %v", val, ok)
	}

	val, ok = a.Remove(h)
	if !ok || val != "load" {
		t.Fatalf("Remove = %q, %v", val, ok)
	}
	if _, ok := a.Get(h); ok {
		t.Fatal("Expected Get to fail after Remove")
	}
	if _, ok := a.Remove(h); ok {
		t.Fatal("second Remove should be a no-op")
	}
}

func TestArena_GenerationOnReuse(t *testing.T) {
	a := NewArena[string](NamespaceForeignClass)

	h1, _ := a.Insert("first")
	a.Remove(h1)
	h2, _ := a.Insert("second")

	if h1.Index() != h2.Index() {
		t.Fatalf("expected slot reuse, got %v and %v", h1, h2)
	}
	if h1 == h2 {
		t.Fatal("reused slot must issue a new handle")
	}
	if h2.Generation() <= h1.Generation() {
		t.Fatalf("generation should grow: %d -> %d", h1.Generation(), h2.Generation())
	}
	if _, ok := a.Get(h1); ok {
		t.Fatal("stale handle must not resolve to the new occupant")
	}
	if v, ok := a.Get(h2); !ok || v != "second" {
		t.Fatalf("Get(h2) = %q, %v", v, ok)
	}
}

func TestArena_InvalidHandles(t *testing.T) {
	a := NewArena[int](NamespaceVM)
	if _, ok := a.Get(0); ok {
		t.Fatal("handle 0 must be invalid")
	}
	if _, ok := a.Get(makeHandle(50, 1)); ok {
		t.Fatal("out of range handle must be invalid")
	}
	if _, ok := a.Remove(0); ok {
		t.Fatal("Remove(0) must be a no-op")
	}
}

func TestArena_LenEachClear(t *testing.T) {
	a := NewArena[*dropCounter](NamespaceForeignMethod)
	obs := &testObserver{}
	a.Subscribe(obs)

	values := []*dropCounter{{}, {}, {}}
	for _, v := range values {
		if _, err := a.Insert(v); err != nil {
			t.Fatal(err)
		}
	}
	if a.Len() != 3 {
		t.Fatalf("Len = %d, want 3", a.Len())
	}

	count := 0
	a.Each(func(h Handle, v *dropCounter) bool {
		if h == 0 || v == nil {
			t.Error("Each yielded an empty entry")
		}
		count++
		return true
	})
	if count != 3 {
		t.Fatalf("Each visited %d, want 3", count)
	}

	a.Clear()
	if a.Len() != 0 {
		t.Fatalf("Len after Clear = %d", a.Len())
	}
	for i, v := range values {
		if v.count != 1 {
			t.Errorf("value %d dropped %d times", i, v.count)
		}
	}
	if len(obs.events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(obs.events))
	}
}

func TestArena_Close(t *testing.T) {
	a := NewArena[int](NamespaceForeignClass)
	a.Insert(1)

	if err := a.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if a.Len() != 0 {
		t.Fatal("Close should clear the arena")
	}
	if _, err := a.Insert(2); !errors.Is(err, ErrClosed) {
		t.Fatalf("Insert after Close = %v, want ErrClosed", err)
	}
}

func TestHandleString(t *testing.T) {
	if Handle(0).String() != "handle(invalid)" {
		t.Errorf("got %q", Handle(0).String())
	}
	h := makeHandle(3, 2)
	if h.String() != "handle(3#2)" {
		t.Errorf("got %q", h.String())
	}
}

func TestNamespaceString(t *testing.T) {
	for _, ns := range Namespaces() {
		if ns.String() == "unknown" {
			t.Errorf("namespace %d has no name", ns)
		}
	}
	if Namespace(99).String() != "unknown" {
		t.Error("out of range namespace should be unknown")
	}
}
