package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseBuild,
				Kind:   KindInvalidOperation,
				Path:   []string{"AssetsFail", "ImageAsset"},
				Detail: "cannot inherit from foreign class",
			},
			contains: []string{"[build]", "invalid_operation", "AssetsFail.ImageAsset", "cannot inherit"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseSlot,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[slot]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindNotFound,
				Detail: "load module",
				Cause:  errors.New("no such file"),
			},
			contains: []string{"[load]", "not_found", "load module", "caused by", "no such file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEngine,
		Kind:  KindUnsupported,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should see the cause through the chain")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseRuntime,
		Kind:  KindDisposed,
		Path:  []string{"vm"},
	}

	if !err.Is(&Error{Phase: PhaseRuntime, Kind: KindDisposed}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseSlot, Kind: KindDisposed}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseRuntime, Kind: KindNotFound}) {
		t.Error("Is should not match different kind")
	}
	if !err.Is(&Error{Kind: KindDisposed}) {
		t.Error("Is with empty phase should match any phase")
	}
	if err.Is(errors.New("disposed")) {
		t.Error("Is should not match foreign error types")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseBuild, KindNotFound).
		Path("Math", "Vector").
		Value(42).
		Cause(cause).
		Detail("class %s has not been generated", "Base").
		Build()

	if err.Phase != PhaseBuild {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseBuild)
	}
	if err.Kind != KindNotFound {
		t.Errorf("Kind = %v, want %v", err.Kind, KindNotFound)
	}
	if len(err.Path) != 2 || err.Path[0] != "Math" || err.Path[1] != "Vector" {
		t.Errorf("Path = %v, want [Math Vector]", err.Path)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "class Base has not been generated" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		err       error
		check     func(error) bool
		name      string
		wantMatch bool
	}{
		{Disposed(PhaseRuntime, "vm"), IsDisposed, "disposed runtime", true},
		{Disposed(PhaseSlot, "handle"), IsDisposed, "disposed slot", true},
		{NotFound(PhaseBuild, "class", "Base"), IsNotFound, "not found", true},
		{InvalidOperation(PhaseBuild, "foreign parent"), IsInvalidOperation, "invalid operation", true},
		{NotFound(PhaseBuild, "class", "Base"), IsDisposed, "not found is not disposed", false},
		{Wrap(PhaseHost, KindDisposed, errors.New("x"), "call"), IsDisposed, "wrapped disposed", true},
		{errors.New("plain"), IsNotFound, "plain error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.wantMatch {
				t.Errorf("check(%v) = %v, want %v", tt.err, got, tt.wantMatch)
			}
		})
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(2, "string", "number")
		if err.Kind != KindTypeMismatch || err.Phase != PhaseSlot {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Detail, "slot 2") {
			t.Errorf("Detail = %q, should name the slot", err.Detail)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseSlot, 4, 2)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v", err.Kind)
		}
		if err.Value != 4 {
			t.Errorf("Value = %v, want 4", err.Value)
		}
	})

	t.Run("Version", func(t *testing.T) {
		err := Version("0.3.0", "0.4.0")
		if err.Kind != KindVersion || !strings.Contains(err.Error(), "0.3.0") {
			t.Errorf("unexpected %v", err)
		}
	})

	t.Run("Load", func(t *testing.T) {
		cause := errors.New("missing")
		err := Load("Assets", cause)
		if err.Phase != PhaseLoad || !errors.Is(err, cause) {
			t.Errorf("unexpected %v", err)
		}
		if len(err.Path) != 1 || err.Path[0] != "Assets" {
			t.Errorf("Path = %v", err.Path)
		}
	})

	t.Run("Registration", func(t *testing.T) {
		err := Registration(PhaseBind, "Assets", "Asset", nil)
		if !strings.Contains(err.Detail, "Assets.Asset") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("NotInitialized", func(t *testing.T) {
		err := NotInitialized(PhaseEngine, "wren instance")
		if err.Kind != KindNotInitialized {
			t.Errorf("Kind = %v", err.Kind)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported(PhaseEngine, "threads")
		if err.Detail != "threads" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})
}
