package signature

import (
	"testing"
)

func TestCreate(t *testing.T) {
	tests := []struct {
		name  string
		mname string
		want  string
		kind  Kind
		arity int
		style Style
	}{
		{"method binding", "load", "load(_,_)", Method, 2, Binding},
		{"method declaration", "load", "load(a, b)", Method, 2, Declaration},
		{"method no args", "run", "run()", Method, 0, Binding},
		{"static binding", "load", "load(_)", StaticMethod, 1, Binding},
		{"static declaration", "load", "static load(a)", StaticMethod, 1, Declaration},
		{"static foreign", "load", "foreign static load(a)", StaticMethod, 1, ForeignDeclaration},
		{"construct binding", "new", "init new(_)", Construct, 1, Binding},
		{"construct declaration", "new", "construct new(a)", Construct, 1, Declaration},
		{"getter", "path", "path", FieldGetter, 0, Binding},
		{"getter ignores arity", "path", "path", FieldGetter, 3, Declaration},
		{"setter binding", "x", "x=(_)", FieldSetter, 0, Binding},
		{"setter declaration", "x", "x=(a)", FieldSetter, 4, Declaration},
		{"subscript binding", "", "[_,_]", SubscriptGetter, 2, Binding},
		{"subscript minimum", "", "[_]", SubscriptGetter, 0, Binding},
		{"subscript setter binding", "", "[_]=(_)", SubscriptSetter, 1, Binding},
		{"subscript setter declaration", "", "[a, b]=(value)", SubscriptSetter, 2, Declaration},
		{"negate", "neg", "-", Negate, 2, Binding},
		{"not", "", "!", Not, 0, Declaration},
		{"tilde foreign", "", "foreign ~", Tilde, 0, ForeignDeclaration},
		{"plus forced arity", "add", "+(_)", Plus, 5, Binding},
		{"plus declaration", "", "+(a)", Plus, 0, Declaration},
		{"range inclusive", "", "..(_)", RangeInclusive, 1, Binding},
		{"range exclusive", "", "...(_)", RangeExclusive, 1, Binding},
		{"is", "", "is(_)", Is, 1, Binding},
		{"not equal", "", "!=(_)", NotEqual, 1, Binding},
		{"foreign method", "add", "foreign add(a, b)", Method, 2, ForeignDeclaration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Create(tt.kind, tt.mname, tt.arity, tt.style)
			if got != tt.want {
				t.Errorf("Create(%v, %q, %d) = %q, want %q", tt.kind, tt.mname, tt.arity, got, tt.want)
			}
		})
	}
}

func TestCreate_Deterministic(t *testing.T) {
	for k := Method; k <= Is; k++ {
		for arity := 0; arity < 4; arity++ {
			for _, style := range []Style{Binding, Declaration, ForeignDeclaration} {
				a := Create(k, "m", arity, style)
				b := Create(k, "m", arity, style)
				if a != b {
					t.Fatalf("Create(%v, m, %d, %d) not deterministic: %q vs %q", k, arity, style, a, b)
				}
				if a == "" {
					t.Fatalf("Create(%v, m, %d, %d) returned empty signature", k, arity, style)
				}
			}
		}
	}
}

func TestCorrectArity(t *testing.T) {
	binary := []Kind{RangeInclusive, RangeExclusive, Times, Divide, Modulo, Plus, Minus,
		LeftShift, RightShift, BitwiseXor, BitwiseOr, BitwiseAnd, Less, LessEqual,
		Greater, GreaterEqual, Equal, NotEqual, Is}
	for _, k := range binary {
		for _, requested := range []int{0, 1, 2, 5} {
			if got := CorrectArity(k, requested); got != 1 {
				t.Errorf("CorrectArity(%v, %d) = %d, want 1", k, requested, got)
			}
		}
		if !k.IsOperator() {
			t.Errorf("%v should be an operator", k)
		}
	}

	for _, k := range []Kind{Not, Negate, Tilde, FieldGetter} {
		for _, requested := range []int{0, 1, 3} {
			if got := CorrectArity(k, requested); got != 0 {
				t.Errorf("CorrectArity(%v, %d) = %d, want 0", k, requested, got)
			}
		}
	}

	if got := CorrectArity(Method, 7); got != 7 {
		t.Errorf("CorrectArity(Method, 7) = %d", got)
	}
	if got := CorrectArity(Method, -2); got != 0 {
		t.Errorf("CorrectArity(Method, -2) = %d", got)
	}
	if got := CorrectArity(SubscriptSetter, 0); got != 1 {
		t.Errorf("CorrectArity(SubscriptSetter, 0) = %d", got)
	}
}

func TestValid(t *testing.T) {
	if !Valid(Method, MaxArity) {
		t.Error("method with MaxArity params should be valid")
	}
	if Valid(Method, MaxArity+1) {
		t.Error("method above MaxArity should be invalid")
	}
	if Valid(SubscriptSetter, MaxArity) {
		t.Error("subscript setter counts its value parameter")
	}
	if !Valid(Plus, 100) {
		t.Error("binary operator arity is forced to 1")
	}
	if Valid(Kind(200), 0) {
		t.Error("unknown kind should be invalid")
	}
}

func TestIsStatic(t *testing.T) {
	if !IsStatic(StaticMethod) {
		t.Error("StaticMethod should be static")
	}
	for _, k := range []Kind{Method, Construct, FieldGetter, Plus} {
		if IsStatic(k) {
			t.Errorf("%v should not be static", k)
		}
	}
}

func TestKindString(t *testing.T) {
	if Construct.String() != "construct" {
		t.Errorf("Construct.String() = %q", Construct.String())
	}
	if Kind(200).String() != "unknown" {
		t.Errorf("unknown kind String() = %q", Kind(200).String())
	}
	if Create(Kind(200), "x", 0, Binding) != "" {
		t.Error("unknown kind should render empty")
	}
	if Name(Minus, "sub") != "-" || Name(Method, "sub") != "sub" {
		t.Error("Name should force operator symbols only")
	}
}
