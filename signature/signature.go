package signature

import (
	"strings"
)

// MaxArity is the largest parameter count Wren accepts for a single method.
const MaxArity = 16

// Kind is the syntactic shape of a Wren method.
type Kind uint8

const (
	Method Kind = iota
	StaticMethod
	Construct
	FieldGetter
	FieldSetter
	SubscriptGetter
	SubscriptSetter

	// unary operators
	Not
	Negate
	Tilde

	// binary operators
	RangeInclusive
	RangeExclusive
	Times
	Divide
	Modulo
	Plus
	Minus
	LeftShift
	RightShift
	BitwiseXor
	BitwiseOr
	BitwiseAnd
	Less
	LessEqual
	Greater
	GreaterEqual
	Equal
	NotEqual
	Is
)

// Style selects how a signature is rendered.
type Style uint8

const (
	// Binding is the form the VM passes to the foreign method binder,
	// e.g. "init new(_,_)" or "[_]=(_)".
	Binding Style = iota
	// Declaration is the form written in a class body, e.g. "construct new(a, b)".
	Declaration
	// ForeignDeclaration is Declaration prefixed with "foreign ".
	ForeignDeclaration
)

type shape uint8

const (
	shapeCall shape = iota
	shapeStatic
	shapeConstruct
	shapeBare
	shapeSetter
	shapeSubscript
	shapeSubscriptSetter
)

// Unbounded marks a rule without an upper arity limit.
const Unbounded = -1

type rule struct {
	name   string
	symbol string
	shape  shape
	min    int
	max    int
}

var rules = [...]rule{
	Method:          {name: "method", shape: shapeCall, min: 0, max: Unbounded},
	StaticMethod:    {name: "static", shape: shapeStatic, min: 0, max: Unbounded},
	Construct:       {name: "construct", shape: shapeConstruct, min: 0, max: Unbounded},
	FieldGetter:     {name: "getter", shape: shapeBare, min: 0, max: 0},
	FieldSetter:     {name: "setter", shape: shapeSetter, min: 1, max: 1},
	SubscriptGetter: {name: "subscript", shape: shapeSubscript, min: 1, max: Unbounded},
	SubscriptSetter: {name: "subscript-setter", shape: shapeSubscriptSetter, min: 1, max: Unbounded},

	Not:    {name: "not", symbol: "!", shape: shapeBare},
	Negate: {name: "negate", symbol: "-", shape: shapeBare},
	Tilde:  {name: "tilde", symbol: "~", shape: shapeBare},

	RangeInclusive: {name: "range-inclusive", symbol: "..", shape: shapeCall, min: 1, max: 1},
	RangeExclusive: {name: "range-exclusive", symbol: "...", shape: shapeCall, min: 1, max: 1},
	Times:          {name: "times", symbol: "*", shape: shapeCall, min: 1, max: 1},
	Divide:         {name: "divide", symbol: "/", shape: shapeCall, min: 1, max: 1},
	Modulo:         {name: "modulo", symbol: "%", shape: shapeCall, min: 1, max: 1},
	Plus:           {name: "plus", symbol: "+", shape: shapeCall, min: 1, max: 1},
	Minus:          {name: "minus", symbol: "-", shape: shapeCall, min: 1, max: 1},
	LeftShift:      {name: "left-shift", symbol: "<<", shape: shapeCall, min: 1, max: 1},
	RightShift:     {name: "right-shift", symbol: ">>", shape: shapeCall, min: 1, max: 1},
	BitwiseXor:     {name: "xor", symbol: "^", shape: shapeCall, min: 1, max: 1},
	BitwiseOr:      {name: "or", symbol: "|", shape: shapeCall, min: 1, max: 1},
	BitwiseAnd:     {name: "and", symbol: "&", shape: shapeCall, min: 1, max: 1},
	Less:           {name: "less", symbol: "<", shape: shapeCall, min: 1, max: 1},
	LessEqual:      {name: "less-equal", symbol: "<=", shape: shapeCall, min: 1, max: 1},
	Greater:        {name: "greater", symbol: ">", shape: shapeCall, min: 1, max: 1},
	GreaterEqual:   {name: "greater-equal", symbol: ">=", shape: shapeCall, min: 1, max: 1},
	Equal:          {name: "equal", symbol: "==", shape: shapeCall, min: 1, max: 1},
	NotEqual:       {name: "not-equal", symbol: "!=", shape: shapeCall, min: 1, max: 1},
	Is:             {name: "is", symbol: "is", shape: shapeCall, min: 1, max: 1},
}

func (k Kind) String() string {
	if int(k) < len(rules) {
		return rules[k].name
	}
	return "unknown"
}

// Symbol returns the operator symbol forced as the name of operator kinds,
// or "" for kinds that keep their declared name.
func (k Kind) Symbol() string {
	if int(k) < len(rules) {
		return rules[k].symbol
	}
	return ""
}

// IsOperator reports whether k is a unary or binary operator.
func (k Kind) IsOperator() bool {
	return k.Symbol() != ""
}

// IsStatic reports whether methods of kind k are bound on the metaclass.
// Constructors are not: Wren binds their "init" half as an instance method.
func IsStatic(k Kind) bool {
	return k == StaticMethod
}

// CorrectArity clamps arity into the range allowed for kind k.
// Binary operators always take one argument, unary operators and getters none.
func CorrectArity(k Kind, arity int) int {
	if int(k) >= len(rules) {
		return arity
	}
	r := rules[k]
	if arity < r.min {
		arity = r.min
	}
	if r.max != Unbounded && arity > r.max {
		arity = r.max
	}
	return arity
}

// Params returns the total parameter count of a method after arity correction,
// counting the assigned value of subscript setters.
func Params(k Kind, arity int) int {
	arity = CorrectArity(k, arity)
	if k == SubscriptSetter {
		return arity + 1
	}
	return arity
}

// Valid reports whether kind k with the given arity can be declared in Wren.
func Valid(k Kind, arity int) bool {
	return int(k) < len(rules) && Params(k, arity) <= MaxArity
}

// Name returns the script-visible name of a method: the operator symbol for
// operator kinds, name otherwise.
func Name(k Kind, name string) string {
	if sym := k.Symbol(); sym != "" {
		return sym
	}
	return name
}

// Create renders the signature of a method. It is a pure function of its
// inputs; unknown kinds render as "".
func Create(k Kind, name string, arity int, style Style) string {
	if int(k) >= len(rules) {
		return ""
	}
	r := rules[k]
	name = Name(k, name)
	arity = CorrectArity(k, arity)
	decl := style != Binding

	var b strings.Builder
	if style == ForeignDeclaration {
		b.WriteString("foreign ")
	}

	switch r.shape {
	case shapeCall:
		b.WriteString(name)
		writeArgs(&b, '(', ')', arity, decl)
	case shapeStatic:
		if decl {
			b.WriteString("static ")
		}
		b.WriteString(name)
		writeArgs(&b, '(', ')', arity, decl)
	case shapeConstruct:
		if decl {
			b.WriteString("construct ")
		} else {
			b.WriteString("init ")
		}
		b.WriteString(name)
		writeArgs(&b, '(', ')', arity, decl)
	case shapeBare:
		b.WriteString(name)
	case shapeSetter:
		b.WriteString(name)
		b.WriteByte('=')
		writeArgs(&b, '(', ')', 1, decl)
	case shapeSubscript:
		writeArgs(&b, '[', ']', arity, decl)
	case shapeSubscriptSetter:
		writeArgs(&b, '[', ']', arity, decl)
		if decl {
			b.WriteString("=(value)")
		} else {
			b.WriteString("=(_)")
		}
	}

	return strings.TrimSpace(b.String())
}

func writeArgs(b *strings.Builder, open, close byte, n int, decl bool) {
	b.WriteByte(open)
	for i := 0; i < n; i++ {
		if decl {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte(byte('a' + i))
		} else {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('_')
		}
	}
	b.WriteByte(close)
}
