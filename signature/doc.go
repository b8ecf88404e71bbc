// Package signature formats Wren method signatures.
//
// A signature is a pure function of (Kind, name, arity). Operator kinds force
// their name to the operator symbol and their arity to 0 (unary) or 1 (binary);
// getters take no arguments, setters exactly one.
//
// The same method renders differently depending on Style:
//
//	Kind             Binding        Declaration
//	Method           load(_,_)      load(a, b)
//	StaticMethod     load(_)        static load(a)
//	Construct        init new(_)    construct new(a)
//	FieldGetter      path           path
//	FieldSetter      x=(_)          x=(a)
//	SubscriptGetter  [_]            [a]
//	SubscriptSetter  [_]=(_)        [a]=(value)
//	Negate           -              -
//	Plus             +(_)           +(a)
//
// Binding is what the VM hands to the foreign method binder; the static flag
// travels separately. ForeignDeclaration prefixes Declaration with "foreign ".
package signature
