package binding

import (
	"slices"

	"github.com/wippyai/wrenit/signature"
	"github.com/wippyai/wrenit/wren"
)

// Method describes one foreign method of a generated class.
type Method struct {
	Signature string // binding form, e.g. "init new(_,_)"
	Static    bool
	Kind      signature.Kind
	Name      string
	Arity     int
	Fn        wren.ForeignMethod
	Attrs     []Attribute
}

// Declaration returns the method as written in the class body.
func (m Method) Declaration() string {
	return signature.Create(m.Kind, m.Name, m.Arity, signature.ForeignDeclaration)
}

// Class describes a generated class. A class with an allocator is a foreign
// class; its finalizer is only kept when it has one.
type Class struct {
	name      string
	parent    string
	allocator wren.ForeignMethod
	finalizer wren.Finalizer
	methods   []Method
}

func (c *Class) Name() string                  { return c.name }
func (c *Class) Parent() string                { return c.parent }
func (c *Class) Allocator() wren.ForeignMethod { return c.allocator }
func (c *Class) Finalizer() wren.Finalizer     { return c.finalizer }
func (c *Class) Foreign() bool                 { return c.allocator != nil }

// Methods returns the class methods in declaration order.
func (c *Class) Methods() []Method {
	return slices.Clone(c.methods)
}

// FindMethod looks a method up by its binding signature.
func (c *Class) FindMethod(sig string, isStatic bool) (Method, bool) {
	for _, m := range c.methods {
		if m.Signature == sig && m.Static == isStatic {
			return m, true
		}
	}
	return Method{}, false
}

// Module is a generated Wren module: its source text plus the foreign
// bindings the source declares. It implements wren.Binder.
type Module struct {
	name    string
	source  string
	imports []string
	classes []*Class
}

var _ wren.Binder = (*Module)(nil)

func (m *Module) Name() string   { return m.name }
func (m *Module) Source() string { return m.source }

// Imports returns the names of the modules this module imports.
func (m *Module) Imports() []string {
	return slices.Clone(m.imports)
}

// Classes returns the generated classes in definition order.
func (m *Module) Classes() []*Class {
	return slices.Clone(m.classes)
}

// FindClass returns the class with the given script name, or nil.
func (m *Module) FindClass(name string) *Class {
	for _, c := range m.classes {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Bind adds the module to cfg's binders.
func (m *Module) Bind(cfg *wren.Config) *wren.Config {
	return cfg.Bind(m)
}

// Unbind removes the module from cfg's binders.
func (m *Module) Unbind(cfg *wren.Config) *wren.Config {
	return cfg.Unbind(m)
}

func (m *Module) LoadModule(name string) (string, bool) {
	if name != m.name {
		return "", false
	}
	return m.source, true
}

func (m *Module) BindForeignMethod(module, className string, isStatic bool, sig string) wren.ForeignMethod {
	if module != m.name {
		return nil
	}
	c := m.FindClass(className)
	if c == nil {
		return nil
	}
	meth, ok := c.FindMethod(sig, isStatic)
	if !ok {
		return nil
	}
	return meth.Fn
}

func (m *Module) BindForeignClass(module, className string) (wren.ForeignClass, bool) {
	if module != m.name {
		return wren.ForeignClass{}, false
	}
	c := m.FindClass(className)
	if c == nil || !c.Foreign() {
		return wren.ForeignClass{}, false
	}
	return wren.ForeignClass{Allocate: c.allocator, Finalize: c.finalizer}, true
}

// ModuleInfo is a serializable summary of a generated module.
type ModuleInfo struct {
	Name    string      `json:"name"`
	Imports []string    `json:"imports,omitempty"`
	Classes []ClassInfo `json:"classes"`
}

type ClassInfo struct {
	Name      string       `json:"name"`
	Parent    string       `json:"parent,omitempty"`
	Foreign   bool         `json:"foreign"`
	Finalizer bool         `json:"finalizer"`
	Methods   []MethodInfo `json:"methods"`
}

type MethodInfo struct {
	Signature   string `json:"signature"`
	Declaration string `json:"declaration"`
	Kind        string `json:"kind"`
	Static      bool   `json:"static"`
	Arity       int    `json:"arity"`
}

// Describe summarizes the module without its callbacks.
func (m *Module) Describe() ModuleInfo {
	info := ModuleInfo{Name: m.name, Imports: m.Imports(), Classes: make([]ClassInfo, 0, len(m.classes))}
	for _, c := range m.classes {
		ci := ClassInfo{
			Name:      c.name,
			Parent:    c.parent,
			Foreign:   c.Foreign(),
			Finalizer: c.finalizer != nil,
			Methods:   make([]MethodInfo, 0, len(c.methods)),
		}
		for _, meth := range c.methods {
			ci.Methods = append(ci.Methods, MethodInfo{
				Signature:   meth.Signature,
				Declaration: meth.Declaration(),
				Kind:        meth.Kind.String(),
				Static:      meth.Static,
				Arity:       signature.CorrectArity(meth.Kind, meth.Arity),
			})
		}
		info.Classes = append(info.Classes, ci)
	}
	return info
}
