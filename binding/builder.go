package binding

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/wrenit/errors"
	"github.com/wippyai/wrenit/signature"
	"github.com/wippyai/wrenit/wren"
)

const header = "// auto generated by wrenit\n\n"

type importVar struct {
	name  string
	alias string
}

type importLine struct {
	module string
	vars   []importVar
}

// part is one top-level or class-body entry in generation order. method is
// a 1-based index into the class methods; parts with neither a class nor a
// method are manual source.
type part struct {
	class  *ClassBuilder
	method int
	name   string
	text   string
}

type definedClass struct {
	key   reflect.Type
	class *Class
}

// ModuleBuilder collects a module definition. It is handed to
// ModuleSource.DefineModule; the first error it records aborts generation.
type ModuleBuilder struct {
	reg      *Registry
	key      reflect.Type
	importer *ModuleBuilder

	name    string
	imports []importLine
	parts   []part
	classes []definedClass
	err     error
}

func newModuleBuilder(reg *Registry, key reflect.Type, importer *ModuleBuilder) *ModuleBuilder {
	return &ModuleBuilder{reg: reg, key: key, importer: importer, name: typeName(key)}
}

// Name overrides the module name, which defaults to the Go type name.
func (m *ModuleBuilder) Name(name string) *ModuleBuilder {
	if name != "" {
		m.name = name
	}
	return m
}

// Import adds `import "module" for vars...`. An empty module is ignored.
func (m *ModuleBuilder) Import(module string, vars ...string) *ModuleBuilder {
	if module == "" {
		Logger().Debug("skipping import without module name", zap.String("module", m.name))
		return m
	}
	line := importLine{module: module}
	for _, v := range vars {
		line.vars = append(line.vars, importVar{name: v})
	}
	m.imports = append(m.imports, line)
	return m
}

// ImportAs adds `import "module" for name as alias`.
func (m *ModuleBuilder) ImportAs(module, name, alias string) *ModuleBuilder {
	if module == "" || name == "" {
		Logger().Debug("skipping incomplete import", zap.String("module", m.name))
		return m
	}
	m.imports = append(m.imports, importLine{module: module, vars: []importVar{{name: name, alias: alias}}})
	return m
}

// ImportModule imports another module source, generating it first when
// needed. Each name is either a variable name or a class key of that module.
func (m *ModuleBuilder) ImportModule(src any, names ...any) *ModuleBuilder {
	if m.err != nil {
		return m
	}
	mod, err := m.reg.build(src, m)
	if err != nil {
		m.fail(err)
		return m
	}
	if mod == nil {
		Logger().Debug("skipping import of non-module", zap.String("module", m.name))
		return m
	}

	line := importLine{module: mod.name}
	for _, n := range names {
		if s, ok := n.(string); ok {
			line.vars = append(line.vars, importVar{name: s})
			continue
		}
		t := typeOf(n)
		name, _, ok := m.reg.lookupClass(t)
		if !ok || mod.FindClass(name) == nil {
			m.fail(errors.NotFound(errors.PhaseBuild, "class", fmt.Sprintf("%v in module %s", t, mod.name)))
			return m
		}
		line.vars = append(line.vars, importVar{name: name})
	}
	m.imports = append(m.imports, line)
	return m
}

// Source appends raw Wren source at module level.
func (m *ModuleBuilder) Source(name, text string) *ModuleBuilder {
	m.parts = append(m.parts, part{name: name, text: text})
	return m
}

// Class defines a class. key is a Go value whose type names the class, or
// a string holding the script name. define runs immediately.
func (m *ModuleBuilder) Class(key any, define func(c *ClassBuilder)) *ModuleBuilder {
	if m.err != nil {
		return m
	}
	c := &ClassBuilder{mb: m}
	if s, ok := key.(string); ok {
		c.name = s
	} else {
		c.key = typeOf(key)
		c.name = typeName(c.key)
	}
	if define != nil {
		define(c)
	}
	if c.err != nil {
		m.fail(c.err)
		return m
	}
	if c.name == "" {
		Logger().Debug("skipping unnamed class", zap.String("module", m.name))
		return m
	}
	if m.findClass(c.name) != nil {
		Logger().Debug("skipping duplicate class",
			zap.String("module", m.name),
			zap.String("class", c.name))
		return m
	}

	cls := c.finish()
	m.classes = append(m.classes, definedClass{key: c.key, class: cls})
	m.parts = append(m.parts, part{class: c})
	return m
}

func (m *ModuleBuilder) findClass(name string) *Class {
	for _, dc := range m.classes {
		if dc.class.name == name {
			return dc.class
		}
	}
	return nil
}

func (m *ModuleBuilder) fail(err error) {
	if m.err == nil {
		m.err = err
	}
}

func (m *ModuleBuilder) finish() (*Module, error) {
	if m.err != nil {
		return nil, m.err
	}
	mod := &Module{name: m.name}
	for _, dc := range m.classes {
		mod.classes = append(mod.classes, dc.class)
	}
	for _, im := range m.imports {
		if !slices.Contains(mod.imports, im.module) {
			mod.imports = append(mod.imports, im.module)
		}
	}
	mod.source = m.render()
	return mod, nil
}

func (m *ModuleBuilder) render() string {
	var b strings.Builder
	b.WriteString(header)

	for _, im := range m.imports {
		b.WriteString("import ")
		b.WriteString(strconv.Quote(im.module))
		for i, v := range im.vars {
			if i == 0 {
				b.WriteString(" for ")
			} else {
				b.WriteString(", ")
			}
			b.WriteString(v.name)
			if v.alias != "" && v.alias != v.name {
				b.WriteString(" as ")
				b.WriteString(v.alias)
			}
		}
		b.WriteByte('\n')
	}
	if len(m.imports) > 0 {
		b.WriteByte('\n')
	}

	for _, p := range m.parts {
		if p.class != nil {
			p.class.render(&b)
			continue
		}
		writeManual(&b, p.name, p.text)
	}
	return b.String()
}

func writeManual(b *strings.Builder, name, text string) {
	b.WriteString("\n// begin manual source: ")
	b.WriteString(name)
	b.WriteByte('\n')
	b.WriteString(text)
	b.WriteString("\n// end manual source\n\n")
}

// ClassBuilder collects one class definition.
type ClassBuilder struct {
	mb  *ModuleBuilder
	key reflect.Type

	name      string
	parent    string
	allocator wren.ForeignMethod
	finalizer wren.Finalizer
	attrs     []Attribute
	methods   []Method
	body      []part
	err       error
}

// Name overrides the class name, which defaults to the Go type name.
func (c *ClassBuilder) Name(name string) *ClassBuilder {
	if name != "" {
		c.name = name
	}
	return c
}

// Allocator makes the class foreign. Only the first allocator is kept.
func (c *ClassBuilder) Allocator(fn wren.ForeignMethod) *ClassBuilder {
	if c.allocator == nil {
		c.allocator = fn
	}
	return c
}

// Finalizer sets the foreign finalizer. Only the first finalizer is kept,
// and it is dropped when the class has no allocator.
func (c *ClassBuilder) Finalizer(fn wren.Finalizer) *ClassBuilder {
	if c.finalizer == nil {
		c.finalizer = fn
	}
	return c
}

// Method declares a foreign method. Methods with a nil callback, an arity
// Wren cannot declare or a signature already declared are skipped.
func (c *ClassBuilder) Method(kind signature.Kind, name string, arity int, fn wren.ForeignMethod, attrs ...Attribute) *ClassBuilder {
	log := Logger().With(
		zap.String("module", c.mb.name),
		zap.String("class", c.name),
		zap.String("method", name))

	if fn == nil {
		log.Debug("skipping method without callback")
		return c
	}
	if !signature.Valid(kind, arity) {
		log.Debug("skipping method with invalid arity", zap.Int("arity", arity), zap.Stringer("kind", kind))
		return c
	}

	sig := signature.Create(kind, name, arity, signature.Binding)
	static := signature.IsStatic(kind)
	for _, m := range c.methods {
		if m.Signature == sig && m.Static == static {
			log.Debug("skipping duplicate method", zap.String("signature", sig))
			return c
		}
	}

	c.methods = append(c.methods, Method{
		Signature: sig,
		Static:    static,
		Kind:      kind,
		Name:      name,
		Arity:     signature.CorrectArity(kind, arity),
		Fn:        fn,
		Attrs:     attrs,
	})
	c.body = append(c.body, part{method: len(c.methods)})
	return c
}

// Inherit sets the parent to a class generated from key's type, either
// earlier in this module or by an earlier build. Foreign classes cannot be
// inherited from.
func (c *ClassBuilder) Inherit(key any) *ClassBuilder {
	if c.err != nil {
		return c
	}
	t := typeOf(key)
	name, foreign, ok := c.mb.localClass(t)
	if !ok {
		name, foreign, ok = c.mb.reg.lookupClass(t)
	}
	if !ok {
		c.err = errors.New(errors.PhaseBuild, errors.KindNotFound).
			Path(c.mb.name, c.name).
			Value(t).
			Detail("parent class %v has not been generated", t).
			Build()
		return c
	}
	if foreign {
		c.err = errors.New(errors.PhaseBuild, errors.KindInvalidOperation).
			Path(c.mb.name, c.name).
			Detail("cannot inherit from foreign class %s", name).
			Build()
		return c
	}
	c.parent = name
	return c
}

// InheritName sets the parent by script name without checking it.
func (c *ClassBuilder) InheritName(name string) *ClassBuilder {
	c.parent = name
	return c
}

// Attribute adds class attributes.
func (c *ClassBuilder) Attribute(attrs ...Attribute) *ClassBuilder {
	c.attrs = append(c.attrs, attrs...)
	return c
}

// Source appends raw Wren source to the class body.
func (c *ClassBuilder) Source(name, text string) *ClassBuilder {
	c.body = append(c.body, part{name: name, text: text})
	return c
}

func (m *ModuleBuilder) localClass(t reflect.Type) (string, bool, bool) {
	if t == nil {
		return "", false, false
	}
	for _, dc := range m.classes {
		if dc.key == t {
			return dc.class.name, dc.class.Foreign(), true
		}
	}
	return "", false, false
}

func (c *ClassBuilder) finish() *Class {
	if c.finalizer != nil && c.allocator == nil {
		Logger().Debug("dropping finalizer of non-foreign class",
			zap.String("module", c.mb.name),
			zap.String("class", c.name))
		c.finalizer = nil
	}
	return &Class{
		name:      c.name,
		parent:    c.parent,
		allocator: c.allocator,
		finalizer: c.finalizer,
		methods:   slices.Clone(c.methods),
	}
}

func (c *ClassBuilder) render(b *strings.Builder) {
	writeAttributes(b, c.attrs, 0)
	if c.allocator != nil {
		b.WriteString("foreign ")
	}
	b.WriteString("class ")
	b.WriteString(c.name)
	if c.parent != "" {
		b.WriteString(" is ")
		b.WriteString(c.parent)
	}
	b.WriteString(" {\n")

	for _, p := range c.body {
		if p.method == 0 {
			writeManual(b, p.name, p.text)
			continue
		}
		m := c.methods[p.method-1]
		writeAttributes(b, m.Attrs, 1)
		b.WriteByte('\t')
		b.WriteString(m.Declaration())
		b.WriteByte('\n')
	}
	b.WriteString("}\n\n")
}
