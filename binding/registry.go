package binding

import (
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wrenit/errors"
)

// ModuleSource marks a Go type as a Wren module. DefineModule declares the
// module's imports, classes and manual source on m.
type ModuleSource interface {
	DefineModule(m *ModuleBuilder)
}

// Registry caches generated modules per Go type and maps module and class
// types to their script names.
type Registry struct {
	mu      sync.RWMutex
	modules map[reflect.Type]*Module
	names   map[reflect.Type]string
	foreign map[reflect.Type]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[reflect.Type]*Module),
		names:   make(map[reflect.Type]string),
		foreign: make(map[reflect.Type]bool),
	}
}

// Default is the registry used by Build and NameOf.
var Default = NewRegistry()

// Build generates src's module in the Default registry.
func Build(src any) (*Module, error) {
	return Default.Module(src)
}

// NameOf returns the script name of a generated module or class in the
// Default registry.
func NameOf(key any) (string, bool) {
	return Default.NameOf(key)
}

// Module returns the module generated from src, building it on first use.
// Values whose type does not implement ModuleSource yield nil, nil.
func (r *Registry) Module(src any) (*Module, error) {
	return r.build(src, nil)
}

// NameOf returns the script name registered for key's type.
func (r *Registry) NameOf(key any) (string, bool) {
	t := typeOf(key)
	if t == nil {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[t]
	return name, ok
}

// Len returns the number of cached modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

// Clear drops every cached module and registered name.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.modules)
	clear(r.names)
	clear(r.foreign)
}

func (r *Registry) build(src any, importer *ModuleBuilder) (*Module, error) {
	t := typeOf(src)
	if t == nil {
		return nil, nil
	}

	r.mu.RLock()
	cached := r.modules[t]
	r.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	ms, ok := src.(ModuleSource)
	if !ok {
		Logger().Debug("not a module source", zap.Stringer("type", t))
		return nil, nil
	}

	for b := importer; b != nil; b = b.importer {
		if b.key == t {
			return nil, errors.New(errors.PhaseBuild, errors.KindInvalidOperation).
				Path(b.name).
				Detail("import cycle through module %s", b.name).
				Build()
		}
	}

	mb := newModuleBuilder(r, t, importer)
	ms.DefineModule(mb)
	mod, err := mb.finish()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev := r.modules[t]; prev != nil {
		return prev, nil
	}
	r.modules[t] = mod
	r.names[t] = mod.name
	for _, c := range mb.classes {
		if c.key != nil {
			r.names[c.key] = c.class.name
			r.foreign[c.key] = c.class.Foreign()
		}
	}
	Logger().Debug("module generated",
		zap.String("module", mod.name),
		zap.Int("classes", len(mod.classes)))
	return mod, nil
}

// lookupClass resolves a class generated by an earlier build.
func (r *Registry) lookupClass(t reflect.Type) (name string, foreign, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok = r.names[t]
	if !ok {
		return "", false, false
	}
	if _, isModule := r.modules[t]; isModule {
		return "", false, false
	}
	return name, r.foreign[t], true
}

// typeOf normalizes a key to its non-pointer type so that T{} and (*T)(nil)
// name the same module or class.
func typeOf(key any) reflect.Type {
	if key == nil {
		return nil
	}
	t, ok := key.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(key)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func typeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	return t.Name()
}
