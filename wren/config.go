package wren

import (
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/wrenit/resource"
)

// Wren's own heap defaults.
const (
	DefaultInitialHeapSize   = 10 * 1024 * 1024
	DefaultMinHeapSize       = 1024 * 1024
	DefaultHeapGrowthPercent = 50
)

// ForeignMethod implements a foreign method or a foreign class allocator.
// Arguments arrive in slots 1..n with the receiver in slot 0; the return
// value is whatever the method leaves in slot 0.
type ForeignMethod func(vm *VM)

// Finalizer runs when the VM collects a foreign object. The VM must not be
// touched from a finalizer.
type Finalizer func(obj *ForeignObject)

// ForeignClass is the allocator/finalizer pair bound to a foreign class.
type ForeignClass struct {
	Allocate ForeignMethod
	Finalize Finalizer
}

type (
	WriteFn             func(vm *VM, text string)
	ErrorFn             func(vm *VM, kind ErrorType, module string, line int, message string)
	ResolveModuleFn     func(vm *VM, importer, name string) (string, bool)
	LoadModuleFn        func(vm *VM, name string) (string, bool)
	BindForeignMethodFn func(vm *VM, module, className string, isStatic bool, signature string) ForeignMethod
	BindForeignClassFn  func(vm *VM, module, className string) (ForeignClass, bool)
)

// Binder supplies module source and foreign bindings for the modules it owns.
type Binder interface {
	LoadModule(name string) (string, bool)
	BindForeignMethod(module, className string, isStatic bool, signature string) ForeignMethod
	BindForeignClass(module, className string) (ForeignClass, bool)
}

// Config holds configuration for VM creation. The VM keeps a copy; changes
// made after New have no effect on it.
type Config struct {
	Write         WriteFn
	Error         ErrorFn
	ResolveModule ResolveModuleFn

	// Consulted before any bound Binder.
	LoadModule        LoadModuleFn
	BindForeignMethod BindForeignMethodFn
	BindForeignClass  BindForeignClassFn

	// Logger overrides the package logger for this VM.
	Logger *zap.Logger

	// Observers subscribe to every handle/object table the VM owns.
	Observers []resource.Observer

	binders []Binder

	InitialHeapSize   int
	MinHeapSize       int
	HeapGrowthPercent int
}

// DefaultConfig returns a config with Wren's default heap settings.
func DefaultConfig() *Config {
	return &Config{
		InitialHeapSize:   DefaultInitialHeapSize,
		MinHeapSize:       DefaultMinHeapSize,
		HeapGrowthPercent: DefaultHeapGrowthPercent,
	}
}

// Bind adds a binder. Binders are consulted in the order they were bound;
// the first one that answers wins. Binding the same binder twice is a no-op.
// Binders of a non-comparable type (a struct holding a map, say) are never
// recognised as bound already; bind a pointer to them instead.
func (c *Config) Bind(b Binder) *Config {
	if b != nil && c.binderIndex(b) < 0 {
		c.binders = append(c.binders, b)
	}
	return c
}

// Unbind removes a previously bound binder.
func (c *Config) Unbind(b Binder) *Config {
	if i := c.binderIndex(b); i >= 0 {
		c.binders = slices.Delete(c.binders, i, i+1)
	}
	return c
}

func (c *Config) binderIndex(b Binder) int {
	return slices.IndexFunc(c.binders, func(cur Binder) bool { return resource.Same(cur, b) })
}

// Binders returns the bound binders in consultation order.
func (c *Config) Binders() []Binder {
	return slices.Clone(c.binders)
}

func (c *Config) clone() *Config {
	if c == nil {
		return DefaultConfig()
	}
	cp := *c
	cp.binders = slices.Clone(c.binders)
	cp.Observers = slices.Clone(c.Observers)
	return &cp
}

func (c *Config) native(id uint64) NativeConfig {
	return NativeConfig{
		InitialHeapSize:   c.InitialHeapSize,
		MinHeapSize:       c.MinHeapSize,
		HeapGrowthPercent: c.HeapGrowthPercent,
		UserData:          id,
	}
}

func (c *Config) loadModule(vm *VM, name string) (string, bool) {
	if c.LoadModule != nil {
		if src, ok := c.LoadModule(vm, name); ok {
			return src, true
		}
	}
	for _, b := range c.binders {
		if src, ok := b.LoadModule(name); ok {
			return src, true
		}
	}
	return "", false
}

func (c *Config) bindMethod(vm *VM, module, className string, isStatic bool, sig string) ForeignMethod {
	if c.BindForeignMethod != nil {
		if fn := c.BindForeignMethod(vm, module, className, isStatic, sig); fn != nil {
			return fn
		}
	}
	for _, b := range c.binders {
		if fn := b.BindForeignMethod(module, className, isStatic, sig); fn != nil {
			return fn
		}
	}
	return nil
}

func (c *Config) bindClass(vm *VM, module, className string) (ForeignClass, bool) {
	if c.BindForeignClass != nil {
		if fc, ok := c.BindForeignClass(vm, module, className); ok {
			return fc, true
		}
	}
	for _, b := range c.binders {
		if fc, ok := b.BindForeignClass(module, className); ok {
			return fc, true
		}
	}
	return ForeignClass{}, false
}
