package wren

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/wrenit/errors"
	"github.com/wippyai/wrenit/resource"
)

// dispatcher routes native callbacks to the VM they belong to. Every entry
// point resolves the VM first and returns quietly on a miss: callbacks that
// arrive after teardown started have nothing left to act on.
type dispatcher struct{}

var _ Host = dispatcher{}

func zapPtr(p Ptr) zap.Field {
	return zap.Uint64("ptr", uint64(p))
}

// resolve returns the live wrapper and state for a VM id.
func resolve(id uint64) (*VM, *vmState, bool) {
	e, ok := lookup(id)
	if !ok {
		return nil, nil, false
	}
	vm := e.vm.Value()
	if vm == nil {
		return nil, e.state, false
	}
	return vm, e.state, true
}

// guard runs fn, turning a panic into a log entry and, when abort is set,
// a fiber abort. Panics never cross into the native engine.
func (s *vmState) guard(what string, vm *VM, abort bool, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.New(errors.PhaseHost, errors.KindRuntime).
				Path(what).
				Value(r).
				Detail("callback panicked: %v", r).
				Build()
			s.log.Error("host callback panicked", zap.Error(err))
			if abort && vm != nil {
				_ = vm.Abort(fmt.Sprintf("%s: %v", what, r))
			}
		}
	}()
	fn()
}

func (dispatcher) Write(id uint64, text string) {
	vm, s, ok := resolve(id)
	if !ok || s.config.Write == nil {
		return
	}
	s.guard("write", nil, false, func() { s.config.Write(vm, text) })
}

func (dispatcher) Error(id uint64, kind ErrorType, module string, line int, message string) {
	vm, s, ok := resolve(id)
	if !ok {
		return
	}
	if s.config.Error == nil {
		s.log.Debug("script error",
			zap.Stringer("type", kind),
			zap.String("module", module),
			zap.Int("line", line),
			zap.String("message", message))
		return
	}
	s.guard("error", nil, false, func() { s.config.Error(vm, kind, module, line, message) })
}

func (dispatcher) ResolveModule(id uint64, importer, name string) (string, bool) {
	vm, s, ok := resolve(id)
	if !ok {
		return "", false
	}
	if s.config.ResolveModule == nil {
		return name, true
	}
	resolved, found := name, true
	s.guard("resolve module", nil, false, func() {
		resolved, found = s.config.ResolveModule(vm, importer, name)
	})
	return resolved, found
}

func (dispatcher) LoadModule(id uint64, name string) (string, bool) {
	vm, s, ok := resolve(id)
	if !ok {
		return "", false
	}
	var src string
	var found bool
	s.guard("load module", nil, false, func() { src, found = s.config.loadModule(vm, name) })
	if !found {
		s.log.Debug("module not found", zap.String("module", name))
	}
	return src, found
}

func (dispatcher) BindForeignMethod(id uint64, module, className string, isStatic bool, sig string) uint64 {
	vm, s, ok := resolve(id)
	if !ok {
		return 0
	}
	var fn ForeignMethod
	s.guard("bind method", nil, false, func() { fn = s.config.bindMethod(vm, module, className, isStatic, sig) })
	if fn == nil {
		s.log.Debug("foreign method not bound",
			zap.String("module", module),
			zap.String("class", className),
			zap.Bool("static", isStatic),
			zap.String("signature", sig))
		return 0
	}
	h, err := s.methods.Insert(fn)
	if err != nil {
		s.log.Debug("foreign method dropped", zap.Error(errors.Registration(errors.PhaseBind, module, className+"."+sig, err)))
		return 0
	}
	return uint64(h)
}

func (dispatcher) BindForeignClass(id uint64, module, className string) uint64 {
	vm, s, ok := resolve(id)
	if !ok {
		return 0
	}
	var fc ForeignClass
	var found bool
	s.guard("bind class", nil, false, func() { fc, found = s.config.bindClass(vm, module, className) })
	if !found || fc.Allocate == nil {
		msg := fmt.Sprintf("no allocator bound for foreign class %s in module %s", className, module)
		dispatcher{}.Error(id, ErrorHost, module, 0, msg)
		fc = ForeignClass{Allocate: missingAllocator(msg)}
	}
	h, err := s.classes.Insert(fc)
	if err != nil {
		s.log.Debug("foreign class dropped", zap.Error(errors.Registration(errors.PhaseBind, module, className, err)))
		return 0
	}
	return uint64(h)
}

// missingAllocator stands in for a foreign class the host did not bind, so
// constructing it raises a script error instead of crashing the VM.
func missingAllocator(msg string) ForeignMethod {
	return func(vm *VM) {
		if _, err := vm.SetSlotNewForeign(0, 0, nil); err != nil {
			vm.Logger().Debug("missing allocator", zap.Error(err))
		}
		_ = vm.Abort(msg)
	}
}

func (dispatcher) CallForeign(id uint64, method uint64) {
	vm, s, ok := resolve(id)
	if !ok {
		return
	}
	fn, ok := s.methods.Get(resource.Handle(method))
	if !ok {
		return
	}
	s.guard("foreign method", vm, true, func() { fn(vm) })
}

func (dispatcher) Allocate(id uint64, class uint64) {
	vm, s, ok := resolve(id)
	if !ok {
		return
	}
	fc, ok := s.classes.Get(resource.Handle(class))
	if !ok || fc.Allocate == nil {
		return
	}
	s.guard("allocate", vm, true, func() { fc.Allocate(vm) })
}

// Finalize only needs the state: it runs while the native VM is being
// freed, possibly after the wrapper itself was collected.
func (dispatcher) Finalize(id uint64, data Ptr, class uint64) {
	e, ok := lookup(id)
	if !ok {
		return
	}
	s := e.state
	obj, ok := s.objects.Detach(data)
	if !ok {
		return
	}
	defer obj.Drop()

	fc, ok := s.classes.Get(resource.Handle(class))
	if !ok || fc.Finalize == nil {
		return
	}
	s.guard("finalize", nil, false, func() { fc.Finalize(obj) })
}
