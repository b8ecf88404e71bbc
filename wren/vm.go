package wren

import (
	stderrors "errors"
	"runtime"
	"sync"
	"sync/atomic"
	"weak"

	"go.uber.org/zap"

	"github.com/wippyai/wrenit/errors"
	"github.com/wippyai/wrenit/resource"
)

// foreignBlockSize is the size of the native block behind each foreign
// object. Go values live in the object table, keyed by the block address.
const foreignBlockSize = 8

// VM wraps one native Wren virtual machine.
//
// A VM is not safe for concurrent use. Callbacks run synchronously on the
// goroutine that called Interpret, Call or CollectGarbage.
type VM struct {
	s *vmState
}

// vmState is everything a VM owns. Handles and foreign objects point here
// rather than at the VM, so the wrapper can still be collected while they
// are reachable.
type vmState struct {
	engine  Engine
	config  *Config
	log     *zap.Logger
	handles *resource.Table[Ptr, *Handle]
	objects *resource.Table[Ptr, *ForeignObject]
	methods *resource.Arena[ForeignMethod]
	classes *resource.Arena[ForeignClass]
	cleanup runtime.Cleanup
	ptr     Ptr
	id      resource.Handle
	once    sync.Once
	closed  atomic.Bool
}

// vmEntry is the process-wide record of a VM. The wrapper is held weakly;
// the state stays registered until teardown so finalizers fired while the
// native VM is freed still resolve.
type vmEntry struct {
	vm    weak.Pointer[VM]
	state *vmState
}

var vms = resource.NewArena[*vmEntry](resource.NamespaceVM)

// ObserveVMs subscribes o to VM registration events across the process.
func ObserveVMs(o resource.Observer) {
	vms.Subscribe(o)
}

// LiveVMs returns the number of VMs that have not been torn down.
func LiveVMs() int {
	return vms.Len()
}

func lookup(id uint64) (*vmEntry, bool) {
	return vms.Get(resource.Handle(id))
}

// New creates a VM on engine. A nil config means DefaultConfig.
func New(engine Engine, config *Config) (*VM, error) {
	if engine == nil {
		return nil, errors.NotInitialized(errors.PhaseEngine, "engine")
	}
	if v := engine.Version(); v != VersionNumber {
		return nil, errors.Version(FormatVersion(v), VersionString)
	}

	cfg := config.clone()
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}

	s := &vmState{
		engine:  engine,
		config:  cfg,
		handles: resource.NewTable[Ptr, *Handle](resource.NamespaceHandle),
		objects: resource.NewTable[Ptr, *ForeignObject](resource.NamespaceForeignObject),
		methods: resource.NewArena[ForeignMethod](resource.NamespaceForeignMethod),
		classes: resource.NewArena[ForeignClass](resource.NamespaceForeignClass),
	}
	for _, o := range cfg.Observers {
		s.handles.Subscribe(o)
		s.objects.Subscribe(o)
		s.methods.Subscribe(o)
		s.classes.Subscribe(o)
	}

	vm := &VM{s: s}
	id, err := vms.Insert(&vmEntry{vm: weak.Make(vm), state: s})
	if err != nil {
		return nil, errors.Registration(errors.PhaseRuntime, "wren", "vm", err)
	}
	s.id = id
	s.log = log.With(zap.Uint64("vm", uint64(id)))

	ptr, err := engine.NewVM(cfg.native(uint64(id)), dispatcher{})
	if err != nil {
		vms.Remove(id)
		return nil, errors.Wrap(errors.PhaseEngine, errors.KindNotInitialized, err, "create native vm")
	}
	s.ptr = ptr
	s.cleanup = runtime.AddCleanup(vm, (*vmState).collected, s)

	s.log.Debug("vm created", zap.Uint64("ptr", uint64(ptr)))
	return vm, nil
}

func (s *vmState) collected() {
	if s.closed.Load() {
		return
	}
	s.log.Warn("vm collected without Close")
	s.teardown()
}

// teardown releases handles, then the native VM, then the host tables.
// The native VM invalidates handles when it is freed, so they go first.
func (s *vmState) teardown() {
	s.once.Do(func() {
		s.closed.Store(true)

		for _, h := range s.handles.Keys() {
			s.engine.ReleaseHandle(s.ptr, h)
		}
		s.handles.Close()

		s.engine.FreeVM(s.ptr)

		vms.Remove(s.id)
		s.objects.Close()
		s.methods.Close()
		s.classes.Close()

		s.log.Debug("vm closed")
	})
}

// Close frees the VM and everything it owns. It is safe to call more than once.
func (vm *VM) Close() error {
	if vm == nil || vm.s == nil {
		return nil
	}
	vm.s.cleanup.Stop()
	vm.s.teardown()
	return nil
}

// Alive reports whether the VM has not been closed.
func (vm *VM) Alive() bool {
	return vm != nil && vm.s != nil && !vm.s.closed.Load()
}

// ID returns the process-wide id of the VM, as passed to native callbacks.
func (vm *VM) ID() uint64 {
	if vm == nil || vm.s == nil {
		return 0
	}
	return uint64(vm.s.id)
}

// Logger returns the VM's logger.
func (vm *VM) Logger() *zap.Logger {
	if vm == nil || vm.s == nil {
		return Logger()
	}
	return vm.s.log
}

// LiveHandles returns the number of unreleased handles.
func (vm *VM) LiveHandles() int {
	if !vm.Alive() {
		return 0
	}
	return vm.s.handles.Len()
}

// LiveObjects returns the number of foreign objects not yet finalized.
func (vm *VM) LiveObjects() int {
	if !vm.Alive() {
		return 0
	}
	return vm.s.objects.Len()
}

func (vm *VM) live() (*vmState, error) {
	if !vm.Alive() {
		return nil, errors.Disposed(errors.PhaseRuntime, "vm")
	}
	return vm.s, nil
}

// Interpret runs source in the context of module. Compile and runtime errors
// are reported through the error callback and returned as KindCompile or
// KindRuntime errors.
func (vm *VM) Interpret(module, source string) error {
	s, err := vm.live()
	if err != nil {
		return err
	}
	return resultError(module, s.engine.Interpret(s.ptr, module, source))
}

// CollectGarbage runs a full collection cycle.
func (vm *VM) CollectGarbage() error {
	s, err := vm.live()
	if err != nil {
		return err
	}
	s.engine.CollectGarbage(s.ptr)
	return nil
}

// HasModule reports whether module has been imported or interpreted.
func (vm *VM) HasModule(module string) (bool, error) {
	s, err := vm.live()
	if err != nil {
		return false, err
	}
	return s.engine.HasModule(s.ptr, module), nil
}

// HasVariable reports whether module defines a top-level variable name.
func (vm *VM) HasVariable(module, name string) (bool, error) {
	s, err := vm.live()
	if err != nil {
		return false, err
	}
	if !s.engine.HasModule(s.ptr, module) {
		return false, nil
	}
	return s.engine.HasVariable(s.ptr, module, name), nil
}

// GetVariable loads the top-level variable name of module into slot.
func (vm *VM) GetVariable(module, name string, slot int) error {
	s, err := vm.slot(slot)
	if err != nil {
		return err
	}
	if !s.engine.HasModule(s.ptr, module) {
		return errors.NotFound(errors.PhaseRuntime, "module", module)
	}
	if !s.engine.HasVariable(s.ptr, module, name) {
		return errors.New(errors.PhaseRuntime, errors.KindNotFound).
			Path(module, name).
			Detail("variable %q not found in module %q", name, module).
			Build()
	}
	s.engine.GetVariable(s.ptr, module, name, slot)
	return nil
}

// AbortFiber aborts the current fiber with the error stored in slot.
func (vm *VM) AbortFiber(slot int) error {
	s, err := vm.slot(slot)
	if err != nil {
		return err
	}
	s.engine.AbortFiber(s.ptr, slot)
	return nil
}

// Abort aborts the current fiber with msg, using slot 0.
func (vm *VM) Abort(msg string) error {
	s, err := vm.live()
	if err != nil {
		return err
	}
	if s.engine.GetSlotCount(s.ptr) < 1 {
		s.engine.EnsureSlots(s.ptr, 1)
	}
	s.engine.SetSlotString(s.ptr, 0, msg)
	s.engine.AbortFiber(s.ptr, 0)
	return nil
}

// MakeCallHandle creates a handle that invokes the method with the given
// binding signature, e.g. "load(_)" or "path".
func (vm *VM) MakeCallHandle(signature string) (*CallHandle, error) {
	s, err := vm.live()
	if err != nil {
		return nil, err
	}
	if signature == "" {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "empty call signature")
	}
	ptr := s.engine.MakeCallHandle(s.ptr, signature)
	if ptr == 0 {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "invalid call signature "+signature)
	}
	h := &CallHandle{Handle: Handle{s: s, ptr: ptr}, signature: signature}
	if err := s.handles.Register(ptr, &h.Handle); err != nil {
		s.engine.ReleaseHandle(s.ptr, ptr)
		return nil, errors.Disposed(errors.PhaseRuntime, "vm")
	}
	return h, nil
}

// Call invokes a call handle. The receiver goes in slot 0 and the arguments
// in the following slots; the return value is left in slot 0.
func (vm *VM) Call(h *CallHandle) error {
	s, err := vm.live()
	if err != nil {
		return err
	}
	if err := h.check(s); err != nil {
		return err
	}
	return resultError(h.signature, s.engine.Call(s.ptr, h.ptr))
}

func resultError(where string, r InterpretResult) error {
	switch r {
	case ResultSuccess:
		return nil
	case ResultCompileError:
		return errors.New(errors.PhaseRuntime, errors.KindCompile).Path(where).Value(r).Build()
	default:
		return errors.New(errors.PhaseRuntime, errors.KindRuntime).Path(where).Value(r).Build()
	}
}

// ResultOf maps an error returned by Interpret or Call back to an InterpretResult.
func ResultOf(err error) InterpretResult {
	if err == nil {
		return ResultSuccess
	}
	var e *errors.Error
	if stderrors.As(err, &e) {
		switch e.Kind {
		case errors.KindCompile:
			return ResultCompileError
		case errors.KindRuntime:
			return ResultRuntimeError
		}
	}
	return ResultRuntimeError
}
