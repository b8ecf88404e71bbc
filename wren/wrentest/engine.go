package wrentest

import (
	"strings"
	"sync"

	"github.com/wippyai/wrenit/wren"
)

// Engine is an in-memory wren.Engine for tests.
type Engine struct {
	// VersionOverride, when non-zero, is reported instead of wren.VersionNumber.
	VersionOverride int
	// NewVMError, when set, makes NewVM fail.
	NewVMError error

	vms  map[wren.Ptr]*machine
	next wren.Ptr
	mu   sync.Mutex
}

var _ wren.Engine = (*Engine)(nil)

// New returns an engine with no VMs.
func New() *Engine {
	return &Engine{vms: make(map[wren.Ptr]*machine), next: 0x10}
}

func (e *Engine) m(vm wren.Ptr) *machine {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.vms[vm]; ok {
		return m
	}
	// Unknown VMs get a detached machine so calls stay harmless.
	return newMachine(nopHost{}, 0)
}

// Machines returns the number of VMs not yet freed.
func (e *Engine) Machines() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.vms)
}

// Blocks returns the number of live foreign instances in vm.
func (e *Engine) Blocks(vm wren.Ptr) int {
	return len(e.m(vm).instances)
}

// Handles returns the number of unreleased handles in vm.
func (e *Engine) Handles(vm wren.Ptr) int {
	return len(e.m(vm).handles)
}

func (e *Engine) Version() int {
	if e.VersionOverride != 0 {
		return e.VersionOverride
	}
	return wren.VersionNumber
}

func (e *Engine) NewVM(cfg wren.NativeConfig, host wren.Host) (wren.Ptr, error) {
	if e.NewVMError != nil {
		return 0, e.NewVMError
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.vms == nil {
		e.vms = make(map[wren.Ptr]*machine)
	}
	e.next += 0x10
	e.vms[e.next] = newMachine(host, cfg.UserData)
	return e.next, nil
}

func (e *Engine) FreeVM(vm wren.Ptr) {
	e.mu.Lock()
	m, ok := e.vms[vm]
	e.mu.Unlock()
	if !ok {
		return
	}
	m.freeAll()
	e.mu.Lock()
	delete(e.vms, vm)
	e.mu.Unlock()
}

func (e *Engine) CollectGarbage(vm wren.Ptr) {
	e.m(vm).collect()
}

func (e *Engine) Interpret(vm wren.Ptr, module, source string) wren.InterpretResult {
	return e.m(vm).interpret(module, source)
}

func (e *Engine) MakeCallHandle(vm wren.Ptr, signature string) wren.Ptr {
	if signature == "" || strings.ContainsAny(signature, " \t\n") {
		return 0
	}
	sig := &callSig{signature: signature, arity: strings.Count(signature, "_")}
	return e.m(vm).newHandle(sig)
}

func (e *Engine) Call(vm wren.Ptr, method wren.Ptr) wren.InterpretResult {
	return e.m(vm).call(method)
}

func (e *Engine) ReleaseHandle(vm wren.Ptr, handle wren.Ptr) {
	delete(e.m(vm).handles, handle)
}

func (e *Engine) GetSlotCount(vm wren.Ptr) int {
	return len(e.m(vm).slots)
}

func (e *Engine) EnsureSlots(vm wren.Ptr, n int) {
	e.m(vm).ensure(n)
}

func (e *Engine) GetSlotType(vm wren.Ptr, slot int) wren.ValueType {
	switch e.m(vm).slot(slot).(type) {
	case nil:
		return wren.TypeNull
	case bool:
		return wren.TypeBool
	case float64:
		return wren.TypeNum
	case string:
		return wren.TypeString
	case *list:
		return wren.TypeList
	case *mapObj:
		return wren.TypeMap
	case *instance:
		return wren.TypeForeign
	}
	return wren.TypeUnknown
}

func (e *Engine) GetSlotBool(vm wren.Ptr, slot int) bool {
	b, _ := e.m(vm).slot(slot).(bool)
	return b
}

func (e *Engine) GetSlotBytes(vm wren.Ptr, slot int) []byte {
	s, _ := e.m(vm).slot(slot).(string)
	return []byte(s)
}

func (e *Engine) GetSlotDouble(vm wren.Ptr, slot int) float64 {
	f, _ := e.m(vm).slot(slot).(float64)
	return f
}

func (e *Engine) GetSlotForeign(vm wren.Ptr, slot int) wren.Ptr {
	if inst, ok := e.m(vm).slot(slot).(*instance); ok {
		return inst.ptr
	}
	return 0
}

func (e *Engine) GetSlotString(vm wren.Ptr, slot int) string {
	s, _ := e.m(vm).slot(slot).(string)
	return s
}

func (e *Engine) GetSlotHandle(vm wren.Ptr, slot int) wren.Ptr {
	m := e.m(vm)
	return m.newHandle(m.slot(slot))
}

func (e *Engine) SetSlotBool(vm wren.Ptr, slot int, value bool) {
	e.m(vm).setSlot(slot, value)
}

func (e *Engine) SetSlotBytes(vm wren.Ptr, slot int, value []byte) {
	e.m(vm).setSlot(slot, string(value))
}

func (e *Engine) SetSlotDouble(vm wren.Ptr, slot int, value float64) {
	e.m(vm).setSlot(slot, value)
}

func (e *Engine) SetSlotNewForeign(vm wren.Ptr, slot, classSlot int, size int) wren.Ptr {
	m := e.m(vm)
	c, ok := m.slot(classSlot).(*class)
	if !ok || !c.foreign || size < 0 {
		return 0
	}
	inst := &instance{class: c, ptr: m.allocBlock()}
	m.instances[inst.ptr] = inst
	m.setSlot(slot, inst)
	return inst.ptr
}

func (e *Engine) SetSlotNewList(vm wren.Ptr, slot int) {
	e.m(vm).setSlot(slot, &list{})
}

func (e *Engine) SetSlotNewMap(vm wren.Ptr, slot int) {
	e.m(vm).setSlot(slot, newMap())
}

func (e *Engine) SetSlotNull(vm wren.Ptr, slot int) {
	e.m(vm).setSlot(slot, nil)
}

func (e *Engine) SetSlotString(vm wren.Ptr, slot int, value string) {
	e.m(vm).setSlot(slot, value)
}

func (e *Engine) SetSlotHandle(vm wren.Ptr, slot int, handle wren.Ptr) {
	m := e.m(vm)
	m.setSlot(slot, m.handles[handle])
}

func (e *Engine) listAt(m *machine, slot int) *list {
	l, _ := m.slot(slot).(*list)
	if l == nil {
		return &list{}
	}
	return l
}

func (e *Engine) GetListCount(vm wren.Ptr, slot int) int {
	return len(e.listAt(e.m(vm), slot).items)
}

func normalize(index, n int) int {
	if index < 0 {
		return n + index
	}
	return index
}

func (e *Engine) GetListElement(vm wren.Ptr, listSlot, index, elementSlot int) {
	m := e.m(vm)
	l := e.listAt(m, listSlot)
	if i := normalize(index, len(l.items)); i >= 0 && i < len(l.items) {
		m.setSlot(elementSlot, l.items[i])
	}
}

func (e *Engine) SetListElement(vm wren.Ptr, listSlot, index, elementSlot int) {
	m := e.m(vm)
	l := e.listAt(m, listSlot)
	if i := normalize(index, len(l.items)); i >= 0 && i < len(l.items) {
		l.items[i] = m.slot(elementSlot)
	}
}

func (e *Engine) InsertInList(vm wren.Ptr, listSlot, index, elementSlot int) {
	m := e.m(vm)
	l := e.listAt(m, listSlot)
	i := normalize(index, len(l.items)+1)
	if i < 0 || i > len(l.items) {
		return
	}
	l.items = append(l.items, nil)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = m.slot(elementSlot)
}

func (e *Engine) mapAt(m *machine, slot int) *mapObj {
	mp, _ := m.slot(slot).(*mapObj)
	if mp == nil {
		return newMap()
	}
	return mp
}

func (e *Engine) GetMapCount(vm wren.Ptr, slot int) int {
	return len(e.mapAt(e.m(vm), slot).keys)
}

func (e *Engine) GetMapContainsKey(vm wren.Ptr, mapSlot, keySlot int) bool {
	m := e.m(vm)
	_, ok := e.mapAt(m, mapSlot).vals[m.slot(keySlot)]
	return ok
}

func (e *Engine) GetMapValue(vm wren.Ptr, mapSlot, keySlot, valueSlot int) {
	m := e.m(vm)
	m.setSlot(valueSlot, e.mapAt(m, mapSlot).vals[m.slot(keySlot)])
}

func (e *Engine) SetMapValue(vm wren.Ptr, mapSlot, keySlot, valueSlot int) {
	m := e.m(vm)
	key := m.slot(keySlot)
	if !validKey(key) {
		return
	}
	e.mapAt(m, mapSlot).set(key, m.slot(valueSlot))
}

func (e *Engine) RemoveMapValue(vm wren.Ptr, mapSlot, keySlot, removedValueSlot int) {
	m := e.m(vm)
	m.setSlot(removedValueSlot, e.mapAt(m, mapSlot).remove(m.slot(keySlot)))
}

func (e *Engine) GetVariable(vm wren.Ptr, module, name string, slot int) {
	m := e.m(vm)
	if mod, ok := m.modules[module]; ok {
		m.setSlot(slot, mod.vars[name])
	}
}

func (e *Engine) HasVariable(vm wren.Ptr, module, name string) bool {
	mod, ok := e.m(vm).modules[module]
	if !ok {
		return false
	}
	_, ok = mod.vars[name]
	return ok
}

func (e *Engine) HasModule(vm wren.Ptr, module string) bool {
	_, ok := e.m(vm).modules[module]
	return ok
}

func (e *Engine) AbortFiber(vm wren.Ptr, slot int) {
	m := e.m(vm)
	if v := m.slot(slot); v != nil {
		m.aborted = true
		m.abort = v
	}
}

type nopHost struct{}

func (nopHost) Write(uint64, string) {}
func (nopHost) Error(uint64, wren.ErrorType, string, int, string) {}
func (nopHost) ResolveModule(_ uint64, _, name string) (string, bool) { return name, true }
func (nopHost) LoadModule(uint64, string) (string, bool) { return "", false }
func (nopHost) BindForeignMethod(uint64, string, string, bool, string) uint64 { return 0 }
func (nopHost) BindForeignClass(uint64, string, string) uint64 { return 0 }
func (nopHost) CallForeign(uint64, uint64) {}
func (nopHost) Allocate(uint64, uint64) {}
func (nopHost) Finalize(uint64, wren.Ptr, uint64) {}
