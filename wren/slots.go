package wren

import (
	"github.com/wippyai/wrenit/errors"
)

func (vm *VM) slot(slot int) (*vmState, error) {
	s, err := vm.live()
	if err != nil {
		return nil, err
	}
	if n := s.engine.GetSlotCount(s.ptr); slot < 0 || slot >= n {
		return nil, errors.OutOfBounds(errors.PhaseSlot, slot, n)
	}
	return s, nil
}

func (vm *VM) slots(slots ...int) (*vmState, error) {
	s, err := vm.live()
	if err != nil {
		return nil, err
	}
	n := s.engine.GetSlotCount(s.ptr)
	for _, slot := range slots {
		if slot < 0 || slot >= n {
			return nil, errors.OutOfBounds(errors.PhaseSlot, slot, n)
		}
	}
	return s, nil
}

func (vm *VM) typed(slot int, want ValueType) (*vmState, error) {
	s, err := vm.slot(slot)
	if err != nil {
		return nil, err
	}
	if got := s.engine.GetSlotType(s.ptr, slot); got != want {
		return nil, errors.TypeMismatch(slot, want.String(), got.String())
	}
	return s, nil
}

// EnsureSlots grows the slot array to hold at least n slots.
func (vm *VM) EnsureSlots(n int) error {
	s, err := vm.live()
	if err != nil {
		return err
	}
	if n < 0 {
		return errors.InvalidInput(errors.PhaseSlot, "negative slot count")
	}
	s.engine.EnsureSlots(s.ptr, n)
	return nil
}

// SlotCount returns the number of slots available.
func (vm *VM) SlotCount() (int, error) {
	s, err := vm.live()
	if err != nil {
		return 0, err
	}
	return s.engine.GetSlotCount(s.ptr), nil
}

// SlotType returns the type of the value in slot.
func (vm *VM) SlotType(slot int) (ValueType, error) {
	s, err := vm.slot(slot)
	if err != nil {
		return TypeUnknown, err
	}
	return s.engine.GetSlotType(s.ptr, slot), nil
}

func (vm *VM) SlotBool(slot int) (bool, error) {
	s, err := vm.typed(slot, TypeBool)
	if err != nil {
		return false, err
	}
	return s.engine.GetSlotBool(s.ptr, slot), nil
}

func (vm *VM) SetSlotBool(slot int, v bool) error {
	s, err := vm.slot(slot)
	if err != nil {
		return err
	}
	s.engine.SetSlotBool(s.ptr, slot, v)
	return nil
}

func (vm *VM) SlotDouble(slot int) (float64, error) {
	s, err := vm.typed(slot, TypeNum)
	if err != nil {
		return 0, err
	}
	return s.engine.GetSlotDouble(s.ptr, slot), nil
}

func (vm *VM) SetSlotDouble(slot int, v float64) error {
	s, err := vm.slot(slot)
	if err != nil {
		return err
	}
	s.engine.SetSlotDouble(s.ptr, slot, v)
	return nil
}

func (vm *VM) SlotString(slot int) (string, error) {
	s, err := vm.typed(slot, TypeString)
	if err != nil {
		return "", err
	}
	return s.engine.GetSlotString(s.ptr, slot), nil
}

func (vm *VM) SetSlotString(slot int, v string) error {
	s, err := vm.slot(slot)
	if err != nil {
		return err
	}
	s.engine.SetSlotString(s.ptr, slot, v)
	return nil
}

// SlotBytes returns a copy of the raw bytes of the string in slot.
func (vm *VM) SlotBytes(slot int) ([]byte, error) {
	s, err := vm.typed(slot, TypeString)
	if err != nil {
		return nil, err
	}
	b := s.engine.GetSlotBytes(s.ptr, slot)
	return append([]byte(nil), b...), nil
}

func (vm *VM) SetSlotBytes(slot int, v []byte) error {
	s, err := vm.slot(slot)
	if err != nil {
		return err
	}
	s.engine.SetSlotBytes(s.ptr, slot, v)
	return nil
}

func (vm *VM) SetSlotNull(slot int) error {
	s, err := vm.slot(slot)
	if err != nil {
		return err
	}
	s.engine.SetSlotNull(s.ptr, slot)
	return nil
}

// SlotHandle creates a handle for the value in slot. The handle keeps the
// value alive until it is released or the VM is closed.
func (vm *VM) SlotHandle(slot int) (*Handle, error) {
	s, err := vm.slot(slot)
	if err != nil {
		return nil, err
	}
	ptr := s.engine.GetSlotHandle(s.ptr, slot)
	h := &Handle{s: s, ptr: ptr}
	if err := s.handles.Register(ptr, h); err != nil {
		s.engine.ReleaseHandle(s.ptr, ptr)
		return nil, errors.Disposed(errors.PhaseSlot, "vm")
	}
	return h, nil
}

// SetSlotHandle stores the value behind h in slot.
func (vm *VM) SetSlotHandle(slot int, h *Handle) error {
	s, err := vm.slot(slot)
	if err != nil {
		return err
	}
	if err := h.check(s); err != nil {
		return err
	}
	s.engine.SetSlotHandle(s.ptr, slot, h.ptr)
	return nil
}

// SetSlotNewForeign creates an instance of the foreign class stored in
// classSlot, binds value to it and stores it in slot. It is meant to be
// called from a foreign class allocator.
func (vm *VM) SetSlotNewForeign(slot, classSlot int, value any) (*ForeignObject, error) {
	s, err := vm.slots(slot, classSlot)
	if err != nil {
		return nil, err
	}
	ptr := s.engine.SetSlotNewForeign(s.ptr, slot, classSlot, foreignBlockSize)
	if ptr == 0 {
		return nil, errors.InvalidOperation(errors.PhaseSlot, "slot does not hold a foreign class")
	}
	obj := &ForeignObject{s: s, ptr: ptr, value: value}
	if stale, ok := s.objects.Resolve(ptr); ok && stale != obj {
		s.log.Debug("foreign block reused", zapPtr(ptr))
	}
	if err := s.objects.Register(ptr, obj); err != nil {
		return nil, errors.Disposed(errors.PhaseSlot, "vm")
	}
	return obj, nil
}

// SlotForeign returns the foreign object in slot. It returns nil without an
// error if the block is not known to this VM.
func (vm *VM) SlotForeign(slot int) (*ForeignObject, error) {
	s, err := vm.typed(slot, TypeForeign)
	if err != nil {
		return nil, err
	}
	obj, ok := s.objects.Resolve(s.engine.GetSlotForeign(s.ptr, slot))
	if !ok {
		return nil, nil
	}
	return obj, nil
}

// SetSlotNewList stores a new empty list in slot.
func (vm *VM) SetSlotNewList(slot int) error {
	s, err := vm.slot(slot)
	if err != nil {
		return err
	}
	s.engine.SetSlotNewList(s.ptr, slot)
	return nil
}

// ListCount returns the number of elements of the list in slot.
func (vm *VM) ListCount(slot int) (int, error) {
	s, err := vm.typed(slot, TypeList)
	if err != nil {
		return 0, err
	}
	return s.engine.GetListCount(s.ptr, slot), nil
}

// listIndex validates index against the list in listSlot. Negative indexes
// count from the end; insert allows one past the last element.
func (vm *VM) listIndex(listSlot, index, elementSlot int, insert bool) (*vmState, error) {
	if _, err := vm.slot(elementSlot); err != nil {
		return nil, err
	}
	s, err := vm.typed(listSlot, TypeList)
	if err != nil {
		return nil, err
	}
	n := s.engine.GetListCount(s.ptr, listSlot)
	limit := n
	if insert {
		limit = n + 1
	}
	if index < -limit || index >= limit {
		return nil, errors.OutOfBounds(errors.PhaseSlot, index, n)
	}
	return s, nil
}

// ListElement copies element index of the list in listSlot into elementSlot.
func (vm *VM) ListElement(listSlot, index, elementSlot int) error {
	s, err := vm.listIndex(listSlot, index, elementSlot, false)
	if err != nil {
		return err
	}
	s.engine.GetListElement(s.ptr, listSlot, index, elementSlot)
	return nil
}

// SetListElement stores the value in elementSlot at index of the list in listSlot.
func (vm *VM) SetListElement(listSlot, index, elementSlot int) error {
	s, err := vm.listIndex(listSlot, index, elementSlot, false)
	if err != nil {
		return err
	}
	s.engine.SetListElement(s.ptr, listSlot, index, elementSlot)
	return nil
}

// InsertInList inserts the value in elementSlot at index of the list in
// listSlot. An index of -1 appends.
func (vm *VM) InsertInList(listSlot, index, elementSlot int) error {
	s, err := vm.listIndex(listSlot, index, elementSlot, true)
	if err != nil {
		return err
	}
	s.engine.InsertInList(s.ptr, listSlot, index, elementSlot)
	return nil
}

// SetSlotNewMap stores a new empty map in slot.
func (vm *VM) SetSlotNewMap(slot int) error {
	s, err := vm.slot(slot)
	if err != nil {
		return err
	}
	s.engine.SetSlotNewMap(s.ptr, slot)
	return nil
}

// MapCount returns the number of entries of the map in slot.
func (vm *VM) MapCount(slot int) (int, error) {
	s, err := vm.typed(slot, TypeMap)
	if err != nil {
		return 0, err
	}
	return s.engine.GetMapCount(s.ptr, slot), nil
}

func (vm *VM) mapSlots(mapSlot int, other ...int) (*vmState, error) {
	if _, err := vm.slots(other...); err != nil {
		return nil, err
	}
	return vm.typed(mapSlot, TypeMap)
}

// MapContainsKey reports whether the map in mapSlot has the key in keySlot.
func (vm *VM) MapContainsKey(mapSlot, keySlot int) (bool, error) {
	s, err := vm.mapSlots(mapSlot, keySlot)
	if err != nil {
		return false, err
	}
	return s.engine.GetMapContainsKey(s.ptr, mapSlot, keySlot), nil
}

// MapValue copies the value for the key in keySlot into valueSlot.
func (vm *VM) MapValue(mapSlot, keySlot, valueSlot int) error {
	s, err := vm.mapSlots(mapSlot, keySlot, valueSlot)
	if err != nil {
		return err
	}
	s.engine.GetMapValue(s.ptr, mapSlot, keySlot, valueSlot)
	return nil
}

// SetMapValue stores the value in valueSlot under the key in keySlot.
func (vm *VM) SetMapValue(mapSlot, keySlot, valueSlot int) error {
	s, err := vm.mapSlots(mapSlot, keySlot, valueSlot)
	if err != nil {
		return err
	}
	s.engine.SetMapValue(s.ptr, mapSlot, keySlot, valueSlot)
	return nil
}

// RemoveMapValue removes the key in keySlot and stores the removed value in
// removedSlot.
func (vm *VM) RemoveMapValue(mapSlot, keySlot, removedSlot int) error {
	s, err := vm.mapSlots(mapSlot, keySlot, removedSlot)
	if err != nil {
		return err
	}
	s.engine.RemoveMapValue(s.ptr, mapSlot, keySlot, removedSlot)
	return nil
}
