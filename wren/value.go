package wren

import (
	"fmt"
	"sort"

	"github.com/spf13/cast"

	"github.com/wippyai/wrenit/errors"
)

// SlotInt returns the number in slot converted to an int.
func (vm *VM) SlotInt(slot int) (int, error) {
	f, err := vm.SlotDouble(slot)
	if err != nil {
		return 0, err
	}
	return cast.ToIntE(f)
}

// SetSlotInt stores n in slot as a number.
func (vm *VM) SetSlotInt(slot int, n int) error {
	return vm.SetSlotDouble(slot, float64(n))
}

// SlotValue converts the value in slot to Go:
//
//	bool      -> bool
//	num       -> float64
//	string    -> string
//	null      -> nil
//	list      -> []any (elements converted recursively)
//	foreign   -> *ForeignObject (nil if unknown to this VM)
//	map/other -> *Handle, which the caller must release
func (vm *VM) SlotValue(slot int) (any, error) {
	t, err := vm.SlotType(slot)
	if err != nil {
		return nil, err
	}
	switch t {
	case TypeBool:
		return vm.SlotBool(slot)
	case TypeNum:
		return vm.SlotDouble(slot)
	case TypeString:
		return vm.SlotString(slot)
	case TypeNull:
		return nil, nil
	case TypeForeign:
		return vm.SlotForeign(slot)
	case TypeList:
		return vm.slotList(slot)
	default:
		return vm.SlotHandle(slot)
	}
}

func (vm *VM) slotList(slot int) ([]any, error) {
	n, err := vm.ListCount(slot)
	if err != nil {
		return nil, err
	}
	tmp, err := vm.scratchSlot()
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		if err := vm.ListElement(slot, i, tmp); err != nil {
			return nil, err
		}
		v, err := vm.SlotValue(tmp)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// scratchSlot grows the slot array by one and returns the new slot.
func (vm *VM) scratchSlot() (int, error) {
	n, err := vm.SlotCount()
	if err != nil {
		return 0, err
	}
	if err := vm.EnsureSlots(n + 1); err != nil {
		return 0, err
	}
	return n, nil
}

// SetSlotValue stores a Go value in slot. Numeric kinds are converted with
// cast; slices and string-keyed maps become Wren lists and maps. A
// *ForeignObject cannot be stored directly: keep a Handle to the instance
// and store that.
func (vm *VM) SetSlotValue(slot int, v any) error {
	if _, err := vm.live(); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		return vm.SetSlotNull(slot)
	case bool:
		return vm.SetSlotBool(slot, x)
	case string:
		return vm.SetSlotString(slot, x)
	case []byte:
		return vm.SetSlotBytes(slot, x)
	case *Handle:
		return vm.SetSlotHandle(slot, x)
	case *CallHandle:
		return vm.SetSlotHandle(slot, &x.Handle)
	case *ForeignObject:
		return errors.New(errors.PhaseSlot, errors.KindInvalidOperation).
			Value(slot).
			Detail("foreign objects are stored through a handle to the instance").
			Build()
	case []any:
		return vm.setSlotList(slot, x)
	case []string:
		items := make([]any, len(x))
		for i, s := range x {
			items[i] = s
		}
		return vm.setSlotList(slot, items)
	case map[string]any:
		return vm.setSlotMap(slot, x)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		f, err := cast.ToFloat64E(x)
		if err != nil {
			return errors.Wrap(errors.PhaseSlot, errors.KindTypeMismatch, err, "convert number")
		}
		return vm.SetSlotDouble(slot, f)
	default:
		s, err := cast.ToStringE(v)
		if err != nil {
			return errors.Unsupported(errors.PhaseSlot, fmt.Sprintf("cannot store %T in a slot", v))
		}
		return vm.SetSlotString(slot, s)
	}
}

func (vm *VM) setSlotList(slot int, items []any) error {
	if err := vm.SetSlotNewList(slot); err != nil {
		return err
	}
	tmp, err := vm.scratchSlot()
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := vm.SetSlotValue(tmp, item); err != nil {
			return err
		}
		if err := vm.InsertInList(slot, -1, tmp); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) setSlotMap(slot int, m map[string]any) error {
	if err := vm.SetSlotNewMap(slot); err != nil {
		return err
	}
	n, err := vm.SlotCount()
	if err != nil {
		return err
	}
	if err := vm.EnsureSlots(n + 2); err != nil {
		return err
	}
	keySlot, valueSlot := n, n+1

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := vm.SetSlotString(keySlot, k); err != nil {
			return err
		}
		if err := vm.SetSlotValue(valueSlot, m[k]); err != nil {
			return err
		}
		if err := vm.SetMapValue(slot, keySlot, valueSlot); err != nil {
			return err
		}
	}
	return nil
}
