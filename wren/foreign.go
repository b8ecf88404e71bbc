package wren

import (
	"fmt"
	"sync"

	"github.com/wippyai/wrenit/errors"
)

// ForeignObject is the Go side of a foreign class instance. The VM owns the
// native block; the object lives in the VM's object table, keyed by the block
// address, until the VM finalizes the instance.
type ForeignObject struct {
	value   any
	s       *vmState
	ptr     Ptr
	mu      sync.RWMutex
	dropped bool
}

// Ptr returns the address of the native block.
func (o *ForeignObject) Ptr() Ptr {
	return o.ptr
}

// Alive reports whether the object has not been finalized or dropped.
func (o *ForeignObject) Alive() bool {
	if o == nil {
		return false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return !o.dropped
}

// Data returns the Go value bound to the object.
func (o *ForeignObject) Data() (any, error) {
	if o == nil {
		return nil, errors.Disposed(errors.PhaseRuntime, "foreign object")
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.dropped {
		return nil, errors.Disposed(errors.PhaseRuntime, "foreign object")
	}
	return o.value, nil
}

// SetData replaces the Go value bound to the object.
func (o *ForeignObject) SetData(v any) error {
	if o == nil {
		return errors.Disposed(errors.PhaseRuntime, "foreign object")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.dropped {
		return errors.Disposed(errors.PhaseRuntime, "foreign object")
	}
	o.value = v
	return nil
}

// Drop invalidates the object.
func (o *ForeignObject) Drop() {
	o.mu.Lock()
	o.dropped = true
	o.value = nil
	o.mu.Unlock()
}

// ForeignData returns the value bound to obj as a T.
func ForeignData[T any](obj *ForeignObject) (T, error) {
	var zero T
	v, err := obj.Data()
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
			Value(v).
			Detail("foreign data is %T, not %s", v, fmt.Sprintf("%T", zero)).
			Build()
	}
	return t, nil
}

// SlotForeignData reads the foreign object in slot and returns its value as a T.
func SlotForeignData[T any](vm *VM, slot int) (T, error) {
	var zero T
	obj, err := vm.SlotForeign(slot)
	if err != nil {
		return zero, err
	}
	if obj == nil {
		return zero, errors.New(errors.PhaseSlot, errors.KindNotFound).
			Value(slot).
			Detail("slot %d holds a foreign object unknown to this vm", slot).
			Build()
	}
	return ForeignData[T](obj)
}
