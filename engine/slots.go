package engine

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wrenit/wren"
)

func (e *WazeroEngine) GetSlotCount(vm wren.Ptr) int {
	return int(api.DecodeI32(e.invoke("wrenGetSlotCount", ptr(vm))))
}

func (e *WazeroEngine) EnsureSlots(vm wren.Ptr, n int) {
	e.invoke("wrenEnsureSlots", ptr(vm), i32(n))
}

func (e *WazeroEngine) GetSlotType(vm wren.Ptr, slot int) wren.ValueType {
	return wren.ValueType(api.DecodeI32(e.invoke("wrenGetSlotType", ptr(vm), i32(slot))))
}

func (e *WazeroEngine) GetSlotBool(vm wren.Ptr, slot int) bool {
	return e.invoke("wrenGetSlotBool", ptr(vm), i32(slot)) != 0
}

// GetSlotBytes passes the guest a scratch word to receive the length.
func (e *WazeroEngine) GetSlotBytes(vm wren.Ptr, slot int) []byte {
	lenPtr := e.alloc(4)
	if lenPtr == 0 {
		return nil
	}
	defer e.free(lenPtr)

	data := uint32(e.invoke("wrenGetSlotBytes", ptr(vm), i32(slot), api.EncodeU32(lenPtr)))
	n, ok := e.guest.Memory().ReadUint32Le(lenPtr)
	if !ok {
		return nil
	}
	return e.readBytes(data, n)
}

func (e *WazeroEngine) GetSlotDouble(vm wren.Ptr, slot int) float64 {
	return api.DecodeF64(e.invoke("wrenGetSlotDouble", ptr(vm), i32(slot)))
}

func (e *WazeroEngine) GetSlotForeign(vm wren.Ptr, slot int) wren.Ptr {
	return wren.Ptr(uint32(e.invoke("wrenGetSlotForeign", ptr(vm), i32(slot))))
}

func (e *WazeroEngine) GetSlotString(vm wren.Ptr, slot int) string {
	return e.readString(uint32(e.invoke("wrenGetSlotString", ptr(vm), i32(slot))))
}

func (e *WazeroEngine) GetSlotHandle(vm wren.Ptr, slot int) wren.Ptr {
	return wren.Ptr(uint32(e.invoke("wrenGetSlotHandle", ptr(vm), i32(slot))))
}

func (e *WazeroEngine) SetSlotBool(vm wren.Ptr, slot int, value bool) {
	var v uint64
	if value {
		v = 1
	}
	e.invoke("wrenSetSlotBool", ptr(vm), i32(slot), v)
}

func (e *WazeroEngine) SetSlotBytes(vm wren.Ptr, slot int, value []byte) {
	data := e.alloc(uint32(len(value)))
	if data == 0 {
		return
	}
	defer e.free(data)
	if !e.guest.Memory().Write(data, value) {
		return
	}
	e.invoke("wrenSetSlotBytes", ptr(vm), i32(slot), api.EncodeU32(data), api.EncodeU32(uint32(len(value))))
}

func (e *WazeroEngine) SetSlotDouble(vm wren.Ptr, slot int, value float64) {
	e.invoke("wrenSetSlotDouble", ptr(vm), i32(slot), api.EncodeF64(value))
}

func (e *WazeroEngine) SetSlotNewForeign(vm wren.Ptr, slot, classSlot int, size int) wren.Ptr {
	return wren.Ptr(uint32(e.invoke("wrenSetSlotNewForeign", ptr(vm), i32(slot), i32(classSlot), i32(size))))
}

func (e *WazeroEngine) SetSlotNewList(vm wren.Ptr, slot int) {
	e.invoke("wrenSetSlotNewList", ptr(vm), i32(slot))
}

func (e *WazeroEngine) SetSlotNewMap(vm wren.Ptr, slot int) {
	e.invoke("wrenSetSlotNewMap", ptr(vm), i32(slot))
}

func (e *WazeroEngine) SetSlotNull(vm wren.Ptr, slot int) {
	e.invoke("wrenSetSlotNull", ptr(vm), i32(slot))
}

func (e *WazeroEngine) SetSlotString(vm wren.Ptr, slot int, value string) {
	s := e.cstring(value)
	if s == 0 {
		return
	}
	defer e.free(s)
	e.invoke("wrenSetSlotString", ptr(vm), i32(slot), api.EncodeU32(s))
}

func (e *WazeroEngine) SetSlotHandle(vm wren.Ptr, slot int, handle wren.Ptr) {
	e.invoke("wrenSetSlotHandle", ptr(vm), i32(slot), ptr(handle))
}

func (e *WazeroEngine) GetListCount(vm wren.Ptr, slot int) int {
	return int(api.DecodeI32(e.invoke("wrenGetListCount", ptr(vm), i32(slot))))
}

func (e *WazeroEngine) GetListElement(vm wren.Ptr, listSlot, index, elementSlot int) {
	e.invoke("wrenGetListElement", ptr(vm), i32(listSlot), i32(index), i32(elementSlot))
}

func (e *WazeroEngine) SetListElement(vm wren.Ptr, listSlot, index, elementSlot int) {
	e.invoke("wrenSetListElement", ptr(vm), i32(listSlot), i32(index), i32(elementSlot))
}

func (e *WazeroEngine) InsertInList(vm wren.Ptr, listSlot, index, elementSlot int) {
	e.invoke("wrenInsertInList", ptr(vm), i32(listSlot), i32(index), i32(elementSlot))
}

func (e *WazeroEngine) GetMapCount(vm wren.Ptr, slot int) int {
	return int(api.DecodeI32(e.invoke("wrenGetMapCount", ptr(vm), i32(slot))))
}

func (e *WazeroEngine) GetMapContainsKey(vm wren.Ptr, mapSlot, keySlot int) bool {
	return e.invoke("wrenGetMapContainsKey", ptr(vm), i32(mapSlot), i32(keySlot)) != 0
}

func (e *WazeroEngine) GetMapValue(vm wren.Ptr, mapSlot, keySlot, valueSlot int) {
	e.invoke("wrenGetMapValue", ptr(vm), i32(mapSlot), i32(keySlot), i32(valueSlot))
}

func (e *WazeroEngine) SetMapValue(vm wren.Ptr, mapSlot, keySlot, valueSlot int) {
	e.invoke("wrenSetMapValue", ptr(vm), i32(mapSlot), i32(keySlot), i32(valueSlot))
}

func (e *WazeroEngine) RemoveMapValue(vm wren.Ptr, mapSlot, keySlot, removedValueSlot int) {
	e.invoke("wrenRemoveMapValue", ptr(vm), i32(mapSlot), i32(keySlot), i32(removedValueSlot))
}
