package wren

// NativeConfig is the part of Config the native VM consumes directly.
type NativeConfig struct {
	InitialHeapSize   int
	MinHeapSize       int
	HeapGrowthPercent int
	// UserData identifies the VM in every Host callback.
	UserData uint64
}

// Host is the set of trampolines a native engine calls into. Calls arrive
// synchronously from within Interpret, Call, CollectGarbage or FreeVM, and
// identify the VM by the UserData it was created with.
//
// Implementations never panic and treat ids they cannot resolve as no-ops.
type Host interface {
	Write(vm uint64, text string)
	Error(vm uint64, kind ErrorType, module string, line int, message string)
	// ResolveModule canonicalizes an import name. Returning false fails the import.
	ResolveModule(vm uint64, importer, name string) (string, bool)
	// LoadModule returns the source of a module, or false if no loader has it.
	LoadModule(vm uint64, name string) (string, bool)
	// BindForeignMethod returns the user data to pass to CallForeign, 0 if unbound.
	BindForeignMethod(vm uint64, module, className string, isStatic bool, signature string) uint64
	// BindForeignClass returns the user data to pass to Allocate and Finalize, 0 if unbound.
	BindForeignClass(vm uint64, module, className string) uint64
	CallForeign(vm uint64, method uint64)
	Allocate(vm uint64, class uint64)
	Finalize(vm uint64, data Ptr, class uint64)
}

// Engine is the native Wren C API, one method per API function.
// Pointers are opaque to callers. Slot, list and map indexes are trusted:
// the VM validates them before calling into the engine.
type Engine interface {
	Version() int

	NewVM(cfg NativeConfig, host Host) (Ptr, error)
	FreeVM(vm Ptr)
	CollectGarbage(vm Ptr)
	Interpret(vm Ptr, module, source string) InterpretResult

	MakeCallHandle(vm Ptr, signature string) Ptr
	Call(vm Ptr, method Ptr) InterpretResult
	ReleaseHandle(vm Ptr, handle Ptr)

	GetSlotCount(vm Ptr) int
	EnsureSlots(vm Ptr, n int)
	GetSlotType(vm Ptr, slot int) ValueType

	GetSlotBool(vm Ptr, slot int) bool
	GetSlotBytes(vm Ptr, slot int) []byte
	GetSlotDouble(vm Ptr, slot int) float64
	GetSlotForeign(vm Ptr, slot int) Ptr
	GetSlotString(vm Ptr, slot int) string
	GetSlotHandle(vm Ptr, slot int) Ptr

	SetSlotBool(vm Ptr, slot int, value bool)
	SetSlotBytes(vm Ptr, slot int, value []byte)
	SetSlotDouble(vm Ptr, slot int, value float64)
	SetSlotNewForeign(vm Ptr, slot, classSlot int, size int) Ptr
	SetSlotNewList(vm Ptr, slot int)
	SetSlotNewMap(vm Ptr, slot int)
	SetSlotNull(vm Ptr, slot int)
	SetSlotString(vm Ptr, slot int, value string)
	SetSlotHandle(vm Ptr, slot int, handle Ptr)

	GetListCount(vm Ptr, slot int) int
	GetListElement(vm Ptr, listSlot, index, elementSlot int)
	SetListElement(vm Ptr, listSlot, index, elementSlot int)
	InsertInList(vm Ptr, listSlot, index, elementSlot int)

	GetMapCount(vm Ptr, slot int) int
	GetMapContainsKey(vm Ptr, mapSlot, keySlot int) bool
	GetMapValue(vm Ptr, mapSlot, keySlot, valueSlot int)
	SetMapValue(vm Ptr, mapSlot, keySlot, valueSlot int)
	RemoveMapValue(vm Ptr, mapSlot, keySlot, removedValueSlot int)

	GetVariable(vm Ptr, module, name string, slot int)
	HasVariable(vm Ptr, module, name string) bool
	HasModule(vm Ptr, module string) bool
	AbortFiber(vm Ptr, slot int)
}
