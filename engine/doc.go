// Package engine runs a Wren VM compiled to WebAssembly on wazero.
//
// WazeroEngine implements wren.Engine: each method calls the guest export
// of the same Wren C API function, copying strings and byte slices through
// the guest's malloc and free.
//
// # Guest ABI
//
// The guest is Wren built with a small C shim. Besides memory, malloc, free
// and the Wren API it must export:
//
//	wrenitNewVM(initialHeap, minHeap, growthPercent i32) -> vm i32
//
// which creates a VM whose WrenConfiguration callbacks forward to these host
// imports of module "wrenit". Every import receives the VM pointer first:
//
//	write(vm, text)
//	error(vm, type, module, line, message)
//	resolve_module(vm, importer, name) -> name   (0 fails the import)
//	load_module(vm, name) -> source              (0 when not found)
//	bind_method(vm, module, class, isStatic, signature) -> i64
//	bind_class(vm, module, class) -> i64
//	call_foreign(vm, method i64)
//	allocate(vm, class i64)
//	finalize(vm, data, class i64)
//
// Strings are NUL-terminated. Strings returned by resolve_module and
// load_module are allocated with the guest's malloc and owned by the guest.
// The i64 values are the host's user data and are passed back untouched.
//
// Guests that import wasi_snapshot_preview1 get wazero's WASI implementation
// with stdout and stderr taken from Config.
//
// # Thread Safety
//
// A WazeroEngine drives one single-threaded guest instance and must not be
// used from more than one goroutine at a time.
package engine
