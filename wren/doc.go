// Package wren embeds the Wren scripting VM.
//
// The interpreter itself lives behind the Engine interface, a one-to-one
// rendition of the Wren 0.4 C API. This package owns everything on the host
// side of that boundary: VM lifetime, slots, handles, foreign objects and the
// trampolines the engine calls back into.
//
// # Creating a VM
//
//	cfg := wren.DefaultConfig()
//	cfg.Write = func(vm *wren.VM, text string) { fmt.Print(text) }
//	cfg.Bind(module) // any Binder, e.g. a generated binding.Module
//
//	vm, err := wren.New(engine, cfg)
//	if err != nil {
//	    return err
//	}
//	defer vm.Close()
//
//	err = vm.Interpret("main", `System.print("hello")`)
//
// # Lifetime
//
// A VM owns its handles and foreign objects. Close releases handles first,
// then frees the native VM (which finalizes remaining foreign objects), then
// clears the host tables. Every operation on a closed VM, a released handle or
// a finalized foreign object fails with an error for which errors.IsDisposed
// is true.
//
// The process-wide VM registry holds VMs weakly. A VM that becomes
// unreachable without Close is torn down by a runtime cleanup.
//
// # Callbacks
//
// Foreign methods receive the VM and work through slots: slot 0 holds the
// receiver and receives the return value, arguments follow in slots 1..n.
// Panics in callbacks are recovered; in foreign methods they abort the
// current fiber with the panic message.
//
// Callbacks that reference a VM, method or class the host no longer knows are
// ignored. This happens routinely while a VM is being freed.
package wren
