// Package wrenit hosts the Wren scripting language in Go.
//
// Go types describe Wren modules; wrenit generates their source, binds their
// foreign methods and classes, and tracks every handle and foreign object a
// VM hands out.
//
// # Packages
//
//	wrenit/
//	├── wren/        VM wrapper: slots, handles, foreign objects, callbacks
//	│   └── wrentest/  in-process engine understanding a subset of Wren
//	├── engine/      wren.Engine over Wren compiled to WebAssembly (wazero)
//	├── binding/     module registry and source generator
//	├── signature/   Wren method signature formatting
//	├── resource/    handle tables and id arenas with observers
//	├── hostmod/     ready-made host modules (Constants, Math, Assets)
//	├── metrics/     prometheus collector for resource tables
//	├── errors/      structured errors shared by all packages
//	└── cmd/wrenit/  script runner and REPL
//
// # Quick Start
//
//	type Greeter struct{}
//
//	func (Greeter) DefineModule(m *binding.ModuleBuilder) {
//		m.Class("Greeter", func(c *binding.ClassBuilder) {
//			c.Method(signature.StaticMethod, "hello", 0, func(vm *wren.VM) {
//				vm.SetSlotString(0, "hello from Go")
//			})
//		})
//	}
//
//	eng, err := engine.NewWazeroEngine(ctx, wasm, nil)
//	mod, err := binding.Build(Greeter{})
//	vm, err := wren.New(eng, mod.Bind(wren.DefaultConfig()))
//	defer vm.Close()
//
//	err = vm.Interpret("main", `
//	import "Greeter" for Greeter
//	System.print(Greeter.hello())
//	`)
//
// # Handles and Objects
//
// Handles and foreign objects are registered by native pointer in per-VM
// tables. Releasing a handle or collecting a foreign object removes its
// entry; any later use of the Go value reports a disposed error instead of
// touching freed memory.
package wrenit
