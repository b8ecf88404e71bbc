// Package binding generates Wren modules from Go definitions.
//
// A Go type becomes a module by implementing ModuleSource. Its DefineModule
// method declares imports, classes, foreign methods and raw source on a
// ModuleBuilder; the registry renders the Wren source once per type and
// keeps the callbacks so the module can answer the VM's load and bind
// requests:
//
//	type Greeter struct{}
//
//	func (Greeter) DefineModule(m *binding.ModuleBuilder) {
//		m.Class("Greeter", func(c *binding.ClassBuilder) {
//			c.Method(signature.StaticMethod, "hello", 0, func(vm *wren.VM) {
//				vm.SetSlotString(0, "hello")
//			})
//		})
//	}
//
//	mod, err := binding.Build(Greeter{})
//	cfg := mod.Bind(wren.DefaultConfig())
//
// A class with an allocator is a foreign class. Foreign classes cannot be
// inherited from, and a finalizer is only kept on a foreign class.
package binding
