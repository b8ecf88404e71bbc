package hostmod

import (
	"github.com/wippyai/wrenit/binding"
	"github.com/wippyai/wrenit/signature"
	"github.com/wippyai/wrenit/wren"
)

const constantsSource = `var PI = 3.14159
var HelloWorld = "Hello World"
var Wrapper = "Wrenit"`

// Constants is the "Constants" module: PI, HelloWorld and Wrapper
// variables plus the Version class.
type Constants struct{}

// Version reports the Wren API version the bindings target.
type Version struct{}

func (Constants) DefineModule(m *binding.ModuleBuilder) {
	m.Source("constants", constantsSource)
	m.Class(Version{}, func(c *binding.ClassBuilder) {
		c.Method(signature.StaticMethod, "asString", 0, func(vm *wren.VM) {
			vm.SetSlotString(0, wren.VersionString)
		})
		c.Method(signature.StaticMethod, "asMonotone", 0, func(vm *wren.VM) {
			vm.SetSlotInt(0, wren.VersionNumber)
		})
	})
}
