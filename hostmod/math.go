package hostmod

import (
	"math"
	"strconv"

	"github.com/wippyai/wrenit/binding"
	"github.com/wippyai/wrenit/signature"
	"github.com/wippyai/wrenit/wren"
)

// MathModule is the script name of the Math module.
const MathModule = "Math"

// Vector is the Go value behind a Wren Vector.
type Vector struct {
	X, Y float64
}

func (v Vector) String() string {
	return "{" + formatNum(v.X) + ", " + formatNum(v.Y) + "}"
}

// Math is the "Math" module: a PI2 variable and the foreign Vector class.
type Math struct{}

func (Math) DefineModule(m *binding.ModuleBuilder) {
	m.Name(MathModule).
		ImportModule(Constants{}, "PI", Version{}).
		ImportAs("Constants", "Wrapper", "W")
	m.Source("math", "var PI2 = PI * 2")

	m.Class(Vector{}, func(c *binding.ClassBuilder) {
		c.Allocator(func(vm *wren.VM) {
			vm.SetSlotNewForeign(0, 0, &Vector{})
		})
		c.Finalizer(func(*wren.ForeignObject) {})

		c.Method(signature.Construct, "new", 2, func(vm *wren.VM) {
			v, ok := receiver[*Vector](vm)
			if !ok {
				return
			}
			if v.X, ok = number(vm, 1); !ok {
				return
			}
			v.Y, _ = number(vm, 2)
		})
		c.Method(signature.Method, "add", 2, func(vm *wren.VM) {
			v, ok := receiver[*Vector](vm)
			if !ok {
				return
			}
			x, ok := number(vm, 1)
			if !ok {
				return
			}
			y, ok := number(vm, 2)
			if !ok {
				return
			}
			v.X += x
			v.Y += y
		})
		c.Method(signature.Times, "", 1, func(vm *wren.VM) {
			v, ok := receiver[*Vector](vm)
			if !ok {
				return
			}
			f, ok := number(vm, 1)
			if !ok {
				return
			}
			v.X *= f
			v.Y *= f
		})
		c.Method(signature.Plus, "", 1, vectorOp(func(a, b Vector) Vector {
			return Vector{a.X + b.X, a.Y + b.Y}
		}))
		c.Method(signature.Minus, "", 1, vectorOp(func(a, b Vector) Vector {
			return Vector{a.X - b.X, a.Y - b.Y}
		}))
		c.Method(signature.Negate, "", 0, func(vm *wren.VM) {
			v, ok := receiver[*Vector](vm)
			if !ok {
				return
			}
			newVector(vm, Vector{-v.X, -v.Y})
		})
		c.Method(signature.Equal, "", 1, func(vm *wren.VM) {
			v, ok := receiver[*Vector](vm)
			if !ok {
				return
			}
			other, err := wren.SlotForeignData[*Vector](vm, 1)
			vm.SetSlotBool(0, err == nil && *other == *v)
		})

		c.Method(signature.FieldGetter, "x", 0, component(func(v *Vector) *float64 { return &v.X }, false))
		c.Method(signature.FieldGetter, "y", 0, component(func(v *Vector) *float64 { return &v.Y }, false))
		c.Method(signature.FieldSetter, "x", 1, component(func(v *Vector) *float64 { return &v.X }, true))
		c.Method(signature.FieldSetter, "y", 1, component(func(v *Vector) *float64 { return &v.Y }, true))

		c.Method(signature.SubscriptGetter, "", 1, func(vm *wren.VM) {
			v, ok := receiver[*Vector](vm)
			if !ok {
				return
			}
			i, ok := number(vm, 1)
			if !ok {
				return
			}
			switch i {
			case 0:
				vm.SetSlotDouble(0, v.X)
			case 1:
				vm.SetSlotDouble(0, v.Y)
			default:
				vm.Abort("Subscript out of bounds.")
			}
		})
		c.Method(signature.FieldGetter, "toString", 0, func(vm *wren.VM) {
			v, ok := receiver[*Vector](vm)
			if !ok {
				return
			}
			vm.SetSlotString(0, v.String())
		})
	})
}

// vectorOp binds a binary operator that returns a new Vector.
func vectorOp(op func(a, b Vector) Vector) wren.ForeignMethod {
	return func(vm *wren.VM) {
		v, ok := receiver[*Vector](vm)
		if !ok {
			return
		}
		other, err := wren.SlotForeignData[*Vector](vm, 1)
		if err != nil {
			vm.Abort("Right operand must be a Vector.")
			return
		}
		newVector(vm, op(*v, *other))
	}
}

// newVector stores a new Vector in slot 0. The class is fetched into a
// scratch slot past the arguments.
func newVector(vm *wren.VM, v Vector) {
	n, err := vm.SlotCount()
	if err != nil {
		return
	}
	if err := vm.EnsureSlots(n + 1); err != nil {
		vm.Abort(err.Error())
		return
	}
	if err := vm.GetVariable(MathModule, "Vector", n); err != nil {
		vm.Abort(err.Error())
		return
	}
	if _, err := vm.SetSlotNewForeign(0, n, &v); err != nil {
		vm.Abort(err.Error())
	}
}

func component(field func(v *Vector) *float64, set bool) wren.ForeignMethod {
	return func(vm *wren.VM) {
		v, ok := receiver[*Vector](vm)
		if !ok {
			return
		}
		if !set {
			vm.SetSlotDouble(0, *field(v))
			return
		}
		f, ok := number(vm, 1)
		if !ok {
			return
		}
		*field(v) = f
		vm.SetSlotDouble(0, f)
	}
}

func formatNum(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "infinity"
	case math.IsInf(f, -1):
		return "-infinity"
	}
	return strconv.FormatFloat(f, 'g', 14, 64)
}
