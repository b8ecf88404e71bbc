package hostmod

import (
	"github.com/wippyai/wrenit/binding"
	"github.com/wippyai/wrenit/errors"
	"github.com/wippyai/wrenit/wren"
)

// Bind generates each source in reg and binds the resulting modules to cfg
// in order.
func Bind(reg *binding.Registry, cfg *wren.Config, sources ...binding.ModuleSource) ([]*binding.Module, error) {
	mods := make([]*binding.Module, 0, len(sources))
	for _, src := range sources {
		mod, err := reg.Module(src)
		if err != nil {
			return nil, err
		}
		if mod == nil {
			return nil, errors.InvalidInput(errors.PhaseBuild, "module source produced no module")
		}
		mods = append(mods, mod)
	}
	for _, mod := range mods {
		mod.Bind(cfg)
	}
	return mods, nil
}

// Sources returns every host module, sharing assets for the Assets module.
func Sources(assets *Assets) []binding.ModuleSource {
	return []binding.ModuleSource{Constants{}, Math{}, assets}
}

// receiver returns the Go value behind the foreign object in slot 0,
// aborting the fiber when it is missing.
func receiver[T any](vm *wren.VM) (T, bool) {
	v, err := wren.SlotForeignData[T](vm, 0)
	if err != nil {
		vm.Abort(err.Error())
		return v, false
	}
	return v, true
}

// number reads a Num argument, aborting the fiber on anything else.
func number(vm *wren.VM, slot int) (float64, bool) {
	f, err := vm.SlotDouble(slot)
	if err != nil {
		vm.Abort("Expected number type")
		return 0, false
	}
	return f, true
}
