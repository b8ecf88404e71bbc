package hostmod

import (
	"fmt"
	"slices"
	"sync"

	"github.com/wippyai/wrenit/binding"
	"github.com/wippyai/wrenit/signature"
	"github.com/wippyai/wrenit/wren"
)

// AssetsModule is the script name of the Assets module.
const AssetsModule = "Assets"

// Asset is the Go value behind a Wren Asset.
type Asset struct {
	ID   int
	Path string
}

// Assets is the "Assets" module. It numbers every Asset it allocates and
// tracks the ones not yet finalized. Build each Assets value in its own
// registry: generated modules are cached per type.
type Assets struct {
	mu   sync.Mutex
	next int
	live map[int]*Asset
}

func NewAssets() *Assets {
	return &Assets{live: make(map[int]*Asset)}
}

// Live returns the assets that have not been finalized, ordered by id.
func (a *Assets) Live() []Asset {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Asset, 0, len(a.live))
	for _, v := range a.live {
		out = append(out, *v)
	}
	slices.SortFunc(out, func(x, y Asset) int { return x.ID - y.ID })
	return out
}

func (a *Assets) DefineModule(m *binding.ModuleBuilder) {
	m.Name(AssetsModule)

	m.Class("AssetSystem", func(c *binding.ClassBuilder) {
		c.Method(signature.StaticMethod, "load", 1, a.load,
			binding.GroupAttr("args", "a", "path of the asset"))
		c.Method(signature.StaticMethod, "load", 2, a.load)
	})

	m.Class(Asset{}, func(c *binding.ClassBuilder) {
		c.Allocator(a.alloc).
			Finalizer(a.finalize).
			Method(signature.FieldGetter, "path", 0, func(vm *wren.VM) {
				if v, ok := receiver[*Asset](vm); ok {
					vm.SetSlotString(0, v.Path)
				}
			}, binding.Attr("getter", nil)).
			Method(signature.FieldGetter, "id", 0, func(vm *wren.VM) {
				if v, ok := receiver[*Asset](vm); ok {
					vm.SetSlotInt(0, v.ID)
				}
			}, binding.Attr("getter", nil))
	})
}

// load implements AssetSystem.load(path) and load(path, data): it fetches
// the Asset class into slot 0 and runs the allocator directly.
func (a *Assets) load(vm *wren.VM) {
	if t, _ := vm.SlotType(1); t != wren.TypeString {
		vm.SetSlotString(0, "Expected string type")
		vm.AbortFiber(0)
		return
	}
	path, _ := vm.SlotString(1)

	if ok, _ := vm.HasModule(AssetsModule); !ok {
		vm.Abort(fmt.Sprintf("Cannot find module %s", AssetsModule))
		return
	}
	if ok, _ := vm.HasVariable(AssetsModule, "Asset"); !ok {
		vm.Abort(fmt.Sprintf("Cannot find name Asset in module %s", AssetsModule))
		return
	}
	if err := vm.GetVariable(AssetsModule, "Asset", 0); err != nil {
		vm.Abort(err.Error())
		return
	}

	a.alloc(vm)
	if v, ok := receiver[*Asset](vm); ok {
		v.Path = path
	}
}

func (a *Assets) alloc(vm *wren.VM) {
	a.mu.Lock()
	a.next++
	asset := &Asset{ID: a.next}
	a.mu.Unlock()

	if _, err := vm.SetSlotNewForeign(0, 0, asset); err != nil {
		vm.Abort(err.Error())
		return
	}
	a.mu.Lock()
	a.live[asset.ID] = asset
	a.mu.Unlock()
}

func (a *Assets) finalize(obj *wren.ForeignObject) {
	v, err := wren.ForeignData[*Asset](obj)
	if err != nil {
		return
	}
	a.mu.Lock()
	delete(a.live, v.ID)
	a.mu.Unlock()
}
