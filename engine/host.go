package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wrenit/wren"
)

// instantiateHost exports the callbacks the shim wires into every VM's
// WrenConfiguration. Each one resolves the VM pointer to the wren.Host it
// was created with; callbacks for unknown VMs are dropped.
func (e *WazeroEngine) instantiateHost(ctx context.Context) error {
	var (
		i32 = api.ValueTypeI32
		i64 = api.ValueTypeI64
	)
	b := e.runtime.NewHostModuleBuilder(hostModule)
	export := func(name string, fn api.GoModuleFunc, params, results []api.ValueType) {
		b.NewFunctionBuilder().WithGoModuleFunction(fn, params, results).Export(name)
	}

	export(hostWrite, func(_ context.Context, m api.Module, stack []uint64) {
		if h, ok := e.host(api.DecodeU32(stack[0])); ok {
			h.host.Write(h.id, cString(m.Memory(), api.DecodeU32(stack[1])))
		}
	}, []api.ValueType{i32, i32}, nil)

	export(hostError, func(_ context.Context, m api.Module, stack []uint64) {
		h, ok := e.host(api.DecodeU32(stack[0]))
		if !ok {
			return
		}
		mem := m.Memory()
		h.host.Error(h.id,
			wren.ErrorType(api.DecodeI32(stack[1])),
			cString(mem, api.DecodeU32(stack[2])),
			int(api.DecodeI32(stack[3])),
			cString(mem, api.DecodeU32(stack[4])))
	}, []api.ValueType{i32, i32, i32, i32, i32}, nil)

	// Strings returned to the guest are allocated with its malloc and freed by
	// the shim.
	export(hostResolveModule, func(_ context.Context, m api.Module, stack []uint64) {
		vm, importer, name := api.DecodeU32(stack[0]), api.DecodeU32(stack[1]), api.DecodeU32(stack[2])
		stack[0] = 0
		h, ok := e.host(vm)
		if !ok {
			return
		}
		mem := m.Memory()
		resolved, found := h.host.ResolveModule(h.id, cString(mem, importer), cString(mem, name))
		if found {
			stack[0] = api.EncodeU32(e.cstring(resolved))
		}
	}, []api.ValueType{i32, i32, i32}, []api.ValueType{i32})

	export(hostLoadModule, func(_ context.Context, m api.Module, stack []uint64) {
		vm, name := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
		stack[0] = 0
		h, ok := e.host(vm)
		if !ok {
			return
		}
		if src, found := h.host.LoadModule(h.id, cString(m.Memory(), name)); found {
			stack[0] = api.EncodeU32(e.cstring(src))
		}
	}, []api.ValueType{i32, i32}, []api.ValueType{i32})

	export(hostBindMethod, func(_ context.Context, m api.Module, stack []uint64) {
		h, ok := e.host(api.DecodeU32(stack[0]))
		if !ok {
			stack[0] = 0
			return
		}
		mem := m.Memory()
		stack[0] = h.host.BindForeignMethod(h.id,
			cString(mem, api.DecodeU32(stack[1])),
			cString(mem, api.DecodeU32(stack[2])),
			api.DecodeI32(stack[3]) != 0,
			cString(mem, api.DecodeU32(stack[4])))
	}, []api.ValueType{i32, i32, i32, i32, i32}, []api.ValueType{i64})

	export(hostBindClass, func(_ context.Context, m api.Module, stack []uint64) {
		h, ok := e.host(api.DecodeU32(stack[0]))
		if !ok {
			stack[0] = 0
			return
		}
		mem := m.Memory()
		stack[0] = h.host.BindForeignClass(h.id,
			cString(mem, api.DecodeU32(stack[1])),
			cString(mem, api.DecodeU32(stack[2])))
	}, []api.ValueType{i32, i32, i32}, []api.ValueType{i64})

	export(hostCallForeign, func(_ context.Context, _ api.Module, stack []uint64) {
		if h, ok := e.host(api.DecodeU32(stack[0])); ok {
			h.host.CallForeign(h.id, stack[1])
		}
	}, []api.ValueType{i32, i64}, nil)

	export(hostAllocate, func(_ context.Context, _ api.Module, stack []uint64) {
		if h, ok := e.host(api.DecodeU32(stack[0])); ok {
			h.host.Allocate(h.id, stack[1])
		}
	}, []api.ValueType{i32, i64}, nil)

	export(hostFinalize, func(_ context.Context, _ api.Module, stack []uint64) {
		if h, ok := e.host(api.DecodeU32(stack[0])); ok {
			h.host.Finalize(h.id, wren.Ptr(api.DecodeU32(stack[1])), stack[2])
		}
	}, []api.ValueType{i32, i32, i64}, nil)

	_, err := b.Instantiate(ctx)
	return err
}
