package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// instantiateWASI provides WASI preview1 to guests built against wasi-libc.
// The guest's stdout and stderr come from its own module config.
func instantiateWASI(ctx context.Context, r wazero.Runtime) error {
	if r.Module(wasiModule) != nil {
		return nil
	}
	builder := r.NewHostModuleBuilder(wasiModule)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
	_, err := builder.Instantiate(ctx)
	return err
}

func importsModule(compiled wazero.CompiledModule, module string) bool {
	for _, def := range compiled.ImportedFunctions() {
		if m, _, ok := def.Import(); ok && m == module {
			return true
		}
	}
	return false
}
