package engine

// Exports a Wren guest module provides. Besides the Wren C API functions the
// shim adds wrenitNewVM, which creates a VM wired to the host imports.
const (
	exportMemory  = "memory"
	exportMalloc  = "malloc"
	exportFree    = "free"
	exportVersion = "wrenGetVersionNumber"
	exportNewVM   = "wrenitNewVM"
	exportFreeVM  = "wrenFreeVM"
)

// requiredExports must be present for the engine to start. Every other API
// function is looked up on first use.
var requiredExports = []string{exportMalloc, exportFree, exportVersion, exportNewVM, exportFreeVM}

// Host functions exported to the guest under hostModule.
const (
	hostModule        = "wrenit"
	hostWrite         = "write"
	hostError         = "error"
	hostResolveModule = "resolve_module"
	hostLoadModule    = "load_module"
	hostBindMethod    = "bind_method"
	hostBindClass     = "bind_class"
	hostCallForeign   = "call_foreign"
	hostAllocate      = "allocate"
	hostFinalize      = "finalize"
)

const wasiModule = "wasi_snapshot_preview1"
