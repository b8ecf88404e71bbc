package engine

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wrenit/errors"
	"github.com/wippyai/wrenit/wren"
)

// WazeroEngine implements wren.Engine on a Wren build compiled to
// WebAssembly. The guest instance is single threaded: an engine must not be
// used from more than one goroutine at a time.
type WazeroEngine struct {
	// ctx is used for every guest call; wren.Engine methods carry no context.
	ctx     context.Context
	runtime wazero.Runtime
	guest   api.Module
	version int

	hostMu sync.RWMutex
	hosts  map[uint32]vmHost
}

type vmHost struct {
	host wren.Host
	id   uint64
}

var _ wren.Engine = (*WazeroEngine)(nil)

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum guest memory in pages (64KB each).
	// 0 means the wazero default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// Stdout and Stderr receive what the guest writes through WASI.
	// Both default to io.Discard.
	Stdout io.Writer
	Stderr io.Writer

	// ModuleName names the guest instance. Defaults to "wren".
	ModuleName string
}

// NewWazeroEngine compiles and instantiates a Wren guest module.
func NewWazeroEngine(ctx context.Context, wasm []byte, cfg *Config) (*WazeroEngine, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	e := &WazeroEngine{
		ctx:     context.WithoutCancel(ctx),
		runtime: runtime,
		hosts:   make(map[uint32]vmHost),
	}
	if err := e.start(ctx, wasm, cfg); err != nil {
		runtime.Close(ctx)
		return nil, err
	}
	Logger().Debug("wren guest started", zap.String("version", wren.FormatVersion(e.version)))
	return e, nil
}

func (e *WazeroEngine) start(ctx context.Context, wasm []byte, cfg *Config) error {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return errors.Wrap(errors.PhaseEngine, errors.KindInvalidInput, err, "compile guest")
	}

	if err := e.instantiateHost(ctx); err != nil {
		return errors.Wrap(errors.PhaseEngine, errors.KindRegistration, err, "instantiate host module")
	}
	if importsModule(compiled, wasiModule) {
		if err := instantiateWASI(ctx, e.runtime); err != nil {
			return errors.Wrap(errors.PhaseEngine, errors.KindRegistration, err, "instantiate WASI")
		}
	}

	name := cfg.ModuleName
	if name == "" {
		name = "wren"
	}
	modCfg := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions("_initialize").
		WithStdout(writerOr(cfg.Stdout)).
		WithStderr(writerOr(cfg.Stderr))
	e.guest, err = e.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return errors.Wrap(errors.PhaseEngine, errors.KindNotInitialized, err, "instantiate guest")
	}

	if e.guest.Memory() == nil {
		return errors.NotFound(errors.PhaseEngine, "guest export", exportMemory)
	}
	for _, name := range requiredExports {
		if e.function(name) == nil {
			return errors.NotFound(errors.PhaseEngine, "guest export", name)
		}
	}

	v, err := e.call(exportVersion)
	if err != nil {
		return err
	}
	e.version = int(api.DecodeI32(v))
	return nil
}

func writerOr(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// Close releases the runtime and every VM still living in the guest.
func (e *WazeroEngine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// function looks an export up on every call. A foreign method may call back
// into the guest while an outer call is running, and a wazero Function must
// not be reentered.
func (e *WazeroEngine) function(name string) api.Function {
	return e.guest.ExportedFunction(name)
}

// call invokes a guest export and returns its first result.
func (e *WazeroEngine) call(name string, params ...uint64) (uint64, error) {
	fn := e.function(name)
	if fn == nil {
		return 0, errors.NotFound(errors.PhaseEngine, "guest export", name)
	}
	res, err := fn.Call(e.ctx, params...)
	if err != nil {
		return 0, errors.New(errors.PhaseEngine, errors.KindRuntime).
			Path(name).
			Cause(err).
			Build()
	}
	if len(res) == 0 {
		return 0, nil
	}
	return res[0], nil
}

// invoke is call for API functions whose failure the native interface
// cannot report; failures are logged and yield zero.
func (e *WazeroEngine) invoke(name string, params ...uint64) uint64 {
	v, err := e.call(name, params...)
	if err != nil {
		Logger().Error("guest call failed", zap.String("export", name), zap.Error(err))
	}
	return v
}

// cstring copies s into guest memory as a NUL-terminated string. The caller
// frees the result unless ownership passes to the guest.
func (e *WazeroEngine) cstring(s string) uint32 {
	ptr := e.alloc(uint32(len(s)) + 1)
	if ptr == 0 {
		return 0
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	if !e.guest.Memory().Write(ptr, buf) {
		e.free(ptr)
		return 0
	}
	return ptr
}

func (e *WazeroEngine) alloc(size uint32) uint32 {
	if size == 0 {
		size = 1
	}
	return uint32(e.invoke(exportMalloc, api.EncodeU32(size)))
}

func (e *WazeroEngine) free(ptrs ...uint32) {
	for _, p := range ptrs {
		if p != 0 {
			e.invoke(exportFree, api.EncodeU32(p))
		}
	}
}

// readString reads a NUL-terminated string from guest memory.
func (e *WazeroEngine) readString(ptr uint32) string {
	return cString(e.guest.Memory(), ptr)
}

func cString(mem api.Memory, ptr uint32) string {
	if ptr == 0 || mem == nil {
		return ""
	}
	size := mem.Size()
	if ptr >= size {
		return ""
	}
	buf, ok := mem.Read(ptr, size-ptr)
	if !ok {
		return ""
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}

func (e *WazeroEngine) readBytes(ptr, n uint32) []byte {
	if ptr == 0 || n == 0 {
		return []byte{}
	}
	buf, ok := e.guest.Memory().Read(ptr, n)
	if !ok {
		return nil
	}
	return bytes.Clone(buf)
}

func (e *WazeroEngine) host(vm uint32) (vmHost, bool) {
	e.hostMu.RLock()
	defer e.hostMu.RUnlock()
	h, ok := e.hosts[vm]
	return h, ok
}

func (e *WazeroEngine) Version() int {
	return e.version
}

func (e *WazeroEngine) NewVM(cfg wren.NativeConfig, host wren.Host) (wren.Ptr, error) {
	ptr, err := e.call(exportNewVM,
		encodeSize(cfg.InitialHeapSize),
		encodeSize(cfg.MinHeapSize),
		encodeSize(cfg.HeapGrowthPercent))
	if err != nil {
		return 0, err
	}
	vm := uint32(ptr)
	if vm == 0 {
		return 0, errors.New(errors.PhaseEngine, errors.KindNotInitialized).
			Path(exportNewVM).
			Detail("guest returned a null vm").
			Build()
	}

	e.hostMu.Lock()
	e.hosts[vm] = vmHost{host: host, id: cfg.UserData}
	e.hostMu.Unlock()
	return wren.Ptr(vm), nil
}

func encodeSize(n int) uint64 {
	if n < 0 {
		n = 0
	}
	if n > 1<<31-1 {
		n = 1<<31 - 1
	}
	return api.EncodeI32(int32(n))
}

func (e *WazeroEngine) FreeVM(vm wren.Ptr) {
	e.invoke(exportFreeVM, ptr(vm))
	e.hostMu.Lock()
	delete(e.hosts, uint32(vm))
	e.hostMu.Unlock()
}

func (e *WazeroEngine) CollectGarbage(vm wren.Ptr) {
	e.invoke("wrenCollectGarbage", ptr(vm))
}

func (e *WazeroEngine) Interpret(vm wren.Ptr, module, source string) wren.InterpretResult {
	m, s := e.cstring(module), e.cstring(source)
	defer e.free(m, s)
	if m == 0 || s == 0 {
		return wren.ResultCompileError
	}
	r, err := e.call("wrenInterpret", ptr(vm), api.EncodeU32(m), api.EncodeU32(s))
	if err != nil {
		Logger().Error("interpret trapped", zap.String("module", module), zap.Error(err))
		return wren.ResultRuntimeError
	}
	return wren.InterpretResult(api.DecodeI32(r))
}

func (e *WazeroEngine) MakeCallHandle(vm wren.Ptr, signature string) wren.Ptr {
	s := e.cstring(signature)
	defer e.free(s)
	return wren.Ptr(uint32(e.invoke("wrenMakeCallHandle", ptr(vm), api.EncodeU32(s))))
}

func (e *WazeroEngine) Call(vm wren.Ptr, method wren.Ptr) wren.InterpretResult {
	r, err := e.call("wrenCall", ptr(vm), ptr(method))
	if err != nil {
		Logger().Error("call trapped", zap.Error(err))
		return wren.ResultRuntimeError
	}
	return wren.InterpretResult(api.DecodeI32(r))
}

func (e *WazeroEngine) ReleaseHandle(vm wren.Ptr, handle wren.Ptr) {
	e.invoke("wrenReleaseHandle", ptr(vm), ptr(handle))
}

func (e *WazeroEngine) GetVariable(vm wren.Ptr, module, name string, slot int) {
	m, n := e.cstring(module), e.cstring(name)
	defer e.free(m, n)
	e.invoke("wrenGetVariable", ptr(vm), api.EncodeU32(m), api.EncodeU32(n), i32(slot))
}

func (e *WazeroEngine) HasVariable(vm wren.Ptr, module, name string) bool {
	m, n := e.cstring(module), e.cstring(name)
	defer e.free(m, n)
	return e.invoke("wrenHasVariable", ptr(vm), api.EncodeU32(m), api.EncodeU32(n)) != 0
}

func (e *WazeroEngine) HasModule(vm wren.Ptr, module string) bool {
	m := e.cstring(module)
	defer e.free(m)
	return e.invoke("wrenHasModule", ptr(vm), api.EncodeU32(m)) != 0
}

func (e *WazeroEngine) AbortFiber(vm wren.Ptr, slot int) {
	e.invoke("wrenAbortFiber", ptr(vm), i32(slot))
}

func ptr(p wren.Ptr) uint64 {
	return api.EncodeU32(uint32(p))
}

func i32(n int) uint64 {
	return api.EncodeI32(int32(n))
}
