package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wrenit/binding"
	"github.com/wippyai/wrenit/engine"
	"github.com/wippyai/wrenit/errors"
	"github.com/wippyai/wrenit/hostmod"
	"github.com/wippyai/wrenit/metrics"
	"github.com/wippyai/wrenit/wren"
	"github.com/wippyai/wrenit/wren/wrentest"
)

// Exit codes of the reference Wren CLI.
const (
	exitCompileError = 65
	exitRuntimeError = 70
)

type options struct {
	wasm        string
	config      string
	modules     string
	interactive bool
	dump        string
	describe    bool
	metricsAddr string
	verbose     bool
	script      string

	stdout io.Writer
	stderr io.Writer
}

func main() {
	var opts options
	flag.StringVar(&opts.wasm, "wasm", "", "Path to Wren compiled to wasm (default: built-in reference interpreter)")
	flag.StringVar(&opts.config, "config", "", "Path to a TOML config file")
	flag.StringVar(&opts.modules, "modules", "", "Module directories (comma-separated), searched after the config paths")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive REPL")
	flag.StringVar(&opts.dump, "dump", "", "Print the generated source of a host module and exit")
	flag.BoolVar(&opts.describe, "describe", false, "Print host module descriptors as JSON and exit")
	flag.StringVar(&opts.metricsAddr, "metrics", "", "Serve prometheus metrics on this address")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose development logging")
	flag.Parse()
	opts.script = flag.Arg(0)
	opts.stdout, opts.stderr = os.Stdout, os.Stderr

	if opts.script == "" && !opts.interactive && opts.dump == "" && !opts.describe {
		fmt.Fprintln(os.Stderr, "Usage: wrenit [-wasm wren.wasm] [-config wrenit.toml] [-modules dir,...] script.wren")
		fmt.Fprintln(os.Stderr, "       wrenit [-wasm wren.wasm] -i  (interactive mode)")
		fmt.Fprintln(os.Stderr, "       wrenit -dump Module | -describe")
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return 1
	}
	switch e.Kind {
	case errors.KindCompile:
		return exitCompileError
	case errors.KindRuntime:
		return exitRuntimeError
	}
	return 1
}

func run(opts options) error {
	ctx := context.Background()
	if opts.stdout == nil {
		opts.stdout = os.Stdout
	}
	if opts.stderr == nil {
		opts.stderr = os.Stderr
	}

	fc, err := loadConfig(opts.config)
	if err != nil {
		return err
	}
	log, err := newLogger(fc.Log.Level, opts.verbose)
	if err != nil {
		return err
	}
	defer log.Sync()
	wren.SetLogger(log.Named("wren"))
	binding.SetLogger(log.Named("binding"))
	engine.SetLogger(log.Named("engine"))

	reg := binding.NewRegistry()
	sources := hostmod.Sources(hostmod.NewAssets())

	switch {
	case opts.dump != "":
		return dumpModule(opts.stdout, reg, sources, opts.dump)
	case opts.describe:
		return describeModules(opts.stdout, reg, sources)
	}

	out := &sink{w: opts.stdout}
	cfg := wren.DefaultConfig()
	fc.apply(cfg)
	cfg.Logger = log.Named("vm")
	cfg.Write = func(_ *wren.VM, text string) { out.WriteString(text) }
	cfg.Error = func(_ *wren.VM, kind wren.ErrorType, module string, line int, message string) {
		out.WriteString(formatError(kind, module, line, message))
	}
	cfg.ResolveModule = resolveModule
	cfg.LoadModule = dirLoader{dirs: modulePaths(fc, opts), log: log.Named("modules")}.load

	if opts.metricsAddr != "" {
		stop := serveMetrics(cfg, opts.metricsAddr, log)
		defer stop()
	}

	if _, err := hostmod.Bind(reg, cfg, sources...); err != nil {
		return err
	}

	if opts.wasm == "" {
		fmt.Fprintln(opts.stderr, interpreterWarning)
	}
	eng, closeEngine, err := newEngine(ctx, opts, log)
	if err != nil {
		return err
	}
	defer closeEngine()

	vm, err := wren.New(eng, cfg)
	if err != nil {
		return err
	}
	defer vm.Close()

	if opts.interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.InvalidInput(errors.PhaseLoad, "interactive mode needs a terminal on stdin")
		}
		return runInteractive(vm, out, opts.wasm)
	}

	src, err := os.ReadFile(opts.script)
	if err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindNotFound, err, "read script")
	}
	return vm.Interpret(moduleName(opts.script), string(src))
}

// interpreterWarning is printed when scripts run without a Wren wasm build.
const interpreterWarning = "wrenit: no -wasm given; running on the built-in interpreter, " +
	"which supports only module-level code, imports and foreign classes (script-defined methods are not run)"

func newEngine(ctx context.Context, opts options, log *zap.Logger) (wren.Engine, func(), error) {
	if opts.wasm == "" {
		log.Debug("no wasm build given, using the reference interpreter")
		return wrentest.New(), func() {}, nil
	}
	data, err := os.ReadFile(opts.wasm)
	if err != nil {
		return nil, nil, errors.Wrap(errors.PhaseEngine, errors.KindNotFound, err, "read wasm")
	}
	e, err := engine.NewWazeroEngine(ctx, data, &engine.Config{Stdout: opts.stdout, Stderr: opts.stderr})
	if err != nil {
		return nil, nil, err
	}
	return e, func() { e.Close(ctx) }, nil
}

func modulePaths(fc fileConfig, opts options) []string {
	dirs := append([]string(nil), fc.Modules.Paths...)
	for _, d := range strings.Split(opts.modules, ",") {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	if opts.script != "" {
		dirs = append(dirs, filepath.Dir(opts.script))
	}
	return dirs
}

// moduleName names the main module after the script's file name without its
// extension. The script's directory is a module path, so "./x" imports from
// the main module resolve to its siblings wherever the script lives.
func moduleName(script string) string {
	return strings.TrimSuffix(filepath.Base(script), ".wren")
}

func formatError(kind wren.ErrorType, module string, line int, message string) string {
	switch kind {
	case wren.ErrorCompile:
		return fmt.Sprintf("[%s line %d] %s\n", module, line, message)
	case wren.ErrorStackTrace:
		return fmt.Sprintf("[%s line %d] in %s\n", module, line, message)
	default:
		return message + "\n"
	}
}

func buildModules(reg *binding.Registry, sources []binding.ModuleSource) ([]*binding.Module, error) {
	mods := make([]*binding.Module, 0, len(sources))
	for _, src := range sources {
		mod, err := reg.Module(src)
		if err != nil {
			return nil, err
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

func dumpModule(w io.Writer, reg *binding.Registry, sources []binding.ModuleSource, name string) error {
	mods, err := buildModules(reg, sources)
	if err != nil {
		return err
	}
	for _, mod := range mods {
		if mod.Name() == name {
			_, err := io.WriteString(w, mod.Source())
			return err
		}
	}
	return errors.NotFound(errors.PhaseBuild, "module", name)
}

func describeModules(w io.Writer, reg *binding.Registry, sources []binding.ModuleSource) error {
	mods, err := buildModules(reg, sources)
	if err != nil {
		return err
	}
	infos := make([]binding.ModuleInfo, len(mods))
	for i, mod := range mods {
		infos[i] = mod.Describe()
	}
	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// serveMetrics attaches a collector to every VM created from cfg and serves
// it on addr until the returned stop function is called.
func serveMetrics(cfg *wren.Config, addr string, log *zap.Logger) func() {
	collector := metrics.New("wrenit")
	cfg.Observers = append(cfg.Observers, collector)
	wren.ObserveVMs(collector)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collector)
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// sink forwards VM output to a writer the REPL can swap per evaluation.
type sink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *sink) WriteString(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w != nil {
		io.WriteString(s.w, text)
	}
}

func (s *sink) swap(w io.Writer) io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.w
	s.w = w
	return prev
}
