package main

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wrenit/errors"
	"github.com/wippyai/wrenit/wren"
)

// fileConfig mirrors wrenit.toml:
//
//	[heap]
//	initial = 10485760
//	min = 1048576
//	growth_percent = 50
//
//	[modules]
//	paths = ["lib", "vendor/wren"]
//
//	[log]
//	level = "info"
type fileConfig struct {
	Heap    heapConfig    `toml:"heap"`
	Modules modulesConfig `toml:"modules"`
	Log     logConfig     `toml:"log"`
}

type heapConfig struct {
	Initial       int `toml:"initial"`
	Min           int `toml:"min"`
	GrowthPercent int `toml:"growth_percent"`
}

type modulesConfig struct {
	Paths []string `toml:"paths"`
}

type logConfig struct {
	Level string `toml:"level"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Heap: heapConfig{
			Initial:       wren.DefaultInitialHeapSize,
			Min:           wren.DefaultMinHeapSize,
			GrowthPercent: wren.DefaultHeapGrowthPercent,
		},
		Log: logConfig{Level: "info"},
	}
}

// loadConfig reads a TOML config over the defaults. An empty path yields the
// defaults; unknown keys are rejected.
func loadConfig(file string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if file == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(file, &cfg)
	if err != nil {
		return cfg, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "read config "+file)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return cfg, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Path(file).
			Detail("unknown config keys: %s", strings.Join(names, ", ")).
			Build()
	}
	return cfg, nil
}

// apply copies the heap settings to cfg. Zero values keep cfg's settings.
func (c fileConfig) apply(cfg *wren.Config) {
	if c.Heap.Initial > 0 {
		cfg.InitialHeapSize = c.Heap.Initial
	}
	if c.Heap.Min > 0 {
		cfg.MinHeapSize = c.Heap.Min
	}
	if c.Heap.GrowthPercent > 0 {
		cfg.HeapGrowthPercent = c.Heap.GrowthPercent
	}
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "log level")
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// dirLoader loads module "a/b" from a/b.wren in the first directory that
// has it.
type dirLoader struct {
	dirs []string
	log  *zap.Logger
}

func (l dirLoader) load(_ *wren.VM, name string) (string, bool) {
	rel := filepath.FromSlash(name) + ".wren"
	if !filepath.IsLocal(rel) {
		l.log.Debug("refusing module outside the module paths", zap.String("module", name))
		return "", false
	}
	for _, dir := range l.dirs {
		src, err := os.ReadFile(filepath.Join(dir, rel))
		if err == nil {
			return string(src), true
		}
		if !os.IsNotExist(err) {
			l.log.Warn("read module", zap.Error(errors.Load(name, err)))
		}
	}
	return "", false
}

// resolveModule makes "./x" and "../x" imports relative to the importing
// module. Other names are returned unchanged.
func resolveModule(_ *wren.VM, importer, name string) (string, bool) {
	if !strings.HasPrefix(name, "./") && !strings.HasPrefix(name, "../") {
		return name, true
	}
	return path.Join(path.Dir(importer), name), true
}
