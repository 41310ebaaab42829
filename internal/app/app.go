package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/specialistvlad/cosimgo/internal/config"
	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/specialistvlad/cosimgo/internal/output"
	"github.com/specialistvlad/cosimgo/internal/registry"
	"github.com/specialistvlad/cosimgo/internal/scheduler"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	loader   config.Loader
	config   *Config

	httpServer *http.Server

	// mu guards the run currently in progress, read by /status.
	mu       sync.RWMutex
	sched    *scheduler.Scheduler
	recorder *output.Recorder
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and registry. With
// no modules given, the core built-in models are registered.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("Built-in models registered.", "count", len(modules), "models", reg.Names())

	if err := reg.ValidateRegistry(ctx); err != nil {
		// A broken built-in model is a programmer error, so we panic.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		loader:   loader,
		config:   cfg,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

func (a *App) setRun(s *scheduler.Scheduler, r *output.Recorder) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sched, a.recorder = s, r
}

func (a *App) run() (*scheduler.Scheduler, *output.Recorder) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sched, a.recorder
}
