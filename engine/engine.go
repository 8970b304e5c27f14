package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"

	"github.com/Forpee/poc-wasmi-v1-tracer/trace"
)

// Value is a typed WebAssembly value passed to and returned from calls.
type Value = trace.Value

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// EnableThreads enables the WebAssembly threads proposal (experimental).
	EnableThreads bool

	// Compiler selects wazero's optimizing compiler on platforms that support
	// it. The interpreter is used otherwise.
	Compiler bool
}

// Engine holds the runtime configuration shared by modules and stores.
// It is safe for concurrent use.
type Engine struct {
	config    wazero.RuntimeConfig
	validator wazero.Runtime
	listeners experimental.FunctionListenerFactory
}

// NewEngine creates an engine with the default configuration
func NewEngine(ctx context.Context) (*Engine, error) {
	return NewEngineWithConfig(ctx, nil)
}

// NewEngineWithConfig creates an engine with custom configuration
func NewEngineWithConfig(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfigInterpreter()

	if cfg != nil {
		if cfg.Compiler {
			runtimeCfg = wazero.NewRuntimeConfig()
		}
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.EnableThreads {
			runtimeCfg = runtimeCfg.WithCoreFeatures(api.CoreFeaturesV2 | experimental.CoreFeaturesThreads)
		}
	}

	e := &Engine{
		config:    runtimeCfg,
		validator: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		listeners: listenerFactory{},
	}
	Logger().Debug("engine created",
		zap.Bool("compiler", cfg != nil && cfg.Compiler),
		zap.Bool("threads", cfg != nil && cfg.EnableThreads))
	return e, nil
}

// Close releases the engine's validation runtime. Stores created from the
// engine own their runtimes and are closed separately.
func (e *Engine) Close(ctx context.Context) error {
	return e.validator.Close(ctx)
}

// withListeners returns ctx carrying the trace listener factory. Modules and
// host modules must be compiled under such a context to be traceable.
func (e *Engine) withListeners(ctx context.Context) context.Context {
	return experimental.WithFunctionListenerFactory(ctx, e.listeners)
}

func (e *Engine) newRuntime(ctx context.Context) wazero.Runtime {
	return wazero.NewRuntimeWithConfig(ctx, e.config)
}
