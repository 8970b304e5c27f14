package engine

import (
	"context"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/Forpee/poc-wasmi-v1-tracer/errors"
)

// StoreContext is implemented by Store and Caller. Calls take a StoreContext
// so host functions can call back into the store that invoked them.
type StoreContext interface {
	state() *storeState
}

// storeState is the part of a store that does not depend on the host datum type.
type storeState struct {
	engine  *Engine
	runtime wazero.Runtime
	hosts   map[string]*hostModule
}

// hostModule is a host module already instantiated in a store's runtime.
type hostModule struct {
	module api.Module
	funcs  map[string]*Func
}

// Store owns an instance namespace and the host datum of type T. A store is
// not safe for concurrent use.
type Store[T any] struct {
	core *storeState
	data T
}

// NewStore creates a store with its own runtime built from the engine's configuration
func NewStore[T any](ctx context.Context, e *Engine, data T) *Store[T] {
	return &Store[T]{
		core: &storeState{
			engine:  e,
			runtime: e.newRuntime(ctx),
			hosts:   make(map[string]*hostModule),
		},
		data: data,
	}
}

// Data returns a copy of the host datum
func (s *Store[T]) Data() T { return s.data }

// DataMut returns a pointer to the host datum
func (s *Store[T]) DataMut() *T { return &s.data }

// Engine returns the engine the store was created from
func (s *Store[T]) Engine() *Engine { return s.core.engine }

// Close closes every instance and host module of the store
func (s *Store[T]) Close(ctx context.Context) error {
	s.core.hosts = make(map[string]*hostModule)
	return s.core.runtime.Close(ctx)
}

func (s *Store[T]) state() *storeState { return s.core }

// ensureHostModule instantiates the host module name exporting funcs, or
// reuses the one a previous instantiation in this store created when it
// already exports every needed function.
func (c *storeState) ensureHostModule(ctx context.Context, name string, funcs, needed map[string]*Func) error {
	if existing, ok := c.hosts[name]; ok {
		if existing.provides(needed) {
			return nil
		}
		return errors.New(errors.PhaseLinking, errors.KindDuplicate).
			Path(name).
			Detail("host module %q is already instantiated in this store with different definitions", name).
			Build()
	}

	names := make([]string, 0, len(funcs))
	for fname := range funcs {
		names = append(names, fname)
	}
	sort.Strings(names)

	builder := c.runtime.NewHostModuleBuilder(name)
	for _, fname := range names {
		f := funcs[fname]
		builder.NewFunctionBuilder().
			WithGoModuleFunction(f.hostFunc(), f.ty.Params, f.ty.Results).
			WithName(fname).
			Export(fname)
	}

	mod, err := builder.Instantiate(c.engine.withListeners(ctx))
	if err != nil {
		return errors.Instantiation("instantiate host module "+name, err)
	}
	c.hosts[name] = &hostModule{module: mod, funcs: funcs}

	Logger().Debug("host module instantiated",
		zap.String("module", name),
		zap.Strings("funcs", names))
	return nil
}

// provides reports whether every needed function is exported by m as the same Func
func (m *hostModule) provides(needed map[string]*Func) bool {
	for name, f := range needed {
		if m.funcs[name] != f {
			return false
		}
	}
	return true
}
