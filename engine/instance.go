package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/Forpee/poc-wasmi-v1-tracer/errors"
)

// startExport is the conventional entry point run by InstancePre.Start
const startExport = "_start"

// InstancePre is an instantiated module that has not run its start phase
type InstancePre struct {
	store    *storeState
	module   api.Module
	compiled wazero.CompiledModule
	source   *Module
	started  bool
}

// Start runs the start phase and returns the usable instance. The module's
// start section already ran during instantiation; Start calls the exported
// _start function when the module has one. Start may only be called once.
func (p *InstancePre) Start(ctx context.Context) (*Instance, error) {
	if p.started {
		return nil, errors.InvalidInput(errors.PhaseInstantiate, "instance already started")
	}
	p.started = true

	if fn := p.module.ExportedFunction(startExport); fn != nil {
		if _, err := fn.Call(ctx); err != nil {
			return nil, errors.Instantiation("run "+startExport, err)
		}
		Logger().Debug("start function ran", zap.String("module", p.source.name))
	}
	return &Instance{store: p.store, module: p.module, compiled: p.compiled, source: p.source}, nil
}

// Instance is a started module instance
type Instance struct {
	store    *storeState
	module   api.Module
	compiled wazero.CompiledModule
	source   *Module
}

// GetExport returns the export called name, or nil
func (i *Instance) GetExport(name string) Extern {
	return exportOf(i.store, i.module, name)
}

// GetFunc returns the exported function called name. A missing export and
// an export of another kind are export errors.
func (i *Instance) GetFunc(name string) (*Func, error) {
	ext := i.GetExport(name)
	if ext == nil {
		return nil, errors.ExportNotFound(name)
	}
	f, ok := AsFunc(ext)
	if !ok {
		return nil, errors.NotAFunction(name, ext.Kind().String())
	}
	return f, nil
}

// Exports lists the function and memory exports of the instance's module
func (i *Instance) Exports() []ExportType { return i.source.Exports() }

// Module returns the module the instance was created from
func (i *Instance) Module() *Module { return i.source }

// Close closes the instance. Host modules stay instantiated in the store.
func (i *Instance) Close(ctx context.Context) error {
	err := i.module.Close(ctx)
	if cerr := i.compiled.Close(ctx); err == nil {
		err = cerr
	}
	return err
}
