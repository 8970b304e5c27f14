package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/Forpee/poc-wasmi-v1-tracer/errors"
)

type importKey struct {
	module, name string
}

// Linker resolves module imports against host function definitions keyed by
// (module, name). A linker may be reused for any number of instantiations in
// stores of its engine. Not safe for concurrent use.
type Linker[T any] struct {
	engine *Engine
	defs   map[importKey]*Func
}

// NewLinker creates an empty linker for stores with host datum type T
func NewLinker[T any](e *Engine) *Linker[T] {
	return &Linker[T]{
		engine: e,
		defs:   make(map[importKey]*Func),
	}
}

// Define registers item under (module, name). Only host functions can be
// defined. Defining a name twice is a link error and leaves the linker
// unchanged.
func (l *Linker[T]) Define(module, name string, item Extern) error {
	if item == nil {
		return errors.InvalidInput(errors.PhaseLinking, fmt.Sprintf("nil definition for %s.%s", module, name))
	}
	f, ok := AsFunc(item)
	if !ok || !f.IsHost() {
		return errors.New(errors.PhaseLinking, errors.KindUnsupported).
			Path(module, name).
			Detail("only host functions can be defined, got %s", item.Kind()).
			Build()
	}

	key := importKey{module, name}
	if _, exists := l.defs[key]; exists {
		return errors.Duplicate(module, name)
	}
	l.defs[key] = f
	if f.name == unnamedHost {
		f.name = module + "." + name
	}

	Logger().Debug("linker define",
		zap.String("module", module),
		zap.String("name", name),
		zap.Stringer("type", f.ty))
	return nil
}

// Get returns the definition registered under (module, name)
func (l *Linker[T]) Get(module, name string) (Extern, bool) {
	f, ok := l.defs[importKey{module, name}]
	if !ok {
		return nil, false
	}
	return f, true
}

// DefineUnknownImportsAsTraps defines every function import of m that the
// linker cannot resolve as a host function that fails when called.
func (l *Linker[T]) DefineUnknownImportsAsTraps(store *Store[T], m *Module) error {
	for _, imp := range m.imports {
		if imp.Kind != KindFunc {
			continue
		}
		if _, ok := l.defs[importKey{imp.Module, imp.Name}]; ok {
			continue
		}
		qualified := imp.Module + "." + imp.Name
		trap := NewFunc(store, imp.Type, func(*Caller[T], []Value) ([]Value, error) {
			return nil, fmt.Errorf("unresolved import %s called", qualified)
		})
		if err := l.Define(imp.Module, imp.Name, trap); err != nil {
			return err
		}
	}
	return nil
}

// Instantiate resolves every import of m, instantiates the host modules it
// needs into store and then instantiates m. The returned InstancePre has not
// run its start phase.
func (l *Linker[T]) Instantiate(ctx context.Context, store *Store[T], m *Module) (*InstancePre, error) {
	if m.engine != l.engine || store.core.engine != l.engine {
		return nil, errors.InvalidInput(errors.PhaseLinking, "linker, store and module must come from the same engine")
	}

	var missing []errors.MissingImport
	needed := make(map[string]map[string]*Func)
	for _, imp := range m.imports {
		if imp.Kind != KindFunc {
			return nil, errors.New(errors.PhaseLinking, errors.KindUnsupported).
				Path(imp.Module, imp.Name).
				Detail("%s imports are not supported", imp.Kind).
				Build()
		}

		f, ok := l.defs[importKey{imp.Module, imp.Name}]
		if !ok {
			missing = append(missing, errors.MissingImport{Module: imp.Module, Name: imp.Name})
			continue
		}
		if f.store != store.core {
			return nil, errors.StoreMismatch(errors.PhaseLinking, "func "+imp.Module+"."+imp.Name)
		}
		if !f.ty.Equal(imp.Type) {
			return nil, errors.ImportMismatch(imp.Module, imp.Name, imp.Type.String(), f.ty.String())
		}

		if needed[imp.Module] == nil {
			needed[imp.Module] = make(map[string]*Func)
		}
		needed[imp.Module][imp.Name] = f
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingImportsError(missing)
	}

	modules := make([]string, 0, len(needed))
	for name := range needed {
		modules = append(modules, name)
	}
	sort.Strings(modules)
	for _, name := range modules {
		if err := store.core.ensureHostModule(ctx, name, l.funcsIn(store.core, name), needed[name]); err != nil {
			return nil, err
		}
	}

	rt := store.core.runtime
	compiled, err := rt.CompileModule(l.engine.withListeners(ctx), m.bytes)
	if err != nil {
		return nil, errors.Decode(err)
	}
	// Instances are anonymous so one store can hold any number of them.
	// wazero runs the start section here.
	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("").WithStartFunctions())
	if err != nil {
		compiled.Close(ctx)
		return nil, errors.Instantiation("instantiate module", err)
	}

	Logger().Debug("module instantiated",
		zap.String("name", m.name),
		zap.Strings("host_modules", modules))
	return &InstancePre{store: store.core, module: mod, compiled: compiled, source: m}, nil
}

// funcsIn returns every definition under module that belongs to store
func (l *Linker[T]) funcsIn(store *storeState, module string) map[string]*Func {
	funcs := make(map[string]*Func)
	for key, f := range l.defs {
		if key.module == module && f.store == store {
			funcs[key.name] = f
		}
	}
	return funcs
}
