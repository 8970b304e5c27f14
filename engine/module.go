package engine

import (
	"context"
	"slices"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/Forpee/poc-wasmi-v1-tracer/errors"
	"github.com/Forpee/poc-wasmi-v1-tracer/internal/wasmbin"
)

// ExternKind identifies the kind of an import, export or Extern
type ExternKind uint8

const (
	KindFunc ExternKind = iota
	KindMemory
	KindGlobal
	KindTable
)

func (k ExternKind) String() string {
	switch k {
	case KindFunc:
		return "func"
	case KindMemory:
		return "memory"
	case KindGlobal:
		return "global"
	case KindTable:
		return "table"
	}
	return "unknown"
}

// FuncType is a function signature
type FuncType struct {
	Params  []api.ValueType
	Results []api.ValueType
}

// NewFuncType copies params and results into a FuncType
func NewFuncType(params, results []api.ValueType) FuncType {
	return FuncType{Params: slices.Clone(params), Results: slices.Clone(results)}
}

// String renders the signature as "(i32, i64) -> (f32)"
func (ft FuncType) String() string {
	var b strings.Builder
	writeTypes(&b, ft.Params)
	b.WriteString(" -> ")
	writeTypes(&b, ft.Results)
	return b.String()
}

// Equal reports whether both signatures have the same params and results
func (ft FuncType) Equal(other FuncType) bool {
	return slices.Equal(ft.Params, other.Params) && slices.Equal(ft.Results, other.Results)
}

func writeTypes(b *strings.Builder, types []api.ValueType) {
	b.WriteByte('(')
	for i, t := range types {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(t))
	}
	b.WriteByte(')')
}

func funcTypeOf(def api.FunctionDefinition) FuncType {
	return NewFuncType(def.ParamTypes(), def.ResultTypes())
}

// ImportType describes one import of a module. Type is set for functions only.
type ImportType struct {
	Module string
	Name   string
	Type   FuncType
	Kind   ExternKind
}

// ExportType describes one export of a module. Type is set for functions only.
type ExportType struct {
	Name string
	Type FuncType
	Kind ExternKind
}

// Module is a decoded and validated WebAssembly module. It holds no runtime
// state and may be instantiated into any store of its engine.
type Module struct {
	engine  *Engine
	name    string
	bytes   []byte
	imports []ImportType
	exports []ExportType
}

// NewModule decodes and validates wasm. Any failure is a decode error.
func NewModule(ctx context.Context, e *Engine, wasm []byte) (*Module, error) {
	compiled, err := e.validator.CompileModule(e.withListeners(ctx), wasm)
	if err != nil {
		return nil, errors.Decode(err)
	}
	defer compiled.Close(ctx)

	m := &Module{
		engine: e,
		name:   compiled.Name(),
		bytes:  slices.Clone(wasm),
	}

	for _, def := range compiled.ImportedFunctions() {
		module, name, _ := def.Import()
		m.imports = append(m.imports, ImportType{Module: module, Name: name, Kind: KindFunc, Type: funcTypeOf(def)})
	}
	for _, def := range compiled.ImportedMemories() {
		module, name, _ := def.Import()
		m.imports = append(m.imports, ImportType{Module: module, Name: name, Kind: KindMemory})
	}
	// wazero does not describe global and table imports
	others, err := wasmbin.ReadImports(wasm)
	if err != nil {
		return nil, errors.Decode(err)
	}
	for _, imp := range others {
		switch imp.Kind {
		case wasmbin.KindGlobal:
			m.imports = append(m.imports, ImportType{Module: imp.Module, Name: imp.Name, Kind: KindGlobal})
		case wasmbin.KindTable:
			m.imports = append(m.imports, ImportType{Module: imp.Module, Name: imp.Name, Kind: KindTable})
		}
	}

	for name, def := range compiled.ExportedFunctions() {
		m.exports = append(m.exports, ExportType{Name: name, Kind: KindFunc, Type: funcTypeOf(def)})
	}
	for name := range compiled.ExportedMemories() {
		m.exports = append(m.exports, ExportType{Name: name, Kind: KindMemory})
	}
	slices.SortFunc(m.exports, func(a, b ExportType) int {
		return strings.Compare(a.Name, b.Name)
	})

	Logger().Debug("module compiled",
		zap.String("name", m.name),
		zap.Int("size", len(wasm)),
		zap.Int("imports", len(m.imports)),
		zap.Int("exports", len(m.exports)))
	return m, nil
}

// Name returns the module name from the name section, if any
func (m *Module) Name() string { return m.name }

// Imports returns the module's imports: functions in index order, then
// memories, globals and tables
func (m *Module) Imports() []ImportType { return slices.Clone(m.imports) }

// Exports returns the module's function and memory exports sorted by name.
// Global exports are only visible on an Instance.
func (m *Module) Exports() []ExportType { return slices.Clone(m.exports) }
