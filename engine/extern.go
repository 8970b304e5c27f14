package engine

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/Forpee/poc-wasmi-v1-tracer/errors"
)

// Extern is an importable or exportable item: *Func, *Memory or *Global
type Extern interface {
	Kind() ExternKind
}

// AsFunc returns e as a function, reporting false for any other kind
func AsFunc(e Extern) (*Func, bool) {
	f, ok := e.(*Func)
	return f, ok && f != nil
}

// Memory is an exported linear memory
type Memory struct {
	mem  api.Memory
	name string
}

func (m *Memory) Kind() ExternKind { return KindMemory }

// Size returns the memory size in bytes
func (m *Memory) Size() uint32 { return m.mem.Size() }

// Read copies n bytes starting at offset
func (m *Memory) Read(offset, n uint32) ([]byte, error) {
	buf, ok := m.mem.Read(offset, n)
	if !ok {
		return nil, outOfRange(m.name, offset, n)
	}
	return append([]byte(nil), buf...), nil
}

// Write copies data into memory at offset
func (m *Memory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return outOfRange(m.name, offset, uint32(len(data)))
	}
	return nil
}

func outOfRange(name string, offset, n uint32) error {
	return errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
		Path(name).
		Detail("range [%d, %d) out of bounds", offset, uint64(offset)+uint64(n)).
		Build()
}

// Global is an exported global
type Global struct {
	global api.Global
	name   string
}

func (g *Global) Kind() ExternKind { return KindGlobal }

// Type returns the global's value type
func (g *Global) Type() api.ValueType { return g.global.Type() }

// Get returns the current value
func (g *Global) Get() Value {
	return Value{Type: g.global.Type(), Bits: g.global.Get()}
}

// Set updates a mutable global
func (g *Global) Set(v Value) error {
	mg, ok := g.global.(api.MutableGlobal)
	if !ok {
		return errors.Unsupported(errors.PhaseRuntime, fmt.Sprintf("global %q is immutable", g.name))
	}
	if v.Type != mg.Type() {
		return errors.InvalidInput(errors.PhaseRuntime,
			fmt.Sprintf("global %q holds %s, got %s", g.name, api.ValueTypeName(mg.Type()), v.TypeName()))
	}
	mg.Set(v.Bits)
	return nil
}

// exportOf resolves an export of mod by trying each export kind in turn.
// It returns nil for unknown names or a nil module.
func exportOf(store *storeState, mod api.Module, name string) Extern {
	if mod == nil {
		return nil
	}
	if fn := mod.ExportedFunction(name); fn != nil {
		return newGuestFunc(store, fn)
	}
	if mem := mod.ExportedMemory(name); mem != nil {
		return &Memory{mem: mem, name: name}
	}
	if g := mod.ExportedGlobal(name); g != nil {
		return &Global{global: g, name: name}
	}
	return nil
}
