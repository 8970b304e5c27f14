package engine

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/Forpee/poc-wasmi-v1-tracer/internal/wasmbin"
)

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
	f64 = api.ValueTypeF64

	printType = FuncType{Params: []api.ValueType{i32}}
)

// hostMainModule: main() calls host.main(3).
func hostMainModule() []byte {
	m := wasmbin.New()
	hostMain := m.ImportFunc("host", "main", wasmbin.FuncType{Params: []api.ValueType{i32}})
	main := m.Func(wasmbin.FuncType{}, wasmbin.NewCode().I32Const(3).Call(hostMain))
	m.ExportFunc("main", main)
	return m.Encode()
}

// trapAfterHostModule: main() calls host.main(3) and then hits unreachable.
func trapAfterHostModule() []byte {
	m := wasmbin.New()
	hostMain := m.ImportFunc("host", "main", wasmbin.FuncType{Params: []api.ValueType{i32}})
	main := m.Func(wasmbin.FuncType{}, wasmbin.NewCode().I32Const(3).Call(hostMain).Unreachable())
	m.ExportFunc("main", main)
	return m.Encode()
}

// arithModule exports add and div over i32, plus nested: outer() = inner(41)
// where inner(x) = x + 1 is only named, not exported.
func arithModule() []byte {
	binop := wasmbin.FuncType{Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32}}
	m := wasmbin.New()
	add := m.Func(binop, wasmbin.NewCode().LocalGet(0).LocalGet(1).I32Add())
	div := m.Func(binop, wasmbin.NewCode().LocalGet(0).LocalGet(1).I32DivS())
	inner := m.Func(wasmbin.FuncType{Params: []api.ValueType{i32}, Results: []api.ValueType{i32}},
		wasmbin.NewCode().LocalGet(0).I32Const(1).I32Add())
	outer := m.Func(wasmbin.FuncType{Results: []api.ValueType{i32}}, wasmbin.NewCode().I32Const(41).Call(inner))
	m.ExportFunc("add", add).
		ExportFunc("div", div).
		ExportFunc("outer", outer).
		FuncName(inner, "inner")
	return m.Encode()
}

// stateModule exports a memory and a mutable counter global. The start
// section sets the counter to 7 and _start increments it.
func stateModule() []byte {
	m := wasmbin.New()
	mem := m.Memory(1)
	counter := m.Global(i32, true, 0)
	limit := m.Global(i32, false, 100)
	setup := m.Func(wasmbin.FuncType{}, wasmbin.NewCode().I32Const(7).GlobalSet(counter))
	start := m.Func(wasmbin.FuncType{}, wasmbin.NewCode().GlobalGet(counter).I32Const(1).I32Add().GlobalSet(counter))
	m.Export("memory", wasmbin.KindMemory, mem).
		Export("counter", wasmbin.KindGlobal, counter).
		Export("limit", wasmbin.KindGlobal, limit).
		ExportFunc("_start", start).
		Start(setup)
	return m.Encode()
}

// globalImportModule: main() calls host.main with the value of the
// imported global env.g.
func globalImportModule() []byte {
	m := wasmbin.New()
	hostMain := m.ImportFunc("host", "main", wasmbin.FuncType{Params: []api.ValueType{i32}})
	g := m.ImportGlobal("env", "g", i32, false)
	main := m.Func(wasmbin.FuncType{}, wasmbin.NewCode().GlobalGet(g).Call(hostMain))
	m.ExportFunc("main", main)
	return m.Encode()
}

// callbackModule: main() calls host.cb(), which may call back into leaf() = 5.
func callbackModule() []byte {
	m := wasmbin.New()
	cb := m.ImportFunc("host", "cb", wasmbin.FuncType{})
	leaf := m.Func(wasmbin.FuncType{Results: []api.ValueType{i32}}, wasmbin.NewCode().I32Const(5))
	main := m.Func(wasmbin.FuncType{}, wasmbin.NewCode().Call(cb))
	m.ExportFunc("leaf", leaf).ExportFunc("main", main)
	return m.Encode()
}

func newTestEngine(t *testing.T) (context.Context, *Engine) {
	t.Helper()
	ctx := context.Background()
	e, err := NewEngine(ctx)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	t.Cleanup(func() { e.Close(ctx) })
	return ctx, e
}

func newTestStore(t *testing.T, ctx context.Context, e *Engine, data uint32) *Store[uint32] {
	t.Helper()
	s := NewStore(ctx, e, data)
	t.Cleanup(func() { s.Close(ctx) })
	return s
}

func mustModule(t *testing.T, ctx context.Context, e *Engine, wasm []byte) *Module {
	t.Helper()
	m, err := NewModule(ctx, e, wasm)
	if err != nil {
		t.Fatalf("NewModule failed: %v", err)
	}
	return m
}

// instantiate links m with l into s and runs the start phase
func instantiate(t *testing.T, ctx context.Context, l *Linker[uint32], s *Store[uint32], m *Module) *Instance {
	t.Helper()
	pre, err := l.Instantiate(ctx, s, m)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	inst, err := pre.Start(ctx)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return inst
}

// recordingHost returns a host function of type (i32) -> () that appends
// every argument to got.
func recordingHost(s *Store[uint32], got *[]int32) *Func {
	return NewFunc(s, printType, func(_ *Caller[uint32], params []Value) ([]Value, error) {
		*got = append(*got, params[0].I32())
		return nil, nil
	})
}

func mustFunc(t *testing.T, inst *Instance, name string) *Func {
	t.Helper()
	f, err := inst.GetFunc(name)
	if err != nil {
		t.Fatalf("GetFunc(%q) failed: %v", name, err)
	}
	return f
}
