// Package wasmbin assembles small core WebAssembly binaries from Go.
//
// It covers exactly what the engine tests and fixtures need: function and
// global imports, functions with a handful of instructions, memories,
// globals, exports, a start function and the name section. ReadImports
// lists the imports of any binary, including kinds the builder never emits.
//
//	m := wasmbin.New()
//	hostMain := m.ImportFunc("host", "main", wasmbin.FuncType{Params: []api.ValueType{api.ValueTypeI32}})
//	main := m.Func(wasmbin.FuncType{}, wasmbin.NewCode().I32Const(3).Call(hostMain))
//	m.ExportFunc("main", main)
//	bin := m.Encode()
package wasmbin
