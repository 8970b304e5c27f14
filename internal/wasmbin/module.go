package wasmbin

import (
	"sort"

	"github.com/tetratelabs/wazero/api"
)

const (
	sectionCustom = 0
	sectionType   = 1
	sectionImport = 2
	sectionFunc   = 3
	sectionMemory = 5
	sectionGlobal = 6
	sectionExport = 7
	sectionStart  = 8
	sectionCode   = 10

	funcTypeMarker = 0x60
)

// Import and export kinds.
const (
	KindFunc   byte = 0x00
	KindTable  byte = 0x01
	KindMemory byte = 0x02
	KindGlobal byte = 0x03
	KindTag    byte = 0x04
)

var magic = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

// FuncType is a function signature.
type FuncType struct {
	Params  []api.ValueType
	Results []api.ValueType
}

func (ft FuncType) equal(o FuncType) bool {
	return string(ft.Params) == string(o.Params) && string(ft.Results) == string(o.Results)
}

type importDesc struct {
	module, name string
	typeIdx      uint32
	kind         byte
	typ          api.ValueType
	mutable      bool
}

type function struct {
	code    *Code
	typeIdx uint32
}

type global struct {
	init    int64
	typ     api.ValueType
	mutable bool
}

type export struct {
	name string
	idx  uint32
	kind byte
}

// Module builds a core WebAssembly binary. Function indices returned by
// ImportFunc and Func follow the binary's index space: imports first.
type Module struct {
	start     *uint32
	funcNames map[uint32]string
	name      string
	types     []FuncType
	imports   []importDesc
	funcs     []function
	memories  []uint32
	globals   []global
	exports   []export
}

func New() *Module {
	return &Module{funcNames: make(map[uint32]string)}
}

// Name sets the module name in the name section.
func (m *Module) Name(name string) *Module {
	m.name = name
	return m
}

func (m *Module) typeIndex(ft FuncType) uint32 {
	for i, t := range m.types {
		if t.equal(ft) {
			return uint32(i)
		}
	}
	m.types = append(m.types, ft)
	return uint32(len(m.types) - 1)
}

// ImportFunc declares a function import. It panics once a local function
// has been added, since imports must precede locals in the index space.
func (m *Module) ImportFunc(module, name string, ft FuncType) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmbin: ImportFunc after Func")
	}
	m.imports = append(m.imports, importDesc{module: module, name: name, kind: KindFunc, typeIdx: m.typeIndex(ft)})
	return m.imported(KindFunc) - 1
}

// ImportGlobal declares a global import. Like ImportFunc it must precede
// local globals.
func (m *Module) ImportGlobal(module, name string, typ api.ValueType, mutable bool) uint32 {
	if len(m.globals) > 0 {
		panic("wasmbin: ImportGlobal after Global")
	}
	m.imports = append(m.imports, importDesc{module: module, name: name, kind: KindGlobal, typ: typ, mutable: mutable})
	return m.imported(KindGlobal) - 1
}

func (m *Module) imported(kind byte) uint32 {
	var n uint32
	for _, imp := range m.imports {
		if imp.kind == kind {
			n++
		}
	}
	return n
}

// Func adds a local function and returns its index.
func (m *Module) Func(ft FuncType, code *Code) uint32 {
	m.funcs = append(m.funcs, function{typeIdx: m.typeIndex(ft), code: code})
	return m.imported(KindFunc) + uint32(len(m.funcs)) - 1
}

// Memory adds a memory with the given minimum page count.
func (m *Module) Memory(minPages uint32) uint32 {
	m.memories = append(m.memories, minPages)
	return uint32(len(m.memories) - 1)
}

// Global adds an i32 or i64 global initialized to init.
func (m *Module) Global(typ api.ValueType, mutable bool, init int64) uint32 {
	m.globals = append(m.globals, global{typ: typ, mutable: mutable, init: init})
	return m.imported(KindGlobal) + uint32(len(m.globals)) - 1
}

func (m *Module) Export(name string, kind byte, idx uint32) *Module {
	m.exports = append(m.exports, export{name: name, kind: kind, idx: idx})
	return m
}

func (m *Module) ExportFunc(name string, idx uint32) *Module {
	return m.Export(name, KindFunc, idx)
}

// Start sets the start function.
func (m *Module) Start(idx uint32) *Module {
	m.start = &idx
	return m
}

// FuncName records a debug name for function idx in the name section.
func (m *Module) FuncName(idx uint32, name string) *Module {
	m.funcNames[idx] = name
	return m
}

// Encode returns the binary module.
func (m *Module) Encode() []byte {
	buf := &Buffer{}
	buf.WriteBytes(magic)

	if len(m.types) > 0 {
		sec := &Buffer{}
		sec.WriteU32(uint32(len(m.types)))
		for _, ft := range m.types {
			sec.AppendByte(funcTypeMarker)
			sec.WriteU32(uint32(len(ft.Params)))
			sec.WriteBytes(ft.Params)
			sec.WriteU32(uint32(len(ft.Results)))
			sec.WriteBytes(ft.Results)
		}
		buf.writeSection(sectionType, sec)
	}

	if len(m.imports) > 0 {
		sec := &Buffer{}
		sec.WriteU32(uint32(len(m.imports)))
		for _, imp := range m.imports {
			sec.WriteString(imp.module)
			sec.WriteString(imp.name)
			sec.AppendByte(imp.kind)
			if imp.kind == KindGlobal {
				sec.AppendByte(imp.typ)
				sec.AppendByte(mutability(imp.mutable))
			} else {
				sec.WriteU32(imp.typeIdx)
			}
		}
		buf.writeSection(sectionImport, sec)
	}

	if len(m.funcs) > 0 {
		sec := &Buffer{}
		sec.WriteU32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			sec.WriteU32(f.typeIdx)
		}
		buf.writeSection(sectionFunc, sec)
	}

	if len(m.memories) > 0 {
		sec := &Buffer{}
		sec.WriteU32(uint32(len(m.memories)))
		for _, min := range m.memories {
			sec.AppendByte(0x00) // no maximum
			sec.WriteU32(min)
		}
		buf.writeSection(sectionMemory, sec)
	}

	if len(m.globals) > 0 {
		sec := &Buffer{}
		sec.WriteU32(uint32(len(m.globals)))
		for _, g := range m.globals {
			sec.AppendByte(g.typ)
			sec.AppendByte(mutability(g.mutable))
			if g.typ == api.ValueTypeI64 {
				sec.AppendByte(opI64Const)
				sec.WriteI64(g.init)
			} else {
				sec.AppendByte(opI32Const)
				sec.WriteI32(int32(g.init))
			}
			sec.AppendByte(opEnd)
		}
		buf.writeSection(sectionGlobal, sec)
	}

	if len(m.exports) > 0 {
		sec := &Buffer{}
		sec.WriteU32(uint32(len(m.exports)))
		for _, e := range m.exports {
			sec.WriteString(e.name)
			sec.AppendByte(e.kind)
			sec.WriteU32(e.idx)
		}
		buf.writeSection(sectionExport, sec)
	}

	if m.start != nil {
		sec := &Buffer{}
		sec.WriteU32(*m.start)
		buf.writeSection(sectionStart, sec)
	}

	if len(m.funcs) > 0 {
		sec := &Buffer{}
		sec.WriteU32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			body := f.code.encode()
			sec.WriteU32(uint32(len(body)))
			sec.WriteBytes(body)
		}
		buf.writeSection(sectionCode, sec)
	}

	if m.name != "" || len(m.funcNames) > 0 {
		buf.writeSection(sectionCustom, m.encodeNames())
	}

	return buf.Bytes
}

func mutability(mutable bool) byte {
	if mutable {
		return 0x01
	}
	return 0x00
}

func (m *Module) encodeNames() *Buffer {
	sec := &Buffer{}
	sec.WriteString("name")

	if m.name != "" {
		sub := &Buffer{}
		sub.WriteString(m.name)
		sec.writeSection(0, sub)
	}

	if len(m.funcNames) > 0 {
		idxs := make([]uint32, 0, len(m.funcNames))
		for idx := range m.funcNames {
			idxs = append(idxs, idx)
		}
		sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })

		sub := &Buffer{}
		sub.WriteU32(uint32(len(idxs)))
		for _, idx := range idxs {
			sub.WriteU32(idx)
			sub.WriteString(m.funcNames[idx])
		}
		sec.writeSection(1, sub)
	}

	return sec
}
