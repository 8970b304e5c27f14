package wasmbin

import "github.com/tetratelabs/wazero/api"

const (
	opUnreachable = 0x00
	opNop         = 0x01
	opEnd         = 0x0B
	opReturn      = 0x0F
	opCall        = 0x10
	opDrop        = 0x1A
	opLocalGet    = 0x20
	opLocalSet    = 0x21
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opI32Const    = 0x41
	opI64Const    = 0x42
	opI32Add      = 0x6A
	opI32Sub      = 0x6B
	opI32DivS     = 0x6D
	opI64Add      = 0x7C
)

// Code is a function body under construction. The terminating end opcode
// is appended by the encoder.
type Code struct {
	locals []api.ValueType
	buf    Buffer
}

// NewCode starts a body with the given extra locals (after the params).
func NewCode(locals ...api.ValueType) *Code {
	return &Code{locals: locals}
}

func (c *Code) op(b byte) *Code {
	c.buf.AppendByte(b)
	return c
}

func (c *Code) Unreachable() *Code { return c.op(opUnreachable) }
func (c *Code) Nop() *Code         { return c.op(opNop) }
func (c *Code) Return() *Code      { return c.op(opReturn) }
func (c *Code) Drop() *Code        { return c.op(opDrop) }
func (c *Code) I32Add() *Code      { return c.op(opI32Add) }
func (c *Code) I32Sub() *Code      { return c.op(opI32Sub) }
func (c *Code) I32DivS() *Code     { return c.op(opI32DivS) }
func (c *Code) I64Add() *Code      { return c.op(opI64Add) }

func (c *Code) I32Const(v int32) *Code {
	c.buf.AppendByte(opI32Const)
	c.buf.WriteI32(v)
	return c
}

func (c *Code) I64Const(v int64) *Code {
	c.buf.AppendByte(opI64Const)
	c.buf.WriteI64(v)
	return c
}

func (c *Code) indexed(op byte, idx uint32) *Code {
	c.buf.AppendByte(op)
	c.buf.WriteU32(idx)
	return c
}

func (c *Code) Call(fn uint32) *Code       { return c.indexed(opCall, fn) }
func (c *Code) LocalGet(idx uint32) *Code  { return c.indexed(opLocalGet, idx) }
func (c *Code) LocalSet(idx uint32) *Code  { return c.indexed(opLocalSet, idx) }
func (c *Code) GlobalGet(idx uint32) *Code { return c.indexed(opGlobalGet, idx) }
func (c *Code) GlobalSet(idx uint32) *Code { return c.indexed(opGlobalSet, idx) }

// encode writes the body without its size prefix: local groups, then
// instructions, then end.
func (c *Code) encode() []byte {
	out := &Buffer{}

	type group struct {
		n   uint32
		typ api.ValueType
	}
	var groups []group
	for _, l := range c.locals {
		if len(groups) > 0 && groups[len(groups)-1].typ == l {
			groups[len(groups)-1].n++
			continue
		}
		groups = append(groups, group{n: 1, typ: l})
	}
	out.WriteU32(uint32(len(groups)))
	for _, g := range groups {
		out.WriteU32(g.n)
		out.AppendByte(g.typ)
	}

	out.WriteBytes(c.buf.Bytes)
	out.AppendByte(opEnd)
	return out.Bytes
}
