package trace

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero/api"
)

// Value is a typed WebAssembly value. Bits holds the value in wazero's
// uint64 stack encoding.
type Value struct {
	Bits uint64
	Type api.ValueType
}

func I32(v int32) Value {
	return Value{Type: api.ValueTypeI32, Bits: api.EncodeI32(v)}
}

func I64(v int64) Value {
	return Value{Type: api.ValueTypeI64, Bits: api.EncodeI64(v)}
}

func F32(v float32) Value {
	return Value{Type: api.ValueTypeF32, Bits: api.EncodeF32(v)}
}

func F64(v float64) Value {
	return Value{Type: api.ValueTypeF64, Bits: api.EncodeF64(v)}
}

// Zero returns the zero value of type t.
func Zero(t api.ValueType) Value {
	return Value{Type: t}
}

func (v Value) I32() int32       { return api.DecodeI32(v.Bits) }
func (v Value) U32() uint32      { return api.DecodeU32(v.Bits) }
func (v Value) I64() int64       { return int64(v.Bits) }
func (v Value) F32() float32     { return api.DecodeF32(v.Bits) }
func (v Value) F64() float64     { return api.DecodeF64(v.Bits) }
func (v Value) TypeName() string { return api.ValueTypeName(v.Type) }

// String renders the value as "<type>:<value>", e.g. "i32:3" or "f64:1.5".
// References render as hex.
func (v Value) String() string {
	switch v.Type {
	case api.ValueTypeI32:
		return "i32:" + strconv.FormatInt(int64(v.I32()), 10)
	case api.ValueTypeI64:
		return "i64:" + strconv.FormatInt(v.I64(), 10)
	case api.ValueTypeF32:
		return "f32:" + strconv.FormatFloat(float64(v.F32()), 'g', -1, 32)
	case api.ValueTypeF64:
		return "f64:" + strconv.FormatFloat(v.F64(), 'g', -1, 64)
	default:
		return fmt.Sprintf("%s:0x%x", api.ValueTypeName(v.Type), v.Bits)
	}
}

// ParseValue parses the String form of a value. Only numeric types are accepted.
func ParseValue(s string) (Value, error) {
	typ, lit, ok := strings.Cut(s, ":")
	if !ok {
		return Value{}, fmt.Errorf("value %q: want <type>:<literal>", s)
	}
	switch typ {
	case "i32":
		n, err := strconv.ParseInt(lit, 0, 32)
		if err != nil {
			// allow the unsigned range, e.g. i32:4294967295
			u, uerr := strconv.ParseUint(lit, 0, 32)
			if uerr != nil {
				return Value{}, fmt.Errorf("value %q: %w", s, err)
			}
			return Value{Type: api.ValueTypeI32, Bits: uint64(uint32(u))}, nil
		}
		return I32(int32(n)), nil
	case "i64":
		n, err := strconv.ParseInt(lit, 0, 64)
		if err != nil {
			u, uerr := strconv.ParseUint(lit, 0, 64)
			if uerr != nil {
				return Value{}, fmt.Errorf("value %q: %w", s, err)
			}
			return Value{Type: api.ValueTypeI64, Bits: u}, nil
		}
		return I64(n), nil
	case "f32":
		f, err := strconv.ParseFloat(lit, 32)
		if err != nil {
			return Value{}, fmt.Errorf("value %q: %w", s, err)
		}
		return F32(float32(f)), nil
	case "f64":
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return Value{}, fmt.Errorf("value %q: %w", s, err)
		}
		return F64(f), nil
	}
	return Value{}, fmt.Errorf("value %q: unsupported type %q", s, typ)
}

// Values pairs raw stack slots with their types. Extra slots are ignored.
func Values(types []api.ValueType, raw []uint64) []Value {
	n := len(types)
	if len(raw) < n {
		n = len(raw)
	}
	if n == 0 {
		return nil
	}
	out := make([]Value, n)
	for i := 0; i < n; i++ {
		out[i] = Value{Type: types[i], Bits: raw[i]}
	}
	return out
}
