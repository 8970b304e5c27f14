package engine

import (
	"context"
	"fmt"
	"reflect"

	"github.com/tetratelabs/wazero/api"

	"github.com/Forpee/poc-wasmi-v1-tracer/errors"
	"github.com/Forpee/poc-wasmi-v1-tracer/trace"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Wrap creates a host function from a Go function, deriving its signature
// by reflection. fn may start with a context.Context and then a *Caller[T];
// the remaining parameters and results must be int32, uint32, int64, uint64,
// float32 or float64. A trailing error result aborts the calling guest.
//
//	print, err := engine.Wrap(store, func(c *engine.Caller[uint32], v int32) {
//		fmt.Println(v, c.Data())
//	})
func Wrap[T any](store *Store[T], fn any) (*Func, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, errors.New(errors.PhaseHost, errors.KindInvalidInput).
			Value(fn).
			Detail("Wrap expects a function, got %T", fn).
			Build()
	}
	rt := rv.Type()

	callerType := reflect.TypeOf((*Caller[T])(nil))
	in := 0
	withCtx := in < rt.NumIn() && rt.In(in) == contextType
	if withCtx {
		in++
	}
	withCaller := in < rt.NumIn() && rt.In(in) == callerType
	if withCaller {
		in++
	}
	first := in

	var ty FuncType
	for ; in < rt.NumIn(); in++ {
		vt, err := valueTypeOf(rt.In(in))
		if err != nil {
			return nil, err
		}
		ty.Params = append(ty.Params, vt)
	}

	numOut := rt.NumOut()
	withErr := numOut > 0 && rt.Out(numOut-1) == errorType
	if withErr {
		numOut--
	}
	for i := 0; i < numOut; i++ {
		vt, err := valueTypeOf(rt.Out(i))
		if err != nil {
			return nil, err
		}
		ty.Results = append(ty.Results, vt)
	}

	body := func(caller *Caller[T], params []Value) ([]Value, error) {
		args := make([]reflect.Value, 0, rt.NumIn())
		if withCtx {
			args = append(args, reflect.ValueOf(caller.Context()))
		}
		if withCaller {
			args = append(args, reflect.ValueOf(caller))
		}
		for i, p := range params {
			args = append(args, fromValue(p, rt.In(first+i)))
		}

		outs := rv.Call(args)
		if withErr {
			if last := outs[len(outs)-1]; !last.IsNil() {
				return nil, last.Interface().(error)
			}
			outs = outs[:len(outs)-1]
		}

		results := make([]Value, len(outs))
		for i, out := range outs {
			results[i] = toValue(out)
		}
		return results, nil
	}
	return NewFunc(store, ty, body), nil
}

func valueTypeOf(t reflect.Type) (api.ValueType, error) {
	switch t.Kind() {
	case reflect.Int32, reflect.Uint32:
		return api.ValueTypeI32, nil
	case reflect.Int64, reflect.Uint64:
		return api.ValueTypeI64, nil
	case reflect.Float32:
		return api.ValueTypeF32, nil
	case reflect.Float64:
		return api.ValueTypeF64, nil
	}
	return 0, errors.New(errors.PhaseHost, errors.KindUnsupported).
		Detail("unsupported host function type %s", t).
		Build()
}

func fromValue(v Value, t reflect.Type) reflect.Value {
	var rv reflect.Value
	switch t.Kind() {
	case reflect.Int32:
		rv = reflect.ValueOf(v.I32())
	case reflect.Uint32:
		rv = reflect.ValueOf(v.U32())
	case reflect.Int64:
		rv = reflect.ValueOf(v.I64())
	case reflect.Uint64:
		rv = reflect.ValueOf(v.Bits)
	case reflect.Float32:
		rv = reflect.ValueOf(v.F32())
	case reflect.Float64:
		rv = reflect.ValueOf(v.F64())
	default:
		panic(fmt.Sprintf("unsupported host function type %s", t))
	}
	return rv.Convert(t)
}

func toValue(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Int32:
		return trace.I32(int32(rv.Int()))
	case reflect.Uint32:
		return Value{Type: api.ValueTypeI32, Bits: uint64(uint32(rv.Uint()))}
	case reflect.Int64:
		return trace.I64(rv.Int())
	case reflect.Uint64:
		return Value{Type: api.ValueTypeI64, Bits: rv.Uint()}
	case reflect.Float32:
		return trace.F32(float32(rv.Float()))
	default:
		return trace.F64(rv.Float())
	}
}
