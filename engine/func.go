package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/Forpee/poc-wasmi-v1-tracer/errors"
	"github.com/Forpee/poc-wasmi-v1-tracer/trace"
)

// unnamedHost names a host function in traces until a linker defines it.
const unnamedHost = "<host>"

// HostFunc is the body of a host function. The returned values must match
// the function's result types.
type HostFunc[T any] func(caller *Caller[T], params []Value) ([]Value, error)

type hostBody func(ctx context.Context, mod api.Module, params []Value) ([]Value, error)

// Func is a host or guest function belonging to one store
type Func struct {
	store *storeState
	guest api.Function
	host  hostBody
	name  string
	ty    FuncType
}

// NewFunc creates a host function of type ty in store
func NewFunc[T any](store *Store[T], ty FuncType, fn HostFunc[T]) *Func {
	return &Func{
		store: store.core,
		name:  unnamedHost,
		ty:    NewFuncType(ty.Params, ty.Results),
		host: func(ctx context.Context, mod api.Module, params []Value) ([]Value, error) {
			return fn(&Caller[T]{ctx: ctx, store: store, module: mod}, params)
		},
	}
}

func newGuestFunc(store *storeState, fn api.Function) *Func {
	def := fn.Definition()
	return &Func{
		store: store,
		guest: fn,
		name:  funcName(def),
		ty:    funcTypeOf(def),
	}
}

// Kind implements Extern
func (f *Func) Kind() ExternKind { return KindFunc }

// Type returns the function signature
func (f *Func) Type() FuncType { return NewFuncType(f.ty.Params, f.ty.Results) }

// Name returns the name the function carries in traces and errors
func (f *Func) Name() string { return f.name }

// IsHost reports whether the function is implemented in Go
func (f *Func) IsHost() bool { return f.host != nil }

// Call invokes the function without tracing. params must match the
// signature; results must have one slot per result and is overwritten.
func (f *Func) Call(ctx context.Context, store StoreContext, params, results []Value) error {
	return f.call(ctx, store, params, results, nil)
}

// CallWithTrace invokes the function and records every function-call
// boundary it crosses into rec, starting with a boundary entry. Entries are
// only ever appended; a trap leaves the entries recorded up to the fault.
func (f *Func) CallWithTrace(ctx context.Context, store StoreContext, params, results []Value, rec trace.Recorder) error {
	if rec == nil {
		return errors.InvalidInput(errors.PhaseRuntime, "nil trace recorder")
	}
	return f.call(ctx, store, params, results, rec)
}

func (f *Func) call(ctx context.Context, store StoreContext, params, results []Value, rec trace.Recorder) error {
	if store == nil || store.state() != f.store {
		return errors.StoreMismatch(errors.PhaseRuntime, "func "+f.name)
	}
	if err := checkValues(errors.PhaseRuntime, "param", f.ty.Params, params); err != nil {
		return err
	}
	if len(results) != len(f.ty.Results) {
		return errors.InvalidInput(errors.PhaseRuntime,
			fmt.Sprintf("expected %d result slots, got %d", len(f.ty.Results), len(results)))
	}

	var s *session
	if rec != nil {
		ctx, s = beginSession(ctx, rec, f.name)
	}
	Logger().Debug("call", zap.String("func", f.name), zap.Bool("traced", s != nil))

	var out []Value
	var err error
	if f.guest != nil {
		out, err = f.callGuest(ctx, params)
	} else {
		out, err = f.callHost(ctx, s, params)
	}
	if err != nil {
		Logger().Debug("call failed", zap.String("func", f.name), zap.Error(err))
		return err
	}
	copy(results, out)
	return nil
}

func (f *Func) callGuest(ctx context.Context, params []Value) ([]Value, error) {
	raw := make([]uint64, len(params))
	for i, p := range params {
		raw[i] = p.Bits
	}
	out, err := f.guest.Call(ctx, raw...)
	if err != nil {
		return nil, errors.Trap(f.name, err)
	}
	return trace.Values(f.ty.Results, out), nil
}

// callHost runs a host function called from Go rather than from a guest, so
// no listener sees it and the session is updated here.
func (f *Func) callHost(ctx context.Context, s *session, params []Value) ([]Value, error) {
	if s != nil {
		s.enter(trace.KindHostCall, f.name, slices.Clone(params))
	}
	out, err := f.runHost(ctx, nil, params)
	if err != nil {
		if s != nil {
			s.abort(f.name, err)
		}
		return nil, errors.Trap(f.name, err)
	}
	if s != nil {
		s.leave(trace.KindHostReturn, f.name, slices.Clone(out))
	}
	return out, nil
}

// runHost runs the host body, turning panics into errors and checking the
// returned values against the signature.
func (f *Func) runHost(ctx context.Context, mod api.Module, params []Value) (results []Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("host function %s panicked: %v", f.name, r)
		}
	}()

	results, err = f.host(ctx, mod, params)
	if err != nil {
		return nil, err
	}
	if err := checkValues(errors.PhaseHost, "result", f.ty.Results, results); err != nil {
		return nil, err
	}
	return results, nil
}

// hostFunc adapts the host body to wazero's stack calling convention. An
// error aborts the guest call; wazero recovers it and unwinds.
func (f *Func) hostFunc() api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		results, err := f.runHost(ctx, mod, trace.Values(f.ty.Params, stack))
		if err != nil {
			panic(err)
		}
		for i, r := range results {
			stack[i] = r.Bits
		}
	}
}

func checkValues(phase errors.Phase, what string, want []api.ValueType, got []Value) error {
	if len(got) != len(want) {
		return errors.InvalidInput(phase, fmt.Sprintf("expected %d %ss, got %d", len(want), what, len(got)))
	}
	for i, v := range got {
		if v.Type != want[i] {
			return errors.New(phase, errors.KindTypeMismatch).
				Value(v).
				Detail("%s %d: expected %s, got %s", what, i, api.ValueTypeName(want[i]), v.TypeName()).
				Build()
		}
	}
	return nil
}
