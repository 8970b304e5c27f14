package engine

import (
	"context"
	"strconv"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"

	"github.com/Forpee/poc-wasmi-v1-tracer/errors"
	"github.com/Forpee/poc-wasmi-v1-tracer/trace"
)

type sessionKey struct{}

// session is the state of one traced invocation. It travels in the call
// context so that only calls made through CallWithTrace are recorded.
type session struct {
	rec     trace.Recorder
	step    int
	depth   int
	trapped bool
}

// beginSession records the invocation boundary and returns ctx carrying the
// new session. A session already present in ctx is shadowed.
func beginSession(ctx context.Context, rec trace.Recorder, name string) (context.Context, *session) {
	s := &session{rec: rec}
	rec.Record(trace.Entry{Kind: trace.KindBoundary, Func: name})
	return context.WithValue(ctx, sessionKey{}, s), s
}

func sessionFrom(ctx context.Context) *session {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(sessionKey{}).(*session)
	return s
}

func (s *session) enter(kind trace.Kind, name string, vals []trace.Value) {
	s.trapped = false
	s.step++
	s.rec.Record(trace.Entry{Kind: kind, Func: name, Values: vals, Step: s.step, Depth: s.depth})
	s.depth++
}

func (s *session) leave(kind trace.Kind, name string, vals []trace.Value) {
	s.trapped = false
	s.depth--
	s.step++
	s.rec.Record(trace.Entry{Kind: kind, Func: name, Values: vals, Step: s.step, Depth: s.depth})
}

// abort is called once per unwound frame, innermost first. Only the first
// frame of an unwind is recorded.
func (s *session) abort(name string, err error) {
	s.depth--
	if s.trapped {
		return
	}
	s.trapped = true
	s.step++
	detail := "trap"
	if err != nil {
		detail = errors.FirstLine(err.Error())
	}
	s.rec.Record(trace.Entry{Kind: trace.KindTrap, Func: name, Detail: detail, Step: s.step, Depth: s.depth})
}

// listenerFactory attaches a funcListener to every function of every module
// compiled by an engine.
type listenerFactory struct{}

func (listenerFactory) NewFunctionListener(def api.FunctionDefinition) experimental.FunctionListener {
	l := &funcListener{
		name:    funcName(def),
		params:  def.ParamTypes(),
		results: def.ResultTypes(),
		call:    trace.KindCall,
		ret:     trace.KindReturn,
	}
	if def.GoFunction() != nil {
		l.call, l.ret = trace.KindHostCall, trace.KindHostReturn
	}
	return l
}

type funcListener struct {
	name      string
	params    []api.ValueType
	results   []api.ValueType
	call, ret trace.Kind
}

func (l *funcListener) Before(ctx context.Context, _ api.Module, _ api.FunctionDefinition, params []uint64, _ experimental.StackIterator) {
	if s := sessionFrom(ctx); s != nil {
		s.enter(l.call, l.name, trace.Values(l.params, params))
	}
}

func (l *funcListener) After(ctx context.Context, _ api.Module, _ api.FunctionDefinition, results []uint64) {
	if s := sessionFrom(ctx); s != nil {
		s.leave(l.ret, l.name, trace.Values(l.results, results))
	}
}

func (l *funcListener) Abort(ctx context.Context, _ api.Module, _ api.FunctionDefinition, err error) {
	if s := sessionFrom(ctx); s != nil {
		s.abort(l.name, err)
	}
}

// funcName names a function in trace output: its debug name, else its first
// export name, else its index. Functions of named modules, host modules
// included, are qualified as "module.name".
func funcName(def api.FunctionDefinition) string {
	name := def.Name()
	if name == "" {
		if exports := def.ExportNames(); len(exports) > 0 {
			name = exports[0]
		} else {
			name = "$" + strconv.FormatUint(uint64(def.Index()), 10)
		}
	}
	if mod := def.ModuleName(); mod != "" {
		return mod + "." + name
	}
	return name
}
