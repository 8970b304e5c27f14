package trace

import (
	"go.uber.org/zap"
)

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Entry)

func (f RecorderFunc) Record(e Entry) { f(e) }

// Filter forwards only the entries for which keep returns true.
func Filter(next Recorder, keep func(Entry) bool) Recorder {
	return RecorderFunc(func(e Entry) {
		if keep(e) {
			next.Record(e)
		}
	})
}

// Tee forwards every entry to each recorder in order.
func Tee(recs ...Recorder) Recorder {
	return RecorderFunc(func(e Entry) {
		for _, r := range recs {
			r.Record(e)
		}
	})
}

// HostOnly keeps boundaries, host function events and traps.
func HostOnly(e Entry) bool {
	return e.Kind == KindBoundary || e.Kind == KindTrap || e.Kind.IsHost()
}

// LogRecorder emits each entry as a debug record on a zap logger.
type LogRecorder struct {
	logger *zap.Logger
}

func NewLogRecorder(logger *zap.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) Record(e Entry) {
	if ce := r.logger.Check(zap.DebugLevel, "trace"); ce != nil {
		fields := []zap.Field{
			zap.Stringer("kind", e.Kind),
			zap.String("func", e.Func),
			zap.Int("step", e.Step),
			zap.Int("depth", e.Depth),
		}
		if len(e.Values) > 0 {
			fields = append(fields, zap.Strings("values", valueStrings(e.Values)))
		}
		if e.Detail != "" {
			fields = append(fields, zap.String("detail", e.Detail))
		}
		ce.Write(fields...)
	}
}

func valueStrings(vs []Value) []string {
	if len(vs) == 0 {
		return nil
	}
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}
