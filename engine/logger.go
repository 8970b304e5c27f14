package engine

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// Logger returns the logger used for engine debug records. It is a no-op
// logger until SetLogger installs another.
func Logger() *zap.Logger {
	return logger.Load()
}

// SetLogger replaces the engine's logger; nil restores the no-op logger.
// It may be called at any time and affects records emitted afterwards.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}
