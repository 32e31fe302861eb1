package logger

import (
	"go.uber.org/zap"

	"github.com/teranos/longrun/sym"
)

// The symbol travels as a structured field so messages stay greppable:
//
//	logger.PulseInfow("Service closed", logger.FieldCount, n)

func withSymbol(l *zap.SugaredLogger, symbol string) *zap.SugaredLogger {
	return l.With(FieldSymbol, symbol)
}

// PulseInfow logs job lifecycle events (꩜) on the global logger.
func PulseInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		withSymbol(Logger, sym.Pulse).Infow(msg, keysAndValues...)
	}
}

// PulseWarnw is PulseInfow at warn level.
func PulseWarnw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		withSymbol(Logger, sym.Pulse).Warnw(msg, keysAndValues...)
	}
}

// AddPulseSymbol tags l for job lifecycle events.
func AddPulseSymbol(l *zap.SugaredLogger) *zap.SugaredLogger { return withSymbol(l, sym.Pulse) }

// AddPulseOpenSymbol tags l for job sets being started (✿).
func AddPulseOpenSymbol(l *zap.SugaredLogger) *zap.SugaredLogger { return withSymbol(l, sym.PulseOpen) }

// AddPulseCloseSymbol tags l for jobs concluding or sets being released (❀).
func AddPulseCloseSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return withSymbol(l, sym.PulseClose)
}

// AddDBSymbol tags l for registry database events (⊔).
func AddDBSymbol(l *zap.SugaredLogger) *zap.SugaredLogger { return withSymbol(l, sym.DB) }
