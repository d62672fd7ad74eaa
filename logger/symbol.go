package logger

import (
	"go.uber.org/zap"

	"github.com/katje/colorizer/sym"
)

// Symbol-aware logging helpers.
// These functions log with the symbol as a structured field, not in the message.
//
// Usage:
//
//	// Instead of:
//	logger.Infow(sym.Queue + " Job started", "job_id", id)
//
//	// Use:
//	logger.QueueInfow("Job started", "job_id", id)
//
// This makes logs queryable by symbol and keeps messages clean.

// QueueInfow logs an info message with the Queue symbol (꩜)
func QueueInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Queue}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// QueueDebugw logs a debug message with the Queue symbol (꩜)
func QueueDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Queue}, keysAndValues...)
		Logger.Debugw(msg, fields...)
	}
}

// QueueWarnw logs a warning message with the Queue symbol (꩜)
func QueueWarnw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Queue}, keysAndValues...)
		Logger.Warnw(msg, fields...)
	}
}

// QueueErrorw logs an error message with the Queue symbol (꩜)
func QueueErrorw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Queue}, keysAndValues...)
		Logger.Errorw(msg, fields...)
	}
}

// OpenInfow logs an info message with the Open symbol (✿)
// Used for graceful startup operations
func OpenInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Open}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// CloseInfow logs an info message with the Close symbol (❀)
// Used for graceful shutdown operations
func CloseInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Close}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// BrushInfow logs an info message with the Brush symbol (◍)
// Used for generation/model calls
func BrushInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Brush}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// BrushDebugw logs a debug message with the Brush symbol (◍)
func BrushDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Brush}, keysAndValues...)
		Logger.Debugw(msg, fields...)
	}
}

// DBInfow logs an info message with the DB symbol (⊔)
// Used for database/storage operations
func DBInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.DB}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// DBDebugw logs a debug message with the DB symbol (⊔)
func DBDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.DB}, keysAndValues...)
		Logger.Debugw(msg, fields...)
	}
}

// SinkInfow logs an info message with the Sink symbol (⇩)
// Used for delivery/download operations
func SinkInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, sym.Sink}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// WithSymbol returns a logger with the given symbol as a field.
// For ad-hoc symbol usage not covered by the helpers above.
//
// Example:
//
//	symbolLogger := logger.WithSymbol(sym.Gallery)
//	symbolLogger.Infow("Result stored", "result_id", id)
func WithSymbol(symbol string) *zap.SugaredLogger {
	return Logger.With(FieldSymbol, symbol)
}

// SymbolInfow logs with any symbol - for dynamic symbol usage
func SymbolInfow(symbol, msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		fields := append([]interface{}{FieldSymbol, symbol}, keysAndValues...)
		Logger.Infow(msg, fields...)
	}
}

// ============================================================================
// Instance logger wrappers
// ============================================================================
// These functions wrap any logger with a symbol field, useful when you have
// an instance logger (e.g., s.logger, q.logger) rather than the global Logger.
//
// Usage:
//
//	// At initialization:
//	type Scheduler struct {
//	    queueLog *zap.SugaredLogger
//	}
//	s.queueLog = logger.AddQueueSymbol(baseLogger)
//
//	// Or inline:
//	logger.AddQueueSymbol(s.logger).Infow("Scheduler started", "concurrency", n)

// AddQueueSymbol wraps a logger with the Queue symbol (꩜)
func AddQueueSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Queue)
}

// AddOpenSymbol wraps a logger with the Open symbol (✿)
func AddOpenSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Open)
}

// AddCloseSymbol wraps a logger with the Close symbol (❀)
func AddCloseSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Close)
}

// AddDBSymbol wraps a logger with the DB symbol (⊔)
func AddDBSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.DB)
}

// AddBrushSymbol wraps a logger with the Brush symbol (◍)
func AddBrushSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Brush)
}

// AddSinkSymbol wraps a logger with the Sink symbol (⇩)
func AddSinkSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Sink)
}
