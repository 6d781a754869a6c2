package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with a key/value call style
type Logger struct {
	zl     zerolog.Logger
	fields []interface{} // bound by With, emitted before call-site fields
}

var global = NewDevelopment()

// NewProduction creates a production logger with JSON output
func NewProduction() *Logger {
	return NewWithWriter(os.Stdout, zerolog.InfoLevel)
}

// NewDevelopment creates a development logger with pretty console output
func NewDevelopment() *Logger {
	return NewWithWriter(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}, zerolog.DebugLevel)
}

// NewWithWriter creates a logger with custom writer
func NewWithWriter(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{
		zl: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// SetGlobal sets the global logger instance
func SetGlobal(logger *Logger) {
	if logger != nil {
		global = logger
	}
}

// Global returns the global logger instance
func Global() *Logger {
	return global
}

// write emits e with the bound fields followed by kv.
// A trailing key without a value is dropped; non-string keys are skipped.
func (l *Logger) write(e *zerolog.Event, msg string, kv []interface{}) {
	if e == nil {
		return
	}
	appendFields(e, l.fields)
	appendFields(e, kv)
	e.Msg(msg)
}

func appendFields(e *zerolog.Event, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if err, isErr := kv[i+1].(error); isErr {
			e.Str(key, err.Error())
			continue
		}
		e.Interface(key, kv[i+1])
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...interface{}) { l.write(l.zl.Debug(), msg, fields) }

// Info logs an info message
func (l *Logger) Info(msg string, fields ...interface{}) { l.write(l.zl.Info(), msg, fields) }

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...interface{}) { l.write(l.zl.Warn(), msg, fields) }

// Error logs an error message
func (l *Logger) Error(msg string, fields ...interface{}) { l.write(l.zl.Error(), msg, fields) }

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string, fields ...interface{}) { l.write(l.zl.Fatal(), msg, fields) }

// With creates a child logger with additional fields
func (l *Logger) With(fields ...interface{}) *Logger {
	merged := make([]interface{}, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{zl: l.zl, fields: merged}
}

// Global convenience functions

// Info logs an info message using global logger
func Info(msg string, fields ...interface{}) {
	global.Info(msg, fields...)
}

// Warn logs a warning message using global logger
func Warn(msg string, fields ...interface{}) {
	global.Warn(msg, fields...)
}

// Error logs an error message using global logger
func Error(msg string, fields ...interface{}) {
	global.Error(msg, fields...)
}

// Fatal logs a fatal message and exits using global logger
func Fatal(msg string, fields ...interface{}) {
	global.Fatal(msg, fields...)
}
