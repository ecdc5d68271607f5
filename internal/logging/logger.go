// Package logging provides the leveled key/value logger used across the
// plate reader. Output goes through the standard log package so the MCP
// binary can keep stdout free for protocol frames.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a level name to a Level. Unknown names yield LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Logger provides structured logging with key-value pairs.
type Logger struct {
	logger *log.Logger
	level  Level
	fields []interface{}
}

// NewLogger creates a logger writing to stderr with the given prefix.
func NewLogger(prefix string, level Level) *Logger {
	return New(os.Stderr, prefix, level)
}

// New creates a logger writing to w.
func New(w io.Writer, prefix string, level Level) *Logger {
	p := ""
	if prefix != "" {
		p = fmt.Sprintf("[%s] ", prefix)
	}
	return &Logger{
		logger: log.New(w, p, log.Ldate|log.Ltime),
		level:  level,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, "", LevelError+1)
}

// With returns a child logger that prepends the given key-value pairs to
// every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l == nil {
		return nil
	}
	fields := make([]interface{}, 0, len(l.fields)+len(keysAndValues))
	fields = append(fields, l.fields...)
	fields = append(fields, keysAndValues...)
	return &Logger{logger: l.logger, level: l.level, fields: fields}
}

// Enabled reports whether entries at level are written.
func (l *Logger) Enabled(level Level) bool {
	return l != nil && level >= l.level
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.logWithKV(LevelDebug, msg, keysAndValues...)
}

// Info logs an informational message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.logWithKV(LevelInfo, msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.logWithKV(LevelWarn, msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.logWithKV(LevelError, msg, keysAndValues...)
}

func (l *Logger) logWithKV(level Level, msg string, keysAndValues ...interface{}) {
	if !l.Enabled(level) {
		return
	}
	var b strings.Builder
	writeKV(&b, l.fields)
	writeKV(&b, keysAndValues)
	l.logger.Printf("[%s] %s%s", level, msg, b.String())
}

func writeKV(b *strings.Builder, kv []interface{}) {
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			fmt.Fprintf(b, " %v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(b, " %v=<missing>", kv[i])
		}
	}
}
