// Package xlog provides component-scoped structured logging on top of
// github.com/charmbracelet/log, the teacher's own logging library. Every
// component takes an optional *Logger and falls back to a package-level
// default so tests never need to wire one up.
package xlog

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger wraps a charmbracelet/log logger scoped to one component
// ("store", "query", "keyword", ...).
type Logger struct {
	base *log.Logger
}

var defaultLogger = New("info")

// New constructs a root logger at the given level ("debug", "info",
// "warn", "error"). Unrecognized levels fall back to info.
func New(level string) *Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	l.SetLevel(parseLevel(level))
	return &Logger{base: l}
}

func parseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// For returns a logger scoped to the named component, carried as a
// structured field on every line it emits.
func For(component string) *Logger {
	return &Logger{base: defaultLogger.base.With("component", component)}
}

// SetDefault replaces the package-level default used by For, typically
// called once at process entry after config.Load().
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

func (l *Logger) with(keyvals ...interface{}) *log.Logger {
	if l == nil || l.base == nil {
		return defaultLogger.base
	}
	return l.base
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) { l.with().Debug(msg, keyvals...) }
func (l *Logger) Info(msg string, keyvals ...interface{})  { l.with().Info(msg, keyvals...) }
func (l *Logger) Warn(msg string, keyvals ...interface{})  { l.with().Warn(msg, keyvals...) }
func (l *Logger) Error(msg string, keyvals ...interface{}) { l.with().Error(msg, keyvals...) }
