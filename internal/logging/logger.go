// Package logging provides the logging interface used by the database
// facade and its background workers.
//
// Reference: aalhour/rockyardkv internal/logging, trimmed to the
// five-level interface and a stdlib-backed default implementation. The
// teacher keeps this on the standard library despite documenting that
// callers may wrap slog/zap, and so do we — see SPEC_FULL.md §A.1.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger is the logging interface background workers and the database
// facade write through.
type Logger interface {
	Errorf(format string, args ...any)
	Warnf(format string, args ...any)
	Infof(format string, args ...any)
	Debugf(format string, args ...any)
}

// discardLogger drops every message.
type discardLogger struct{}

func (discardLogger) Errorf(string, ...any) {}
func (discardLogger) Warnf(string, ...any)  {}
func (discardLogger) Infof(string, ...any)  {}
func (discardLogger) Debugf(string, ...any) {}

// Discard is a Logger that drops every message.
var Discard Logger = discardLogger{}

// Level controls which messages a default Logger emits.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// defaultLogger writes "LEVEL [component] message" lines to an io.Writer
// via the standard library's log.Logger.
type defaultLogger struct {
	component string
	level     Level
	l         *log.Logger
}

// New creates a Logger that writes to w, prefixed with component, at the
// given verbosity level.
func New(w io.Writer, component string, level Level) Logger {
	if w == nil {
		w = os.Stderr
	}
	return &defaultLogger{
		component: component,
		level:     level,
		l:         log.New(w, "", log.LstdFlags),
	}
}

func (d *defaultLogger) emit(level Level, tag, format string, args ...any) {
	if level > d.level {
		return
	}
	d.l.Printf("%s [%s] %s", tag, d.component, fmt.Sprintf(format, args...))
}

func (d *defaultLogger) Errorf(format string, args ...any) { d.emit(LevelError, "ERROR", format, args...) }
func (d *defaultLogger) Warnf(format string, args ...any)  { d.emit(LevelWarn, "WARN", format, args...) }
func (d *defaultLogger) Infof(format string, args ...any)  { d.emit(LevelInfo, "INFO", format, args...) }
func (d *defaultLogger) Debugf(format string, args ...any) { d.emit(LevelDebug, "DEBUG", format, args...) }
