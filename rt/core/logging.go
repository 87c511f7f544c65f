package core

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Logger is the logging surface shared by the particle runtime.
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	// Named returns a child logger whose prefix is extended by name. Children
	// share outputs and the debug switch with their parent.
	Named(name string) Logger
}

// logSink is the state shared by a logger and all of its children.
type logSink struct {
	mu    sync.Mutex
	debug bool
	out   *log.Logger
	err   *log.Logger
}

// DefaultLogger writes "[prefix] LEVEL: message" lines through the standard
// log package.
type DefaultLogger struct {
	sink   *logSink
	prefix string
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return NewLoggerTo(prefix, debug, os.Stdout, os.Stderr)
}

// NewLoggerTo writes debug/info lines to out and warnings/errors to errOut.
func NewLoggerTo(prefix string, debug bool, out, errOut io.Writer) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &DefaultLogger{
		sink: &logSink{
			debug: debug,
			out:   log.New(out, "", flags),
			err:   log.New(errOut, "", flags),
		},
		prefix: prefix,
	}
}

func (l *DefaultLogger) Prefix() string { return l.prefix }

func (l *DefaultLogger) Named(name string) Logger {
	switch {
	case name == "":
		return l
	case l.prefix == "":
		return &DefaultLogger{sink: l.sink, prefix: name}
	}
	return &DefaultLogger{sink: l.sink, prefix: l.prefix + "." + name}
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return l.sink.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.sink.mu.Lock()
	l.sink.debug = enabled
	l.sink.mu.Unlock()
}

func (l *DefaultLogger) line(level, format string, args []any) string {
	msg := fmt.Sprintf(format, args...)
	if l.prefix == "" {
		return level + ": " + msg
	}
	return "[" + l.prefix + "] " + level + ": " + msg
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if !l.DebugEnabled() {
		return
	}
	l.sink.out.Print(l.line("DEBUG", format, args))
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.sink.out.Print(l.line("INFO", format, args))
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.sink.err.Print(l.line("WARN", format, args))
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.sink.err.Print(l.line("ERROR", format, args))
}

type nopLogger struct{}

func NewNopLogger() Logger              { return nopLogger{} }
func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
func (n nopLogger) Named(string) Logger { return n }

// OrNop returns l, or a no-op logger when l is nil. Never returns nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}
