// Package tracelog is a minimal io.Writer-backed logger used for the
// solver's optional trace output and the Workspace's delegate-driven
// progress reporting.
package tracelog

import (
	"fmt"
	"io"
)

// Logger is a minimal wrapper around an io.Writer.
type Logger struct {
	io.Writer
}

// New returns a new Logger which writes to w. A nil w is valid and
// discards everything, so callers can pass a possibly-unset
// *tracelog.Logger around without nil-checking at every call site.
func New(w io.Writer) *Logger {
	return &Logger{Writer: w}
}

// Logln logs a line.
func (l *Logger) Logln(args ...interface{}) {
	if l == nil || l.Writer == nil {
		return
	}
	fmt.Fprintln(l.Writer, args...)
}

// Logf logs a formatted string.
func (l *Logger) Logf(f string, args ...interface{}) {
	if l == nil || l.Writer == nil {
		return
	}
	fmt.Fprintf(l.Writer, f, args...)
}

// LogTracefln logs a formatted line, prefixed with "resolve: ", for the
// solver's step-by-step trace output.
func (l *Logger) LogTracefln(format string, args ...interface{}) {
	if l == nil || l.Writer == nil {
		return
	}
	fmt.Fprintf(l.Writer, "resolve: "+format+"\n", args...)
}
