// Package logging provides the leveled, prefixed, optionally-colored sink
// used across webserv. Levels are advisory only: nothing on the connection
// read/write hot path filters on level, matching spec.md §7.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with the four named levels spec.md §7 calls
// for, mirroring the operator-chaining feel of the original's LoggerStream
// ("m_Logger.info() << ... << ...") through zerolog's fluent Event API.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger writing colorized, human-readable lines to console
// (when attached to a terminal) and plain lines to file. file may be nil to
// disable the persisted sink.
func New(console io.Writer, file io.Writer) *Logger {
	writers := make([]io.Writer, 0, 2)
	if console != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: time.RFC3339,
			NoColor:    !isTerminal(console),
		})
	}
	if file != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = io.Discard
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	zl := zerolog.New(out).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// NewFileLogger opens path (append, create) as the persisted sink and writes
// to stderr as the console sink, matching spec.md §6's "webserv.log" default
// and the original's stderr-before-log-exists behavior for early failures.
func NewFileLogger(path string) (*Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return New(os.Stderr, f), f, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// Debug starts a debug-level record.
func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }

// Info starts an info-level record.
func (l *Logger) Info() *zerolog.Event { return l.zl.Info() }

// Warn starts a warn-level record.
func (l *Logger) Warn() *zerolog.Event { return l.zl.Warn() }

// Error starts an error-level record.
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

// Warnf satisfies config.WarnFunc, routing config-parse warnings through the
// same sink as everything else.
func (l *Logger) Warnf(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}
