// Package logger is the structured application log of the shell.
//
// Entries are newline delimited JSON objects written by zerolog. Every entry
// carries the session id of the shell that wrote it and, for shell events,
// an "event" field naming what happened.
package logger

import (
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Event names.
const (
	// EventCommand is logged for every line the shell dispatches.
	EventCommand = "command"
	// EventReject is logged when a line can't be recorded.
	EventReject = "reject"
	// EventExectl is logged when a supervised child terminates.
	EventExectl = "exectl"
	// EventPurge is logged when a purge child terminates.
	EventPurge = "purge"
	// EventDiagnostic is logged for every error reported to the user.
	EventDiagnostic = "diagnostic"
)

// Field names shared by writers and the report reader.
const (
	FieldEvent    = "event"
	FieldSession  = "session"
	FieldKind     = "kind"
	FieldName     = "name"
	FieldTimedOut = "timed_out"
)

// Options configures the application log.
type Options struct {
	// Path of the log file, empty disables logging.
	Path  string
	Level string

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New creates a logger writing JSON lines to w tagged with a fresh session
// id.
func New(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str(FieldSession, uuid.NewString()).
		Logger(), nil
}

// Open creates the application logger, rotating the log file as it grows.
// The returned closer releases the file.
func Open(opts Options) (zerolog.Logger, io.Closer, error) {
	if opts.Path == "" || opts.Level == zerolog.Disabled.String() {
		return zerolog.Nop(), nopCloser{}, nil
	}

	w := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}

	log, err := New(w, opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}
	return log, w, nil
}
