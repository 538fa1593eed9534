package core

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/ledgersh/ledgersh/core/ledger"
	"github.com/ledgersh/ledgersh/core/logger"
	"github.com/ledgersh/ledgersh/core/proc"
	"github.com/ledgersh/ledgersh/core/purge"
)

// DiagnosticPrefix starts every error line written to stderr.
const DiagnosticPrefix = "shell_error:"

var (
	ErrMissingArgument       = errors.New("missing argument")
	ErrOutOfRange            = errors.New("out of range")
	ErrInsufficientArguments = errors.New("insufficient arguments")
	ErrInvalidTimeout        = errors.New("invalid timeout")
	ErrDirectoryChange       = errors.New("directory change failed")
	ErrReplayDepthExceeded   = errors.New("replay depth exceeded")
)

// kinds are checked in order to name the error in the log.
var kinds = []error{
	ErrMissingArgument,
	ErrOutOfRange,
	ErrInsufficientArguments,
	ErrInvalidTimeout,
	ErrDirectoryChange,
	ErrReplayDepthExceeded,
	proc.ErrProgramNotFound,
	proc.ErrForkFailure,
	purge.ErrEnumeration,
	ledger.ErrEntryTooLong,
	ledger.ErrLedgerFull,
}

// ShellError is an error reported to the user. Msg is the exact diagnostic
// text; the error unwraps to its Kind and the cause, if any.
type ShellError struct {
	Kind error
	Msg  string
	Err  error
}

func (e *ShellError) Error() string {
	return e.Msg
}

func (e *ShellError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newShellError(kind error, msg string) *ShellError {
	return &ShellError{Kind: kind, Msg: msg}
}

// strerror renders an OS error the way the C library describes its errno,
// e.g. "No such file or directory". Other errors keep their own text.
func strerror(err error) string {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return err.Error()
	}
	msg := errno.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// launchError turns a failure to start a child into a diagnostic. A program
// missing from the PATH reads like a failed execvp.
func launchError(err error) error {
	var start *proc.StartError
	if !errors.As(err, &start) {
		return err
	}

	msg := strerror(start.Err)
	if errors.Is(start.Err, exec.ErrNotFound) {
		msg = strerror(syscall.ENOENT)
	}
	return &ShellError{Kind: start.Kind, Msg: msg, Err: err}
}

func kindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return "unknown"
}

// report writes the error to stderr and logs it. Nil errors are ignored.
func (s *Shell) report(err error) {
	if err == nil {
		return
	}

	s.Log.Warn().
		Str(logger.FieldEvent, logger.EventDiagnostic).
		Str(logger.FieldKind, kindOf(err)).
		Err(err).
		Send()

	prefix := DiagnosticPrefix
	if s.Color {
		c := color.New(color.FgRed, color.Bold)
		c.EnableColor()
		prefix = c.Sprint(DiagnosticPrefix)
	}
	fmt.Fprintf(s.Stderr, "%s %v\n", prefix, err)
}
