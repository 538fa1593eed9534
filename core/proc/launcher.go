// Package proc launches external programs for the shell and waits for them
// to reach a terminal state.
package proc

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"syscall"

	"github.com/rs/zerolog"
)

var (
	// ErrProgramNotFound is returned when the program can't be located or
	// executed.
	ErrProgramNotFound = errors.New("program not found")
	// ErrForkFailure is returned when the child process couldn't be created.
	ErrForkFailure = errors.New("fork failure")
)

// DefaultInterpreter receives passthrough lines as its final argument.
var DefaultInterpreter = []string{"/bin/sh", "-c"}

// StartError describes why a child process never ran. It unwraps to both
// ErrProgramNotFound or ErrForkFailure and the underlying OS error.
type StartError struct {
	Kind error
	Err  error
}

func (e *StartError) Error() string {
	return e.Err.Error()
}

func (e *StartError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func startError(err error) error {
	kind := ErrForkFailure
	switch {
	case errors.Is(err, exec.ErrNotFound),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrPermission):
		kind = ErrProgramNotFound
	}
	return &StartError{Kind: kind, Err: err}
}

// Result is the terminal state of a child process.
type Result struct {
	Pid int
	// Exited is set if the child terminated normally, ExitCode holds its status.
	Exited   bool
	ExitCode int
	// Signaled is set if the child was killed by Signal.
	Signaled bool
	Signal   syscall.Signal
	// Cancelled is set if the child's handle delivered a kill.
	Cancelled bool
}

// TimedOut reports whether the child died from its own cancellation.
func (r *Result) TimedOut() bool {
	return r.Cancelled && r.Signaled
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (r *Result) MarshalZerologObject(e *zerolog.Event) {
	e.Int("pid", r.Pid).Bool("exited", r.Exited).Int("exit_code", r.ExitCode)
	if r.Signaled {
		e.Str("signal", r.Signal.String())
	}
	e.Bool("cancelled", r.Cancelled)
}

func newResult(state *os.ProcessState) *Result {
	r := &Result{
		Pid:      state.Pid(),
		Exited:   state.Exited(),
		ExitCode: state.ExitCode(),
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		r.Signaled = true
		r.Signal = ws.Signal()
	}
	return r
}

// Launcher spawns children that share the shell's standard streams and
// working directory.
type Launcher struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Interpreter is the argv prefix used for passthrough lines.
	Interpreter []string

	Log zerolog.Logger
}

// NewLauncher creates a launcher attached to the process's standard streams.
func NewLauncher(interpreter []string, log zerolog.Logger) *Launcher {
	if len(interpreter) == 0 {
		interpreter = DefaultInterpreter
	}
	return &Launcher{
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Interpreter: interpreter,
		Log:         log,
	}
}

func (l *Launcher) attach(cmd *exec.Cmd) *exec.Cmd {
	if cmd.Stdin == nil {
		cmd.Stdin = l.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = l.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = l.Stderr
	}
	return cmd
}

// Command builds a child that replaces its image with args[0], found on the
// PATH.
func (l *Launcher) Command(args []string) *exec.Cmd {
	return l.attach(exec.Command(args[0], args[1:]...))
}

// InterpreterCommand builds a child that hands the raw line to the
// passthrough interpreter.
func (l *Launcher) InterpreterCommand(line string) *exec.Cmd {
	argv := append(append([]string{}, l.Interpreter...), line)
	return l.attach(exec.Command(argv[0], argv[1:]...))
}

// Known runs the named program with the argument vector and waits for it.
func (l *Launcher) Known(args []string) (*Result, error) {
	if len(args) == 0 {
		return nil, &StartError{Kind: ErrProgramNotFound, Err: exec.ErrNotFound}
	}
	return l.Run(l.Command(args))
}

// Passthrough runs the raw line under the interpreter and waits for it.
func (l *Launcher) Passthrough(line string) (*Result, error) {
	return l.Run(l.InterpreterCommand(line))
}

// Run starts the command and blocks until it exits or is killed by a signal.
// A non-zero exit status is a result, not an error.
func (l *Launcher) Run(cmd *exec.Cmd) (*Result, error) {
	if err := l.Start(cmd); err != nil {
		return nil, err
	}
	return l.Wait(cmd)
}

// Start spawns the child without waiting.
func (l *Launcher) Start(cmd *exec.Cmd) error {
	l.attach(cmd)
	if err := cmd.Start(); err != nil {
		l.Log.Warn().Err(err).Strs("argv", cmd.Args).Msg("start failed")
		return startError(err)
	}
	return nil
}

// Wait blocks until the started child reaches a terminal state. Stopped
// children aren't terminal, the wait continues until they exit or die.
func (l *Launcher) Wait(cmd *exec.Cmd) (*Result, error) {
	err := cmd.Wait()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) && cmd.ProcessState == nil {
		return nil, err
	}

	res := newResult(cmd.ProcessState)
	l.Log.Debug().Strs("argv", cmd.Args).Object("result", res).Msg("process")

	if err != nil && exitErr == nil {
		// The child finished but copying its output failed.
		return res, err
	}
	return res, nil
}
