package core

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/ledgersh/ledgersh/core/logger"
	"github.com/ledgersh/ledgersh/core/proc"
	"github.com/ledgersh/ledgersh/core/shell"
	"github.com/pborman/getopt/v2"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string) ExitSignal
}

type ShellBuiltinFunc func(s *Shell, args []string) ExitSignal

func (f ShellBuiltinFunc) Main(s *Shell, args []string) ExitSignal {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// Cd is the cd shell builtin
func Cd(s *Shell, args []string) ExitSignal {
	if len(args) < 2 {
		s.report(newShellError(ErrMissingArgument, `expected argument to "cd"`))
		return Continue
	}
	if err := os.Chdir(args[1]); err != nil {
		s.report(&ShellError{Kind: ErrDirectoryChange, Msg: strerror(err), Err: err})
	}
	return Continue
}

// Exit quits the shell, arguments are ignored.
func Exit(s *Shell, args []string) ExitSignal {
	return Terminate
}

// History prints the first n ledger entries, or all of them.
func History(s *Shell, args []string) ExitSignal {
	opts := getopt.New()
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		w := s.Stderr
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "usage: history [n]")
		fmt.Fprintln(w, "Display the first n recorded commands with their numbers.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		return Continue
	}

	limit := -1
	if rest := opts.Args(); len(rest) > 0 {
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 0 {
			n = 0
		}
		limit = n
	}

	for _, entry := range s.Ledger.List(limit) {
		fmt.Fprintf(s.Stdout, "%d.  %s\n", entry.Index, entry.Text)
	}
	return Continue
}

// Issue replays ledger entry n as if it were typed again, without recording
// it a second time.
func Issue(s *Shell, args []string) ExitSignal {
	if len(args) < 2 {
		s.report(newShellError(ErrMissingArgument, "Invalid call to issue"))
		return Continue
	}

	n, err := strconv.Atoi(args[1])
	if err != nil {
		n = 0
	}
	line, err := s.Ledger.Get(n)
	if err != nil {
		s.report(&ShellError{Kind: ErrOutOfRange, Msg: "command number out of bounds!", Err: err})
		return Continue
	}

	if s.MaxReplayDepth > 0 && s.replayDepth >= s.MaxReplayDepth {
		s.report(newShellError(ErrReplayDepthExceeded, "replay depth exceeded"))
		return Continue
	}

	s.replayDepth++
	defer func() { s.replayDepth-- }()

	return s.Dispatch(line)
}

// Rmexcept deletes every regular file in the working directory not named in
// its arguments. The work happens in a child process.
func Rmexcept(s *Shell, args []string) ExitSignal {
	res, err := s.Purger.Purge(args[1:])
	if err != nil {
		s.report(launchError(err))
		return Continue
	}

	s.Log.Info().
		Str(logger.FieldEvent, logger.EventPurge).
		Str(logger.FieldKind, purgeOutcome(res)).
		Int("keep", len(args)-1).
		Object("result", res).
		Send()
	return Continue
}

func purgeOutcome(res *proc.Result) string {
	if res.Exited && res.ExitCode == 0 {
		return "ok"
	}
	return "failed"
}

// Exectl runs a command in a child and kills it if it outlives the timeout
// given in whole seconds as the last argument.
func Exectl(s *Shell, args []string) ExitSignal {
	if len(args) < 3 {
		s.report(newShellError(ErrInsufficientArguments, "Not enough arguments"))
		return Continue
	}

	seconds, err := strconv.Atoi(args[len(args)-1])
	if err != nil || seconds < 1 {
		s.report(newShellError(ErrInvalidTimeout, "invalid time argument"))
		return Continue
	}

	c := shell.ClassifyArgs(args[1 : len(args)-1])
	cmd, cleanup, err := s.supervisedCommand(c)
	if err != nil {
		s.report(err)
		return Continue
	}
	defer cleanup()

	res, err := s.Supervisor.Run(s.ctx(), cmd, time.Duration(seconds)*time.Second)
	if err != nil {
		s.report(launchError(err))
		return Continue
	}

	s.Log.Info().
		Str(logger.FieldEvent, logger.EventExectl).
		Str(logger.FieldKind, c.Kind.String()).
		Str(logger.FieldName, c.Name()).
		Bool(logger.FieldTimedOut, res.TimedOut()).
		Int("timeout", seconds).
		Object("result", res).
		Send()
	return Continue
}

// supervisedCommand builds the child for an exectl target. Builtins run in a
// copy of the shell seeded with a snapshot of the ledger.
func (s *Shell) supervisedCommand(c shell.Classified) (*exec.Cmd, func(), error) {
	nop := func() {}

	switch c.Kind {
	case shell.KindExternal:
		return s.Launcher.Command(c.Args), nop, nil
	case shell.KindPassthrough:
		return s.Launcher.InterpreterCommand(c.Line), nop, nil
	}

	path, err := WriteSnapshot(s.Fs, s.Ledger, s.replayDepth)
	if err != nil {
		return nil, nop, err
	}
	cleanup := func() {
		if err := s.Fs.Remove(path); err != nil {
			s.Log.Warn().Err(err).Str("path", path).Msg("couldn't remove snapshot")
		}
	}

	cmd, err := s.ExecCommand(path, c.Line)
	if err != nil {
		cleanup()
		return nil, nop, &proc.StartError{Kind: proc.ErrForkFailure, Err: err}
	}
	return cmd, cleanup, nil
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
	AllBuiltins["history"] = ShellBuiltinFunc(History)
	AllBuiltins["issue"] = ShellBuiltinFunc(Issue)
	AllBuiltins["rmexcept"] = ShellBuiltinFunc(Rmexcept)
	AllBuiltins["exectl"] = ShellBuiltinFunc(Exectl)
}
