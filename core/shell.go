package core

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/abiosoft/readline"
	"github.com/ledgersh/ledgersh/core/config"
	"github.com/ledgersh/ledgersh/core/ledger"
	"github.com/ledgersh/ledgersh/core/logger"
	"github.com/ledgersh/ledgersh/core/proc"
	"github.com/ledgersh/ledgersh/core/purge"
	"github.com/ledgersh/ledgersh/core/shell"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// ExecChildCommand is the hidden subcommand that dispatches a single line
// in a supervised child.
const ExecChildCommand = "__exec"

// ExitSignal tells the main loop whether to keep reading lines.
type ExitSignal int

const (
	Continue ExitSignal = iota
	Terminate
)

func (e ExitSignal) String() string {
	if e == Terminate {
		return "terminate"
	}
	return "continue"
}

// LineReader supplies input lines without their trailing newline.
// *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
}

// ExecCommandFunc builds the child that runs a builtin line under exectl
// given the path of a ledger snapshot.
type ExecCommandFunc func(snapshotPath, line string) (*exec.Cmd, error)

// SelfExecCommand re-executes the running binary as the exectl child.
func SelfExecCommand(snapshotPath, line string) (*exec.Cmd, error) {
	return proc.SelfCommand(ExecChildCommand, "--ledger", snapshotPath, "--", line)
}

// Shell reads lines, records them in the ledger and dispatches them.
type Shell struct {
	Ledger     *ledger.Ledger
	Launcher   *proc.Launcher
	Supervisor *proc.Supervisor
	Purger     *purge.Purger

	ExecCommand ExecCommandFunc
	// Fs holds ledger snapshots handed to exectl children.
	Fs afero.Fs

	Readline LineReader
	Stdout   io.Writer
	Stderr   io.Writer
	Log      zerolog.Logger

	// MaxReplayDepth bounds nested issue calls, 0 means unbounded.
	MaxReplayDepth int
	// Color highlights the diagnostic prefix.
	Color bool
	// Context cancels supervised children when it's done.
	Context context.Context

	replayDepth int
}

// NewShell builds a shell from the configuration attached to the process's
// standard streams.
func NewShell(cfg *config.Configuration, rl LineReader, log zerolog.Logger) (*Shell, error) {
	interpreter, err := cfg.Interpreter()
	if err != nil {
		return nil, err
	}

	launcher := proc.NewLauncher(interpreter, log)
	return &Shell{
		Ledger:         ledger.New(cfg.MaxEntries, cfg.MaxEntryLength),
		Launcher:       launcher,
		Supervisor:     proc.NewSupervisor(launcher),
		Purger:         purge.NewPurger(launcher),
		ExecCommand:    SelfExecCommand,
		Fs:             afero.NewOsFs(),
		Readline:       rl,
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		Log:            log,
		MaxReplayDepth: cfg.MaxReplayDepth,
		Context:        context.Background(),
	}, nil
}

// Restore replaces the ledger and replay depth with a snapshot's.
func (s *Shell) Restore(snap *Snapshot) {
	s.Ledger = ledger.FromEntries(snap.Entries, s.Ledger.MaxEntries(), s.Ledger.MaxLength())
	s.replayDepth = snap.ReplayDepth
}

// Run reads lines until end of input or a Terminate signal. Interrupted
// lines are discarded.
func (s *Shell) Run() error {
	for {
		line, err := s.Readline.Readline()

		switch {
		case errors.Is(err, io.EOF):
			return nil

		case errors.Is(err, readline.ErrInterrupt):
			continue

		case err != nil:
			s.Log.Error().Err(err).Msg("readline")
			return err
		}

		if s.Process(line) == Terminate {
			return nil
		}
	}
}

// Process records a freshly typed line and dispatches it. Lines the ledger
// rejects are reported and not run.
func (s *Shell) Process(line string) ExitSignal {
	if ledger.IsBlank(line) {
		return Continue
	}

	n, err := s.Ledger.Append(line)
	if err != nil {
		s.Log.Info().
			Str(logger.FieldEvent, logger.EventReject).
			Int("length", len(line)).
			Err(err).
			Send()
		s.report(err)
		return Continue
	}

	s.Log.Debug().Int("entry", n).Msg("recorded")
	return s.Dispatch(line)
}

// Dispatch classifies a raw line and runs it without recording it.
func (s *Shell) Dispatch(line string) ExitSignal {
	return s.dispatch(shell.Classify(line))
}

// Execute runs an already tokenized command.
func (s *Shell) Execute(args []string) ExitSignal {
	return s.dispatch(shell.ClassifyArgs(args))
}

func (s *Shell) ctx() context.Context {
	if s.Context == nil {
		return context.Background()
	}
	return s.Context
}

func (s *Shell) dispatch(c shell.Classified) ExitSignal {
	if c.Empty() {
		return Continue
	}

	s.Log.Info().
		Str(logger.FieldEvent, logger.EventCommand).
		Str(logger.FieldKind, c.Kind.String()).
		Str(logger.FieldName, c.Name()).
		Int("depth", s.replayDepth).
		Send()

	switch c.Kind {
	case shell.KindBuiltin:
		return AllBuiltins[c.Name()].Main(s, c.Args)

	case shell.KindExternal:
		_, err := s.Launcher.Known(c.Args)
		s.report(launchError(err))

	default:
		_, err := s.Launcher.Passthrough(c.Line)
		s.report(launchError(err))
	}

	return Continue
}
