// Package purge deletes the regular files of a directory that aren't named
// in an allow-list.
//
// The deletion runs in a separate child process (see Purger) so a failure
// while enumerating the directory can't affect the interactive shell.
package purge

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/ledgersh/ledgersh/core/proc"
	"github.com/spf13/afero"
)

// ChildCommand is the hidden subcommand that runs Main in a child process.
const ChildCommand = "__purge"

// ErrEnumeration is returned when the directory listing can't be read.
var ErrEnumeration = errors.New("enumeration failure")

// Report describes what a purge did.
type Report struct {
	Removed []string
	Kept    []string
	// Skipped holds entries that aren't regular files.
	Skipped []string
	Failed  map[string]error
}

func keepSet(keep []string) map[string]bool {
	out := make(map[string]bool, len(keep))
	for _, k := range keep {
		out[k] = true
	}
	return out
}

// Run removes every regular file in dir whose name doesn't exactly match an
// entry of keep. Entries are visited in lexical order. Directories, symlinks
// and special files are never touched.
func Run(fsys afero.Fs, dir string, keep []string) (*Report, error) {
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumeration, err)
	}

	preserve := keepSet(keep)
	report := &Report{Failed: make(map[string]error)}
	for _, info := range infos {
		name := info.Name()
		switch {
		case !info.Mode().IsRegular():
			report.Skipped = append(report.Skipped, name)
		case preserve[name]:
			report.Kept = append(report.Kept, name)
		default:
			if err := fsys.Remove(filepath.Join(dir, name)); err != nil {
				report.Failed[name] = err
				continue
			}
			report.Removed = append(report.Removed, name)
		}
	}
	return report, nil
}

// Main is the body of the purge child. It returns the child's exit status:
// 1 if the directory couldn't be enumerated, 0 otherwise. Individual removal
// failures are reported on stderr but don't stop the purge.
func Main(fsys afero.Fs, dir string, keep []string, stderr io.Writer) int {
	report, err := Run(fsys, dir, keep)
	if err != nil {
		fmt.Fprintf(stderr, "scandir: %v\n", errors.Unwrap(err))
		return 1
	}
	failed := make([]string, 0, len(report.Failed))
	for name := range report.Failed {
		failed = append(failed, name)
	}
	sort.Strings(failed)
	for _, name := range failed {
		fmt.Fprintf(stderr, "rmexcept: %s: %v\n", name, report.Failed[name])
	}
	return 0
}

// CommandFunc builds the child process for a purge.
type CommandFunc func(keep []string) (*exec.Cmd, error)

// SelfCommand re-executes the running binary as the purge child.
func SelfCommand(keep []string) (*exec.Cmd, error) {
	return proc.SelfCommand(append([]string{ChildCommand, "--"}, keep...)...)
}

// Purger runs purges in an isolated child and waits for its terminal state.
type Purger struct {
	Launcher *proc.Launcher
	Command  CommandFunc
}

// NewPurger creates a purger that re-executes the running binary.
func NewPurger(l *proc.Launcher) *Purger {
	return &Purger{Launcher: l, Command: SelfCommand}
}

// Purge spawns the child and waits for it. A failing child is not an error
// here, it has already reported its own diagnostics.
func (p *Purger) Purge(keep []string) (*proc.Result, error) {
	cmd, err := p.Command(keep)
	if err != nil {
		return nil, &proc.StartError{Kind: proc.ErrForkFailure, Err: err}
	}
	return p.Launcher.Run(cmd)
}
