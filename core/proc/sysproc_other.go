//go:build !unix

package proc

import (
	"os"
	"os/exec"
)

// setProcessGroup is a no-op, there are no POSIX process groups.
func setProcessGroup(cmd *exec.Cmd) {}

func foreground(cmd *exec.Cmd) (restore func()) {
	return func() {}
}

// killGroup terminates p only.
func killGroup(p *os.Process) error {
	return p.Kill()
}
