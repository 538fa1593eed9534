//go:build unix

package proc

import (
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

// setProcessGroup makes the child the leader of a new process group so the
// children it spawns can be killed along with it.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// foreground hands the terminal to the child's process group if the child
// reads from the terminal the shell currently owns. The returned func takes
// the terminal back and must be called once the child is gone.
func foreground(cmd *exec.Cmd) (restore func()) {
	restore = func() {}

	tty, ok := cmd.Stdin.(*os.File)
	if !ok || !isatty.IsTerminal(tty.Fd()) {
		return
	}

	fd := int(tty.Fd())
	pgrp, err := unix.IoctlGetInt(fd, unix.TIOCGPGRP)
	if err != nil || pgrp != unix.Getpgrp() {
		// Not our terminal or we're a background job ourselves.
		return
	}

	cmd.SysProcAttr.Foreground = true
	cmd.SysProcAttr.Ctty = fd
	return func() {
		_ = setForeground(fd, pgrp)
	}
}

// setForeground makes pgrp the terminal's foreground group. The caller is in
// the background at this point, so SIGTTOU is ignored for the call.
func setForeground(fd, pgrp int) error {
	signal.Ignore(syscall.SIGTTOU)
	defer signal.Reset(syscall.SIGTTOU)

	for {
		err := unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, pgrp)
		if err != unix.EINTR {
			return err
		}
	}
}

// killGroup delivers SIGKILL to the process group led by p.
func killGroup(p *os.Process) error {
	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}
