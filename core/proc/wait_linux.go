package proc

import (
	"golang.org/x/sys/unix"
)

// waitExit blocks until the child exits or is killed, without reaping it.
// Until it is reaped its pid, and so its process group id, can't be reused.
func waitExit(pid int) error {
	var info unix.Siginfo
	for {
		err := unix.Waitid(unix.P_PID, pid, &info, unix.WEXITED|unix.WNOWAIT, nil)
		if err != unix.EINTR {
			return err
		}
	}
}
