package proc

import (
	"fmt"
	"os"
	"os/exec"
)

// SelfCommand builds a command that re-executes the running binary with the
// given arguments. Isolated helpers, like the purge child, are entered this
// way since Go can't fork without exec.
func SelfCommand(args ...string) (*exec.Cmd, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("couldn't locate own executable: %w", err)
	}
	return exec.Command(self, args...), nil
}
