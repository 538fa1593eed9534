package proc

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"time"
)

// outputDrain bounds how long Wait keeps copying output after the child is
// gone.
const outputDrain = time.Second

// Handle identifies one supervised child and can force its termination.
// Every supervised run gets its own handle.
type Handle struct {
	process *os.Process

	mu        sync.Mutex
	exited    bool
	cancelled bool
	err       error
}

// Pid returns the supervised child's process id.
func (h *Handle) Pid() int {
	return h.process.Pid
}

// Cancel kills the child and its process group immediately. There's no
// grace period and no escalation; repeated calls are no-ops. Once the child
// has exited Cancel does nothing and returns os.ErrProcessDone.
func (h *Handle) Cancel() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case h.cancelled:
		return h.err
	case h.exited:
		return os.ErrProcessDone
	}

	h.cancelled = true
	h.err = killGroup(h.process)
	return h.err
}

// Cancelled reports whether Cancel killed the child.
func (h *Handle) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.cancelled
}

// markExited stops later Cancel calls from signalling the group. It must be
// called before the child is reaped.
func (h *Handle) markExited() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.exited = true
}

// Supervisor runs children under a wall-clock deadline.
type Supervisor struct {
	Launcher *Launcher
}

// NewSupervisor creates a supervisor that spawns through the launcher.
func NewSupervisor(l *Launcher) *Supervisor {
	return &Supervisor{Launcher: l}
}

// Run starts cmd in its own process group and waits for it. If the child is
// still running after timeout, or ctx is done first, the whole group is
// killed. A child reading from the shell's terminal gets the terminal for
// the duration of the run.
func (s *Supervisor) Run(ctx context.Context, cmd *exec.Cmd, timeout time.Duration) (*Result, error) {
	s.Launcher.attach(cmd)
	setProcessGroup(cmd)
	cmd.WaitDelay = outputDrain

	restore := foreground(cmd)
	defer restore()

	if err := s.Launcher.Start(cmd); err != nil {
		return nil, err
	}

	h := &Handle{process: cmd.Process}
	log := s.Launcher.Log.With().Int("pid", h.Pid()).Dur("timeout", timeout).Logger()
	log.Debug().Strs("argv", cmd.Args).Msg("supervising")

	deadline := time.AfterFunc(timeout, func() {
		log.Info().Msg("deadline expired, killing child")
		if err := h.Cancel(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.Warn().Err(err).Msg("kill failed")
		}
	})
	stop := context.AfterFunc(ctx, func() {
		_ = h.Cancel()
	})

	if err := waitExit(h.Pid()); err != nil {
		log.Debug().Err(err).Msg("waitid")
	}
	h.markExited()
	deadline.Stop()
	stop()

	res, err := s.Launcher.Wait(cmd)

	if res != nil {
		res.Cancelled = h.Cancelled()
	}
	return res, err
}
