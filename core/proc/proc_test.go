//go:build unix

package proc

import (
	"bytes"
	"context"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLauncher() (*Launcher, *bytes.Buffer, *bytes.Buffer) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	return &Launcher{
		Stdout:      stdout,
		Stderr:      stderr,
		Interpreter: DefaultInterpreter,
		Log:         zerolog.Nop(),
	}, stdout, stderr
}

func TestKnown(t *testing.T) {
	l, stdout, _ := newTestLauncher()

	res, err := l.Known([]string{"echo", "hello", "world"})
	require.NoError(t, err)
	assert.True(t, res.Exited)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.Signaled)
	assert.Equal(t, "hello world\n", stdout.String())
}

func TestKnownExitStatusIsNotAnError(t *testing.T) {
	l, _, _ := newTestLauncher()

	res, err := l.Known([]string{"sh", "-c", "exit 3"})
	require.NoError(t, err)
	assert.True(t, res.Exited)
	assert.Equal(t, 3, res.ExitCode)
}

func TestKnownProgramNotFound(t *testing.T) {
	l, _, _ := newTestLauncher()

	for tn, args := range map[string][]string{
		"path-lookup": {"ledgersh-definitely-not-a-program"},
		"relative":    {"./ledgersh-definitely-not-a-program"},
		"empty":       nil,
	} {
		t.Run(tn, func(t *testing.T) {
			res, err := l.Known(args)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrProgramNotFound)
		})
	}
}

func TestPassthroughKeepsLineIntact(t *testing.T) {
	l, stdout, _ := newTestLauncher()

	res, err := l.Passthrough("echo hi | tr a-z A-Z")
	require.NoError(t, err)
	assert.True(t, res.Exited)
	assert.Equal(t, "HI\n", stdout.String())
}

func TestPassthroughCommandArgv(t *testing.T) {
	l := &Launcher{Interpreter: []string{"/bin/bash", "-o", "pipefail", "-c"}}

	cmd := l.InterpreterCommand("ls | wc -l")
	assert.Equal(t, []string{"/bin/bash", "-o", "pipefail", "-c", "ls | wc -l"}, cmd.Args)
}

func TestSupervisorKillsOnDeadline(t *testing.T) {
	l, _, _ := newTestLauncher()
	s := NewSupervisor(l)

	start := time.Now()
	res, err := s.Run(context.Background(), l.InterpreterCommand("sleep 30"), 200*time.Millisecond)
	require.NoError(t, err)

	assert.True(t, time.Since(start) < 10*time.Second, "child outlived its deadline")
	assert.False(t, res.Exited)
	assert.True(t, res.Signaled)
	assert.Equal(t, syscall.SIGKILL, res.Signal)
	assert.True(t, res.Cancelled)
	assert.True(t, res.TimedOut())
}

func TestSupervisorFastProgramExitsNormally(t *testing.T) {
	l, stdout, _ := newTestLauncher()
	s := NewSupervisor(l)

	res, err := s.Run(context.Background(), l.Command([]string{"echo", "done"}), 5*time.Second)
	require.NoError(t, err)

	assert.True(t, res.Exited)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.Signaled)
	assert.False(t, res.Cancelled)
	assert.False(t, res.TimedOut())
	assert.Equal(t, "done\n", stdout.String())
}

func TestSupervisorKillsGrandchildren(t *testing.T) {
	l, stdout, _ := newTestLauncher()
	s := NewSupervisor(l)

	// The grandchild holds stdout open, Wait only returns promptly if it dies
	// with the group.
	start := time.Now()
	res, err := s.Run(context.Background(), l.InterpreterCommand("sleep 30; echo survived"), 200*time.Millisecond)
	require.NoError(t, err)

	assert.True(t, time.Since(start) < 10*time.Second, "child outlived its deadline")
	assert.True(t, res.TimedOut())
	assert.NotContains(t, stdout.String(), "survived")
}

func TestSupervisorContextCancel(t *testing.T) {
	l, _, _ := newTestLauncher()
	s := NewSupervisor(l)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res, err := s.Run(ctx, l.InterpreterCommand("sleep 30"), time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Signaled)
	assert.True(t, res.Cancelled)
}

func TestSupervisorIndependentHandles(t *testing.T) {
	l := &Launcher{Interpreter: DefaultInterpreter, Log: zerolog.Nop()}
	s := NewSupervisor(l)

	var wg sync.WaitGroup
	var slow, fast *Result
	wg.Add(2)
	go func() {
		defer wg.Done()
		res, err := s.Run(context.Background(), l.InterpreterCommand("sleep 30"), 200*time.Millisecond)
		assert.NoError(t, err)
		slow = res
	}()
	go func() {
		defer wg.Done()
		res, err := s.Run(context.Background(), l.InterpreterCommand("sleep 0.5"), 10*time.Second)
		assert.NoError(t, err)
		fast = res
	}()
	wg.Wait()

	require.NotNil(t, slow)
	require.NotNil(t, fast)
	assert.True(t, slow.TimedOut())
	assert.True(t, fast.Exited)
	assert.False(t, fast.Cancelled)
}

func TestSupervisorStartFailure(t *testing.T) {
	l, _, _ := newTestLauncher()
	s := NewSupervisor(l)

	res, err := s.Run(context.Background(), l.Command([]string{"ledgersh-definitely-not-a-program"}), time.Second)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrProgramNotFound)
}

func TestHandleCancelIsIdempotent(t *testing.T) {
	l, _, _ := newTestLauncher()
	cmd := l.InterpreterCommand("sleep 30")
	setProcessGroup(cmd)
	require.NoError(t, l.Start(cmd))

	h := &Handle{process: cmd.Process}
	assert.NoError(t, h.Cancel())
	assert.NoError(t, h.Cancel())
	assert.True(t, h.Cancelled())

	res, err := l.Wait(cmd)
	require.NoError(t, err)
	assert.True(t, res.Signaled)
}

func TestHandleCancelAfterExit(t *testing.T) {
	l, _, _ := newTestLauncher()
	cmd := l.Command([]string{"true"})
	setProcessGroup(cmd)
	require.NoError(t, l.Start(cmd))

	h := &Handle{process: cmd.Process}
	require.NoError(t, waitExit(h.Pid()))
	h.markExited()

	assert.ErrorIs(t, h.Cancel(), os.ErrProcessDone)
	assert.False(t, h.Cancelled())

	res, err := l.Wait(cmd)
	require.NoError(t, err)
	assert.True(t, res.Exited)
	assert.Equal(t, 0, res.ExitCode)
}

func TestSupervisorWithoutTerminalKeepsStdin(t *testing.T) {
	l, stdout, _ := newTestLauncher()
	l.Stdin = bytes.NewBufferString("piped\n")
	s := NewSupervisor(l)

	cmd := l.Command([]string{"cat"})
	res, err := s.Run(context.Background(), cmd, 5*time.Second)
	require.NoError(t, err)

	assert.False(t, cmd.SysProcAttr.Foreground)
	assert.False(t, res.TimedOut())
	assert.Equal(t, "piped\n", stdout.String())
}
