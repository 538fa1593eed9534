package purge

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/ledgersh/ledgersh/core/proc"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helperEnv = "LEDGERSH_PURGE_HELPER"

// TestPurgeChildProcess isn't a real test, it's the body of the purge child
// when the test binary is re-executed by helperCommand.
func TestPurgeChildProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	os.Exit(Main(afero.NewOsFs(), ".", args, os.Stderr))
}

func helperCommand(dir string) CommandFunc {
	return func(keep []string) (*exec.Cmd, error) {
		args := append([]string{"-test.run=TestPurgeChildProcess", "--"}, keep...)
		cmd := exec.Command(os.Args[0], args...)
		cmd.Env = append(os.Environ(), helperEnv+"=1")
		cmd.Dir = dir
		return cmd, nil
	}
}

func memFs(t *testing.T, files []string, dirs []string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	for _, d := range dirs {
		require.NoError(t, fs.MkdirAll(filepath.Join("work", d), 0755))
	}
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join("work", f), []byte(f), 0644))
	}
	return fs
}

func listDir(t *testing.T, fs afero.Fs, dir string) []string {
	t.Helper()

	infos, err := afero.ReadDir(fs, dir)
	require.NoError(t, err)
	var out []string
	for _, info := range infos {
		out = append(out, info.Name())
	}
	sort.Strings(out)
	return out
}

func TestRun(t *testing.T) {
	cases := map[string]struct {
		keep        []string
		wantRemain  []string
		wantRemoved []string
	}{
		"keep-one": {
			keep:        []string{"a"},
			wantRemain:  []string{"a", "d"},
			wantRemoved: []string{"b", "c"},
		},
		"keep-none": {
			keep:        nil,
			wantRemain:  []string{"d"},
			wantRemoved: []string{"a", "b", "c"},
		},
		"keep-all": {
			keep:       []string{"c", "b", "a"},
			wantRemain: []string{"a", "b", "c", "d"},
		},
		"directory-in-allow-list": {
			keep:        []string{"d"},
			wantRemain:  []string{"d"},
			wantRemoved: []string{"a", "b", "c"},
		},
		"case-sensitive": {
			keep:        []string{"A", "b"},
			wantRemain:  []string{"b", "d"},
			wantRemoved: []string{"a", "c"},
		},
		"no-globbing": {
			keep:        []string{"*"},
			wantRemain:  []string{"d"},
			wantRemoved: []string{"a", "b", "c"},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			fs := memFs(t, []string{"a", "b", "c"}, []string{"d"})

			report, err := Run(fs, "work", tc.keep)
			require.NoError(t, err)

			assert.Equal(t, tc.wantRemain, listDir(t, fs, "work"))
			assert.Equal(t, tc.wantRemoved, report.Removed)
			assert.Equal(t, []string{"d"}, report.Skipped)
			assert.Empty(t, report.Failed)
		})
	}
}

func TestRunLeavesDirectoryContents(t *testing.T) {
	fs := memFs(t, []string{"a", "d/inner"}, []string{"d"})

	_, err := Run(fs, "work", nil)
	require.NoError(t, err)

	exists, err := afero.Exists(fs, filepath.Join("work", "d", "inner"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunEnumerationFailure(t *testing.T) {
	_, err := Run(afero.NewMemMapFs(), "missing", nil)
	assert.ErrorIs(t, err, ErrEnumeration)
}

func TestMainEnumerationFailure(t *testing.T) {
	stderr := &bytes.Buffer{}
	status := Main(afero.NewMemMapFs(), "missing", nil, stderr)

	assert.Equal(t, 1, status)
	assert.Contains(t, stderr.String(), "scandir: ")
}

func TestRunSkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "target"), nil, 0644))
	require.NoError(t, os.Symlink("target", filepath.Join(dir, "link")))

	report, err := Run(afero.NewOsFs(), dir, []string{"target"})
	require.NoError(t, err)

	assert.Equal(t, []string{"link"}, report.Skipped)
	assert.Empty(t, report.Removed)
	_, err = os.Lstat(filepath.Join(dir, "link"))
	assert.NoError(t, err)
}

func TestPurgerRunsIsolatedChild(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d"), 0755))

	stderr := &bytes.Buffer{}
	p := &Purger{
		Launcher: &proc.Launcher{Stdout: &bytes.Buffer{}, Stderr: stderr, Log: zerolog.Nop()},
		Command:  helperCommand(dir),
	}

	res, err := p.Purge([]string{"a"})
	require.NoError(t, err)
	assert.True(t, res.Exited)
	assert.Equal(t, 0, res.ExitCode, stderr.String())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"a", "d"}, names)
}

func TestMainReportsFailuresInOrder(t *testing.T) {
	fs := afero.NewReadOnlyFs(memFs(t, []string{"c", "a", "keep", "b"}, nil))

	var stderr bytes.Buffer
	assert.Equal(t, 0, Main(fs, "work", []string{"keep"}, &stderr))
	assert.Equal(t, `rmexcept: a: operation not permitted
rmexcept: b: operation not permitted
rmexcept: c: operation not permitted
`, stderr.String())
}
