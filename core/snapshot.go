package core

import (
	"fmt"

	"github.com/ledgersh/ledgersh/core/ledger"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Snapshot is the state an exectl child needs to run a builtin the way the
// parent would.
type Snapshot struct {
	Entries     []string `json:"entries"`
	ReplayDepth int      `json:"replay_depth"`
}

// WriteSnapshot stores the ledger and replay depth in a new temporary file
// and returns its path.
func WriteSnapshot(fsys afero.Fs, l *ledger.Ledger, replayDepth int) (string, error) {
	data, err := yaml.Marshal(&Snapshot{
		Entries:     l.Entries(),
		ReplayDepth: replayDepth,
	})
	if err != nil {
		return "", err
	}

	f, err := afero.TempFile(fsys, "", "ledgersh-snapshot-*.yaml")
	if err != nil {
		return "", fmt.Errorf("couldn't create snapshot: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		_ = fsys.Remove(f.Name())
		return "", fmt.Errorf("couldn't write snapshot: %w", err)
	}
	return f.Name(), nil
}

// ReadSnapshot loads a snapshot written by WriteSnapshot.
func ReadSnapshot(fsys afero.Fs, path string) (*Snapshot, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := yaml.UnmarshalStrict(data, &snap); err != nil {
		return nil, fmt.Errorf("couldn't parse snapshot %q: %w", path, err)
	}
	return &snap, nil
}
