// Package persist saves and restores ledger snapshots as JSON files, so a
// paper-trading session survives a restart.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mhlam/tradeflow/ledger"
)

// Store reads and writes one snapshot file.
type Store struct {
	path string
}

// NewStore persists snapshots at path.
func NewStore(path string) *Store { return &Store{path: path} }

// Path returns the snapshot file location.
func (s *Store) Path() string { return s.path }

// Save writes the snapshot via a temp file and rename, so a crash mid-write
// never leaves a truncated snapshot behind.
func (s *Store) Save(snap ledger.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: marshal snapshot: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("persist: %w", err)
		}
	}

	tmp := s.path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("persist: %w", err)
	}
	return nil
}

// Load reads the snapshot. A missing file is not an error: found is false
// and the caller starts a fresh account.
func (s *Store) Load() (snap ledger.Snapshot, found bool, err error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return ledger.Snapshot{}, false, nil
	}
	if err != nil {
		return ledger.Snapshot{}, false, fmt.Errorf("persist: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return ledger.Snapshot{}, false, fmt.Errorf("persist: %s: %w", s.path, err)
	}
	return snap, true, nil
}
