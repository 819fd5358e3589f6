package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// StateFile is the snapshot file name inside the data directory.
const StateFile = "state.json"

// SnapshotStore implements storage.SnapshotStore as a JSON document that is
// replaced atomically, so readers never observe a partial write.
type SnapshotStore struct {
	mu   sync.Mutex
	path string
}

// NewSnapshotStore creates a store writing dir/state.json.
func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{path: filepath.Join(dir, StateFile)}
}

// Save replaces the stored snapshot.
func (s *SnapshotStore) Save(_ context.Context, snap *domain.StateSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.path, data)
}

// Load returns the stored snapshot. Returns ErrNotFound if none was saved.
func (s *SnapshotStore) Load(_ context.Context) (*domain.StateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var snap domain.StateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return &snap, nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
