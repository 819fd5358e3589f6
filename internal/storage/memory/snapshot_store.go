package memory

import (
	"context"
	"sync"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	snap *domain.StateSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Save replaces the stored snapshot.
func (s *SnapshotStore) Save(_ context.Context, snap *domain.StateSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}
	cp := CloneSnapshot(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = cp
	return nil
}

// Load returns the stored snapshot. Returns ErrNotFound if none was saved.
func (s *SnapshotStore) Load(_ context.Context) (*domain.StateSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return nil, storage.ErrNotFound
	}
	return CloneSnapshot(s.snap), nil
}

// CloneSnapshot returns a deep copy of snap.
func CloneSnapshot(snap *domain.StateSnapshot) *domain.StateSnapshot {
	cp := *snap
	cp.ActivePositions = make([]domain.Position, len(snap.ActivePositions))
	for i, p := range snap.ActivePositions {
		cp.ActivePositions[i] = p.Clone()
	}
	return &cp
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
