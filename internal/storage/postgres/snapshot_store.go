package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// SnapshotStore is a PostgreSQL implementation of storage.SnapshotStore.
// The snapshot lives in a single row replaced by upsert.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new PostgreSQL snapshot store.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Save replaces the stored snapshot.
func (s *SnapshotStore) Save(ctx context.Context, snap *domain.StateSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO state_snapshots (id, session_id, payload, updated_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET session_id = EXCLUDED.session_id,
		    payload = EXCLUDED.payload,
		    updated_at = EXCLUDED.updated_at
	`, snap.SessionID, payload, snap.UpdatedAt)
	return err
}

// Load returns the stored snapshot. Returns ErrNotFound if none was saved.
func (s *SnapshotStore) Load(ctx context.Context) (*domain.StateSnapshot, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM state_snapshots WHERE id = 1`).Scan(&payload)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var snap domain.StateSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
