package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"solana-sniper/internal/storage"
)

// File names of the feed progress inside the data directory.
const (
	SeenMintsFile = "seen_mints.jsonl"
	ProgressFile  = "progress.json"
)

type seenMint struct {
	Mint string `json:"mint"`
}

// DiscoveryProgressStore implements storage.DiscoveryProgressStore with a
// JSONL set of seen mints and an atomically replaced progress document.
type DiscoveryProgressStore struct {
	mu           sync.RWMutex
	progressPath string
	w            *jsonlWriter
	seen         map[string]bool
}

// OpenDiscoveryProgressStore loads the seen-mint set from dir.
func OpenDiscoveryProgressStore(dir string) (*DiscoveryProgressStore, error) {
	path := filepath.Join(dir, SeenMintsFile)
	recs, err := readJSONL[seenMint](path)
	if err != nil {
		return nil, err
	}

	s := &DiscoveryProgressStore{
		progressPath: filepath.Join(dir, ProgressFile),
		w:            newJSONLWriter(path),
		seen:         make(map[string]bool, len(recs)),
	}
	for _, r := range recs {
		s.seen[r.Mint] = true
	}
	return s, nil
}

// GetLastProcessed returns the last processed slot and signature.
func (s *DiscoveryProgressStore) GetLastProcessed(_ context.Context) (*storage.DiscoveryProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.progressPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var p storage.DiscoveryProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.progressPath, err)
	}
	return &p, nil
}

// SetLastProcessed saves the last processed slot and signature.
func (s *DiscoveryProgressStore) SetLastProcessed(_ context.Context, progress *storage.DiscoveryProgress) error {
	if progress == nil {
		return storage.ErrInvalidInput
	}
	data, err := json.Marshal(progress)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.progressPath, data)
}

// IsMintSeen checks if a mint address has been processed.
func (s *DiscoveryProgressStore) IsMintSeen(_ context.Context, mint string) (bool, error) {
	if mint == "" {
		return false, storage.ErrInvalidInput
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seen[mint], nil
}

// MarkMintSeen records that a mint address has been processed.
func (s *DiscoveryProgressStore) MarkMintSeen(_ context.Context, mint string) error {
	if mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[mint] {
		return nil
	}
	if err := s.w.Write(seenMint{Mint: mint}); err != nil {
		return err
	}
	s.seen[mint] = true
	return nil
}

// LoadSeenMints returns all seen mints.
func (s *DiscoveryProgressStore) LoadSeenMints(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mints := make([]string, 0, len(s.seen))
	for m := range s.seen {
		mints = append(mints, m)
	}
	return mints, nil
}

// Close closes the seen-mint log.
func (s *DiscoveryProgressStore) Close() error {
	return s.w.Close()
}

var _ storage.DiscoveryProgressStore = (*DiscoveryProgressStore)(nil)
