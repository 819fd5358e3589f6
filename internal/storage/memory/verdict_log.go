package memory

import (
	"context"
	"sort"
	"sync"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// VerdictLog is an in-memory implementation of storage.VerdictLog.
type VerdictLog struct {
	mu      sync.RWMutex
	ids     map[string]struct{}
	byAsset map[string][]*domain.VerdictRecord
}

// NewVerdictLog creates a new in-memory verdict log.
func NewVerdictLog() *VerdictLog {
	return &VerdictLog{
		ids:     make(map[string]struct{}),
		byAsset: make(map[string][]*domain.VerdictRecord),
	}
}

// Insert appends a verdict. Returns ErrDuplicateKey if verdict_id exists.
func (s *VerdictLog) Insert(_ context.Context, v *domain.VerdictRecord) error {
	if v == nil || v.VerdictID == "" || v.AssetID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[v.VerdictID]; exists {
		return storage.ErrDuplicateKey
	}
	s.ids[v.VerdictID] = struct{}{}
	s.byAsset[v.AssetID] = append(s.byAsset[v.AssetID], cloneVerdict(v))
	return nil
}

// GetByAsset retrieves all verdicts for an asset, ordered by evaluated_at ASC.
func (s *VerdictLog) GetByAsset(_ context.Context, assetID string) ([]*domain.VerdictRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.VerdictRecord, 0, len(s.byAsset[assetID]))
	for _, v := range s.byAsset[assetID] {
		result = append(result, cloneVerdict(v))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].EvaluatedAt < result[j].EvaluatedAt
	})
	return result, nil
}

func cloneVerdict(v *domain.VerdictRecord) *domain.VerdictRecord {
	cp := *v
	sv := (&domain.SafetyVerdict{Checks: v.Checks}).Clone()
	cp.Checks = sv.Checks
	return &cp
}

var _ storage.VerdictLog = (*VerdictLog)(nil)
