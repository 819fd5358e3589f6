// Package memory provides in-memory storage backends, used in dry runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// TradeJournal is an in-memory implementation of storage.TradeJournal.
type TradeJournal struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeRecord // keyed by trade_id
}

// NewTradeJournal creates a new in-memory trade journal.
func NewTradeJournal() *TradeJournal {
	return &TradeJournal{
		data: make(map[string]*domain.TradeRecord),
	}
}

// Insert appends a trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeJournal) Insert(_ context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[t.TradeID] = cloneTrade(t)
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeJournal) GetByID(_ context.Context, tradeID string) (*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tradeID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneTrade(t), nil
}

// GetByAsset retrieves all trades for an asset, ordered by recorded_at ASC.
func (s *TradeJournal) GetByAsset(_ context.Context, assetID string) ([]*domain.TradeRecord, error) {
	return s.filter(func(t *domain.TradeRecord) bool { return t.AssetID == assetID }), nil
}

// GetAll retrieves every trade, ordered by recorded_at ASC.
func (s *TradeJournal) GetAll(_ context.Context) ([]*domain.TradeRecord, error) {
	return s.filter(func(*domain.TradeRecord) bool { return true }), nil
}

func (s *TradeJournal) filter(keep func(*domain.TradeRecord) bool) []*domain.TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeRecord
	for _, t := range s.data {
		if keep(t) {
			result = append(result, cloneTrade(t))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RecordedAt != result[j].RecordedAt {
			return result[i].RecordedAt < result[j].RecordedAt
		}
		return result[i].TradeID < result[j].TradeID
	})
	return result
}

func cloneTrade(t *domain.TradeRecord) *domain.TradeRecord {
	cp := *t
	if t.Proceeds != nil {
		v := *t.Proceeds
		cp.Proceeds = &v
	}
	if t.ReferencePrice != nil {
		v := *t.ReferencePrice
		cp.ReferencePrice = &v
	}
	if t.ExitPrice != nil {
		v := *t.ExitPrice
		cp.ExitPrice = &v
	}
	return &cp
}

var _ storage.TradeJournal = (*TradeJournal)(nil)
