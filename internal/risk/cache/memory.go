package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"solana-sniper/internal/domain"
)

// Memory is an in-process capacity-bounded cache. Expired entries are evicted
// on read and by the LRU's background sweep.
type Memory struct {
	lru *expirable.LRU[string, *domain.SafetyVerdict]
}

// NewMemory creates a cache holding at most size verdicts for ttl each.
func NewMemory(size int, ttl time.Duration) *Memory {
	return &Memory{lru: expirable.NewLRU[string, *domain.SafetyVerdict](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, assetID string) (*domain.SafetyVerdict, bool) {
	v, ok := m.lru.Get(assetID)
	if !ok {
		return nil, false
	}
	return v.Clone(), true
}

func (m *Memory) Put(_ context.Context, verdict *domain.SafetyVerdict) {
	m.lru.Add(verdict.AssetID, verdict.Clone())
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	return m.lru.Len()
}

var _ Cache = (*Memory)(nil)
