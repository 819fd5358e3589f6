// Package cache stores safety verdicts for a fixed time window so repeated
// screening of the same asset is idempotent and makes no external calls.
package cache

import (
	"context"

	"solana-sniper/internal/domain"
)

// Cache is a TTL-keyed verdict store. A miss after expiry is guaranteed.
type Cache interface {
	Get(ctx context.Context, assetID string) (*domain.SafetyVerdict, bool)
	Put(ctx context.Context, verdict *domain.SafetyVerdict)
}
