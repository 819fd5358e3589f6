package discovery

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"solana-sniper/internal/storage"
)

// DefaultSeenCacheSize bounds the in-memory set of recently seen mints.
const DefaultSeenCacheSize = 50_000

// Detector admits each mint at most once. A bounded LRU answers the hot
// path; the optional progress store makes the decision survive restarts.
type Detector struct {
	seen  *lru.Cache[string, struct{}]
	store storage.DiscoveryProgressStore
}

// NewDetector creates a detector. store may be nil.
func NewDetector(size int, store storage.DiscoveryProgressStore) (*Detector, error) {
	if size <= 0 {
		size = DefaultSeenCacheSize
	}
	seen, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("seen cache: %w", err)
	}
	return &Detector{seen: seen, store: store}, nil
}

// Warm loads previously seen mints from the store.
func (d *Detector) Warm(ctx context.Context) (int, error) {
	if d.store == nil {
		return 0, nil
	}
	mints, err := d.store.LoadSeenMints(ctx)
	if err != nil {
		return 0, err
	}
	for _, m := range mints {
		d.seen.Add(m, struct{}{})
	}
	return len(mints), nil
}

// Admit reports whether mint is new and records it as seen.
// Returns error if the store lookup or write fails; the mint is then not admitted.
func (d *Detector) Admit(ctx context.Context, mint string) (bool, error) {
	if d.seen.Contains(mint) {
		return false, nil
	}

	if d.store != nil {
		seen, err := d.store.IsMintSeen(ctx, mint)
		if err != nil {
			return false, err
		}
		if seen {
			d.seen.Add(mint, struct{}{})
			return false, nil
		}
		if err := d.store.MarkMintSeen(ctx, mint); err != nil {
			return false, err
		}
	}

	d.seen.Add(mint, struct{}{})
	return true, nil
}

// Checkpoint records the last processed notification.
func (d *Detector) Checkpoint(ctx context.Context, slot int64, signature string) error {
	if d.store == nil || slot < 0 {
		return nil
	}
	return d.store.SetLastProcessed(ctx, &storage.DiscoveryProgress{Slot: uint64(slot), Signature: signature})
}
