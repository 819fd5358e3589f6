package strategy

import (
	"time"

	"solana-sniper/internal/domain"
)

// Timeout exits once the hold duration reaches MaxHold.
// It never needs a price, so a stuck oracle cannot extend a hold.
type Timeout struct {
	MaxHold time.Duration
}

// NewTimeout creates a Timeout rule.
func NewTimeout(maxHold time.Duration) *Timeout {
	return &Timeout{MaxHold: maxHold}
}

func (r *Timeout) Reason() domain.ExitReason { return domain.ExitTimeout }

func (r *Timeout) NeedsPrice() bool { return false }

func (r *Timeout) Triggered(tick Tick) bool {
	return tick.Held >= r.MaxHold
}

var _ ExitRule = (*Timeout)(nil)
