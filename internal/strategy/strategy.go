package strategy

import (
	"time"

	"solana-sniper/internal/domain"
)

// ExitRule decides whether a held position should be disposed on a tick.
type ExitRule interface {
	// Reason is the exit reason recorded when the rule fires.
	Reason() domain.ExitReason

	// NeedsPrice reports whether the rule can only be evaluated with a price.
	NeedsPrice() bool

	// Triggered evaluates the rule against one monitoring tick.
	Triggered(tick Tick) bool
}

// Tick is the input of one exit evaluation.
type Tick struct {
	Held      time.Duration // time since acquisition
	Price     float64       // current price; valid only when HasPrice
	HasPrice  bool
	Reference float64 // reference price, first successful oracle read
	Peak      float64 // highest price observed during the hold
}

// ChangePct returns the percentage move from reference to current price.
func (t Tick) ChangePct() float64 {
	if !t.HasPrice || t.Reference <= 0 {
		return 0
	}
	return (t.Price - t.Reference) / t.Reference * 100
}

// Evaluate returns the reason of the first triggered rule in order.
// Rules needing a price are skipped when the tick has none.
func Evaluate(rules []ExitRule, tick Tick) (domain.ExitReason, bool) {
	for _, r := range rules {
		if r.NeedsPrice() && (!tick.HasPrice || tick.Reference <= 0) {
			continue
		}
		if r.Triggered(tick) {
			return r.Reason(), true
		}
	}
	return "", false
}
