package strategy

import "solana-sniper/internal/domain"

// TrailingStop exits when the price falls Pct percent below the hold's peak.
// It only arms once the peak is above the reference price, so an initial
// drop is left to StopLoss.
type TrailingStop struct {
	Pct float64
}

// NewTrailingStop creates a TrailingStop rule.
func NewTrailingStop(pct float64) *TrailingStop {
	return &TrailingStop{Pct: pct}
}

func (r *TrailingStop) Reason() domain.ExitReason { return domain.ExitTrailingStop }

func (r *TrailingStop) NeedsPrice() bool { return true }

func (r *TrailingStop) Triggered(tick Tick) bool {
	if tick.Peak <= tick.Reference {
		return false
	}
	return tick.Price <= tick.Peak*(1-r.Pct/100)
}

var _ ExitRule = (*TrailingStop)(nil)
