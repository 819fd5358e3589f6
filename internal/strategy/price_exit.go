package strategy

import "solana-sniper/internal/domain"

// TakeProfit exits when the price is up at least Pct percent from reference.
type TakeProfit struct {
	Pct float64
}

// NewTakeProfit creates a TakeProfit rule.
func NewTakeProfit(pct float64) *TakeProfit {
	return &TakeProfit{Pct: pct}
}

func (r *TakeProfit) Reason() domain.ExitReason { return domain.ExitTakeProfit }

func (r *TakeProfit) NeedsPrice() bool { return true }

func (r *TakeProfit) Triggered(tick Tick) bool {
	return tick.ChangePct() >= r.Pct
}

// StopLoss exits when the price is down at least Pct percent from reference.
type StopLoss struct {
	Pct float64
}

// NewStopLoss creates a StopLoss rule.
func NewStopLoss(pct float64) *StopLoss {
	return &StopLoss{Pct: pct}
}

func (r *StopLoss) Reason() domain.ExitReason { return domain.ExitStopLoss }

func (r *StopLoss) NeedsPrice() bool { return true }

func (r *StopLoss) Triggered(tick Tick) bool {
	return tick.ChangePct() <= -r.Pct
}

var (
	_ ExitRule = (*TakeProfit)(nil)
	_ ExitRule = (*StopLoss)(nil)
)
