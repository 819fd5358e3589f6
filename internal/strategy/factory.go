package strategy

import (
	"errors"

	"solana-sniper/internal/config"
)

// Factory errors
var (
	ErrMissingMaxHold = errors.New("exit rules require a positive max hold")
	ErrNegativePct    = errors.New("exit percentages must not be negative")
)

// FromConfig builds the enabled exit rules in priority order:
// Timeout, TakeProfit, StopLoss, TrailingStop. Timeout is mandatory;
// a percentage of zero disables the corresponding price rule.
func FromConfig(cfg config.ExitCfg) ([]ExitRule, error) {
	if cfg.MaxHold <= 0 {
		return nil, ErrMissingMaxHold
	}
	if cfg.TakeProfitPct < 0 || cfg.StopLossPct < 0 || cfg.TrailingStopPct < 0 {
		return nil, ErrNegativePct
	}

	rules := []ExitRule{NewTimeout(cfg.MaxHold)}
	if cfg.TakeProfitPct > 0 {
		rules = append(rules, NewTakeProfit(cfg.TakeProfitPct))
	}
	if cfg.StopLossPct > 0 {
		rules = append(rules, NewStopLoss(cfg.StopLossPct))
	}
	if cfg.TrailingStopPct > 0 {
		rules = append(rules, NewTrailingStop(cfg.TrailingStopPct))
	}
	return rules, nil
}
