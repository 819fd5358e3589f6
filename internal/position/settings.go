package position

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"solana-sniper/internal/config"
	"solana-sniper/internal/strategy"
)

// Settings are the tunables of the position lifecycle.
type Settings struct {
	Capital         decimal.Decimal // SOL committed per position
	MaxConcurrent   int
	ConfirmInterval time.Duration
	ConfirmAttempts int
	PollInterval    time.Duration
	MaxHold         time.Duration
	Rules           []strategy.ExitRule
}

// SettingsFromConfig derives Settings and the exit rule set from cfg.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	rules, err := strategy.FromConfig(cfg.Exits)
	if err != nil {
		return Settings{}, err
	}
	s := Settings{
		Capital:         cfg.Capital(),
		MaxConcurrent:   cfg.Trading.MaxConcurrent,
		ConfirmInterval: cfg.Confirmation.Interval,
		ConfirmAttempts: cfg.Confirmation.MaxAttempts,
		PollInterval:    cfg.Exits.PricePoll,
		MaxHold:         cfg.Exits.MaxHold,
		Rules:           rules,
	}
	return s, s.validate()
}

func (s Settings) validate() error {
	var errs []error
	if !s.Capital.IsPositive() {
		errs = append(errs, errors.New("capital must be positive"))
	}
	if s.MaxConcurrent < 1 {
		errs = append(errs, errors.New("max concurrent must be at least 1"))
	}
	if s.ConfirmAttempts < 1 || s.ConfirmInterval <= 0 {
		errs = append(errs, errors.New("confirmation needs a positive interval and attempt ceiling"))
	}
	if s.PollInterval <= 0 {
		errs = append(errs, errors.New("price poll interval must be positive"))
	}
	if s.MaxHold <= 0 {
		errs = append(errs, errors.New("max hold must be positive"))
	}
	for _, r := range s.Rules {
		if t, ok := r.(*strategy.Timeout); ok && t.MaxHold != s.MaxHold {
			errs = append(errs, fmt.Errorf("timeout rule max hold %s differs from max hold %s", t.MaxHold, s.MaxHold))
		}
	}
	return errors.Join(errs...)
}
