// Package risk turns several unreliable external risk signals about a new
// asset into a single accept/reject verdict with an explainable score.
package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"solana-sniper/internal/config"
	"solana-sniper/internal/domain"
	"solana-sniper/internal/risk/cache"
	"solana-sniper/internal/risk/sources"
	"solana-sniper/internal/solana"
)

// ReportSource returns a composite risk report for an asset.
type ReportSource interface {
	Report(ctx context.Context, mint string) (*sources.RiskReport, error)
}

// MarketSource returns the open-market trading pairs of an asset.
type MarketSource interface {
	Pairs(ctx context.Context, mint string) ([]sources.Pair, error)
}

// SecuritySource returns honeypot and privilege flags of an asset.
type SecuritySource interface {
	TokenSecurity(ctx context.Context, mint string) (*sources.TokenSecurity, error)
}

// AccountReader reads on-chain accounts. Implemented by rpcpool.Pool.
type AccountReader interface {
	AccountInfo(ctx context.Context, address string) (*solana.AccountInfo, error)
}

// Observer receives screening outcomes. Implemented by observability.Metrics.
type Observer interface {
	CheckCompleted(check string, outcome domain.CheckOutcome)
	VerdictIssued(accepted bool, latency time.Duration)
}

type nopObserver struct{}

func (nopObserver) CheckCompleted(string, domain.CheckOutcome) {}
func (nopObserver) VerdictIssued(bool, time.Duration)          {}

// Deps are the collaborators of a Screen.
type Deps struct {
	Report   ReportSource
	Market   MarketSource
	Security SecuritySource
	Accounts AccountReader
	Cache    cache.Cache
	Logger   *zap.Logger
	Observer Observer
	Now      func() time.Time
}

// Screen evaluates candidate assets. It is safe for concurrent use.
type Screen struct {
	cfg      config.RiskCfg
	report   ReportSource
	market   MarketSource
	security SecuritySource
	accounts AccountReader
	cache    cache.Cache
	logger   *zap.Logger
	observer Observer
	now      func() time.Time

	reportCB   *gobreaker.CircuitBreaker
	marketCB   *gobreaker.CircuitBreaker
	securityCB *gobreaker.CircuitBreaker
}

// NewScreen creates a Screen. Report, Market, Accounts and Cache are required;
// Security may be nil when the security check is disabled.
func NewScreen(cfg config.RiskCfg, deps Deps) (*Screen, error) {
	if deps.Report == nil || deps.Market == nil || deps.Accounts == nil || deps.Cache == nil {
		return nil, errors.New("risk: report, market, accounts and cache are required")
	}
	if cfg.SecurityCheck && deps.Security == nil {
		return nil, errors.New("risk: security check enabled without a security source")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("risk")
	observer := deps.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Screen{
		cfg:        cfg,
		report:     deps.Report,
		market:     deps.Market,
		security:   deps.Security,
		accounts:   deps.Accounts,
		cache:      deps.Cache,
		logger:     logger,
		observer:   observer,
		now:        now,
		reportCB:   newBreaker("rugcheck", cfg.Breaker, logger),
		marketCB:   newBreaker("dexscreener", cfg.Breaker, logger),
		securityCB: newBreaker("goplus", cfg.Breaker, logger),
	}, nil
}

// run is the mutable state of one screening run.
type run struct {
	verdict   *domain.SafetyVerdict
	graduated bool
	liquidity float64
}

func (r *run) record(res domain.RiskCheckResult) {
	r.verdict.Checks[res.CheckName] = res
}

// Evaluate screens assetID. A cached verdict within the TTL is returned
// unchanged without any external calls. Source failures never surface as
// errors; only context cancellation does.
func (s *Screen) Evaluate(ctx context.Context, assetID string) (*domain.SafetyVerdict, error) {
	if v, ok := s.cache.Get(ctx, assetID); ok {
		s.logger.Debug("verdict cache hit", zap.String("asset", assetID))
		return v, nil
	}

	start := s.now()
	r := &run{verdict: &domain.SafetyVerdict{
		AssetID: assetID,
		Checks:  make(map[string]domain.RiskCheckResult, len(domain.CheckOrder)),
	}}

	steps := []func(context.Context, string, *run) domain.RiskCheckResult{
		s.checkRiskReport,
		s.checkMarketPresence,
		s.checkMarketData,
		s.checkSecurity,
		s.checkProgramIdentity,
	}

	var hard *domain.RiskCheckResult
	for _, step := range steps {
		res := step(ctx, assetID, r)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.record(res)
		s.observer.CheckCompleted(res.CheckName, res.Outcome)

		if res.Outcome == domain.OutcomeFail && res.Hard {
			hard = &res
			break
		}
	}

	v := r.verdict
	if hard != nil {
		v.Accepted = false
		v.RejectionReason = fmt.Sprintf("%s: %s", hard.CheckName, hard.Reason)
	} else {
		v.CompositeScore = s.score(r)
		v.Accepted = v.CompositeScore >= s.cfg.AcceptanceThreshold
		if !v.Accepted {
			v.RejectionReason = fmt.Sprintf("low score: %d < %d", v.CompositeScore, s.cfg.AcceptanceThreshold)
		}
	}
	v.EvaluatedAt = s.now().UnixMilli()

	s.cache.Put(ctx, v)
	s.observer.VerdictIssued(v.Accepted, s.now().Sub(start))
	s.logger.Info("screening verdict",
		zap.String("asset", assetID),
		zap.Bool("accepted", v.Accepted),
		zap.Int("score", v.CompositeScore),
		zap.String("reason", v.RejectionReason),
		zap.Duration("elapsed", s.now().Sub(start)))

	return v.Clone(), nil
}

// score combines the numeric signals. Skipped or inconclusive checks add nothing.
func (s *Screen) score(r *run) int {
	w := s.cfg.Weights
	total := 0.0

	if rr, ok := r.verdict.Checks[domain.CheckRiskReport]; ok && rr.Passed() && rr.Score != nil {
		total += clamp(*rr.Score) * w.RiskReport
	}
	if md, ok := r.verdict.Checks[domain.CheckMarketData]; ok && md.Passed() && r.graduated && r.liquidity > 0 {
		total += math.Min(100, r.liquidity/w.LiquidityNormUS*100) * w.Liquidity
	}
	if sec, ok := r.verdict.Checks[domain.CheckSecurity]; ok && sec.Passed() {
		total += w.SecurityBonus
	}
	if pid, ok := r.verdict.Checks[domain.CheckProgramIdentity]; ok && pid.Passed() {
		total += w.IdentityBonus
	}

	return int(math.Round(clamp(total)))
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

func result(name string, outcome domain.CheckOutcome, reason string) domain.RiskCheckResult {
	return domain.RiskCheckResult{CheckName: name, Outcome: outcome, Reason: reason}
}

func hardFail(name, reason string) domain.RiskCheckResult {
	res := result(name, domain.OutcomeFail, reason)
	res.Hard = true
	return res
}

func unavailable(name string, err error) domain.RiskCheckResult {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return result(name, domain.OutcomeInconclusive, "source circuit open")
	}
	return result(name, domain.OutcomeInconclusive, "source error: "+err.Error())
}

func skipped(name, reason string) domain.RiskCheckResult {
	res := result(name, domain.OutcomeInconclusive, reason)
	res.Details = map[string]string{"skipped": "true"}
	return res
}
