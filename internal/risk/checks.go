package risk

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/risk/sources"
	"solana-sniper/internal/solana"
)

// checkRiskReport: a rugged flag or a danger-level finding is hard; a low
// score or an unreachable source is soft.
func (s *Screen) checkRiskReport(ctx context.Context, assetID string, _ *run) domain.RiskCheckResult {
	const name = domain.CheckRiskReport

	report, err := call(s.reportCB, func() (*sources.RiskReport, error) {
		return s.report.Report(ctx, assetID)
	})
	if err != nil {
		s.logger.Debug("risk report unavailable", zap.String("asset", assetID), zap.Error(err))
		return unavailable(name, err)
	}

	if report.Rugged {
		return hardFail(name, "already rugged")
	}
	if dangers := report.Dangers(); len(dangers) > 0 {
		res := hardFail(name, "danger: "+dangers[0].Name)
		names := make([]string, len(dangers))
		for i, d := range dangers {
			names[i] = d.Name
		}
		res.Details = map[string]string{"dangers": strings.Join(names, ",")}
		return res
	}

	score := report.Score
	res := result(name, domain.OutcomePass, "")
	res.Score = &score
	if score < s.cfg.MinRiskReportScore {
		res.Outcome = domain.OutcomeFail
		res.Reason = fmt.Sprintf("score too low: %.0f", score)
	}
	return res
}

// checkMarketPresence decides pre-graduation versus graduated by the
// existence of the bonding-curve account. A failed read assumes graduated,
// which demands liquidity.
func (s *Screen) checkMarketPresence(ctx context.Context, assetID string, r *run) domain.RiskCheckResult {
	const name = domain.CheckMarketPresence

	curve, err := solana.BondingCurveAddress(assetID)
	if err != nil {
		return hardFail(name, "invalid asset address")
	}

	info, err := s.accounts.AccountInfo(ctx, curve)
	if err != nil {
		r.graduated = true
		res := result(name, domain.OutcomeInconclusive, "bonding curve read failed: "+err.Error())
		res.Details = map[string]string{"bonding_curve": curve, "graduated": "true"}
		return res
	}

	r.graduated = info == nil
	res := result(name, domain.OutcomePass, "")
	res.Details = map[string]string{"bonding_curve": curve, "graduated": strconv.FormatBool(r.graduated)}
	if r.graduated {
		res.Reason = "graduated"
	} else {
		res.Reason = "on bonding curve"
	}
	return res
}

// checkMarketData applies liquidity and social requirements. Pre-graduation
// assets have no pool to measure, and missing market data for them is expected.
func (s *Screen) checkMarketData(ctx context.Context, assetID string, r *run) domain.RiskCheckResult {
	const name = domain.CheckMarketData

	if !r.graduated && !s.cfg.RequireSocials {
		return skipped(name, "pre-graduation asset")
	}

	pairs, err := call(s.marketCB, func() ([]sources.Pair, error) {
		return s.market.Pairs(ctx, assetID)
	})
	if err != nil {
		return unavailable(name, err)
	}

	if len(pairs) == 0 {
		if !r.graduated {
			return result(name, domain.OutcomeInconclusive, "no market data yet")
		}
		return hardFail(name, "no trading pairs found")
	}

	pair := pairs[0]
	details := map[string]string{
		"has_socials": strconv.FormatBool(pair.HasSocials()),
		"volume_24h":  formatFloat(pair.Volume.H24),
	}

	if r.graduated {
		r.liquidity = pair.LiquidityUSD()
		details["liquidity_usd"] = formatFloat(r.liquidity)
		if r.liquidity < s.cfg.MinLiquidityUSD {
			res := hardFail(name, fmt.Sprintf("low liquidity: $%.0f", r.liquidity))
			res.Details = details
			return res
		}
	}

	if s.cfg.RequireSocials && !pair.HasSocials() {
		res := hardFail(name, "no social presence")
		res.Details = details
		return res
	}

	res := result(name, domain.OutcomePass, "")
	res.Details = details
	if r.graduated {
		liq := r.liquidity
		res.Score = &liq
	}
	return res
}

// checkSecurity rejects honeypots and privileged-balance tokens. An
// unreachable or not-yet-indexed source is soft.
func (s *Screen) checkSecurity(ctx context.Context, assetID string, _ *run) domain.RiskCheckResult {
	const name = domain.CheckSecurity

	if !s.cfg.SecurityCheck {
		return skipped(name, "disabled by policy")
	}

	sec, err := call(s.securityCB, func() (*sources.TokenSecurity, error) {
		return s.security.TokenSecurity(ctx, assetID)
	})
	if err != nil {
		return unavailable(name, err)
	}
	if sec == nil {
		return result(name, domain.OutcomeInconclusive, "token not indexed")
	}

	switch {
	case bool(sec.Honeypot):
		return hardFail(name, "honeypot detected")
	case bool(sec.Blacklisted):
		return hardFail(name, "blacklisted token")
	case bool(sec.OwnerChangeBalance):
		return hardFail(name, "owner can change balances")
	case bool(sec.CannotSellAll):
		return hardFail(name, "cannot sell all tokens")
	}
	return result(name, domain.OutcomePass, "")
}

// checkProgramIdentity is an authoritative on-chain read with no soft path.
func (s *Screen) checkProgramIdentity(ctx context.Context, assetID string, _ *run) domain.RiskCheckResult {
	const name = domain.CheckProgramIdentity

	info, err := s.accounts.AccountInfo(ctx, assetID)
	if err != nil {
		return hardFail(name, "account read failed: "+err.Error())
	}
	if info == nil {
		return hardFail(name, "token account not found")
	}
	if info.Owner != s.cfg.TokenProgram {
		res := hardFail(name, "non-standard token program")
		res.Details = map[string]string{"program": info.Owner}
		return res
	}
	return result(name, domain.OutcomePass, "")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
