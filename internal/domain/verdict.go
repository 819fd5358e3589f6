package domain

// CheckOutcome is the normalized result of one risk check.
type CheckOutcome string

const (
	OutcomePass         CheckOutcome = "PASS"
	OutcomeFail         CheckOutcome = "FAIL"
	OutcomeInconclusive CheckOutcome = "INCONCLUSIVE"
)

// Check names, in evaluation order.
const (
	CheckRiskReport      = "risk_report"
	CheckMarketPresence  = "market_presence"
	CheckMarketData      = "market_data"
	CheckSecurity        = "security"
	CheckProgramIdentity = "program_identity"
)

// CheckOrder lists check names in the order the screen runs them.
var CheckOrder = []string{
	CheckRiskReport,
	CheckMarketPresence,
	CheckMarketData,
	CheckSecurity,
	CheckProgramIdentity,
}

// RiskCheckResult is one source's contribution to a screening run.
type RiskCheckResult struct {
	CheckName string            `json:"checkName"`
	Outcome   CheckOutcome      `json:"outcome"`
	Hard      bool              `json:"hard"` // a hard failure short-circuits the run
	Reason    string            `json:"reason,omitempty"`
	Score     *float64          `json:"score,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Passed reports whether the check produced a positive signal.
func (r RiskCheckResult) Passed() bool {
	return r.Outcome == OutcomePass
}

// SafetyVerdict is the screen's decision for one asset.
// Corresponds to screening_verdicts table.
type SafetyVerdict struct {
	AssetID         string                     `json:"assetId"`
	Accepted        bool                       `json:"accepted"`
	CompositeScore  int                        `json:"compositeScore"` // always within [0,100]
	Checks          map[string]RiskCheckResult `json:"checks"`
	RejectionReason string                     `json:"rejectionReason,omitempty"`
	EvaluatedAt     int64                      `json:"evaluatedAt"` // Unix ms
}

// Clone returns a deep copy safe to hand to other goroutines.
func (v *SafetyVerdict) Clone() *SafetyVerdict {
	if v == nil {
		return nil
	}
	cp := *v
	cp.Checks = make(map[string]RiskCheckResult, len(v.Checks))
	for k, r := range v.Checks {
		if r.Score != nil {
			s := *r.Score
			r.Score = &s
		}
		if r.Details != nil {
			d := make(map[string]string, len(r.Details))
			for dk, dv := range r.Details {
				d[dk] = dv
			}
			r.Details = d
		}
		cp.Checks[k] = r
	}
	return &cp
}

// VerdictRecord is the journaled form of a screening decision.
// Corresponds to screening_verdicts table.
type VerdictRecord struct {
	VerdictID       string                     `json:"verdictId"` // deterministic hash
	AssetID         string                     `json:"assetId"`
	OriginSignature string                     `json:"originSignature,omitempty"`
	Accepted        bool                       `json:"accepted"`
	CompositeScore  int                        `json:"compositeScore"`
	RejectionReason string                     `json:"rejectionReason,omitempty"`
	Checks          map[string]RiskCheckResult `json:"checks"`
	EvaluatedAt     int64                      `json:"evaluatedAt"` // Unix ms
}
