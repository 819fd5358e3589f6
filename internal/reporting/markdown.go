package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Session Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Session
	sb.WriteString("## Session\n\n")
	if s := r.Session; s != nil {
		mode := "LIVE"
		if s.DryRun {
			mode = "DRY RUN"
		}
		status := "STOPPED"
		if s.Running {
			status = "RUNNING"
		}
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Session | %s |\n", s.SessionID))
		sb.WriteString(fmt.Sprintf("| Mode | %s |\n", mode))
		sb.WriteString(fmt.Sprintf("| Status | %s |\n", status))
		sb.WriteString(fmt.Sprintf("| Updated | %s |\n", formatMs(s.UpdatedAt)))
		sb.WriteString(fmt.Sprintf("| Detected | %d |\n", s.Stats.Detected))
		sb.WriteString(fmt.Sprintf("| Dropped | %d |\n", s.Stats.Dropped))
		sb.WriteString(fmt.Sprintf("| Rejected | %d |\n", s.Stats.Rejected))
		sb.WriteString(fmt.Sprintf("| Executed | %d |\n", s.Stats.Executed))
		sb.WriteString(fmt.Sprintf("| Wins | %d |\n", s.Stats.Wins))
		sb.WriteString(fmt.Sprintf("| Take Profits | %d |\n", s.Stats.TakeProfits))
		sb.WriteString(fmt.Sprintf("| Stop Losses | %d |\n", s.Stats.StopLosses))
		sb.WriteString(fmt.Sprintf("| Timeouts | %d |\n", s.Stats.Timeouts))
		sb.WriteString(fmt.Sprintf("| Failed | %d |\n", s.Stats.Failed))
		sb.WriteString("\n")

		if len(s.ActivePositions) > 0 {
			sb.WriteString("### Active Positions\n\n")
			sb.WriteString("| Asset | Slot | State | Capital (SOL) | Reference | Last |\n")
			sb.WriteString("|-------|------|-------|---------------|-----------|------|\n")
			for _, p := range s.ActivePositions {
				sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %s | %s |\n",
					p.AssetID, p.SlotIndex, p.State, p.CommittedCapital.String(),
					formatPrice(p.ReferencePrice), formatPrice(p.LastPrice)))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No session snapshot available.\n\n")
	}

	// Outcomes
	o := r.Outcomes
	sb.WriteString("## Trade Outcomes\n\n")
	if o != nil && o.TotalTrades > 0 {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Trades | %d |\n", o.TotalTrades))
		sb.WriteString(fmt.Sprintf("| Assets | %d |\n", o.TotalAssets))
		sb.WriteString(fmt.Sprintf("| Closed | %d |\n", o.Closed))
		sb.WriteString(fmt.Sprintf("| Failed | %d |\n", o.Failed))
		sb.WriteString(fmt.Sprintf("| Wins / Losses | %d / %d |\n", o.Wins, o.Losses))
		sb.WriteString(fmt.Sprintf("| Win Rate | %.2f%% |\n", o.WinRate*100))
		sb.WriteString(fmt.Sprintf("| TP / SL / TIME / TRAIL / MANUAL | %d / %d / %d / %d / %d |\n",
			o.TakeProfits, o.StopLosses, o.Timeouts, o.TrailingStop, o.Manual))
		sb.WriteString(fmt.Sprintf("| Mean P&L | %.2f%% |\n", o.PnLMean))
		sb.WriteString(fmt.Sprintf("| Median P&L | %.2f%% |\n", o.PnLMedian))
		sb.WriteString(fmt.Sprintf("| P10 / P90 | %.2f%% / %.2f%% |\n", o.PnLP10, o.PnLP90))
		sb.WriteString(fmt.Sprintf("| Min / Max | %.2f%% / %.2f%% |\n", o.PnLMin, o.PnLMax))
		sb.WriteString(fmt.Sprintf("| Stddev | %.2f |\n", o.PnLStddev))
		sb.WriteString(fmt.Sprintf("| Max Drawdown | %.2f%% |\n", o.MaxDrawdown))
		sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", o.MaxConsecutiveLosses))
		sb.WriteString(fmt.Sprintf("| Mean Hold | %dms |\n", o.MeanHoldMs))
		sb.WriteString(fmt.Sprintf("| Committed Capital | %s SOL |\n", r.CommittedCapital.String()))
		sb.WriteString(fmt.Sprintf("| Realized P&L | %s SOL |\n", r.RealizedPnL.String()))
	} else {
		sb.WriteString("No trades recorded.\n")
	}
	sb.WriteString("\n")

	// Recent trades
	sb.WriteString("## Recent Trades\n\n")
	if len(r.RecentTrades) > 0 {
		sb.WriteString("| Recorded | Asset | State | Reason | P&L | Hold |\n")
		sb.WriteString("|----------|-------|-------|--------|-----|------|\n")
		for _, t := range r.RecentTrades {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.2f%% | %dms |\n",
				formatMs(t.RecordedAt), t.AssetID, t.FinalState, t.ExitReason,
				t.PnLPercent, t.HoldDurationMs))
		}
	} else {
		sb.WriteString("No recent trades.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func formatPrice(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.10g", *p)
}
