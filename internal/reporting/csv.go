package reporting

import (
	"fmt"
	"strings"

	"solana-sniper/internal/domain"
)

// RenderTradesCSV renders journaled trades as CSV string, one row per trade.
func RenderTradesCSV(trades []*domain.TradeRecord) string {
	var sb strings.Builder

	// Header
	sb.WriteString("trade_id,asset_id,final_state,exit_reason,outcome,")
	sb.WriteString("committed_capital,proceeds,reference_price,exit_price,")
	sb.WriteString("pnl_percent,hold_duration_ms,recorded_at,acquisition_ref,disposal_ref\n")

	// Rows
	for _, t := range trades {
		proceeds := ""
		if t.Proceeds != nil {
			proceeds = t.Proceeds.String()
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s,%s,%s,%.6f,%d,%d,%s,%s\n",
			t.TradeID,
			t.AssetID,
			t.FinalState,
			t.ExitReason,
			t.OutcomeClass(),
			t.CommittedCapital.String(),
			proceeds,
			csvFloat(t.ReferencePrice),
			csvFloat(t.ExitPrice),
			t.PnLPercent,
			t.HoldDurationMs,
			t.RecordedAt,
			t.AcquisitionRef,
			t.DisposalRef,
		))
	}

	return sb.String()
}

func csvFloat(p *float64) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%.10g", *p)
}
