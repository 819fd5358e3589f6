// Package metrics computes outcome statistics over journaled trades.
package metrics

import (
	"math"
	"sort"

	"solana-sniper/internal/domain"
)

// Summary is the outcome distribution of a set of trades. P&L values are
// percentages of committed capital.
type Summary struct {
	TotalTrades  int `json:"totalTrades"`
	TotalAssets  int `json:"totalAssets"`
	Closed       int `json:"closed"`
	Failed       int `json:"failed"`
	Wins         int `json:"wins"`
	Losses       int `json:"losses"`
	TakeProfits  int `json:"takeProfits"`
	StopLosses   int `json:"stopLosses"`
	Timeouts     int `json:"timeouts"`
	TrailingStop int `json:"trailingStops"`
	Manual       int `json:"manual"`

	WinRate float64 `json:"winRate"` // wins / closed

	PnLMean   float64 `json:"pnlMean"`
	PnLMedian float64 `json:"pnlMedian"`
	PnLP10    float64 `json:"pnlP10"`
	PnLP90    float64 `json:"pnlP90"`
	PnLMin    float64 `json:"pnlMin"`
	PnLMax    float64 `json:"pnlMax"`
	PnLStddev float64 `json:"pnlStddev"`

	MaxDrawdown          float64 `json:"maxDrawdown"`
	MaxConsecutiveLosses int     `json:"maxConsecutiveLosses"`

	MeanHoldMs int64 `json:"meanHoldMs"`
}

// Compute calculates the summary of trades. Failed positions count toward
// totals and exit reasons but are excluded from the P&L distribution.
// Order-dependent values use RecordedAt ASC, TradeID ASC.
func Compute(trades []*domain.TradeRecord) *Summary {
	s := &Summary{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return s
	}

	sorted := make([]*domain.TradeRecord, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].RecordedAt != sorted[j].RecordedAt {
			return sorted[i].RecordedAt < sorted[j].RecordedAt
		}
		return sorted[i].TradeID < sorted[j].TradeID
	})

	assets := make(map[string]struct{})
	var closed []*domain.TradeRecord
	var holdSum int64
	for _, t := range sorted {
		assets[t.AssetID] = struct{}{}
		switch t.ExitReason {
		case domain.ExitTakeProfit:
			s.TakeProfits++
		case domain.ExitStopLoss:
			s.StopLosses++
		case domain.ExitTimeout:
			s.Timeouts++
		case domain.ExitTrailingStop:
			s.TrailingStop++
		case domain.ExitManual:
			s.Manual++
		}
		if t.FinalState != domain.StateClosed {
			s.Failed++
			continue
		}
		closed = append(closed, t)
		holdSum += t.HoldDurationMs
		if t.OutcomeClass() == domain.OutcomeClassWin {
			s.Wins++
		} else {
			s.Losses++
		}
	}
	s.TotalAssets = len(assets)
	s.Closed = len(closed)
	s.WinRate = computeWinRate(s.Wins, s.Closed)

	n := len(closed)
	if n == 0 {
		return s
	}
	s.MeanHoldMs = holdSum / int64(n)

	outcomes := make([]float64, n)
	for i, t := range closed {
		outcomes[i] = t.PnLPercent
	}
	sortedOutcomes := make([]float64, n)
	copy(sortedOutcomes, outcomes)
	sort.Float64s(sortedOutcomes)

	s.PnLMean = computeMean(outcomes)
	s.PnLStddev = computeStddev(outcomes, s.PnLMean)
	s.PnLMedian = computePercentile(sortedOutcomes, 0.50)
	s.PnLP10 = computePercentile(sortedOutcomes, 0.10)
	s.PnLP90 = computePercentile(sortedOutcomes, 0.90)
	s.PnLMin = sortedOutcomes[0]
	s.PnLMax = sortedOutcomes[n-1]
	s.MaxDrawdown = computeMaxDrawdown(outcomes)
	s.MaxConsecutiveLosses = computeMaxConsecutiveLosses(outcomes)
	return s
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

func computeMean(outcomes []float64) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	sum := 0.0
	for _, o := range outcomes {
		sum += o
	}
	return sum / float64(len(outcomes))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(outcomes []float64, mean float64) float64 {
	n := len(outcomes)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, o := range outcomes {
		diff := o - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation over sorted ASC input.
// p is a fraction (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown calculates worst peak-to-trough on cumulative P&L.
// Outcomes must be in chronological order.
func computeMaxDrawdown(outcomes []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, o := range outcomes {
		cumulative += o
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds the longest streak of P&L <= 0.
func computeMaxConsecutiveLosses(outcomes []float64) int {
	maxStreak := 0
	currentStreak := 0

	for _, o := range outcomes {
		if o <= 0 {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}
