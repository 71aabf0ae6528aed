package backtest

import (
	"math"
	"time"

	"github.com/assist-by/strategylab/internal/domain"
	"github.com/assist-by/strategylab/internal/position"
)

// CalculateStats는 청산된 거래의 통계를 계산합니다
func CalculateStats(trades []position.Trade) Statistics {
	stats := Statistics{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return stats
	}

	totalProfit := 0.0 // 수익 거래 profitPct 합계
	totalLoss := 0.0   // 손실 거래 |profitPct| 합계
	sum := 0.0
	profits := make([]float64, len(trades))

	for i, trade := range trades {
		if trade.ProfitPct > 0 {
			stats.WinningTrades++
			totalProfit += trade.ProfitPct
		} else if trade.ProfitPct < 0 {
			totalLoss += math.Abs(trade.ProfitPct)
		}
		sum += trade.ProfitPct
		profits[i] = trade.ProfitPct
	}

	// 본전 거래는 손실로 집계
	stats.LosingTrades = stats.TotalTrades - stats.WinningTrades
	stats.WinRate = WinRate(stats.WinningTrades, stats.TotalTrades)
	stats.AvgProfit = sum / float64(len(trades))
	stats.MaxDrawdown = CalculateCumulativeDrawdown(profits)

	if totalLoss > 0 {
		stats.ProfitFactor = totalProfit / totalLoss
	}

	return stats
}

// WinRate는 100*wins/total을 반환합니다. 거래가 없으면 0
func WinRate(wins, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

// CalculateCumulativeDrawdown은 누적 수익 합계가 그때까지의 고점 대비
// 가장 크게 떨어진 폭을 반환합니다
func CalculateCumulativeDrawdown(profits []float64) float64 {
	if len(profits) == 0 {
		return 0
	}

	cumulative := 0.0
	peak := math.Inf(-1)
	maxDrawdown := 0.0
	for _, p := range profits {
		cumulative += p
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// CalculateDrawdownStats는 자산 곡선의 최대 고점 대비 하락폭을
// 금액과 고점 대비 퍼센트로 반환합니다
func CalculateDrawdownStats(curve []position.EquityPoint) (maxDrawdown, maxDrawdownPercent float64) {
	if len(curve) == 0 {
		return 0, 0
	}

	highWaterMark := curve[0].Value
	for _, point := range curve {
		if point.Value > highWaterMark {
			highWaterMark = point.Value
		}

		drawdown := highWaterMark - point.Value
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
		if highWaterMark > 0 {
			if pct := drawdown / highWaterMark * 100; pct > maxDrawdownPercent {
				maxDrawdownPercent = pct
			}
		}
	}

	return maxDrawdown, maxDrawdownPercent
}

// CalculateAnnualizedReturn은 ((1+R)^(365/days) - 1) * 100을 반환합니다.
// R은 전체 기간 수익률이며 기간이 양수가 아니면 0입니다.
func CalculateAnnualizedReturn(startEquity, endEquity float64, startTime, endTime time.Time) float64 {
	if startEquity <= 0 {
		return 0
	}
	days := endTime.Sub(startTime).Hours() / 24
	if days <= 0 {
		return 0
	}

	totalReturn := (endEquity - startEquity) / startEquity
	return (math.Pow(1+totalReturn, 365/days) - 1) * 100
}

// PairExecutions는 각 SELL을 직전 BUY와 짝지어 쌍의 개수와
// 진입가보다 높게 청산한 쌍의 개수를 반환합니다
func PairExecutions(executions []position.Execution) (pairs, wins int) {
	var entry float64
	open := false
	for _, e := range executions {
		switch {
		case e.Action == domain.Buy && !open:
			entry = e.Price
			open = true
		case e.Action == domain.Sell && open:
			pairs++
			if e.Price > entry {
				wins++
			}
			open = false
		}
	}
	return pairs, wins
}

// CalculateMetrics는 결과의 자산 곡선 지표를 계산합니다
func CalculateMetrics(out *position.Outcome) Metrics {
	var m Metrics

	finalValue := out.FinalValue
	if n := len(out.EquityCurve); n > 0 {
		finalValue = out.EquityCurve[n-1].Value
	}

	m.TotalReturn = finalValue - out.InitialCapital
	if out.InitialCapital > 0 {
		m.TotalReturnPercent = m.TotalReturn / out.InitialCapital * 100
	}
	m.MaxDrawdown, m.MaxDrawdownPercent = CalculateDrawdownStats(out.EquityCurve)
	m.AnnualizedReturn = CalculateAnnualizedReturn(out.InitialCapital, finalValue, out.StartDate, out.EndDate)

	pairs, wins := PairExecutions(out.Executions)
	m.TotalTrades = pairs
	m.ProfitableTrades = wins
	m.LossMakingTrades = pairs - wins
	m.WinRate = WinRate(wins, pairs)

	return m
}
