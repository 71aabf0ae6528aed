package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/strategylab/internal/domain"
	"github.com/assist-by/strategylab/internal/indicator"
	"github.com/assist-by/strategylab/internal/position"
	"github.com/assist-by/strategylab/internal/signal"
	"github.com/assist-by/strategylab/internal/strategy"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seriesOf(t *testing.T, closes ...float64) domain.PriceSeries {
	t.Helper()
	points := make([]domain.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = domain.PricePoint{
			Timestamp: baseTime.AddDate(0, 0, i),
			Open:      c,
			High:      c + 0.5,
			Low:       c - 0.5,
			Close:     c,
			Volume:    1000,
		}
	}
	series, err := domain.NewPriceSeries(points)
	require.NoError(t, err)
	return series
}

// 종가가 정확히 10이면 매수, 11.5 초과면 매도
func thresholdStrategy(t *testing.T) *strategy.Spec {
	t.Helper()
	spec, err := strategy.New(strategy.Definition{
		Name: "threshold",
		BuyConditions: []signal.ConditionSpec{
			{Operator: "in_range", Operand1: signal.Col("close"), Lower: signal.Lit(9.5), Upper: signal.Lit(10.5)},
		},
		SellConditions: []signal.ConditionSpec{
			{Operator: "greater_than", Operand1: signal.Col("close"), Operand2: signal.Lit(11.5)},
		},
	})
	require.NoError(t, err)
	return spec
}

func TestEngine_Ledger(t *testing.T) {
	series := seriesOf(t, 10, 11, 9, 12, 8)
	engine := NewEngine(0)

	result, err := engine.Run(context.Background(), series, thresholdStrategy(t), Options{InitialCapital: 100})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	assert.Equal(t, 20.0, result.Trades[0].ProfitPct)
	assert.Equal(t, 120.0, result.FinalCash)
	assert.False(t, result.FinalState.IsOpen)

	require.NotNil(t, result.Statistics)
	assert.Nil(t, result.Metrics)
	assert.Equal(t, Statistics{
		TotalTrades:   1,
		WinningTrades: 1,
		WinRate:       100,
		AvgProfit:     20,
	}, *result.Statistics)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Contains(t, wire, "statistics")
	assert.NotContains(t, wire, "portfolio_history")
	trade := wire["trades"].([]interface{})[0].(map[string]interface{})
	for _, key := range []string{"entry_date", "entry_price", "exit_date", "exit_price", "profit_pct"} {
		assert.Contains(t, trade, key)
	}
	stats := wire["statistics"].(map[string]interface{})
	for _, key := range []string{"total_trades", "winning_trades", "losing_trades", "win_rate", "avg_profit", "max_drawdown", "profit_factor"} {
		assert.Contains(t, stats, key)
	}
}

func TestEngine_EquityCurve(t *testing.T) {
	series := seriesOf(t, 10, 11, 9, 12, 8)
	result, err := NewEngine(0).Run(context.Background(), series, thresholdStrategy(t),
		Options{InitialCapital: 100, Mode: position.EquityCurveMode})
	require.NoError(t, err)

	require.NotNil(t, result.Metrics)
	m := result.Metrics
	assert.Equal(t, 20.0, m.TotalReturn)
	assert.Equal(t, 20.0, m.TotalReturnPercent)
	assert.Equal(t, 20.0, m.MaxDrawdown, "peak 110 to trough 90")
	assert.InDelta(t, 20.0/110*100, m.MaxDrawdownPercent, 1e-9)
	assert.InDelta(t, (math.Pow(1.2, 365.0/4)-1)*100, m.AnnualizedReturn, 1e-6)
	assert.Equal(t, 1, m.TotalTrades)
	assert.Equal(t, 1, m.ProfitableTrades)
	assert.Equal(t, 0, m.LossMakingTrades)
	assert.Equal(t, 100.0, m.WinRate)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Contains(t, wire, "metrics")
	assert.Len(t, wire["portfolio_history"], 5)
	assert.Len(t, wire["trades"], 2, "equity results list every execution")
	point := wire["portfolio_history"].([]interface{})[0].(map[string]interface{})
	for _, key := range []string{"date", "close", "shares", "cash", "value"} {
		assert.Contains(t, point, key)
	}
}

func TestEngine_DateRange(t *testing.T) {
	series := seriesOf(t, 10, 12, 10, 11, 12)
	result, err := NewEngine(0).Run(context.Background(), series, thresholdStrategy(t), Options{
		InitialCapital: 100,
		Start:          series[1].Timestamp,
		End:            series[3].Timestamp,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Bars)
	assert.Empty(t, result.Trades, "the sell bar is outside the range")
	assert.True(t, result.FinalState.IsOpen)
	assert.Equal(t, series[2].Timestamp, result.FinalState.EntryDate)
	assert.Equal(t, 100.0+10*(11.0-10), result.FinalValue)
}

func TestEngine_ShortSeries(t *testing.T) {
	spec, err := strategy.DefaultRegistry().Create("sma_crossover", nil)
	require.NoError(t, err)

	result, err := NewEngine(0).Run(context.Background(), seriesOf(t, 10, 11, 12), spec, Options{InitialCapital: 1000})
	require.NoError(t, err)
	assert.Empty(t, result.Trades)
	assert.Equal(t, 1000.0, result.FinalValue)
	assert.Equal(t, 0.0, result.Statistics.WinRate)
}

func TestEngine_Errors(t *testing.T) {
	series := seriesOf(t, 10, 11)
	spec := thresholdStrategy(t)
	engine := NewEngine(0)

	_, err := engine.Run(context.Background(), series, spec, Options{InitialCapital: 0})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = engine.Run(context.Background(), series, spec, Options{
		InitialCapital: 100,
		Start:          series[1].Timestamp,
		End:            series[0].Timestamp,
	})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = NewEngine(1).Run(context.Background(), series, spec, Options{InitialCapital: 100})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.Run(ctx, series, spec, Options{InitialCapital: 100})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_NonFiniteBarNeverTrades(t *testing.T) {
	series := append(domain.PriceSeries{}, seriesOf(t, 10, 11, 12, 13)...)
	series[2] = domain.PricePoint{
		Timestamp: series[2].Timestamp,
		Open:      math.NaN(),
		High:      math.NaN(),
		Low:       math.NaN(),
		Close:     math.NaN(),
		Volume:    5,
	}
	spec, err := strategy.New(strategy.Definition{
		BuyConditions: []signal.ConditionSpec{
			{Operator: "less_than", Operand1: signal.Col("close"), Operand2: signal.Lit(10.5)},
		},
		SellConditions: []signal.ConditionSpec{
			{Operator: "greater_than", Operand1: signal.Col("volume"), Operand2: signal.Lit(2)},
		},
	})
	require.NoError(t, err)

	result, err := NewEngine(0).Run(context.Background(), series, spec, Options{InitialCapital: 100})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrInvalidSeries)
}

func TestEngine_UnknownIndicatorNeverSimulates(t *testing.T) {
	spec, err := strategy.New(strategy.Definition{
		Indicators: []indicator.Spec{{Type: "KELTNER"}},
	})
	require.Nil(t, spec)
	var cfgErr *strategy.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))

	result, err := NewEngine(0).Run(context.Background(), seriesOf(t, 10, 11), spec, Options{InitialCapital: 100})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestEngine_Deterministic(t *testing.T) {
	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/7) + float64(i%5)
	}
	series := seriesOf(t, closes...)
	spec, err := strategy.DefaultRegistry().Create("ema_crossover", map[string]interface{}{
		"fast": 5, "slow": 15,
		"risk_management": map[string]interface{}{
			"stop_loss":   map[string]interface{}{"method": "atr", "atr_period": 5, "multiplier": 1},
			"take_profit": map[string]interface{}{"method": "risk_reward", "ratio": 1.5},
		},
	})
	require.NoError(t, err)

	for _, mode := range []position.Mode{position.LedgerMode, position.EquityCurveMode} {
		opts := Options{InitialCapital: 10000, Mode: mode, EnforceExits: true}
		first, err := NewEngine(0).Run(context.Background(), series, spec, opts)
		require.NoError(t, err)
		second, err := NewEngine(0).Run(context.Background(), series, spec, opts)
		require.NoError(t, err)

		a, err := json.Marshal(first)
		require.NoError(t, err)
		b, err := json.Marshal(second)
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	}
}

func TestCalculateStats(t *testing.T) {
	trades := func(profits ...float64) []position.Trade {
		out := make([]position.Trade, len(profits))
		for i, p := range profits {
			out[i] = position.Trade{ProfitPct: p}
		}
		return out
	}

	stats := CalculateStats(trades(5, -10, 8, -3))
	assert.Equal(t, 10.0, stats.MaxDrawdown)
	assert.Equal(t, 4, stats.TotalTrades)
	assert.Equal(t, 2, stats.WinningTrades)
	assert.Equal(t, 2, stats.LosingTrades)
	assert.Equal(t, 50.0, stats.WinRate)
	assert.Equal(t, 0.0, stats.AvgProfit)
	assert.Equal(t, 1.0, stats.ProfitFactor)

	t.Run("no losses", func(t *testing.T) {
		stats := CalculateStats(trades(3, 4))
		assert.Equal(t, 0.0, stats.ProfitFactor)
		assert.Equal(t, 0.0, stats.MaxDrawdown)
	})

	t.Run("break-even counts as losing", func(t *testing.T) {
		stats := CalculateStats(trades(0, 2, 0))
		assert.Equal(t, 1, stats.WinningTrades)
		assert.Equal(t, 2, stats.LosingTrades)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, Statistics{}, CalculateStats(nil))
	})

	t.Run("win rate identity", func(t *testing.T) {
		for n := 0; n <= 12; n++ {
			profits := make([]float64, n)
			for i := range profits {
				profits[i] = float64((i*7)%5) - 2
			}
			stats := CalculateStats(trades(profits...))
			if n == 0 {
				assert.Equal(t, 0.0, stats.WinRate)
				continue
			}
			assert.Equal(t, 100*float64(stats.WinningTrades)/float64(stats.TotalTrades), stats.WinRate)
		}
	})
}

func TestCalculateAnnualizedReturn(t *testing.T) {
	start := baseTime
	assert.InDelta(t, 10.0, CalculateAnnualizedReturn(100, 110, start, start.AddDate(0, 0, 365)), 1e-9)
	assert.Equal(t, 0.0, CalculateAnnualizedReturn(100, 110, start, start))
	assert.Equal(t, 0.0, CalculateAnnualizedReturn(100, 110, start, start.Add(-time.Hour)))
}

func TestPairExecutions(t *testing.T) {
	pairs, wins := PairExecutions([]position.Execution{
		{Action: domain.Buy, Price: 10},
		{Action: domain.Sell, Price: 12},
		{Action: domain.Buy, Price: 12},
		{Action: domain.Sell, Price: 12},
		{Action: domain.Buy, Price: 9},
	})
	assert.Equal(t, 2, pairs)
	assert.Equal(t, 1, wins)
}

func TestRunBatch(t *testing.T) {
	series := seriesOf(t, 10, 11, 9, 12, 8)
	spec := thresholdStrategy(t)
	jobs := []Job{
		{ID: "a", Series: series, Strategy: spec, Options: Options{InitialCapital: 100}},
		{ID: "b", Series: series, Strategy: spec, Options: Options{InitialCapital: -1}},
		{ID: "c", Series: series, Strategy: spec, Options: Options{InitialCapital: 1000, Mode: position.EquityCurveMode}},
	}

	results, err := NewEngine(0).RunBatch(context.Background(), jobs, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a", results[0].ID)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 120.0, results[0].Result.FinalCash)

	assert.Equal(t, "b", results[1].ID)
	assert.ErrorIs(t, results[1].Err, ErrInvalidOptions)

	assert.Equal(t, "c", results[2].ID)
	require.NoError(t, results[2].Err)
	assert.Equal(t, 1200.0, results[2].Result.FinalValue)

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewEngine(0).RunBatch(ctx, jobs, 0)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
