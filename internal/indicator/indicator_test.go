package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/strategylab/internal/domain"
)

// high = close+1, low = close-1인 봉 생성
func seriesOf(t *testing.T, closes ...float64) domain.PriceSeries {
	t.Helper()
	baseTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = domain.PricePoint{
			Timestamp: baseTime.AddDate(0, 0, i),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	series, err := domain.NewPriceSeries(points)
	require.NoError(t, err)
	return series
}

func assertValues(t *testing.T, expected, actual []float64) {
	t.Helper()
	require.Len(t, actual, len(expected))
	for i := range expected {
		if math.IsNaN(expected[i]) {
			assert.True(t, math.IsNaN(actual[i]), "index %d: expected NaN, got %v", i, actual[i])
			continue
		}
		assert.InDelta(t, expected[i], actual[i], 1e-6, "index %d", i)
	}
}

var nan = math.NaN()

func TestSMA(t *testing.T) {
	sma, err := NewSMA(3, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"sma_3"}, sma.Columns())

	cols, err := sma.Calculate(seriesOf(t, 2, 4, 6, 8, 10))
	require.NoError(t, err)
	assertValues(t, []float64{nan, nan, 4, 6, 8}, cols[0].Values)

	t.Run("shorter than period", func(t *testing.T) {
		cols, err := sma.Calculate(seriesOf(t, 2, 4))
		require.NoError(t, err)
		assertValues(t, []float64{nan, nan}, cols[0].Values)
	})

	t.Run("invalid period", func(t *testing.T) {
		_, err := NewSMA(0, "")
		var vErr *ValidationError
		assert.True(t, errors.As(err, &vErr))
	})
}

func TestEMA(t *testing.T) {
	ema, err := NewEMA(3, "fast")
	require.NoError(t, err)
	assert.Equal(t, []string{"fast"}, ema.Columns())

	// alpha = 0.5, 첫 종가로 시작
	cols, err := ema.Calculate(seriesOf(t, 2, 4, 6, 8))
	require.NoError(t, err)
	assertValues(t, []float64{2, 3, 4.5, 6.25}, cols[0].Values)
}

func TestRSI(t *testing.T) {
	rsi, err := NewRSI(2, "")
	require.NoError(t, err)

	cols, err := rsi.Calculate(seriesOf(t, 10, 11, 10, 11, 12))
	require.NoError(t, err)
	assertValues(t, []float64{nan, nan, 50, 50, 100}, cols[0].Values)

	t.Run("no losses yields 100", func(t *testing.T) {
		cols, err := rsi.Calculate(seriesOf(t, 10, 10, 10))
		require.NoError(t, err)
		assertValues(t, []float64{nan, nan, 100}, cols[0].Values)
	})
}

func TestMACD(t *testing.T) {
	macd, err := NewMACD(2, 4, 3, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"macd", "macd_signal", "macd_hist"}, macd.Columns())

	cols, err := macd.Calculate(seriesOf(t, 10, 12, 11, 15, 14, 18))
	require.NoError(t, err)
	require.Len(t, cols, 3)

	for i := range cols[0].Values {
		assert.InDelta(t, cols[0].Values[i]-cols[1].Values[i], cols[2].Values[i], 1e-12)
	}
	// 두 EMA 모두 첫 종가로 시작
	assert.Equal(t, 0.0, cols[0].Values[0])

	_, err = NewMACD(26, 12, 9, "")
	assert.Error(t, err)
}

func TestBollinger(t *testing.T) {
	bb, err := NewBollinger(3, 2, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"bb_upper", "bb_middle", "bb_lower"}, bb.Columns())

	cols, err := bb.Calculate(seriesOf(t, 2, 3, 4, 5))
	require.NoError(t, err)

	sd := math.Sqrt(2.0 / 3.0)
	assertValues(t, []float64{nan, nan, 3 + 2*sd, 4 + 2*sd}, cols[0].Values)
	assertValues(t, []float64{nan, nan, 3, 4}, cols[1].Values)
	assertValues(t, []float64{nan, nan, 3 - 2*sd, 4 - 2*sd}, cols[2].Values)
}

func TestStochastic(t *testing.T) {
	stoch, err := NewStochastic(3, 2, "")
	require.NoError(t, err)

	cols, err := stoch.Calculate(seriesOf(t, 10, 11, 12, 11, 10))
	require.NoError(t, err)
	assertValues(t, []float64{nan, nan, 75, 100.0 / 3, 25}, cols[0].Values)
	assertValues(t, []float64{nan, nan, nan, (75 + 100.0/3) / 2, (100.0/3 + 25) / 2}, cols[1].Values)

	t.Run("zero range is undefined", func(t *testing.T) {
		baseTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		var points []domain.PricePoint
		for i := 0; i < 4; i++ {
			points = append(points, domain.PricePoint{
				Timestamp: baseTime.AddDate(0, 0, i), Open: 5, High: 5, Low: 5, Close: 5,
			})
		}
		series, err := domain.NewPriceSeries(points)
		require.NoError(t, err)

		cols, err := stoch.Calculate(series)
		require.NoError(t, err)
		for i := range cols[0].Values {
			assert.True(t, math.IsNaN(cols[0].Values[i]))
			assert.True(t, math.IsNaN(cols[1].Values[i]))
		}
	})
}

func TestATR(t *testing.T) {
	series := seriesOf(t, 10, 11, 12)
	assertValues(t, []float64{2, 2, 2}, TrueRange(series))
	assertValues(t, []float64{nan, 2, 2}, ATR(series, 2))
	assertValues(t, []float64{nan, nan, nan}, ATR(series, DefaultATRPeriod))
}

func TestCompute(t *testing.T) {
	series := seriesOf(t, 2, 4, 6, 8)
	sma, err := NewSMA(2, "")
	require.NoError(t, err)

	frame, err := Compute(series, []Indicator{sma})
	require.NoError(t, err)
	assert.Equal(t, 4, frame.Len())
	assert.Equal(t, append(append([]string{}, PriceColumns...), "sma_2"), frame.Names())

	v, ok := frame.Value("sma_2", 1)
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)

	_, ok = frame.Value("sma_2", 0)
	assert.False(t, ok, "warm-up value is undefined")
	_, ok = frame.Value("sma_2", 4)
	assert.False(t, ok, "out of range")
	_, ok = frame.Value("missing", 1)
	assert.False(t, ok, "unknown column")

	price, ok := frame.Value(ColumnPrice, 2)
	assert.True(t, ok)
	assert.Equal(t, 6.0, price)

	t.Run("duplicate column", func(t *testing.T) {
		shadow, err := NewSMA(3, "close")
		require.NoError(t, err)
		_, err = Compute(series, []Indicator{shadow})
		assert.ErrorIs(t, err, ErrDuplicateColumn)
	})

	t.Run("columns are copies", func(t *testing.T) {
		col, ok := frame.Column(ColumnClose)
		require.True(t, ok)
		col[0] = 999
		v, _ := frame.Value(ColumnClose, 0)
		assert.Equal(t, 2.0, v)
	})
}

func TestNew(t *testing.T) {
	testCases := []struct {
		name    string
		spec    Spec
		columns []string
		wantErr error
	}{
		{"sma default", Spec{Type: "SMA"}, []string{"sma_20"}, nil},
		{"ema weak typing", Spec{Type: "ema", Params: map[string]interface{}{"period": "9"}}, []string{"ema_9"}, nil},
		{"rsi float period", Spec{Type: "RSI", Params: map[string]interface{}{"period": 7.0}}, []string{"rsi_7"}, nil},
		{"macd named", Spec{Type: "MACD", Name: "m"}, []string{"m", "m_signal", "m_hist"}, nil},
		{"bollinger alias", Spec{Type: "bb", Params: map[string]interface{}{"period": 10, "k": 1.5}}, []string{"bb_upper", "bb_middle", "bb_lower"}, nil},
		{"stochastic", Spec{Type: "STOCHASTIC", Params: map[string]interface{}{"k_period": 5}}, []string{"stoch_k", "stoch_d"}, nil},
		{"unknown kind", Spec{Type: "VWAP"}, nil, ErrUnknownKind},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ind, err := New(tc.spec)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.columns, ind.Columns())
		})
	}

	t.Run("unknown parameter", func(t *testing.T) {
		_, err := New(Spec{Type: "SMA", Params: map[string]interface{}{"length": 5}})
		var vErr *ValidationError
		assert.True(t, errors.As(err, &vErr))
	})

	t.Run("invalid parameter value", func(t *testing.T) {
		_, err := New(Spec{Type: "MACD", Params: map[string]interface{}{"fast": 30}})
		assert.Error(t, err)
	})
}
