package indicator

import (
	"math"

	"github.com/markcheno/go-talib"
)

// IsUndefined는 v가 사용할 수 없는 값인지 알려줍니다
func IsUndefined(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// talib은 기간보다 짧은 입력에서 lookback 자리를 0으로 채우고 범위 밖을
// 참조하므로, 아래 호출은 모두 길이를 먼저 확인하고 lookback 자리를
// NaN으로 바꿉니다. 입력에는 NaN이 없어야 합니다.

// simpleMA는 period 봉 동안의 후행 산술평균입니다
func simpleMA(x []float64, period int) []float64 {
	out := nanSeries(len(x))
	if period <= 0 || len(x) < period {
		return out
	}
	if period == 1 {
		copy(out, x)
		return out
	}
	sma := talib.Sma(x, period)
	copy(out[period-1:], sma[period-1:])
	return out
}

// stdDev는 period 봉 동안의 후행 모표준편차입니다
func stdDev(x []float64, period int) []float64 {
	out := nanSeries(len(x))
	if period <= 0 || len(x) < period {
		return out
	}
	if period == 1 {
		for i := range out {
			out[i] = 0
		}
		return out
	}
	sd := talib.StdDev(x, period, 1.0)
	copy(out[period-1:], sd[period-1:])
	return out
}

// RollingMax는 window 봉 동안의 후행 최댓값입니다
func RollingMax(x []float64, window int) []float64 {
	out := nanSeries(len(x))
	if window <= 0 || len(x) < window {
		return out
	}
	if window == 1 {
		copy(out, x)
		return out
	}
	mx := talib.Max(x, window)
	copy(out[window-1:], mx[window-1:])
	return out
}

// RollingMin은 window 봉 동안의 후행 최솟값입니다
func RollingMin(x []float64, window int) []float64 {
	out := nanSeries(len(x))
	if window <= 0 || len(x) < window {
		return out
	}
	if window == 1 {
		copy(out, x)
		return out
	}
	mn := talib.Min(x, window)
	copy(out[window-1:], mn[window-1:])
	return out
}

// rollingMean은 NaN 입력을 허용하는 후행 평균입니다. 구간 안에 NaN이
// 하나라도 있으면 해당 출력은 NaN입니다.
func rollingMean(x []float64, period int) []float64 {
	out := nanSeries(len(x))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(x); i++ {
		sum := 0.0
		defined := true
		for j := i - period + 1; j <= i; j++ {
			if IsUndefined(x[j]) {
				defined = false
				break
			}
			sum += x[j]
		}
		if defined {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// expMA는 첫 정의된 값으로 시작해
// EMA_t = EMA_{t-1} + alpha*(x_t - EMA_{t-1}), alpha = 2/(period+1)을 적용합니다.
// NaN 입력은 그 봉에서 NaN을 내고 누적 값은 그대로 둡니다.
func expMA(x []float64, period int) []float64 {
	out := nanSeries(len(x))
	if period <= 0 {
		return out
	}
	alpha := 2.0 / float64(period+1)

	seeded := false
	ema := 0.0
	for i, v := range x {
		if IsUndefined(v) {
			continue
		}
		if !seeded {
			ema = v
			seeded = true
		} else {
			ema += alpha * (v - ema)
		}
		out[i] = ema
	}
	return out
}
