package indicator

import (
	"github.com/markcheno/go-talib"

	"github.com/assist-by/strategylab/internal/domain"
)

// DefaultATRPeriod는 리스크 정책이 쓰는 ATR 기간입니다
const DefaultATRPeriod = 14

// TrueRange는 봉마다 max(high-low, |high-prevClose|, |low-prevClose|)를 반환합니다.
// 첫 봉은 이전 종가가 없으므로 high-low를 씁니다.
func TrueRange(series domain.PriceSeries) []float64 {
	highs, lows, closes := series.Highs(), series.Lows(), series.Closes()
	if len(closes) < 2 {
		out := make([]float64, len(closes))
		for i := range out {
			out[i] = highs[i] - lows[i]
		}
		return out
	}
	tr := talib.TRange(highs, lows, closes)
	tr[0] = highs[0] - lows[0]
	return tr
}

// ATR은 period 봉 동안의 True Range 후행 평균입니다
func ATR(series domain.PriceSeries, period int) []float64 {
	return simpleMA(TrueRange(series), period)
}
