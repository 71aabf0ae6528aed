package position

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	decOne     = decimal.NewFromInt(1)
	decHundred = decimal.NewFromInt(100)
)

// decFromFloat는 가격을 decimal로 변환합니다. 정의되지 않은 값은 0이 됩니다
func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

// level은 v가 쓸 수 있는 가격이면 v를, 아니면 0(없음)을 반환합니다
func level(v decimal.Decimal) float64 {
	if !v.IsPositive() {
		return 0
	}
	return decToFloat(v)
}

// ProfitPercent는 (exit-entry)/entry*100을 반환합니다. entry가 양수가 아니면 0
func ProfitPercent(entry, exit float64) float64 {
	if entry <= 0 {
		return 0
	}
	e := decFromFloat(entry)
	return decToFloat(decFromFloat(exit).Sub(e).Div(e).Mul(decHundred))
}

// stopHit은 롱 포지션의 손절가가 봉 저가에 닿았는지 알려줍니다
func stopHit(low, stop float64) bool {
	if stop <= 0 || low <= 0 {
		return false
	}
	return decFromFloat(low).Cmp(decFromFloat(stop)) <= 0
}

// targetHit은 롱 포지션의 익절가가 봉 고가에 닿았는지 알려줍니다
func targetHit(high, target float64) bool {
	if target <= 0 || high <= 0 {
		return false
	}
	return decFromFloat(high).Cmp(decFromFloat(target)) >= 0
}
