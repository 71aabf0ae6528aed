package position

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PositionSizeResult는 전액 투자 수량 계산 결과입니다
type PositionSizeResult struct {
	Shares int64           // 매수한 정수 주식 수
	Cost   decimal.Decimal // shares * price
}

// CalculatePositionSize는 정수 주식으로 가능한 만큼 현금을 씁니다:
// shares = floor(cash / price). 0주도 유효한 결과입니다.
func CalculatePositionSize(cash decimal.Decimal, price float64) (PositionSizeResult, error) {
	if price <= 0 || decFromFloat(price).IsZero() {
		return PositionSizeResult{}, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	if !cash.IsPositive() {
		return PositionSizeResult{Cost: decimal.Zero}, nil
	}

	p := decFromFloat(price)
	shares := cash.Div(p).Floor()

	// Div는 DivisionPrecision으로 반올림하므로 정수 바로 아래의 몫이
	// 정수로 올라갈 수 있음
	cost := shares.Mul(p)
	for shares.IsPositive() && cost.GreaterThan(cash) {
		shares = shares.Sub(decOne)
		cost = shares.Mul(p)
	}

	return PositionSizeResult{
		Shares: shares.IntPart(),
		Cost:   cost,
	}, nil
}
