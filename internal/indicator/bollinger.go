package indicator

import (
	"fmt"

	"github.com/assist-by/strategylab/internal/domain"
)

// Bollinger는 볼린저 밴드 변동성 지표입니다
type Bollinger struct {
	BaseIndicator
	Period int     // SMA / 표준편차 기간
	K      float64 // 표준편차 배수
}

// NewBollinger는 <base>_upper, <base>_middle, <base>_lower를 만드는
// 볼린저 밴드를 생성합니다. base가 비어 있으면 "bb"를 씁니다.
func NewBollinger(period int, k float64, base string) (*Bollinger, error) {
	if err := positivePeriod("period", period); err != nil {
		return nil, err
	}
	if k <= 0 || IsUndefined(k) {
		return nil, &ValidationError{Field: "k", Err: fmt.Errorf("must be > 0, got %v", k)}
	}
	if base == "" {
		base = "bb"
	}

	return &Bollinger{
		BaseIndicator: BaseIndicator{
			Name:    fmt.Sprintf("BOLLINGER(%d,%.2f)", period, k),
			Config:  map[string]interface{}{"Period": period, "K": k},
			Outputs: []string{base + "_upper", base + "_middle", base + "_lower"},
		},
		Period: period,
		K:      k,
	}, nil
}

// Calculate는 세 밴드를 계산합니다. 처음 period-1개 값은 NaN입니다
func (b *Bollinger) Calculate(series domain.PriceSeries) ([]Column, error) {
	closes := series.Closes()
	middle := simpleMA(closes, b.Period)
	sd := stdDev(closes, b.Period)

	upper := make([]float64, len(closes))
	lower := make([]float64, len(closes))
	for i := range closes {
		upper[i] = middle[i] + b.K*sd[i]
		lower[i] = middle[i] - b.K*sd[i]
	}

	return []Column{
		{Name: b.Outputs[0], Values: upper},
		{Name: b.Outputs[1], Values: middle},
		{Name: b.Outputs[2], Values: lower},
	}, nil
}
