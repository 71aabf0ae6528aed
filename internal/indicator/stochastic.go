package indicator

import (
	"fmt"
	"math"

	"github.com/assist-by/strategylab/internal/domain"
)

// Stochastic은 %K/%D 스토캐스틱 오실레이터입니다
type Stochastic struct {
	BaseIndicator
	KPeriod int // %K용 고가/저가 조회 기간
	DPeriod int // %D를 위한 %K의 SMA 기간
}

// NewStochastic은 <base>_k와 <base>_d를 만드는 스토캐스틱 오실레이터를
// 생성합니다. base가 비어 있으면 "stoch"를 씁니다.
func NewStochastic(kPeriod, dPeriod int, base string) (*Stochastic, error) {
	if err := positivePeriod("k_period", kPeriod); err != nil {
		return nil, err
	}
	if err := positivePeriod("d_period", dPeriod); err != nil {
		return nil, err
	}
	if base == "" {
		base = "stoch"
	}

	return &Stochastic{
		BaseIndicator: BaseIndicator{
			Name:    fmt.Sprintf("STOCHASTIC(%d,%d)", kPeriod, dPeriod),
			Config:  map[string]interface{}{"KPeriod": kPeriod, "DPeriod": dPeriod},
			Outputs: []string{base + "_k", base + "_d"},
		},
		KPeriod: kPeriod,
		DPeriod: dPeriod,
	}, nil
}

// Calculate는 %K와 %D를 계산합니다. 고가/저가 범위가 0이면 %K는 NaN입니다.
func (s *Stochastic) Calculate(series domain.PriceSeries) ([]Column, error) {
	closes := series.Closes()
	lowest := RollingMin(series.Lows(), s.KPeriod)
	highest := RollingMax(series.Highs(), s.KPeriod)

	k := make([]float64, len(closes))
	for i := range closes {
		rng := highest[i] - lowest[i]
		if IsUndefined(rng) || rng == 0 {
			k[i] = math.NaN()
			continue
		}
		k[i] = 100 * (closes[i] - lowest[i]) / rng
	}
	d := rollingMean(k, s.DPeriod)

	return []Column{
		{Name: s.Outputs[0], Values: k},
		{Name: s.Outputs[1], Values: d},
	}, nil
}
