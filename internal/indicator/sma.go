package indicator

import (
	"fmt"

	"github.com/assist-by/strategylab/internal/domain"
)

// SMA는 종가의 단순이동평균입니다
type SMA struct {
	BaseIndicator
	Period int // 평균 기간
}

// NewSMA는 SMA 지표를 생성합니다. 컬럼명이 비어 있으면 sma_<period>를 씁니다.
func NewSMA(period int, column string) (*SMA, error) {
	if err := positivePeriod("period", period); err != nil {
		return nil, err
	}
	if column == "" {
		column = fmt.Sprintf("sma_%d", period)
	}
	return &SMA{
		BaseIndicator: BaseIndicator{
			Name:    fmt.Sprintf("SMA(%d)", period),
			Config:  map[string]interface{}{"Period": period},
			Outputs: []string{column},
		},
		Period: period,
	}, nil
}

// Calculate는 SMA를 계산합니다. 처음 period-1개 값은 NaN입니다
func (s *SMA) Calculate(series domain.PriceSeries) ([]Column, error) {
	return []Column{{Name: s.Outputs[0], Values: simpleMA(series.Closes(), s.Period)}}, nil
}
