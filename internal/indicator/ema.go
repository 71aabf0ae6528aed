package indicator

import (
	"fmt"

	"github.com/assist-by/strategylab/internal/domain"
)

// EMA는 종가의 지수이동평균입니다
type EMA struct {
	BaseIndicator
	Period int // 평활 기간, alpha = 2/(period+1)
}

// NewEMA는 EMA 지표를 생성합니다. 컬럼명이 비어 있으면 ema_<period>를 씁니다.
func NewEMA(period int, column string) (*EMA, error) {
	if err := positivePeriod("period", period); err != nil {
		return nil, err
	}
	if column == "" {
		column = fmt.Sprintf("ema_%d", period)
	}
	return &EMA{
		BaseIndicator: BaseIndicator{
			Name:    fmt.Sprintf("EMA(%d)", period),
			Config:  map[string]interface{}{"Period": period},
			Outputs: []string{column},
		},
		Period: period,
	}, nil
}

// Calculate는 첫 종가로 시작하는 EMA를 계산하므로 모든 봉이 정의됩니다
func (e *EMA) Calculate(series domain.PriceSeries) ([]Column, error) {
	return []Column{{Name: e.Outputs[0], Values: expMA(series.Closes(), e.Period)}}, nil
}
