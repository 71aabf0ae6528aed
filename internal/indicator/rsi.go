package indicator

import (
	"fmt"

	"github.com/assist-by/strategylab/internal/domain"
)

// RSI는 상승폭과 하락폭의 단순 평균(Wilder 평균 아님)으로 계산하는
// 상대강도지수입니다
type RSI struct {
	BaseIndicator
	Period int // 평균을 낼 가격 변화 개수
}

// NewRSI는 RSI 지표를 생성합니다. 컬럼명이 비어 있으면 rsi_<period>를 씁니다.
func NewRSI(period int, column string) (*RSI, error) {
	if err := positivePeriod("period", period); err != nil {
		return nil, err
	}
	if column == "" {
		column = fmt.Sprintf("rsi_%d", period)
	}
	return &RSI{
		BaseIndicator: BaseIndicator{
			Name:    fmt.Sprintf("RSI(%d)", period),
			Config:  map[string]interface{}{"Period": period},
			Outputs: []string{column},
		},
		Period: period,
	}, nil
}

// Calculate는 RSI를 계산합니다. t번째 봉에는 period개의 가격 변화가
// 필요하므로 첫 값은 인덱스 period에서 정의됩니다.
func (r *RSI) Calculate(series domain.PriceSeries) ([]Column, error) {
	closes := series.Closes()
	p := r.Period
	values := nanSeries(len(closes))

	if len(closes) <= p {
		return []Column{{Name: r.Outputs[0], Values: values}}, nil
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	// 하락이 없는 구간이 정확히 0이 되도록 구간마다 새로 합산
	for i := p; i < len(closes); i++ {
		sumGain, sumLoss := 0.0, 0.0
		for j := i - p + 1; j <= i; j++ {
			sumGain += gains[j]
			sumLoss += losses[j]
		}
		values[i] = toRSI(sumGain/float64(p), sumLoss/float64(p))
	}

	return []Column{{Name: r.Outputs[0], Values: values}}, nil
}

func toRSI(avgGain, avgLoss float64) float64 {
	// 보합 또는 상승 구간에는 하락이 없음
	if avgLoss <= 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
