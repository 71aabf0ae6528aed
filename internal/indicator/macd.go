package indicator

import (
	"fmt"

	"github.com/assist-by/strategylab/internal/domain"
)

// MACD는 MACD(Moving Average Convergence Divergence) 지표입니다
type MACD struct {
	BaseIndicator
	FastPeriod   int // 단기 EMA 기간
	SlowPeriod   int // 장기 EMA 기간
	SignalPeriod int // 시그널 라인 EMA 기간
}

// NewMACD는 <base>, <base>_signal, <base>_hist를 만드는 MACD 지표를
// 생성합니다. base가 비어 있으면 "macd"를 씁니다.
func NewMACD(fastPeriod, slowPeriod, signalPeriod int, base string) (*MACD, error) {
	if err := positivePeriod("fast", fastPeriod); err != nil {
		return nil, err
	}
	if err := positivePeriod("slow", slowPeriod); err != nil {
		return nil, err
	}
	if err := positivePeriod("signal", signalPeriod); err != nil {
		return nil, err
	}
	if fastPeriod >= slowPeriod {
		return nil, &ValidationError{
			Field: "fast",
			Err:   fmt.Errorf("fast period %d must be smaller than slow period %d", fastPeriod, slowPeriod),
		}
	}
	if base == "" {
		base = "macd"
	}

	return &MACD{
		BaseIndicator: BaseIndicator{
			Name: fmt.Sprintf("MACD(%d,%d,%d)", fastPeriod, slowPeriod, signalPeriod),
			Config: map[string]interface{}{
				"FastPeriod":   fastPeriod,
				"SlowPeriod":   slowPeriod,
				"SignalPeriod": signalPeriod,
			},
			Outputs: []string{base, base + "_signal", base + "_hist"},
		},
		FastPeriod:   fastPeriod,
		SlowPeriod:   slowPeriod,
		SignalPeriod: signalPeriod,
	}, nil
}

// Calculate는 MACD 라인, 시그널 라인, 히스토그램을 계산합니다
func (m *MACD) Calculate(series domain.PriceSeries) ([]Column, error) {
	closes := series.Closes()

	// 1. MACD 라인 = 단기 EMA - 장기 EMA
	fast := expMA(closes, m.FastPeriod)
	slow := expMA(closes, m.SlowPeriod)
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}

	// 2. 시그널 라인 = MACD 라인의 EMA (같은 시작 규칙)
	signal := expMA(line, m.SignalPeriod)

	// 3. 히스토그램
	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - signal[i]
	}

	return []Column{
		{Name: m.Outputs[0], Values: line},
		{Name: m.Outputs[1], Values: signal},
		{Name: m.Outputs[2], Values: hist},
	}, nil
}
