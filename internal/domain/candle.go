package domain

import (
	"fmt"
	"math"
	"time"
)

// PricePoint는 단일 OHLCV 봉을 표현합니다
type PricePoint struct {
	Timestamp time.Time `json:"date"`   // 봉 시각
	Open      float64   `json:"open"`   // 시가
	High      float64   `json:"high"`   // 고가
	Low       float64   `json:"low"`    // 저가
	Close     float64   `json:"close"`  // 종가
	Volume    float64   `json:"volume"` // 거래량
}

// Validate는 봉의 시각이 있고 가격이 유한한 양수이며 거래량이 유한한
// 음이 아닌 값인지 검사합니다. NaN과 ±Inf는 거부됩니다.
func (p PricePoint) Validate() error {
	if p.Timestamp.IsZero() {
		return fmt.Errorf("%w: no timestamp", ErrInvalidSeries)
	}
	prices := [...]struct {
		name  string
		value float64
	}{{"open", p.Open}, {"high", p.High}, {"low", p.Low}, {"close", p.Close}}
	for _, price := range prices {
		if !(price.value > 0) || math.IsInf(price.value, 0) {
			return fmt.Errorf("%w: %s %v at %s is not a finite positive price",
				ErrInvalidSeries, price.name, price.value, p.Timestamp.Format(time.RFC3339))
		}
	}
	if !(p.Volume >= 0) || math.IsInf(p.Volume, 0) {
		return fmt.Errorf("%w: volume %v at %s is not a finite non-negative number",
			ErrInvalidSeries, p.Volume, p.Timestamp.Format(time.RFC3339))
	}
	return nil
}

// PriceSeries는 시각이 엄격히 증가하는 봉 목록입니다.
// NewPriceSeries로 만든 시리즈는 이후 변경되지 않습니다.
type PriceSeries []PricePoint

// NewPriceSeries는 봉들을 검증한 뒤 내부 복사본을 반환합니다
func NewPriceSeries(points []PricePoint) (PriceSeries, error) {
	series := make(PriceSeries, len(points))
	copy(series, points)

	for i, p := range series {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("bar %d: %w", i, err)
		}
		if i > 0 && !p.Timestamp.After(series[i-1].Timestamp) {
			return nil, fmt.Errorf("%w: bar %d (%s) is not after bar %d (%s)",
				ErrInvalidSeries, i, p.Timestamp.Format(time.RFC3339),
				i-1, series[i-1].Timestamp.Format(time.RFC3339))
		}
	}

	return series, nil
}

// Len은 봉 개수를 반환합니다
func (s PriceSeries) Len() int {
	return len(s)
}

// Last는 가장 최근 봉을 반환합니다
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[len(s)-1], true
}

// Closes는 종가를 새 슬라이스로 반환합니다
func (s PriceSeries) Closes() []float64 {
	return s.project(func(p PricePoint) float64 { return p.Close })
}

// Opens는 시가를 새 슬라이스로 반환합니다
func (s PriceSeries) Opens() []float64 {
	return s.project(func(p PricePoint) float64 { return p.Open })
}

// Highs는 고가를 새 슬라이스로 반환합니다
func (s PriceSeries) Highs() []float64 {
	return s.project(func(p PricePoint) float64 { return p.High })
}

// Lows는 저가를 새 슬라이스로 반환합니다
func (s PriceSeries) Lows() []float64 {
	return s.project(func(p PricePoint) float64 { return p.Low })
}

// Volumes는 거래량을 새 슬라이스로 반환합니다
func (s PriceSeries) Volumes() []float64 {
	return s.project(func(p PricePoint) float64 { return p.Volume })
}

func (s PriceSeries) project(field func(PricePoint) float64) []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = field(p)
	}
	return out
}

// IndexRange는 시각이 [start, end] 안에 드는 봉들의 반개구간 인덱스
// [from, to)를 반환합니다. start나 end가 zero 값이면 제한이 없습니다.
func (s PriceSeries) IndexRange(start, end time.Time) (from, to int) {
	from, to = 0, len(s)
	if !start.IsZero() {
		for from < len(s) && s[from].Timestamp.Before(start) {
			from++
		}
	}
	if !end.IsZero() {
		for to > from && s[to-1].Timestamp.After(end) {
			to--
		}
	}
	return from, to
}
