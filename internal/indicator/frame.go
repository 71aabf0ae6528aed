package indicator

import (
	"errors"
	"fmt"
	"math"

	"github.com/assist-by/strategylab/internal/domain"
)

// ErrDuplicateColumn은 두 지표가 같은 컬럼을 만들 때 반환됩니다
var ErrDuplicateColumn = errors.New("duplicate column")

// 모든 프레임에 있는 가격 컬럼 이름
const (
	ColumnOpen   = "open"
	ColumnHigh   = "high"
	ColumnLow    = "low"
	ColumnClose  = "close"
	ColumnVolume = "volume"
	ColumnPrice  = "price" // close의 별칭
)

// PriceColumns는 기본 컬럼을 프레임 순서대로 나열합니다
var PriceColumns = []string{ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnVolume, ColumnPrice}

// Frame은 이름 붙은 지표 컬럼이 더해진 가격 시리즈입니다.
// 모든 컬럼은 정확히 Len()개의 값을 가집니다.
type Frame struct {
	series  domain.PriceSeries
	columns map[string][]float64
	order   []string
}

// Compute는 시리즈로 프레임을 만들고 모든 지표를 계산합니다.
// 짧은 시리즈는 에러가 아니며 해당 값은 NaN으로 남습니다.
func Compute(series domain.PriceSeries, indicators []Indicator) (*Frame, error) {
	f := &Frame{
		series:  series,
		columns: make(map[string][]float64, len(PriceColumns)+len(indicators)*2),
	}

	closes := series.Closes()
	f.add(ColumnOpen, series.Opens())
	f.add(ColumnHigh, series.Highs())
	f.add(ColumnLow, series.Lows())
	f.add(ColumnClose, closes)
	f.add(ColumnVolume, series.Volumes())
	f.add(ColumnPrice, closes)

	for _, ind := range indicators {
		cols, err := ind.Calculate(series)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ind.GetName(), err)
		}
		for _, col := range cols {
			if _, exists := f.columns[col.Name]; exists {
				return nil, fmt.Errorf("%w: %q produced by %s", ErrDuplicateColumn, col.Name, ind.GetName())
			}
			if len(col.Values) != len(series) {
				return nil, fmt.Errorf("%s: column %q has %d values for %d bars",
					ind.GetName(), col.Name, len(col.Values), len(series))
			}
			f.add(col.Name, col.Values)
		}
	}

	return f, nil
}

func (f *Frame) add(name string, values []float64) {
	f.columns[name] = values
	f.order = append(f.order, name)
}

// Len은 봉 개수를 반환합니다
func (f *Frame) Len() int {
	return len(f.series)
}

// Series는 원본 봉 시리즈를 반환합니다
func (f *Frame) Series() domain.PriceSeries {
	return f.series
}

// Has는 프레임에 해당 컬럼이 있는지 알려줍니다
func (f *Frame) Has(name string) bool {
	_, ok := f.columns[name]
	return ok
}

// Names는 컬럼 이름을 추가된 순서대로 반환합니다
func (f *Frame) Names() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Column은 해당 컬럼의 복사본을 반환합니다
func (f *Frame) Column(name string) ([]float64, bool) {
	values, ok := f.columns[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(values))
	copy(out, values)
	return out, true
}

// Value는 i번째 봉의 컬럼 값을 반환합니다. 컬럼이 없거나 i가 범위를
// 벗어나거나 값이 정의되지 않았으면 ok는 false입니다.
func (f *Frame) Value(name string, i int) (v float64, ok bool) {
	values, exists := f.columns[name]
	if !exists || i < 0 || i >= len(values) {
		return math.NaN(), false
	}
	v = values[i]
	if IsUndefined(v) {
		return v, false
	}
	return v, true
}
