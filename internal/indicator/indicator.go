package indicator

import (
	"fmt"

	"github.com/assist-by/strategylab/internal/domain"
)

// Column은 입력 봉에 맞춰 정렬된 이름 붙은 출력 시리즈입니다.
// 정의되지 않은 값(워밍업 구간, 분모 0)은 NaN입니다.
type Column struct {
	Name   string
	Values []float64
}

// ValidationError는 잘못된 지표 파라미터를 나타냅니다
type ValidationError struct {
	Field string
	Err   error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

// Unwrap은 내부 에러를 반환합니다 (errors.Is/As 지원)
func (e ValidationError) Unwrap() error {
	return e.Err
}

// Indicator는 모든 기술적 지표가 구현하는 인터페이스입니다
type Indicator interface {
	// Calculate는 주어진 봉들로 지표 컬럼을 계산합니다.
	// 워밍업 기간보다 짧은 시리즈는 에러가 아니며
	// 해당 값은 NaN이 됩니다.
	Calculate(series domain.PriceSeries) ([]Column, error)

	// GetName은 지표의 표시 이름을 반환합니다 (예: "SMA(20)")
	GetName() string

	// Columns는 Calculate가 만드는 컬럼 이름을 순서대로 반환합니다
	Columns() []string

	// GetConfig는 지표 파라미터의 복사본을 반환합니다
	GetConfig() map[string]interface{}
}

// BaseIndicator는 모든 지표 구현이 공유하는 필드를 담습니다
type BaseIndicator struct {
	Name    string
	Config  map[string]interface{}
	Outputs []string
}

// GetName은 지표의 표시 이름을 반환합니다
func (b *BaseIndicator) GetName() string {
	return b.Name
}

// Columns는 출력 컬럼 이름을 반환합니다
func (b *BaseIndicator) Columns() []string {
	out := make([]string, len(b.Outputs))
	copy(out, b.Outputs)
	return out
}

// GetConfig는 지표 파라미터의 복사본을 반환합니다
func (b *BaseIndicator) GetConfig() map[string]interface{} {
	configCopy := make(map[string]interface{}, len(b.Config))
	for k, v := range b.Config {
		configCopy[k] = v
	}
	return configCopy
}

func positivePeriod(field string, period int) error {
	if period <= 0 {
		return &ValidationError{Field: field, Err: fmt.Errorf("must be > 0, got %d", period)}
	}
	return nil
}
