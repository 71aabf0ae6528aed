package strategy

import (
	"errors"
	"fmt"

	"github.com/assist-by/strategylab/internal/domain"
	"github.com/assist-by/strategylab/internal/indicator"
	"github.com/assist-by/strategylab/internal/position"
	"github.com/assist-by/strategylab/internal/signal"
)

var (
	// ErrUnknownColumn은 어떤 지표도 만들지 않는 컬럼을 조건이 읽을 때 반환됩니다
	ErrUnknownColumn = errors.New("unknown column")
	// ErrUnknownStrategy는 등록되지 않은 템플릿 이름일 때 반환됩니다
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// ConfigurationError는 잘못된 전략 정의를 나타냅니다.
// Field는 문제 항목의 위치입니다 (예: "buy_conditions", "indicators[1]").
type ConfigurationError struct {
	Field string
	Err   error
}

// Error는 error 인터페이스를 구현합니다
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid strategy configuration [%s]: %v", e.Field, e.Err)
}

// Unwrap은 내부 에러를 반환합니다 (errors.Is/As 지원)
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErr(field string, err error) *ConfigurationError {
	return &ConfigurationError{Field: field, Err: err}
}

// Definition은 파일, API 요청, 템플릿에서 들어온 검증 전의
// 선언형 전략입니다
type Definition struct {
	Name           string                 `json:"name" yaml:"name"`
	Description    string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Indicators     []indicator.Spec       `json:"indicators" yaml:"indicators"`
	BuyConditions  []signal.ConditionSpec `json:"buy_conditions" yaml:"buy_conditions"`
	SellConditions []signal.ConditionSpec `json:"sell_conditions" yaml:"sell_conditions"`
	Risk           position.RiskPolicy    `json:"risk_management" yaml:"risk_management"`
}

// Spec은 검증된 전략입니다. 변경되지 않으며 동시 실행 간에
// 공유해도 안전합니다.
type Spec struct {
	name        string
	description string
	indicators  []indicator.Indicator
	columns     []string
	buy         signal.ConditionSet
	sell        signal.ConditionSet
	risk        position.RiskPolicy
}

// New는 정의를 검증하고 Spec으로 컴파일합니다.
// 모든 실패는 *ConfigurationError입니다.
func New(def Definition) (*Spec, error) {
	s := &Spec{
		name:        def.Name,
		description: def.Description,
	}
	if s.name == "" {
		s.name = "custom"
	}

	// 1. 지표와 출력 컬럼
	available := make(map[string]bool)
	for _, c := range indicator.PriceColumns {
		available[c] = true
	}
	for i, spec := range def.Indicators {
		field := fmt.Sprintf("indicators[%d]", i)
		ind, err := indicator.New(spec)
		if err != nil {
			return nil, configErr(field, err)
		}
		for _, col := range ind.Columns() {
			if available[col] {
				return nil, configErr(field, fmt.Errorf("%w: %q", indicator.ErrDuplicateColumn, col))
			}
			available[col] = true
			s.columns = append(s.columns, col)
		}
		s.indicators = append(s.indicators, ind)
	}

	// 2. 조건과 컬럼 참조
	var err error
	if s.buy, err = compileConditions("buy_conditions", def.BuyConditions, available); err != nil {
		return nil, err
	}
	if s.sell, err = compileConditions("sell_conditions", def.SellConditions, available); err != nil {
		return nil, err
	}

	// 3. 리스크 관리
	s.risk = def.Risk.Normalize()
	if err := s.risk.Validate(); err != nil {
		return nil, configErr("risk_management", err)
	}

	return s, nil
}

func compileConditions(field string, specs []signal.ConditionSpec, available map[string]bool) (signal.ConditionSet, error) {
	set, err := signal.NewConditionSet(specs)
	if err != nil {
		return signal.ConditionSet{}, configErr(field, err)
	}
	for _, col := range set.Columns() {
		if !available[col] {
			return signal.ConditionSet{}, configErr(field, fmt.Errorf("%w: %q", ErrUnknownColumn, col))
		}
	}
	return set, nil
}

// GetName은 전략 이름을 반환합니다
func (s *Spec) GetName() string {
	return s.name
}

// GetDescription은 전략 설명을 반환합니다
func (s *Spec) GetDescription() string {
	return s.description
}

// Indicators는 컴파일된 지표를 반환합니다
func (s *Spec) Indicators() []indicator.Indicator {
	out := make([]indicator.Indicator, len(s.indicators))
	copy(out, s.indicators)
	return out
}

// Columns는 전략이 만드는 지표 컬럼을 반환합니다
func (s *Spec) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// BuyConditions는 컴파일된 매수 조건 집합을 반환합니다
func (s *Spec) BuyConditions() signal.ConditionSet {
	return s.buy
}

// SellConditions는 컴파일된 매도 조건 집합을 반환합니다
func (s *Spec) SellConditions() signal.ConditionSet {
	return s.sell
}

// Risk는 정규화된 리스크 정책을 반환합니다
func (s *Spec) Risk() position.RiskPolicy {
	return s.risk
}

// Analyze는 시리즈로 지표를 계산해 프레임과
// 봉별 액션을 함께 반환합니다
func (s *Spec) Analyze(series domain.PriceSeries) (*indicator.Frame, []domain.Action, error) {
	frame, err := indicator.Compute(series, s.indicators)
	if err != nil {
		return nil, nil, err
	}
	return frame, signal.Generate(frame, s.buy, s.sell), nil
}
