package signal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/assist-by/strategylab/internal/indicator"
)

var (
	// ErrUnknownOperator는 지원하지 않는 조건 연산자일 때 반환됩니다
	ErrUnknownOperator = errors.New("unknown condition operator")
	// ErrInvalidCondition은 피연산자가 없거나 잘못된 조건일 때 반환됩니다
	ErrInvalidCondition = errors.New("invalid condition")
	// ErrInvalidCombinator는 위치가 잘못되었거나 지원하지 않는 결합자일 때 반환됩니다
	ErrInvalidCombinator = errors.New("invalid combinator")
)

// Operator는 단일 조건식의 이름입니다
type Operator string

const (
	GreaterThan   Operator = "greater_than"
	LessThan      Operator = "less_than"
	CrossesAbove  Operator = "crosses_above"
	CrossesBelow  Operator = "crosses_below"
	PercentChange Operator = "percent_change"
	InRange       Operator = "in_range"
)

// Operators는 지원하는 모든 연산자를 반환합니다
func Operators() []Operator {
	return []Operator{GreaterThan, LessThan, CrossesAbove, CrossesBelow, PercentChange, InRange}
}

// Combinator는 조건을 앞선 조건들의 누적 결과와 결합합니다
type Combinator string

const (
	Initial Combinator = "INITIAL"
	And     Combinator = "AND"
	Or      Combinator = "OR"
)

// ParseCombinator는 결합자 이름을 정규화합니다. 빈 입력은 ""를 반환합니다
func ParseCombinator(s string) (Combinator, error) {
	switch c := Combinator(strings.ToUpper(strings.TrimSpace(s))); c {
	case "", Initial, And, Or:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCombinator, s)
	}
}

// percent_change의 방향 값
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Operand는 컬럼 참조 또는 숫자 리터럴입니다.
// JSON/YAML 문자열(컬럼)이나 숫자(리터럴)에서 디코딩되며, 숫자를 담은
// 문자열은 리터럴로 읽습니다.
type Operand struct {
	Column    string
	Literal   float64
	IsLiteral bool
}

// Col은 컬럼 피연산자를 반환합니다
func Col(name string) Operand {
	return Operand{Column: name}
}

// Lit은 리터럴 피연산자를 반환합니다
func Lit(v float64) Operand {
	return Operand{Literal: v, IsLiteral: true}
}

// IsZero는 피연산자가 설정되지 않았는지 알려줍니다
func (o Operand) IsZero() bool {
	return !o.IsLiteral && o.Column == ""
}

// String은 컬럼 이름이나 포맷된 리터럴을 반환합니다
func (o Operand) String() string {
	if o.IsLiteral {
		return strconv.FormatFloat(o.Literal, 'g', -1, 64)
	}
	return o.Column
}

// value는 t번째 봉에서 피연산자 값을 구합니다
func (o Operand) value(f *indicator.Frame, t int) (float64, bool) {
	if o.IsLiteral {
		if t < 0 || t >= f.Len() || indicator.IsUndefined(o.Literal) {
			return 0, false
		}
		return o.Literal, true
	}
	return f.Value(o.Column, t)
}

func (o *Operand) setText(s string) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*o = Lit(v)
		return
	}
	*o = Col(s)
}

// MarshalJSON은 리터럴은 숫자로, 컬럼은 문자열로 인코딩합니다
func (o Operand) MarshalJSON() ([]byte, error) {
	switch {
	case o.IsZero():
		return []byte("null"), nil
	case o.IsLiteral:
		return json.Marshal(o.Literal)
	default:
		return json.Marshal(o.Column)
	}
}

// UnmarshalJSON은 문자열 또는 숫자를 디코딩합니다
func (o *Operand) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Operand{}
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*o = Lit(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("operand must be a column name or a number: %s", string(data))
	}
	o.setText(s)
	return nil
}

// MarshalYAML은 리터럴은 숫자로, 컬럼은 문자열로 인코딩합니다
func (o Operand) MarshalYAML() (interface{}, error) {
	switch {
	case o.IsZero():
		return nil, nil
	case o.IsLiteral:
		return o.Literal, nil
	default:
		return o.Column, nil
	}
}

// UnmarshalYAML은 스칼라 노드를 디코딩합니다
func (o *Operand) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: operand must be a scalar", value.Line)
	}
	if value.Tag == "!!null" {
		*o = Operand{}
		return nil
	}
	o.setText(value.Value)
	return nil
}

// Float는 ConditionSpec.Threshold 같은 선택적 숫자 필드를 위해
// v의 포인터를 반환합니다
func Float(v float64) *float64 {
	return &v
}

// ConditionSpec은 매수/매도 목록 안 조건 하나의 선언형 표현입니다
type ConditionSpec struct {
	Operator   string   `json:"operator" yaml:"operator"`                         // 조건식 이름
	Operand1   Operand  `json:"operand1" yaml:"operand1"`                         // 조건이 읽는 컬럼
	Operand2   Operand  `json:"operand2,omitempty" yaml:"operand2,omitempty"`     // 비교/교차 대상
	Lower      Operand  `json:"lower,omitempty" yaml:"lower,omitempty"`           // in_range 하한
	Upper      Operand  `json:"upper,omitempty" yaml:"upper,omitempty"`           // in_range 상한
	Threshold  *float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`   // percent_change 임계값(%), 필수
	Direction  string   `json:"direction,omitempty" yaml:"direction,omitempty"`   // percent_change 방향 (up/down)
	Combinator string   `json:"combinator,omitempty" yaml:"combinator,omitempty"` // INITIAL, AND 또는 OR
}
