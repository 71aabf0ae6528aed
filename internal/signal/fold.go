package signal

import (
	"fmt"
	"strings"

	"github.com/assist-by/strategylab/internal/indicator"
)

// Rule은 조건 목록의 컴파일된 항목 하나입니다
type Rule struct {
	Combinator Combinator
	Condition  Condition
}

// ConditionSet은 우선순위 없이 왼쪽에서 오른쪽으로 규칙을 접습니다:
// 첫 규칙이 결과의 시작값이 되고 이후 규칙은 각자의 결합자로
// 누적 값과 결합됩니다 (비어 있으면 AND).
type ConditionSet struct {
	rules []Rule
}

// NewConditionSet은 순서 있는 조건 목록을 컴파일합니다.
// 첫 항목은 INITIAL이거나 비어 있어야 하며 이후에는 INITIAL을 쓸 수 없습니다.
func NewConditionSet(specs []ConditionSpec) (ConditionSet, error) {
	rules := make([]Rule, 0, len(specs))
	for i, spec := range specs {
		comb, err := ParseCombinator(spec.Combinator)
		if err != nil {
			return ConditionSet{}, fmt.Errorf("condition %d: %w", i, err)
		}
		switch {
		case i == 0 && comb != "" && comb != Initial:
			return ConditionSet{}, fmt.Errorf("condition 0: %w: first condition cannot use %s", ErrInvalidCombinator, comb)
		case i == 0:
			comb = Initial
		case comb == Initial:
			return ConditionSet{}, fmt.Errorf("condition %d: %w: INITIAL is only valid on the first condition", i, ErrInvalidCombinator)
		case comb == "":
			comb = And
		}

		cond, err := Compile(spec)
		if err != nil {
			return ConditionSet{}, fmt.Errorf("condition %d: %w", i, err)
		}
		rules = append(rules, Rule{Combinator: comb, Condition: cond})
	}
	return ConditionSet{rules: rules}, nil
}

// Evaluate는 t번째 봉에서 규칙을 접습니다. 빈 집합은 false입니다.
func (s ConditionSet) Evaluate(f *indicator.Frame, t int) bool {
	if len(s.rules) == 0 {
		return false
	}
	result := s.rules[0].Condition.Evaluate(f, t)
	for _, r := range s.rules[1:] {
		v := r.Condition.Evaluate(f, t)
		if r.Combinator == Or {
			result = result || v
		} else {
			result = result && v
		}
	}
	return result
}

// Len은 규칙 개수를 반환합니다
func (s ConditionSet) Len() int {
	return len(s.rules)
}

// Rules는 컴파일된 규칙의 복사본을 반환합니다
func (s ConditionSet) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Columns는 집합이 참조하는 컬럼을 중복 없이 순서대로 반환합니다
func (s ConditionSet) Columns() []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range s.rules {
		for _, c := range r.Condition.Columns() {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	return cols
}

// String은 접기 식을 문자열로 표현합니다 (예: "a AND b OR c")
func (s ConditionSet) String() string {
	var sb strings.Builder
	for i, r := range s.rules {
		if i > 0 {
			sb.WriteString(" " + string(r.Combinator) + " ")
		}
		sb.WriteString(r.Condition.String())
	}
	return sb.String()
}
