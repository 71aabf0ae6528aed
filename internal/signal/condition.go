package signal

import (
	"fmt"
	"math"
	"strings"

	"github.com/assist-by/strategylab/internal/indicator"
)

// Condition은 컴파일된 단일 조건식입니다. 참조 값이 정의되지 않았거나
// t가 범위를 벗어나거나 컬럼을 모르면 Evaluate는 false입니다.
type Condition interface {
	Evaluate(f *indicator.Frame, t int) bool
	// Columns는 조건이 읽는 컬럼 이름을 반환합니다
	Columns() []string
	String() string
}

// Compile은 조건 spec을 검증하고 조건식을 만듭니다
func Compile(spec ConditionSpec) (Condition, error) {
	op := Operator(strings.ToLower(strings.TrimSpace(spec.Operator)))

	if spec.Operand1.IsZero() {
		return nil, fmt.Errorf("%w: %s requires operand1", ErrInvalidCondition, op)
	}
	if spec.Operand1.IsLiteral {
		return nil, fmt.Errorf("%w: operand1 must be a column, got %s", ErrInvalidCondition, spec.Operand1)
	}

	switch op {
	case GreaterThan, LessThan:
		if spec.Operand2.IsZero() {
			return nil, fmt.Errorf("%w: %s requires operand2", ErrInvalidCondition, op)
		}
		return &comparison{op: op, a: spec.Operand1, b: spec.Operand2}, nil

	case CrossesAbove, CrossesBelow:
		if spec.Operand2.IsZero() {
			return nil, fmt.Errorf("%w: %s requires operand2", ErrInvalidCondition, op)
		}
		return &cross{above: op == CrossesAbove, a: spec.Operand1, b: spec.Operand2}, nil

	case PercentChange:
		if spec.Threshold == nil {
			return nil, fmt.Errorf("%w: percent_change requires threshold", ErrInvalidCondition)
		}
		if indicator.IsUndefined(*spec.Threshold) {
			return nil, fmt.Errorf("%w: percent_change threshold must be a number", ErrInvalidCondition)
		}
		direction := strings.ToLower(strings.TrimSpace(spec.Direction))
		switch direction {
		case "", DirectionUp:
			direction = DirectionUp
		case DirectionDown:
		default:
			return nil, fmt.Errorf("%w: percent_change direction %q (want up or down)", ErrInvalidCondition, spec.Direction)
		}
		return &percentChange{a: spec.Operand1, threshold: *spec.Threshold, up: direction == DirectionUp}, nil

	case InRange:
		if spec.Lower.IsZero() || spec.Upper.IsZero() {
			return nil, fmt.Errorf("%w: in_range requires lower and upper", ErrInvalidCondition)
		}
		if spec.Lower.IsLiteral && spec.Upper.IsLiteral && spec.Lower.Literal > spec.Upper.Literal {
			return nil, fmt.Errorf("%w: in_range lower %v exceeds upper %v",
				ErrInvalidCondition, spec.Lower.Literal, spec.Upper.Literal)
		}
		return &inRange{a: spec.Operand1, lower: spec.Lower, upper: spec.Upper}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, spec.Operator)
	}
}

func columnsOf(operands ...Operand) []string {
	var cols []string
	for _, o := range operands {
		if !o.IsLiteral && o.Column != "" {
			cols = append(cols, o.Column)
		}
	}
	return cols
}

// comparison은 t번째 봉의 greater_than / less_than입니다
type comparison struct {
	op   Operator
	a, b Operand
}

func (c *comparison) Evaluate(f *indicator.Frame, t int) bool {
	a, okA := c.a.value(f, t)
	b, okB := c.b.value(f, t)
	if !okA || !okB {
		return false
	}
	if c.op == GreaterThan {
		return a > b
	}
	return a < b
}

func (c *comparison) Columns() []string { return columnsOf(c.a, c.b) }

func (c *comparison) String() string {
	return fmt.Sprintf("%s(%s, %s)", c.op, c.a, c.b)
}

// cross는 직전 봉에서 b의 반대편(또는 같은 값)에 있던 a가 b를
// 엄격히 넘어선 봉에서 발생합니다
type cross struct {
	above bool
	a, b  Operand
}

func (c *cross) Evaluate(f *indicator.Frame, t int) bool {
	if t < 1 {
		return false
	}
	currA, ok1 := c.a.value(f, t)
	currB, ok2 := c.b.value(f, t)
	prevA, ok3 := c.a.value(f, t-1)
	prevB, ok4 := c.b.value(f, t-1)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	if c.above {
		return prevA <= prevB && currA > currB
	}
	return prevA >= prevB && currA < currB
}

func (c *cross) Columns() []string { return columnsOf(c.a, c.b) }

func (c *cross) String() string {
	op := CrossesBelow
	if c.above {
		op = CrossesAbove
	}
	return fmt.Sprintf("%s(%s, %s)", op, c.a, c.b)
}

// percentChange는 a의 직전 봉 대비 변화율(%)을 비교합니다
type percentChange struct {
	a         Operand
	threshold float64
	up        bool
}

func (c *percentChange) Evaluate(f *indicator.Frame, t int) bool {
	if t < 1 {
		return false
	}
	curr, ok1 := c.a.value(f, t)
	prev, ok2 := c.a.value(f, t-1)
	if !ok1 || !ok2 || prev == 0 {
		return false
	}
	pct := (curr - prev) / prev * 100
	if c.up {
		return pct >= c.threshold
	}
	return pct <= -math.Abs(c.threshold)
}

func (c *percentChange) Columns() []string { return columnsOf(c.a) }

func (c *percentChange) String() string {
	direction := DirectionDown
	if c.up {
		direction = DirectionUp
	}
	return fmt.Sprintf("%s(%s, %v, %s)", PercentChange, c.a, c.threshold, direction)
}

// inRange는 lower <= a <= upper입니다 (경계 포함)
type inRange struct {
	a, lower, upper Operand
}

func (c *inRange) Evaluate(f *indicator.Frame, t int) bool {
	a, ok1 := c.a.value(f, t)
	lo, ok2 := c.lower.value(f, t)
	hi, ok3 := c.upper.value(f, t)
	if !ok1 || !ok2 || !ok3 {
		return false
	}
	return lo <= a && a <= hi
}

func (c *inRange) Columns() []string { return columnsOf(c.a, c.lower, c.upper) }

func (c *inRange) String() string {
	return fmt.Sprintf("%s(%s, %s, %s)", InRange, c.a, c.lower, c.upper)
}
