package signal

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/assist-by/strategylab/internal/domain"
	"github.com/assist-by/strategylab/internal/indicator"
)

func frameOf(t *testing.T, closes []float64, specs ...indicator.Spec) *indicator.Frame {
	t.Helper()
	baseTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = domain.PricePoint{
			Timestamp: baseTime.AddDate(0, 0, i),
			Open:      c, High: c + 1, Low: c - 1, Close: c, Volume: 1000,
		}
	}
	series, err := domain.NewPriceSeries(points)
	require.NoError(t, err)

	var inds []indicator.Indicator
	for _, s := range specs {
		ind, err := indicator.New(s)
		require.NoError(t, err)
		inds = append(inds, ind)
	}
	frame, err := indicator.Compute(series, inds)
	require.NoError(t, err)
	return frame
}

func mustSet(t *testing.T, specs ...ConditionSpec) ConditionSet {
	t.Helper()
	set, err := NewConditionSet(specs)
	require.NoError(t, err)
	return set
}

func evaluateAll(f *indicator.Frame, c Condition) []bool {
	out := make([]bool, f.Len())
	for i := range out {
		out[i] = c.Evaluate(f, i)
	}
	return out
}

func TestCompile_Predicates(t *testing.T) {
	f := frameOf(t, []float64{10, 12, 9, 9, 18})

	testCases := []struct {
		name     string
		spec     ConditionSpec
		expected []bool
	}{
		{
			name:     "greater_than literal",
			spec:     ConditionSpec{Operator: "greater_than", Operand1: Col("close"), Operand2: Lit(9)},
			expected: []bool{true, true, false, false, true},
		},
		{
			name:     "less_than column",
			spec:     ConditionSpec{Operator: "less_than", Operand1: Col("low"), Operand2: Col("close")},
			expected: []bool{true, true, true, true, true},
		},
		{
			name:     "crosses_above literal",
			spec:     ConditionSpec{Operator: "crosses_above", Operand1: Col("close"), Operand2: Lit(9)},
			expected: []bool{false, false, false, false, true},
		},
		{
			name:     "crosses_below literal",
			spec:     ConditionSpec{Operator: "crosses_below", Operand1: Col("close"), Operand2: Lit(10)},
			expected: []bool{false, false, true, false, false},
		},
		{
			name:     "percent_change up",
			spec:     ConditionSpec{Operator: "percent_change", Operand1: Col("close"), Threshold: Float(20), Direction: "up"},
			expected: []bool{false, true, false, false, true},
		},
		{
			name:     "percent_change down",
			spec:     ConditionSpec{Operator: "percent_change", Operand1: Col("close"), Threshold: Float(25), Direction: "down"},
			expected: []bool{false, false, true, false, false},
		},
		{
			name:     "in_range inclusive",
			spec:     ConditionSpec{Operator: "in_range", Operand1: Col("close"), Lower: Lit(9), Upper: Lit(12)},
			expected: []bool{true, true, true, true, false},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cond, err := Compile(tc.spec)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, evaluateAll(f, cond))
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile(ConditionSpec{Operator: "between", Operand1: Col("close")})
	assert.ErrorIs(t, err, ErrUnknownOperator)

	_, err = Compile(ConditionSpec{Operator: "greater_than", Operand1: Col("close")})
	assert.ErrorIs(t, err, ErrInvalidCondition)

	_, err = Compile(ConditionSpec{Operator: "greater_than", Operand1: Lit(1), Operand2: Lit(2)})
	assert.ErrorIs(t, err, ErrInvalidCondition)

	_, err = Compile(ConditionSpec{Operator: "in_range", Operand1: Col("close"), Lower: Lit(5), Upper: Lit(1)})
	assert.ErrorIs(t, err, ErrInvalidCondition)

	_, err = Compile(ConditionSpec{Operator: "percent_change", Operand1: Col("close"), Threshold: Float(1), Direction: "sideways"})
	assert.ErrorIs(t, err, ErrInvalidCondition)

	// threshold가 없으면 0으로 읽지 않음
	_, err = Compile(ConditionSpec{Operator: "percent_change", Operand1: Col("close"), Direction: "up"})
	assert.ErrorIs(t, err, ErrInvalidCondition)

	_, err = Compile(ConditionSpec{Operator: "percent_change", Operand1: Col("close"), Threshold: Float(math.NaN())})
	assert.ErrorIs(t, err, ErrInvalidCondition)

	// 명시적인 0은 허용
	_, err = Compile(ConditionSpec{Operator: "percent_change", Operand1: Col("close"), Threshold: Float(0)})
	assert.NoError(t, err)
}

func TestCrossesAbove_IdenticalConstantSeries(t *testing.T) {
	f := frameOf(t, []float64{5, 5, 5, 5, 5, 5})
	cond, err := Compile(ConditionSpec{Operator: "crosses_above", Operand1: Col("close"), Operand2: Col("price")})
	require.NoError(t, err)
	for i, fired := range evaluateAll(f, cond) {
		assert.False(t, fired, "bar %d", i)
	}
}

func TestUndefinedValuesAreFalse(t *testing.T) {
	f := frameOf(t, []float64{10, 11, 12}, indicator.Spec{Type: "SMA", Params: map[string]interface{}{"period": 5}})

	for _, op := range []string{"greater_than", "less_than"} {
		cond, err := Compile(ConditionSpec{Operator: op, Operand1: Col("sma_5"), Operand2: Lit(0)})
		require.NoError(t, err)
		assert.Equal(t, []bool{false, false, false}, evaluateAll(f, cond), op)
	}

	t.Run("unknown column", func(t *testing.T) {
		cond, err := Compile(ConditionSpec{Operator: "greater_than", Operand1: Col("nope"), Operand2: Lit(0)})
		require.NoError(t, err)
		assert.False(t, cond.Evaluate(f, 1))
	})

	t.Run("both sides of OR", func(t *testing.T) {
		set := mustSet(t,
			ConditionSpec{Operator: "greater_than", Operand1: Col("sma_5"), Operand2: Lit(0)},
			ConditionSpec{Operator: "less_than", Operand1: Col("sma_5"), Operand2: Lit(0), Combinator: "OR"},
		)
		assert.False(t, set.Evaluate(f, 2))
	})

	t.Run("out of range", func(t *testing.T) {
		cond, err := Compile(ConditionSpec{Operator: "greater_than", Operand1: Col("close"), Operand2: Lit(0)})
		require.NoError(t, err)
		assert.False(t, cond.Evaluate(f, 3))
		assert.False(t, cond.Evaluate(f, -1))
	})
}

func TestConditionSet_Fold(t *testing.T) {
	f := frameOf(t, []float64{10})
	truth := ConditionSpec{Operator: "greater_than", Operand1: Col("close"), Operand2: Lit(0)}
	falsity := ConditionSpec{Operator: "less_than", Operand1: Col("close"), Operand2: Lit(0)}
	with := func(spec ConditionSpec, comb string) ConditionSpec {
		spec.Combinator = comb
		return spec
	}

	// 엄격한 왼쪽 접기: (true OR false) AND false = false, true OR (false AND false)가 아님
	set := mustSet(t, with(truth, "INITIAL"), with(falsity, "OR"), with(falsity, "AND"))
	assert.False(t, set.Evaluate(f, 0))

	// (false AND true) OR true = true
	set = mustSet(t, falsity, with(truth, "AND"), with(truth, "OR"))
	assert.True(t, set.Evaluate(f, 0))

	// 빈 결합자는 AND
	set = mustSet(t, truth, falsity)
	assert.False(t, set.Evaluate(f, 0))

	assert.False(t, ConditionSet{}.Evaluate(f, 0), "empty set")

	_, err := NewConditionSet([]ConditionSpec{truth, with(truth, "INITIAL")})
	assert.ErrorIs(t, err, ErrInvalidCombinator)

	_, err = NewConditionSet([]ConditionSpec{with(truth, "OR")})
	assert.ErrorIs(t, err, ErrInvalidCombinator)

	_, err = NewConditionSet([]ConditionSpec{truth, with(truth, "XOR")})
	assert.ErrorIs(t, err, ErrInvalidCombinator)
}

func TestGenerate_SingleCrossover(t *testing.T) {
	f := frameOf(t, []float64{10, 10, 10, 10, 12, 14, 16, 18},
		indicator.Spec{Type: "SMA", Params: map[string]interface{}{"period": 2}},
		indicator.Spec{Type: "SMA", Params: map[string]interface{}{"period": 4}},
	)
	buy := mustSet(t, ConditionSpec{Operator: "crosses_above", Operand1: Col("sma_2"), Operand2: Col("sma_4")})
	sell := mustSet(t, ConditionSpec{Operator: "crosses_below", Operand1: Col("sma_2"), Operand2: Col("sma_4")})

	actions := Generate(f, buy, sell)
	expected := []domain.Action{
		domain.None, domain.None, domain.None, domain.None,
		domain.Buy, domain.None, domain.None, domain.None,
	}
	assert.Equal(t, expected, actions)
}

func TestGenerate_SellPriority(t *testing.T) {
	f := frameOf(t, []float64{10, 11})
	always := ConditionSpec{Operator: "greater_than", Operand1: Col("close"), Operand2: Lit(0)}
	set := mustSet(t, always)

	assert.Equal(t, []domain.Action{domain.Sell, domain.Sell}, Generate(f, set, set))
	assert.Equal(t, []domain.Action{domain.Buy, domain.Buy}, Generate(f, set, ConditionSet{}))
}

func TestConditionSpec_Decode(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var spec ConditionSpec
		err := json.Unmarshal([]byte(`{"operator":"in_range","operand1":"rsi_14","lower":30,"upper":"70","combinator":"and"}`), &spec)
		require.NoError(t, err)
		assert.Equal(t, Col("rsi_14"), spec.Operand1)
		assert.Equal(t, Lit(30), spec.Lower)
		assert.Equal(t, Lit(70), spec.Upper)
		assert.True(t, spec.Operand2.IsZero())

		data, err := json.Marshal(spec)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"lower":30`)
		assert.Contains(t, string(data), `"operand1":"rsi_14"`)
	})

	t.Run("yaml", func(t *testing.T) {
		var spec ConditionSpec
		err := yaml.Unmarshal([]byte("operator: crosses_above\noperand1: sma_20\noperand2: sma_50\n"), &spec)
		require.NoError(t, err)
		assert.Equal(t, Col("sma_20"), spec.Operand1)
		assert.Equal(t, Col("sma_50"), spec.Operand2)
	})

	t.Run("threshold", func(t *testing.T) {
		var spec ConditionSpec
		require.NoError(t, yaml.Unmarshal([]byte("operator: percent_change\noperand1: close\nthreshold: 0\n"), &spec))
		require.NotNil(t, spec.Threshold)
		assert.Equal(t, 0.0, *spec.Threshold)

		var missing ConditionSpec
		require.NoError(t, json.Unmarshal([]byte(`{"operator":"percent_change","operand1":"close"}`), &missing))
		assert.Nil(t, missing.Threshold)
	})
}
