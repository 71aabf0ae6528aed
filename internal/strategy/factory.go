package strategy

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/assist-by/strategylab/internal/indicator"
	"github.com/assist-by/strategylab/internal/position"
	"github.com/assist-by/strategylab/internal/signal"
)

// crossoverParams는 이동평균 교차 템플릿의 설정입니다
type crossoverParams struct {
	Fast int                 `mapstructure:"fast"`
	Slow int                 `mapstructure:"slow"`
	Risk position.RiskPolicy `mapstructure:"risk_management"`
}

type rsiParams struct {
	Period     int                 `mapstructure:"period"`
	Oversold   float64             `mapstructure:"oversold"`
	Overbought float64             `mapstructure:"overbought"`
	Risk       position.RiskPolicy `mapstructure:"risk_management"`
}

type macdParams struct {
	Fast   int                 `mapstructure:"fast"`
	Slow   int                 `mapstructure:"slow"`
	Signal int                 `mapstructure:"signal"`
	Risk   position.RiskPolicy `mapstructure:"risk_management"`
}

type bollingerParams struct {
	Period int                 `mapstructure:"period"`
	K      float64             `mapstructure:"k"`
	Risk   position.RiskPolicy `mapstructure:"risk_management"`
}

type stochasticParams struct {
	KPeriod    int                 `mapstructure:"k_period"`
	DPeriod    int                 `mapstructure:"d_period"`
	Oversold   float64             `mapstructure:"oversold"`
	Overbought float64             `mapstructure:"overbought"`
	Risk       position.RiskPolicy `mapstructure:"risk_management"`
}

// DefaultRegistry는 기본 템플릿이 등록된 레지스트리를 반환합니다
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register("sma_crossover", "Buy when the fast SMA crosses above the slow SMA, sell on the cross back",
		map[string]interface{}{"fast": 20, "slow": 50}, movingAverageCrossover("SMA"))

	r.Register("ema_crossover", "Buy when the fast EMA crosses above the slow EMA, sell on the cross back",
		map[string]interface{}{"fast": 12, "slow": 26}, movingAverageCrossover("EMA"))

	r.Register("rsi_reversal", "Buy while RSI is oversold, sell while it is overbought",
		map[string]interface{}{"period": 14, "oversold": 30.0, "overbought": 70.0}, rsiReversal)

	r.Register("macd_crossover", "Buy when MACD crosses above its signal line, sell on the cross below",
		map[string]interface{}{"fast": 12, "slow": 26, "signal": 9}, macdCrossover)

	r.Register("bollinger_reversion", "Buy below the lower band, sell above the upper band",
		map[string]interface{}{"period": 20, "k": 2.0}, bollingerReversion)

	r.Register("stochastic_reversal", "Buy on a %K/%D cross up in the oversold zone, sell on a cross down in the overbought zone",
		map[string]interface{}{"k_period": 14, "d_period": 3, "oversold": 20.0, "overbought": 80.0}, stochasticReversal)

	return r
}

// decodeParams는 템플릿 파라미터를 기본값 위에 디코딩합니다
func decodeParams(params map[string]interface{}, out interface{}) error {
	if len(params) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(params)
}

func movingAverageCrossover(kind string) Factory {
	return func(params map[string]interface{}) (Definition, error) {
		p := crossoverParams{Fast: 20, Slow: 50}
		if kind == "EMA" {
			p = crossoverParams{Fast: 12, Slow: 26}
		}
		if err := decodeParams(params, &p); err != nil {
			return Definition{}, err
		}
		if p.Fast >= p.Slow {
			return Definition{}, fmt.Errorf("fast period %d must be smaller than slow period %d", p.Fast, p.Slow)
		}

		fast := strings.ToLower(kind) + "_fast"
		slow := strings.ToLower(kind) + "_slow"
		return Definition{
			Name:        fmt.Sprintf("%s crossover (%d/%d)", kind, p.Fast, p.Slow),
			Description: fmt.Sprintf("%s(%d) crossing %s(%d)", kind, p.Fast, kind, p.Slow),
			Indicators: []indicator.Spec{
				{Type: kind, Name: fast, Params: map[string]interface{}{"period": p.Fast}},
				{Type: kind, Name: slow, Params: map[string]interface{}{"period": p.Slow}},
			},
			BuyConditions: []signal.ConditionSpec{
				{Operator: string(signal.CrossesAbove), Operand1: signal.Col(fast), Operand2: signal.Col(slow)},
			},
			SellConditions: []signal.ConditionSpec{
				{Operator: string(signal.CrossesBelow), Operand1: signal.Col(fast), Operand2: signal.Col(slow)},
			},
			Risk: p.Risk,
		}, nil
	}
}

func rsiReversal(params map[string]interface{}) (Definition, error) {
	p := rsiParams{Period: 14, Oversold: 30, Overbought: 70}
	if err := decodeParams(params, &p); err != nil {
		return Definition{}, err
	}
	if p.Oversold >= p.Overbought {
		return Definition{}, fmt.Errorf("oversold %v must be below overbought %v", p.Oversold, p.Overbought)
	}

	return Definition{
		Name:        fmt.Sprintf("RSI reversal (%d)", p.Period),
		Description: fmt.Sprintf("RSI(%d) below %v / above %v", p.Period, p.Oversold, p.Overbought),
		Indicators: []indicator.Spec{
			{Type: "RSI", Name: "rsi", Params: map[string]interface{}{"period": p.Period}},
		},
		BuyConditions: []signal.ConditionSpec{
			{Operator: string(signal.LessThan), Operand1: signal.Col("rsi"), Operand2: signal.Lit(p.Oversold)},
		},
		SellConditions: []signal.ConditionSpec{
			{Operator: string(signal.GreaterThan), Operand1: signal.Col("rsi"), Operand2: signal.Lit(p.Overbought)},
		},
		Risk: p.Risk,
	}, nil
}

func macdCrossover(params map[string]interface{}) (Definition, error) {
	p := macdParams{Fast: 12, Slow: 26, Signal: 9}
	if err := decodeParams(params, &p); err != nil {
		return Definition{}, err
	}

	return Definition{
		Name:        fmt.Sprintf("MACD crossover (%d/%d/%d)", p.Fast, p.Slow, p.Signal),
		Description: "MACD line crossing its signal line",
		Indicators: []indicator.Spec{
			{Type: "MACD", Params: map[string]interface{}{"fast": p.Fast, "slow": p.Slow, "signal": p.Signal}},
		},
		BuyConditions: []signal.ConditionSpec{
			{Operator: string(signal.CrossesAbove), Operand1: signal.Col("macd"), Operand2: signal.Col("macd_signal")},
		},
		SellConditions: []signal.ConditionSpec{
			{Operator: string(signal.CrossesBelow), Operand1: signal.Col("macd"), Operand2: signal.Col("macd_signal")},
		},
		Risk: p.Risk,
	}, nil
}

func bollingerReversion(params map[string]interface{}) (Definition, error) {
	p := bollingerParams{Period: 20, K: 2}
	if err := decodeParams(params, &p); err != nil {
		return Definition{}, err
	}

	return Definition{
		Name:        fmt.Sprintf("Bollinger reversion (%d, %v)", p.Period, p.K),
		Description: "close outside the Bollinger Bands",
		Indicators: []indicator.Spec{
			{Type: "BOLLINGER", Params: map[string]interface{}{"period": p.Period, "k": p.K}},
		},
		BuyConditions: []signal.ConditionSpec{
			{Operator: string(signal.LessThan), Operand1: signal.Col("close"), Operand2: signal.Col("bb_lower")},
		},
		SellConditions: []signal.ConditionSpec{
			{Operator: string(signal.GreaterThan), Operand1: signal.Col("close"), Operand2: signal.Col("bb_upper")},
		},
		Risk: p.Risk,
	}, nil
}

func stochasticReversal(params map[string]interface{}) (Definition, error) {
	p := stochasticParams{KPeriod: 14, DPeriod: 3, Oversold: 20, Overbought: 80}
	if err := decodeParams(params, &p); err != nil {
		return Definition{}, err
	}
	if p.Oversold >= p.Overbought {
		return Definition{}, fmt.Errorf("oversold %v must be below overbought %v", p.Oversold, p.Overbought)
	}

	return Definition{
		Name:        fmt.Sprintf("Stochastic reversal (%d/%d)", p.KPeriod, p.DPeriod),
		Description: "%K crossing %D inside the oversold / overbought zones",
		Indicators: []indicator.Spec{
			{Type: "STOCHASTIC", Params: map[string]interface{}{"k_period": p.KPeriod, "d_period": p.DPeriod}},
		},
		BuyConditions: []signal.ConditionSpec{
			{Operator: string(signal.CrossesAbove), Operand1: signal.Col("stoch_k"), Operand2: signal.Col("stoch_d")},
			{Operator: string(signal.LessThan), Operand1: signal.Col("stoch_d"), Operand2: signal.Lit(p.Oversold), Combinator: string(signal.And)},
		},
		SellConditions: []signal.ConditionSpec{
			{Operator: string(signal.CrossesBelow), Operand1: signal.Col("stoch_k"), Operand2: signal.Col("stoch_d")},
			{Operator: string(signal.GreaterThan), Operand1: signal.Col("stoch_d"), Operand2: signal.Lit(p.Overbought), Combinator: string(signal.And)},
		},
		Risk: p.Risk,
	}, nil
}
