package position

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/assist-by/strategylab/internal/domain"
	"github.com/assist-by/strategylab/internal/indicator"
)

// 손절 방식
const (
	StopNone       = "none"
	StopPercentage = "percentage"
	StopATR        = "atr"
	StopSupport    = "support"
)

// 익절 방식
const (
	TakeNone       = "none"
	TakeRiskReward = "risk_reward"
	TakePercentage = "percentage"
)

// Normalize가 적용하는 기본값
const (
	DefaultSupportLookback = 20
	DefaultSupportWindow   = 5
	DefaultATRMultiplier   = 2.0
)

var supportBuffer = decimal.NewFromFloat(0.99)

// StopLossPolicy는 진입 시 손절가를 정하는 방식을 선택합니다
type StopLossPolicy struct {
	Method     string  `json:"method" yaml:"method" mapstructure:"method"`
	Percent    float64 `json:"percent,omitempty" yaml:"percent,omitempty" mapstructure:"percent"`          // percentage: 진입가 아래 거리
	ATRPeriod  int     `json:"atr_period,omitempty" yaml:"atr_period,omitempty" mapstructure:"atr_period"` // atr: ATR 기간
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty" mapstructure:"multiplier"` // atr: 진입가 아래 ATR 배수
	Lookback   int     `json:"lookback,omitempty" yaml:"lookback,omitempty" mapstructure:"lookback"`       // support: 가장 낮은 국소 최저점을 찾는 봉 수
	Window     int     `json:"window,omitempty" yaml:"window,omitempty" mapstructure:"window"`             // support: 국소 최저점의 이동 구간
}

// TakeProfitPolicy는 진입 시 익절가를 정하는 방식을 선택합니다
type TakeProfitPolicy struct {
	Method  string  `json:"method" yaml:"method" mapstructure:"method"`
	Ratio   float64 `json:"ratio,omitempty" yaml:"ratio,omitempty" mapstructure:"ratio"`       // risk_reward: 리스크 대비 보상 비율
	Percent float64 `json:"percent,omitempty" yaml:"percent,omitempty" mapstructure:"percent"` // percentage: 진입가 위 거리
}

// RiskPolicy는 전략의 손절/익절 정책 쌍입니다
type RiskPolicy struct {
	StopLoss   StopLossPolicy   `json:"stop_loss" yaml:"stop_loss" mapstructure:"stop_loss"`
	TakeProfit TakeProfitPolicy `json:"take_profit" yaml:"take_profit" mapstructure:"take_profit"`
}

// Normalize는 방식을 소문자로 바꾸고 빠진 파라미터를 기본값으로 채웁니다
func (p RiskPolicy) Normalize() RiskPolicy {
	sl := &p.StopLoss
	sl.Method = strings.ToLower(strings.TrimSpace(sl.Method))
	if sl.Method == "" {
		sl.Method = StopNone
	}
	switch sl.Method {
	case StopATR:
		if sl.ATRPeriod == 0 {
			sl.ATRPeriod = indicator.DefaultATRPeriod
		}
		if sl.Multiplier == 0 {
			sl.Multiplier = DefaultATRMultiplier
		}
	case StopSupport:
		if sl.Lookback == 0 {
			sl.Lookback = DefaultSupportLookback
		}
		if sl.Window == 0 {
			sl.Window = DefaultSupportWindow
		}
	}

	tp := &p.TakeProfit
	tp.Method = strings.ToLower(strings.TrimSpace(tp.Method))
	if tp.Method == "" {
		tp.Method = TakeNone
	}
	return p
}

// Validate는 정규화된 정책을 검사합니다
func (p RiskPolicy) Validate() error {
	sl := p.StopLoss
	switch sl.Method {
	case StopNone:
	case StopPercentage:
		if !(sl.Percent > 0 && sl.Percent < 100) {
			return fmt.Errorf("%w: stop_loss percent must be in (0, 100), got %v", ErrInvalidRiskPolicy, sl.Percent)
		}
	case StopATR:
		if sl.ATRPeriod <= 0 {
			return fmt.Errorf("%w: stop_loss atr_period must be > 0, got %d", ErrInvalidRiskPolicy, sl.ATRPeriod)
		}
		if !(sl.Multiplier > 0) {
			return fmt.Errorf("%w: stop_loss multiplier must be > 0, got %v", ErrInvalidRiskPolicy, sl.Multiplier)
		}
	case StopSupport:
		if sl.Lookback <= 0 || sl.Window <= 0 {
			return fmt.Errorf("%w: stop_loss lookback and window must be > 0, got %d/%d",
				ErrInvalidRiskPolicy, sl.Lookback, sl.Window)
		}
	default:
		return fmt.Errorf("%w: unknown stop_loss method %q", ErrInvalidRiskPolicy, sl.Method)
	}

	tp := p.TakeProfit
	switch tp.Method {
	case TakeNone:
	case TakeRiskReward:
		if !(tp.Ratio > 0) {
			return fmt.Errorf("%w: take_profit ratio must be > 0, got %v", ErrInvalidRiskPolicy, tp.Ratio)
		}
		if sl.Method == StopNone {
			return fmt.Errorf("%w: take_profit risk_reward requires a stop_loss method", ErrInvalidRiskPolicy)
		}
	case TakePercentage:
		if !(tp.Percent > 0) {
			return fmt.Errorf("%w: take_profit percent must be > 0, got %v", ErrInvalidRiskPolicy, tp.Percent)
		}
	default:
		return fmt.Errorf("%w: unknown take_profit method %q", ErrInvalidRiskPolicy, tp.Method)
	}
	return nil
}

// Levels는 t번째 봉까지의 데이터만으로 t번째 봉 진입 시의 손절가와
// 익절가를 반환합니다. 정의되지 않았거나 양수가 아닌 값은 0입니다.
func (p RiskPolicy) Levels(series domain.PriceSeries, t int, entryPrice float64) (stopLoss, takeProfit float64) {
	if t < 0 || t >= len(series) {
		return 0, 0
	}
	return p.newLevelCalculator(series[:t+1]).at(t, entryPrice)
}

// levelCalculator는 한 번의 실행 동안 손절 방식의 봉별 입력을 캐시합니다
type levelCalculator struct {
	policy  RiskPolicy
	atr     []float64
	support []float64
}

func (p RiskPolicy) newLevelCalculator(series domain.PriceSeries) *levelCalculator {
	lc := &levelCalculator{policy: p}
	switch p.StopLoss.Method {
	case StopATR:
		lc.atr = indicator.ATR(series, p.StopLoss.ATRPeriod)
	case StopSupport:
		lc.support = supportLevels(series, p.StopLoss.Window, p.StopLoss.Lookback)
	}
	return lc
}

func (lc *levelCalculator) at(t int, entryPrice float64) (stopLoss, takeProfit float64) {
	entry := decFromFloat(entryPrice)
	if !entry.IsPositive() {
		return 0, 0
	}

	sl := lc.policy.StopLoss
	switch sl.Method {
	case StopPercentage:
		stopLoss = level(entry.Mul(decOne.Sub(decFromFloat(sl.Percent).Div(decHundred))))
	case StopATR:
		if t < len(lc.atr) && !indicator.IsUndefined(lc.atr[t]) {
			stopLoss = level(entry.Sub(decFromFloat(sl.Multiplier).Mul(decFromFloat(lc.atr[t]))))
		}
	case StopSupport:
		if t < len(lc.support) && !indicator.IsUndefined(lc.support[t]) {
			stopLoss = level(decFromFloat(lc.support[t]).Mul(supportBuffer))
		}
	}

	tp := lc.policy.TakeProfit
	switch tp.Method {
	case TakeRiskReward:
		if stopLoss > 0 {
			risk := entry.Sub(decFromFloat(stopLoss))
			takeProfit = level(entry.Add(decFromFloat(tp.Ratio).Mul(risk)))
		}
	case TakePercentage:
		takeProfit = level(entry.Mul(decOne.Add(decFromFloat(tp.Percent).Div(decHundred))))
	}

	return stopLoss, takeProfit
}

// supportLevels는 봉마다 직전 lookback 봉 동안 본 저가 이동 최솟값 중
// 가장 낮은 값을 반환합니다. 시리즈 시작의 부분 구간은 가능한 창만 쓰고
// 창이 없는 봉은 NaN입니다.
func supportLevels(series domain.PriceSeries, window, lookback int) []float64 {
	localMin := indicator.RollingMin(series.Lows(), window)
	out := make([]float64, len(localMin))
	for t := range localMin {
		best := math.NaN()
		from := t - lookback + 1
		if from < 0 {
			from = 0
		}
		for j := from; j <= t; j++ {
			v := localMin[j]
			if indicator.IsUndefined(v) {
				continue
			}
			if math.IsNaN(best) || v < best {
				best = v
			}
		}
		out[t] = best
	}
	return out
}
