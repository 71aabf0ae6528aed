package indicator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrUnknownKind는 지원하지 않는 지표 타입일 때 반환됩니다
var ErrUnknownKind = errors.New("unknown indicator kind")

// Kind는 지표 타입을 식별합니다
type Kind string

const (
	KindSMA        Kind = "SMA"
	KindEMA        Kind = "EMA"
	KindRSI        Kind = "RSI"
	KindMACD       Kind = "MACD"
	KindBollinger  Kind = "BOLLINGER"
	KindStochastic Kind = "STOCHASTIC"
)

var kindAliases = map[string]Kind{
	"BB":     KindBollinger,
	"BBANDS": KindBollinger,
	"STOCH":  KindStochastic,
}

// ParseKind는 지표 타입 이름을 정규화합니다 (대소문자 무시, 별칭 포함)
func ParseKind(s string) (Kind, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if alias, ok := kindAliases[name]; ok {
		return alias, nil
	}
	switch k := Kind(name); k {
	case KindSMA, KindEMA, KindRSI, KindMACD, KindBollinger, KindStochastic:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Kinds는 지원하는 지표 타입을 이름순으로 반환합니다
func Kinds() []Kind {
	kinds := []Kind{KindSMA, KindEMA, KindRSI, KindMACD, KindBollinger, KindStochastic}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Spec은 전략 정의 안의 지표 하나를 기술합니다
type Spec struct {
	Type   string                 `json:"type" yaml:"type"`                         // 지표 타입 (SMA, EMA, RSI, ...)
	Name   string                 `json:"name,omitempty" yaml:"name,omitempty"`     // 출력 컬럼(또는 컬럼 base) 이름 재정의
	Params map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"` // 타입별 파라미터
}

type periodParams struct {
	Period int `mapstructure:"period"`
}

type macdParams struct {
	Fast   int `mapstructure:"fast"`
	Slow   int `mapstructure:"slow"`
	Signal int `mapstructure:"signal"`
}

type bollingerParams struct {
	Period int     `mapstructure:"period"`
	K      float64 `mapstructure:"k"`
}

type stochasticParams struct {
	KPeriod int `mapstructure:"k_period"`
	DPeriod int `mapstructure:"d_period"`
}

// New는 spec으로 지표 인스턴스를 생성합니다.
// 빠진 파라미터는 기본값을 쓰고 알 수 없는 파라미터는 거부됩니다.
func New(spec Spec) (Indicator, error) {
	kind, err := ParseKind(spec.Type)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindSMA:
		p := periodParams{Period: 20}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return NewSMA(p.Period, spec.Name)

	case KindEMA:
		p := periodParams{Period: 20}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return NewEMA(p.Period, spec.Name)

	case KindRSI:
		p := periodParams{Period: 14}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return NewRSI(p.Period, spec.Name)

	case KindMACD:
		p := macdParams{Fast: 12, Slow: 26, Signal: 9}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return NewMACD(p.Fast, p.Slow, p.Signal, spec.Name)

	case KindBollinger:
		p := bollingerParams{Period: 20, K: 2}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return NewBollinger(p.Period, p.K, spec.Name)

	default: // KindStochastic
		p := stochasticParams{KPeriod: 14, DPeriod: 3}
		if err := decodeParams(spec.Params, &p); err != nil {
			return nil, err
		}
		return NewStochastic(p.KPeriod, p.DPeriod, spec.Name)
	}
}

// decodeParams는 느슨한 타입의 파라미터 맵을 기본값이 채워진 구조체로 디코딩합니다
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
	if err := decoder.Decode(params); err != nil {
		return &ValidationError{Field: "params", Err: err}
	}
	return nil
}
