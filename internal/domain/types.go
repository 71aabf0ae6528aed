package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSeries는 봉 순서가 어긋나거나 가격이 잘못된 경우 반환됩니다
var ErrInvalidSeries = errors.New("invalid price series")

// Action은 시그널 생성기가 봉마다 내리는 매매 결정입니다
type Action int

const (
	None Action = iota
	Buy
	Sell
)

// String은 액션의 와이어 표현을 반환합니다
func (a Action) String() string {
	switch a {
	case None:
		return "NONE"
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText는 액션을 BUY/SELL/NONE으로 인코딩합니다
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText는 BUY/SELL/NONE을 대소문자 구분 없이 해석합니다
func (a *Action) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "NONE", "":
		*a = None
	case "BUY":
		*a = Buy
	case "SELL":
		*a = Sell
	default:
		return fmt.Errorf("unknown action %q", string(text))
	}
	return nil
}
