package position

import (
	"fmt"
	"strings"
	"time"

	"github.com/assist-by/strategylab/internal/domain"
)

// ExitReason은 포지션 청산 사유입니다
type ExitReason string

const (
	ExitSignal     ExitReason = "signal"      // SELL 액션
	ExitStopLoss   ExitReason = "stop_loss"   // 저가가 손절가에 닿음
	ExitTakeProfit ExitReason = "take_profit" // 고가가 익절가에 닿음
)

// Mode는 시뮬레이터가 거래 외에 기록할 내용을 선택합니다
type Mode int

const (
	LedgerMode      Mode = iota // 실현 거래만
	EquityCurveMode             // 거래와 봉별 포트폴리오 가치
)

// String은 모드의 와이어 이름을 반환합니다
func (m Mode) String() string {
	switch m {
	case LedgerMode:
		return "ledger"
	case EquityCurveMode:
		return "equity"
	default:
		return "unknown"
	}
}

// ParseMode는 "ledger" 또는 "equity" ("equity_curve", "portfolio" 포함)를 해석합니다
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ledger":
		return LedgerMode, nil
	case "equity", "equity_curve", "portfolio":
		return EquityCurveMode, nil
	default:
		return LedgerMode, fmt.Errorf("unknown mode %q", s)
	}
}

// MarshalText는 모드 이름을 인코딩합니다
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText는 모드 이름을 디코딩합니다
func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// State는 실행의 단일 포지션입니다. IsOpen이 false면 FLAT입니다.
type State struct {
	IsOpen     bool      `json:"is_open"`
	EntryPrice float64   `json:"entry_price,omitempty"`
	EntryDate  time.Time `json:"entry_date,omitempty"`
	EntryIndex int       `json:"-"`
	Shares     int64     `json:"shares"`
	StopLoss   float64   `json:"stop_loss,omitempty"`   // 없으면 0
	TakeProfit float64   `json:"take_profit,omitempty"` // 없으면 0
}

// Trade는 완료된 왕복 거래입니다. ExitDate는 항상 EntryDate 이후입니다.
type Trade struct {
	EntryDate  time.Time  `json:"entry_date"`
	EntryPrice float64    `json:"entry_price"`
	ExitDate   time.Time  `json:"exit_date"`
	ExitPrice  float64    `json:"exit_price"`
	ProfitPct  float64    `json:"profit_pct"`
	Shares     int64      `json:"shares"`
	StopLoss   float64    `json:"stop_loss,omitempty"`
	TakeProfit float64    `json:"take_profit,omitempty"`
	ExitReason ExitReason `json:"exit_reason"`
}

// Execution은 단일 체결입니다
type Execution struct {
	Date   time.Time     `json:"date"`
	Action domain.Action `json:"action"`
	Price  float64       `json:"price"`
	Shares int64         `json:"shares"`
	Amount float64       `json:"amount"` // shares * price
	Cash   float64       `json:"cash"`   // 체결 후 현금
	Reason ExitReason    `json:"reason,omitempty"`
}

// EquityPoint는 봉 종가 기준 포트폴리오 가치입니다
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Shares int64     `json:"shares"`
	Cash   float64   `json:"cash"`
	Value  float64   `json:"value"` // cash + shares * close
}

// Outcome은 실행 한 번이 만든 결과 전체입니다
type Outcome struct {
	Mode           Mode
	InitialCapital float64
	Trades         []Trade
	Executions     []Execution
	EquityCurve    []EquityPoint // EquityCurveMode에서만
	FinalCash      float64
	FinalValue     float64 // 현금 + 보유 주식의 마지막 시뮬레이션 종가 평가액
	Final          State
	Bars           int // 시뮬레이션한 봉 수
	StartDate      time.Time
	EndDate        time.Time
}
