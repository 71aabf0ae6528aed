package backtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/assist-by/strategylab/internal/position"
)

// ErrInvalidOptions는 사용할 수 없는 실행 옵션일 때 반환됩니다
var ErrInvalidOptions = errors.New("invalid backtest options")

// Options는 백테스트 실행 하나의 설정입니다
type Options struct {
	InitialCapital float64       // 초기 현금, 0보다 커야 함
	Mode           position.Mode // 거래 기록 또는 자산 곡선
	Start          time.Time     // 첫 시뮬레이션 봉 (포함), zero 값이면 제한 없음
	End            time.Time     // 마지막 시뮬레이션 봉 (포함), zero 값이면 제한 없음
	EnforceExits   bool          // 손절/익절가에 닿으면 포지션 청산
}

// Validate는 옵션을 검사합니다
func (o Options) Validate() error {
	if !(o.InitialCapital > 0) {
		return fmt.Errorf("%w: initial capital must be positive, got %v", ErrInvalidOptions, o.InitialCapital)
	}
	if !o.Start.IsZero() && !o.End.IsZero() && o.End.Before(o.Start) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidOptions,
			o.End.Format(time.RFC3339), o.Start.Format(time.RFC3339))
	}
	if o.Mode != position.LedgerMode && o.Mode != position.EquityCurveMode {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidOptions, o.Mode)
	}
	return nil
}

// Statistics는 거래 기록을 퍼센트 기준으로 요약합니다
type Statistics struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`     // %
	AvgProfit     float64 `json:"avg_profit"`   // 거래당 평균 수익 (%)
	MaxDrawdown   float64 `json:"max_drawdown"` // 누적 수익 합계 기준 (%p)
	ProfitFactor  float64 `json:"profit_factor"`
}

// Metrics는 자산 곡선을 금액 기준으로 요약합니다
type Metrics struct {
	TotalReturn        float64 `json:"total_return"`
	TotalReturnPercent float64 `json:"total_return_percent"`
	AnnualizedReturn   float64 `json:"annualized_return"` // %
	MaxDrawdown        float64 `json:"max_drawdown"`      // 고점 대비 하락 금액
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`
	WinRate            float64 `json:"win_rate"` // 진입가보다 높게 청산한 BUY/SELL 쌍의 비율 (%)
	TotalTrades        int     `json:"total_trades"`
	ProfitableTrades   int     `json:"profitable_trades"`
	LossMakingTrades   int     `json:"loss_making_trades"`
}

// Result는 백테스트 실행 결과입니다
type Result struct {
	Strategy       string
	Mode           position.Mode
	InitialCapital float64
	StartDate      time.Time
	EndDate        time.Time
	Bars           int
	Trades         []position.Trade
	Executions     []position.Execution
	EquityCurve    []position.EquityPoint
	Statistics     *Statistics // 거래 기록 모드
	Metrics        *Metrics    // 자산 곡선 모드
	FinalState     position.State
	FinalCash      float64
	FinalValue     float64
}

type ledgerJSON struct {
	Strategy       string           `json:"strategy"`
	Mode           position.Mode    `json:"mode"`
	InitialCapital float64          `json:"initial_capital"`
	StartDate      *time.Time       `json:"start_date,omitempty"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	Bars           int              `json:"bars"`
	Trades         []position.Trade `json:"trades"`
	Statistics     *Statistics      `json:"statistics"`
	FinalState     position.State   `json:"final_state"`
	FinalCash      float64          `json:"final_cash"`
	FinalValue     float64          `json:"final_value"`
}

type equityJSON struct {
	Strategy         string                 `json:"strategy"`
	Mode             position.Mode          `json:"mode"`
	InitialCapital   float64                `json:"initial_capital"`
	StartDate        *time.Time             `json:"start_date,omitempty"`
	EndDate          *time.Time             `json:"end_date,omitempty"`
	Bars             int                    `json:"bars"`
	Trades           []position.Execution   `json:"trades"`
	PortfolioHistory []position.EquityPoint `json:"portfolio_history"`
	Metrics          *Metrics               `json:"metrics"`
	FinalState       position.State         `json:"final_state"`
	FinalCash        float64                `json:"final_cash"`
	FinalValue       float64                `json:"final_value"`
}

// MarshalJSON은 모드별 와이어 형태로 인코딩합니다: 거래 기록 결과는
// 거래와 통계를, 자산 곡선 결과는 체결 내역(trades), 포트폴리오 이력,
// 지표를 담습니다
func (r Result) MarshalJSON() ([]byte, error) {
	var start, end *time.Time
	if !r.StartDate.IsZero() {
		start, end = &r.StartDate, &r.EndDate
	}

	if r.Mode == position.EquityCurveMode {
		return json.Marshal(equityJSON{
			Strategy:         r.Strategy,
			Mode:             r.Mode,
			InitialCapital:   r.InitialCapital,
			StartDate:        start,
			EndDate:          end,
			Bars:             r.Bars,
			Trades:           nonNil(r.Executions),
			PortfolioHistory: nonNil(r.EquityCurve),
			Metrics:          r.Metrics,
			FinalState:       r.FinalState,
			FinalCash:        r.FinalCash,
			FinalValue:       r.FinalValue,
		})
	}

	return json.Marshal(ledgerJSON{
		Strategy:       r.Strategy,
		Mode:           r.Mode,
		InitialCapital: r.InitialCapital,
		StartDate:      start,
		EndDate:        end,
		Bars:           r.Bars,
		Trades:         nonNil(r.Trades),
		Statistics:     r.Statistics,
		FinalState:     r.FinalState,
		FinalCash:      r.FinalCash,
		FinalValue:     r.FinalValue,
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
