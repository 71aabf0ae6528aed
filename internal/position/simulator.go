package position

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/assist-by/strategylab/internal/domain"
	"github.com/assist-by/strategylab/internal/logger"
)

// Config는 시뮬레이터 설정입니다
type Config struct {
	InitialCapital float64    // 초기 현금, 0보다 커야 함
	Mode           Mode       // 거래 기록 또는 자산 곡선
	Risk           RiskPolicy // 진입 시 기록되는 손절/익절 가격
	EnforceExits   bool       // 이후 봉이 손절/익절가에 닿으면 청산
}

// Simulator는 롱 전용 단일 포지션 상태 머신입니다.
// 실행 간 상태를 갖지 않으며 동시에 사용해도 안전합니다.
type Simulator struct {
	cfg Config
}

// NewSimulator는 설정을 검증하고 시뮬레이터를 생성합니다
func NewSimulator(cfg Config) (*Simulator, error) {
	if !(cfg.InitialCapital > 0) || decFromFloat(cfg.InitialCapital).IsZero() {
		return nil, NewSimulationError("new", fmt.Errorf("%w: %v", ErrInvalidCapital, cfg.InitialCapital))
	}
	cfg.Risk = cfg.Risk.Normalize()
	if err := cfg.Risk.Validate(); err != nil {
		return nil, NewSimulationError("new", err)
	}
	return &Simulator{cfg: cfg}, nil
}

// Config는 정규화된 설정을 반환합니다
func (s *Simulator) Config() Config {
	return s.cfg
}

// run은 시뮬레이션 한 번의 가변 상태입니다
type run struct {
	cfg     Config
	series  domain.PriceSeries
	levels  *levelCalculator
	cash    decimal.Decimal
	state   State
	outcome *Outcome
}

// Run은 시리즈의 모든 봉을 시뮬레이션합니다
func (s *Simulator) Run(series domain.PriceSeries, actions []domain.Action) (*Outcome, error) {
	return s.RunRange(series, actions, 0, len(series))
}

// RunRange는 시리즈의 [from, to) 봉을 시뮬레이션합니다. from 이전 봉도
// 리스크 정책에는 과거 데이터로 보입니다.
func (s *Simulator) RunRange(series domain.PriceSeries, actions []domain.Action, from, to int) (*Outcome, error) {
	if len(actions) != len(series) {
		return nil, NewSimulationError("run", fmt.Errorf("%w: %d actions for %d bars", ErrLengthMismatch, len(actions), len(series)))
	}
	if from < 0 || to > len(series) || from > to {
		return nil, NewSimulationError("run", fmt.Errorf("%w: [%d, %d) of %d bars", ErrInvalidRange, from, to, len(series)))
	}
	// from 이전 봉도 리스크 가격 계산에 쓰이므로 함께 검사
	for i := 0; i < to; i++ {
		if err := series[i].Validate(); err != nil {
			return nil, NewSimulationError("run", fmt.Errorf("%w: bar %d: %w", ErrInvalidPrice, i, err))
		}
	}

	r := &run{
		cfg:    s.cfg,
		series: series,
		levels: s.cfg.Risk.newLevelCalculator(series),
		cash:   decFromFloat(s.cfg.InitialCapital),
		outcome: &Outcome{
			Mode:           s.cfg.Mode,
			InitialCapital: s.cfg.InitialCapital,
			Trades:         []Trade{},
			Executions:     []Execution{},
			Bars:           to - from,
		},
	}
	if s.cfg.Mode == EquityCurveMode {
		r.outcome.EquityCurve = make([]EquityPoint, 0, to-from)
	}

	for t := from; t < to; t++ {
		r.step(t, actions[t])
	}

	return r.finish(from, to), nil
}

// step은 봉 하나를 적용합니다: 보호 청산 먼저, 그다음 봉의 액션
func (r *run) step(t int, action domain.Action) {
	bar := r.series[t]

	// 1. 같은 봉에서 둘 다 닿으면 손절이 우선
	if r.cfg.EnforceExits && r.state.IsOpen && t > r.state.EntryIndex {
		if stopHit(bar.Low, r.state.StopLoss) {
			r.sell(t, r.state.StopLoss, ExitStopLoss)
		} else if targetHit(bar.High, r.state.TakeProfit) {
			r.sell(t, r.state.TakeProfit, ExitTakeProfit)
		}
	}

	// 2. 종가에서 액션 처리. LONG 중 BUY와 FLAT 중 SELL은 무시
	switch {
	case action == domain.Buy && !r.state.IsOpen:
		r.buy(t)
	case action == domain.Sell && r.state.IsOpen:
		r.sell(t, bar.Close, ExitSignal)
	}

	// 3. 평가 금액 갱신
	if r.cfg.Mode == EquityCurveMode {
		shares := decimal.NewFromInt(r.state.Shares)
		value := r.cash.Add(shares.Mul(decFromFloat(bar.Close)))
		r.outcome.EquityCurve = append(r.outcome.EquityCurve, EquityPoint{
			Date:   bar.Timestamp,
			Close:  bar.Close,
			Shares: r.state.Shares,
			Cash:   decToFloat(r.cash),
			Value:  decToFloat(value),
		})
	}
}

func (r *run) buy(t int) {
	bar := r.series[t]
	size, err := CalculatePositionSize(r.cash, bar.Close)
	if err != nil || size.Shares <= 0 {
		logger.Debugf("buy skipped at %s: cash %s buys no share at %.4f",
			bar.Timestamp.Format("2006-01-02"), r.cash.String(), bar.Close)
		return
	}

	r.cash = r.cash.Sub(size.Cost)
	stopLoss, takeProfit := r.levels.at(t, bar.Close)
	r.state = State{
		IsOpen:     true,
		EntryPrice: bar.Close,
		EntryDate:  bar.Timestamp,
		EntryIndex: t,
		Shares:     size.Shares,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	}

	r.outcome.Executions = append(r.outcome.Executions, Execution{
		Date:   bar.Timestamp,
		Action: domain.Buy,
		Price:  bar.Close,
		Shares: size.Shares,
		Amount: decToFloat(size.Cost),
		Cash:   decToFloat(r.cash),
	})

	logger.Debugf("entry %s: %d @ %.4f, SL: %.4f, TP: %.4f",
		bar.Timestamp.Format("2006-01-02"), size.Shares, bar.Close, stopLoss, takeProfit)
}

func (r *run) sell(t int, price float64, reason ExitReason) {
	bar := r.series[t]
	proceeds := decimal.NewFromInt(r.state.Shares).Mul(decFromFloat(price))
	r.cash = r.cash.Add(proceeds)

	trade := Trade{
		EntryDate:  r.state.EntryDate,
		EntryPrice: r.state.EntryPrice,
		ExitDate:   bar.Timestamp,
		ExitPrice:  price,
		ProfitPct:  ProfitPercent(r.state.EntryPrice, price),
		Shares:     r.state.Shares,
		StopLoss:   r.state.StopLoss,
		TakeProfit: r.state.TakeProfit,
		ExitReason: reason,
	}
	r.outcome.Trades = append(r.outcome.Trades, trade)
	r.outcome.Executions = append(r.outcome.Executions, Execution{
		Date:   bar.Timestamp,
		Action: domain.Sell,
		Price:  price,
		Shares: r.state.Shares,
		Amount: decToFloat(proceeds),
		Cash:   decToFloat(r.cash),
		Reason: reason,
	})

	logger.Debugf("exit %s: %d @ %.4f, profit: %.2f%%, reason: %s",
		bar.Timestamp.Format("2006-01-02"), trade.Shares, price, trade.ProfitPct, reason)

	r.state = State{}
}

func (r *run) finish(from, to int) *Outcome {
	o := r.outcome
	o.FinalCash = decToFloat(r.cash)
	o.FinalValue = o.FinalCash
	o.Final = r.state

	if to > from {
		o.StartDate = r.series[from].Timestamp
		o.EndDate = r.series[to-1].Timestamp
		if r.state.IsOpen {
			last := decFromFloat(r.series[to-1].Close)
			o.FinalValue = decToFloat(r.cash.Add(decimal.NewFromInt(r.state.Shares).Mul(last)))
		}
	}
	return o
}
