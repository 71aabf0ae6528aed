package backtest

import (
	"context"
	"fmt"

	"github.com/assist-by/strategylab/internal/domain"
	"github.com/assist-by/strategylab/internal/logger"
	"github.com/assist-by/strategylab/internal/position"
	"github.com/assist-by/strategylab/internal/strategy"
)

// Engine은 백테스트를 실행합니다. 실행은 동기적이고 결정적이며 엔진은
// 실행 간 상태를 갖지 않으므로 여러 호출자가 하나의 엔진을 함께 쓸 수 있습니다.
type Engine struct {
	maxBars int // 0이면 제한 없음
}

// NewEngine은 maxBars보다 긴 시리즈를 거부하는 엔진을 생성합니다
// (0이면 제한 없음)
func NewEngine(maxBars int) *Engine {
	return &Engine{maxBars: maxBars}
}

// Run은 시리즈 전체에서 전략을 평가하고 옵션의 기간 안 봉들을 시뮬레이션합니다.
// 지표는 전체 시리즈를 보므로 워밍업에 기간 이전 데이터가 쓰입니다.
// 컨텍스트는 실행 전후에만 확인하며
// 봉 루프 안에서는 확인하지 않습니다.
func (e *Engine) Run(ctx context.Context, series domain.PriceSeries, spec *strategy.Spec, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if spec == nil {
		return nil, fmt.Errorf("%w: no strategy", ErrInvalidOptions)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if e.maxBars > 0 && len(series) > e.maxBars {
		return nil, fmt.Errorf("%w: %d bars exceed the limit of %d", ErrInvalidOptions, len(series), e.maxBars)
	}
	for i, bar := range series {
		if err := bar.Validate(); err != nil {
			return nil, fmt.Errorf("bar %d: %w", i, err)
		}
	}

	sim, err := position.NewSimulator(position.Config{
		InitialCapital: opts.InitialCapital,
		Mode:           opts.Mode,
		Risk:           spec.Risk(),
		EnforceExits:   opts.EnforceExits,
	})
	if err != nil {
		return nil, err
	}

	from, to := series.IndexRange(opts.Start, opts.End)
	logger.Infof("backtest start: strategy=%s, mode=%s, bars=%d, simulated=%d",
		spec.GetName(), opts.Mode, len(series), to-from)

	// 1. 지표와 봉별 액션
	_, actions, err := spec.Analyze(series)
	if err != nil {
		return nil, fmt.Errorf("computing indicators: %w", err)
	}

	// 2. 포지션 시뮬레이션
	out, err := sim.RunRange(series, actions, from, to)
	if err != nil {
		return nil, err
	}

	// 3. 통계
	result := &Result{
		Strategy:       spec.GetName(),
		Mode:           opts.Mode,
		InitialCapital: opts.InitialCapital,
		StartDate:      out.StartDate,
		EndDate:        out.EndDate,
		Bars:           out.Bars,
		Trades:         out.Trades,
		Executions:     out.Executions,
		EquityCurve:    out.EquityCurve,
		FinalState:     out.Final,
		FinalCash:      out.FinalCash,
		FinalValue:     out.FinalValue,
	}
	AnalyzerFor(opts.Mode).Analyze(out, result)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Infof("backtest done: strategy=%s, trades=%d, final value=%.2f",
		spec.GetName(), len(result.Trades), result.FinalValue)
	return result, nil
}
