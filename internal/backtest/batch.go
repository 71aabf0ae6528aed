package backtest

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/assist-by/strategylab/internal/domain"
	"github.com/assist-by/strategylab/internal/strategy"
)

// Job은 배치 안의 실행 하나입니다
type Job struct {
	ID       string
	Series   domain.PriceSeries
	Strategy *strategy.Spec
	Options  Options
}

// JobResult는 작업 하나의 결과입니다. 실패하면 Result 대신 Err가 설정됩니다
type JobResult struct {
	ID     string
	Result *Result
	Err    error
}

// RunBatch는 독립 작업들을 최대 limit개씩 동시에 실행합니다 (limit <= 0이면
// 작업마다 하나). 결과는 작업 순서대로 반환됩니다. 실패한 작업은 다른
// 작업을 멈추지 않으며 ctx가 취소될 때만 배치가 실패합니다.
func (e *Engine) RunBatch(ctx context.Context, jobs []Job, limit int) ([]JobResult, error) {
	results := make([]JobResult, len(jobs))
	if limit <= 0 {
		limit = len(jobs)
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			res, err := e.Run(gctx, job.Series, job.Strategy, job.Options)
			results[i] = JobResult{ID: job.ID, Result: res, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
