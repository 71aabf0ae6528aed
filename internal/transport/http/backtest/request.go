package backtesthttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/assist-by/strategylab/internal/backtest"
	"github.com/assist-by/strategylab/internal/domain"
	"github.com/assist-by/strategylab/internal/market"
	"github.com/assist-by/strategylab/internal/position"
	"github.com/assist-by/strategylab/internal/strategy"
)

// runRequest는 백테스트 하나입니다: 봉은 직접 전달하거나 심볼로 지정하고
// 전략은 전체 정의나 레지스트리 템플릿으로 지정합니다
type runRequest struct {
	Symbol    string                 `json:"symbol"`
	Prices    []pricePoint           `json:"prices"`
	Timeframe string                 `json:"timeframe"` // 실행 전 선택적 봉 묶음
	Strategy  *strategy.Definition   `json:"strategy"`
	Template  string                 `json:"template"`
	Params    map[string]interface{} `json:"params"`
	Options   runOptions             `json:"options"`
}

type pricePoint struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// runOptions는 서버 기본값을 덮어씁니다. nil이거나 빈 필드는 기본값 유지
type runOptions struct {
	InitialCapital *float64 `json:"initial_capital"`
	Mode           string   `json:"mode"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	EnforceExits   *bool    `json:"enforce_exits"`
}

type batchRequest struct {
	Runs []runRequest `json:"runs" binding:"required,min=1"`
}

// requestError는 실패한 요청의 HTTP 상태를 담습니다
type requestError struct {
	status int
	err    error
}

func (e *requestError) Error() string {
	return e.err.Error()
}

func (e *requestError) Unwrap() error {
	return e.err
}

func badRequest(format string, args ...interface{}) error {
	return &requestError{status: http.StatusBadRequest, err: fmt.Errorf(format, args...)}
}

// prepare는 요청을 엔진 작업으로 해석합니다
func (s *Server) prepare(ctx context.Context, req runRequest) (backtest.Job, error) {
	var job backtest.Job

	series, err := s.resolveSeries(ctx, req)
	if err != nil {
		return job, err
	}
	spec, err := s.resolveStrategy(req)
	if err != nil {
		return job, err
	}
	opts, err := s.resolveOptions(req.Options)
	if err != nil {
		return job, err
	}

	job.Series = series
	job.Strategy = spec
	job.Options = opts
	return job, nil
}

func (s *Server) resolveSeries(ctx context.Context, req runRequest) (domain.PriceSeries, error) {
	series, err := s.loadSeries(ctx, req)
	if err != nil || req.Timeframe == "" {
		return series, err
	}
	tf, err := domain.ParseTimeframe(req.Timeframe)
	if err != nil {
		return nil, badRequest("timeframe: %v", err)
	}
	return series.Resample(tf)
}

func (s *Server) loadSeries(ctx context.Context, req runRequest) (domain.PriceSeries, error) {
	switch {
	case len(req.Prices) > 0 && req.Symbol != "":
		return nil, badRequest("send either prices or symbol, not both")
	case len(req.Prices) > 0:
		points := make([]domain.PricePoint, len(req.Prices))
		for i, p := range req.Prices {
			ts, err := market.ParseTimestamp(p.Date)
			if err != nil {
				return nil, badRequest("prices[%d].date: %v", i, err)
			}
			points[i] = domain.PricePoint{
				Timestamp: ts,
				Open:      p.Open,
				High:      p.High,
				Low:       p.Low,
				Close:     p.Close,
				Volume:    p.Volume,
			}
		}
		return domain.NewPriceSeries(points)
	case req.Symbol != "":
		if s.source == nil {
			return nil, &requestError{status: http.StatusServiceUnavailable, err: errors.New("no market data source configured")}
		}
		return s.source.Load(ctx, req.Symbol)
	default:
		return nil, badRequest("prices or symbol is required")
	}
}

func (s *Server) resolveStrategy(req runRequest) (*strategy.Spec, error) {
	switch {
	case req.Strategy != nil && req.Template != "":
		return nil, badRequest("send either strategy or template, not both")
	case req.Strategy != nil:
		return strategy.New(*req.Strategy)
	case req.Template != "":
		return s.registry.Create(req.Template, req.Params)
	default:
		return nil, badRequest("strategy or template is required")
	}
}

func (s *Server) resolveOptions(in runOptions) (backtest.Options, error) {
	opts := s.defaults
	if in.InitialCapital != nil {
		opts.InitialCapital = *in.InitialCapital
	}
	if in.EnforceExits != nil {
		opts.EnforceExits = *in.EnforceExits
	}
	if in.Mode != "" {
		mode, err := position.ParseMode(in.Mode)
		if err != nil {
			return opts, badRequest("options.mode: %v", err)
		}
		opts.Mode = mode
	}
	if in.Start != "" {
		ts, err := market.ParseTimestamp(in.Start)
		if err != nil {
			return opts, badRequest("options.start: %v", err)
		}
		opts.Start = ts
	}
	if in.End != "" {
		ts, err := market.ParseTimestamp(in.End)
		if err != nil {
			return opts, badRequest("options.end: %v", err)
		}
		opts.End = ts
	}
	return opts, opts.Validate()
}

// statusFor는 에러를 HTTP 상태로 매핑합니다
func statusFor(err error) int {
	var reqErr *requestError
	var cfgErr *strategy.ConfigurationError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status
	case errors.As(err, &cfgErr),
		errors.Is(err, backtest.ErrInvalidOptions),
		errors.Is(err, domain.ErrInvalidSeries),
		errors.Is(err, market.ErrMalformedData):
		return http.StatusBadRequest
	case errors.Is(err, market.ErrUnknownSymbol):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorBody는 에러를 렌더링하며 설정 에러는
// 문제 필드 이름을 함께 담습니다
func errorBody(err error) map[string]interface{} {
	body := map[string]interface{}{"error": err.Error()}
	var cfgErr *strategy.ConfigurationError
	if errors.As(err, &cfgErr) {
		body["field"] = cfgErr.Field
	}
	return body
}
