package backtesthttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/assist-by/strategylab/internal/backtest"
	"github.com/assist-by/strategylab/internal/logger"
	"github.com/assist-by/strategylab/internal/market"
	"github.com/assist-by/strategylab/internal/strategy"
)

const requestIDHeader = "X-Request-ID"

// Server는 백테스트 엔진을 HTTP로 제공합니다
type Server struct {
	addr          string
	engine        *backtest.Engine
	registry      *strategy.Registry
	source        market.Source
	defaults      backtest.Options
	timeout       time.Duration
	maxConcurrent int
	router        *gin.Engine
}

// Config는 HTTP 서버의 의존성을 기술합니다
type Config struct {
	Addr          string
	Engine        *backtest.Engine
	Registry      *strategy.Registry
	Source        market.Source    // 선택. 없으면 심볼 요청은 실패
	Defaults      backtest.Options // 요청이 비워 둔 필드에 적용
	Timeout       time.Duration    // 요청당, 0이면 없음
	MaxConcurrent int              // 동시에 실행하는 배치 수
}

// NewServer는 HTTP 서버를 구성합니다
func NewServer(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine must not be nil")
	}
	if cfg.Registry == nil {
		cfg.Registry = strategy.DefaultRegistry()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestID())

	s := &Server{
		addr:          cfg.Addr,
		engine:        cfg.Engine,
		registry:      cfg.Registry,
		source:        cfg.Source,
		defaults:      cfg.Defaults,
		timeout:       cfg.Timeout,
		maxConcurrent: cfg.MaxConcurrent,
		router:        router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	api := s.router.Group("/api")
	api.GET("/strategies", s.handleStrategies)
	api.GET("/symbols", s.handleSymbols)
	api.POST("/backtest", s.handleBacktest)
	api.POST("/backtest/batch", s.handleBatch)
}

// Handler는 서버의 HTTP 핸들러를 반환합니다
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start는 HTTP를 제공하며 ctx가 취소되거나 서비스가 실패할 때까지 블록됩니다
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("http server listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		logger.Infof("http server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

// requestID는 모든 요청에 ID를 붙이며 호출자가 보낸 ID가 있으면 재사용합니다
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()
		logger.L().Info("request",
			"id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).String())
	}
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), s.timeout)
}
