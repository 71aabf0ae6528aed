package backtesthttp

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/assist-by/strategylab/internal/backtest"
	"github.com/assist-by/strategylab/internal/logger"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strategies": s.registry.Templates()})
}

func (s *Server) handleSymbols(c *gin.Context) {
	if s.source == nil {
		c.JSON(http.StatusOK, gin.H{"symbols": []string{}})
		return
	}
	symbols, err := s.source.Symbols(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": symbols})
}

func (s *Server) handleBacktest(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	job, err := s.prepare(ctx, req)
	if err != nil {
		c.JSON(statusFor(err), errorBody(err))
		return
	}

	result, err := s.engine.Run(ctx, job.Series, job.Strategy, job.Options)
	if err != nil {
		logger.Warnf("backtest %s failed: %v", c.GetString("request_id"), err)
		c.JSON(statusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.GetString("request_id"), "result": result})
}

type batchItem struct {
	ID     string           `json:"id"`
	Result *backtest.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
	Status int              `json:"status"`
}

func (s *Server) handleBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	// 1. 모든 실행을 해석. 잘못된 실행은 단독으로 실패
	items := make([]batchItem, len(req.Runs))
	jobs := make([]backtest.Job, 0, len(req.Runs))
	slots := make([]int, 0, len(req.Runs))
	for i, run := range req.Runs {
		items[i].ID = uuid.NewString()
		job, err := s.prepare(ctx, run)
		if err != nil {
			items[i].Error = err.Error()
			items[i].Status = statusFor(err)
			continue
		}
		job.ID = items[i].ID
		jobs = append(jobs, job)
		slots = append(slots, i)
	}

	// 2. 나머지를 동시에 실행
	results, err := s.engine.RunBatch(ctx, jobs, s.maxConcurrent)
	if err != nil {
		c.JSON(statusFor(err), errorBody(err))
		return
	}

	// 3. 요청 순서대로 병합
	for k, res := range results {
		item := &items[slots[k]]
		if res.Err != nil {
			item.Error = res.Err.Error()
			item.Status = statusFor(res.Err)
			continue
		}
		item.Result = res.Result
		item.Status = http.StatusOK
	}

	c.JSON(http.StatusOK, gin.H{"id": c.GetString("request_id"), "results": items})
}
