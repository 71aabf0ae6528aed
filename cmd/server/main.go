package main

import (
	"context"
	"errors"
	"flag"
	"os"
	osSignal "os/signal"
	"syscall"

	"github.com/assist-by/strategylab/internal/backtest"
	"github.com/assist-by/strategylab/internal/config"
	"github.com/assist-by/strategylab/internal/logger"
	"github.com/assist-by/strategylab/internal/market"
	"github.com/assist-by/strategylab/internal/scheduler"
	"github.com/assist-by/strategylab/internal/strategy"
	backtesthttp "github.com/assist-by/strategylab/internal/transport/http/backtest"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	// 설정
	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		logger.Errorf("loading config: %v", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	// 의존성
	source := market.NewCSVSource(cfg.Data.Dir)
	server, err := backtesthttp.NewServer(backtesthttp.Config{
		Addr:     cfg.Server.Addr,
		Engine:   backtest.NewEngine(cfg.Backtest.MaxBars),
		Registry: strategy.DefaultRegistry(),
		Source:   source,
		Defaults: backtest.Options{
			InitialCapital: cfg.Backtest.InitialCapital,
			EnforceExits:   cfg.Backtest.EnforceExits,
		},
		Timeout:       cfg.Server.RequestTimeout,
		MaxConcurrent: cfg.Backtest.MaxConcurrent,
	})
	if err != nil {
		logger.Errorf("creating server: %v", err)
		os.Exit(1)
	}

	// SIGINT / SIGTERM까지 서비스
	ctx, stop := osSignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 가격 캐시를 최신으로 유지
	if cfg.Data.RefreshInterval > 0 {
		refresher := scheduler.NewScheduler(cfg.Data.RefreshInterval,
			scheduler.TaskFunc(source.Preload),
			scheduler.WithName("market data refresh"),
			scheduler.WithImmediate())
		go func() {
			if err := refresher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warnf("market data refresh stopped: %v", err)
			}
		}()
	}

	logger.Infof("strategylab server starting (data: %s)", cfg.Data.Dir)
	if err := server.Start(ctx); err != nil {
		logger.Errorf("server error: %v", err)
		os.Exit(1)
	}
	logger.Infof("shutdown complete")
}
