package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	osSignal "os/signal"
	"syscall"

	"github.com/assist-by/strategylab/internal/backtest"
	"github.com/assist-by/strategylab/internal/config"
	"github.com/assist-by/strategylab/internal/domain"
	"github.com/assist-by/strategylab/internal/logger"
	"github.com/assist-by/strategylab/internal/market"
	"github.com/assist-by/strategylab/internal/position"
	"github.com/assist-by/strategylab/internal/strategy"
)

func main() {
	ctx, stop := osSignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		logger.Errorf("backtest failed: %v", err)
		os.Exit(1)
	}
}

// cliFlags는 실행 하나의 커맨드라인 옵션입니다
type cliFlags struct {
	prices       string
	symbol       string
	timeframe    string
	dataDir      string
	strategyFile string
	template     string
	params       string
	mode         string
	capital      float64
	start        string
	end          string
	enforceExits bool
	list         bool
	logLevel     string
	indent       bool
}

func parseFlags(args []string, cfg *config.Config) (*cliFlags, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("backtest", flag.ContinueOnError)
	fs.StringVar(&f.prices, "prices", "", "OHLCV CSV file")
	fs.StringVar(&f.symbol, "symbol", "", "symbol to load from the data directory instead of -prices")
	fs.StringVar(&f.timeframe, "timeframe", "", "aggregate bars to 1h, 4h, 1d, 1w or 1M before the run")
	fs.StringVar(&f.dataDir, "data", cfg.Data.Dir, "directory of <SYMBOL>.csv files")
	fs.StringVar(&f.strategyFile, "strategy", "", "strategy definition (.yaml or .json)")
	fs.StringVar(&f.template, "template", "", "registered strategy template instead of -strategy")
	fs.StringVar(&f.params, "params", "", "template parameters as a JSON object")
	fs.StringVar(&f.mode, "mode", "ledger", "ledger or equity")
	fs.Float64Var(&f.capital, "capital", cfg.Backtest.InitialCapital, "initial capital")
	fs.StringVar(&f.start, "start", "", "first simulated date (inclusive)")
	fs.StringVar(&f.end, "end", "", "last simulated date (inclusive)")
	fs.BoolVar(&f.enforceExits, "enforce-exits", cfg.Backtest.EnforceExits, "close positions at touched stop-loss / take-profit levels")
	fs.BoolVar(&f.list, "list", false, "list the strategy templates and exit")
	fs.StringVar(&f.logLevel, "log-level", cfg.Log.Level, "debug, info, warn or error")
	fs.BoolVar(&f.indent, "indent", true, "indent the JSON output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	// 1. 설정: 환경 변수 먼저, 플래그가 덮어씀
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	f, err := parseFlags(args, cfg)
	if err != nil {
		return err
	}
	logger.SetLevel(f.logLevel)

	registry := strategy.DefaultRegistry()
	enc := json.NewEncoder(stdout)
	if f.indent {
		enc.SetIndent("", "  ")
	}

	if f.list {
		return enc.Encode(registry.Templates())
	}

	// 2. 봉 데이터
	series, err := loadSeries(ctx, f)
	if err != nil {
		return err
	}

	// 3. 전략
	spec, err := loadStrategy(registry, f)
	if err != nil {
		return err
	}

	// 4. 옵션
	opts, err := buildOptions(f)
	if err != nil {
		return err
	}

	// 5. 실행
	engine := backtest.NewEngine(cfg.Backtest.MaxBars)
	result, err := engine.Run(ctx, series, spec, opts)
	if err != nil {
		return err
	}
	return enc.Encode(result)
}

func loadSeries(ctx context.Context, f *cliFlags) (domain.PriceSeries, error) {
	switch {
	case f.prices != "" && f.symbol != "":
		return nil, errors.New("use either -prices or -symbol")
	case f.prices == "" && f.symbol == "":
		return nil, errors.New("-prices or -symbol is required")
	}

	var series domain.PriceSeries
	if f.prices != "" {
		file, err := os.Open(f.prices)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		if series, err = market.ReadCSV(file); err != nil {
			return nil, fmt.Errorf("%s: %w", f.prices, err)
		}
	} else {
		var err error
		if series, err = market.NewCSVSource(f.dataDir).Load(ctx, f.symbol); err != nil {
			return nil, err
		}
	}

	if f.timeframe == "" {
		return series, nil
	}
	tf, err := domain.ParseTimeframe(f.timeframe)
	if err != nil {
		return nil, fmt.Errorf("-timeframe: %w", err)
	}
	return series.Resample(tf)
}

func loadStrategy(registry *strategy.Registry, f *cliFlags) (*strategy.Spec, error) {
	switch {
	case f.strategyFile != "" && f.template != "":
		return nil, errors.New("use either -strategy or -template")
	case f.strategyFile != "":
		def, err := strategy.LoadDefinition(f.strategyFile)
		if err != nil {
			return nil, err
		}
		return strategy.New(def)
	case f.template != "":
		var params map[string]interface{}
		if f.params != "" {
			if err := json.Unmarshal([]byte(f.params), &params); err != nil {
				return nil, fmt.Errorf("-params: %w", err)
			}
		}
		return registry.Create(f.template, params)
	default:
		return nil, errors.New("-strategy or -template is required")
	}
}

func buildOptions(f *cliFlags) (backtest.Options, error) {
	opts := backtest.Options{
		InitialCapital: f.capital,
		EnforceExits:   f.enforceExits,
	}

	mode, err := position.ParseMode(f.mode)
	if err != nil {
		return opts, err
	}
	opts.Mode = mode

	if f.start != "" {
		if opts.Start, err = market.ParseTimestamp(f.start); err != nil {
			return opts, fmt.Errorf("-start: %w", err)
		}
	}
	if f.end != "" {
		if opts.End, err = market.ParseTimestamp(f.end); err != nil {
			return opts, fmt.Errorf("-end: %w", err)
		}
	}
	return opts, opts.Validate()
}
