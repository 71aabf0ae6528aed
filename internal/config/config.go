package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// 로깅
	Log struct {
		Level string `envconfig:"LOG_LEVEL" default:"info"`
	}

	// HTTP 서버
	Server struct {
		Addr           string        `envconfig:"SERVER_ADDR" default:":8080"`
		RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	}

	// 백테스트 엔진
	Backtest struct {
		InitialCapital float64 `envconfig:"BACKTEST_INITIAL_CAPITAL" default:"10000"`
		MaxBars        int     `envconfig:"BACKTEST_MAX_BARS" default:"100000"`
		MaxConcurrent  int     `envconfig:"BACKTEST_MAX_CONCURRENT" default:"4"`
		EnforceExits   bool    `envconfig:"BACKTEST_ENFORCE_EXITS" default:"false"`
	}

	// 시장 데이터
	Data struct {
		Dir             string        `envconfig:"DATA_DIR" default:"data"`
		RefreshInterval time.Duration `envconfig:"DATA_REFRESH_INTERVAL" default:"5m"` // 0이면 비활성화
	}
}

// ValidateConfig는 설정이 사용 가능한지 검사합니다
func ValidateConfig(cfg *Config) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", cfg.Log.Level)
	}

	if cfg.Server.Addr == "" {
		return errors.New("SERVER_ADDR must not be empty")
	}

	if cfg.Server.RequestTimeout < time.Second {
		return errors.New("REQUEST_TIMEOUT must be at least 1s")
	}

	if !(cfg.Backtest.InitialCapital > 0) {
		return errors.New("BACKTEST_INITIAL_CAPITAL must be positive")
	}

	if cfg.Backtest.MaxBars < 0 {
		return errors.New("BACKTEST_MAX_BARS must not be negative")
	}

	if cfg.Backtest.MaxConcurrent < 1 {
		return errors.New("BACKTEST_MAX_CONCURRENT must be at least 1")
	}

	if cfg.Data.RefreshInterval < 0 {
		return errors.New("DATA_REFRESH_INTERVAL must not be negative")
	}

	return nil
}

// LoadConfig는 환경 변수에서 설정을 읽습니다. 주어진 파일은 먼저
// godotenv로 로드하며("" 은 ./.env) 없는 파일은 무시하고
// 이미 설정된 환경 변수가 우선합니다.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if file == "" {
			file = ".env"
		}
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", file, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
