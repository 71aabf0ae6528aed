// Package logger는 프로세스 전역 구조화 로거입니다.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	level slog.LevelVar
	mu    sync.RWMutex
	base  *slog.Logger
)

func init() {
	level.Set(slog.LevelInfo)
	base = build(os.Stderr)
}

func build(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &level}))
}

// SetOutput은 로그 출력 대상을 바꿉니다. nil이면 stderr로 되돌립니다
func SetOutput(w io.Writer) {
	mu.Lock()
	base = build(w)
	mu.Unlock()
}

// SetLevel은 최소 레벨을 설정합니다 (debug, info, warn, error).
// 알 수 없는 이름은 info가 됩니다.
func SetLevel(name string) {
	level.Set(ParseLevel(name))
}

// ParseLevel은 레벨 이름을 slog 레벨로 변환합니다
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L은 키/값 구조화 로깅용 현재 로거를 반환합니다
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Debugf는 debug 레벨로 기록합니다
func Debugf(format string, v ...any) {
	L().Debug(fmt.Sprintf(format, v...))
}

// Infof는 info 레벨로 기록합니다
func Infof(format string, v ...any) {
	L().Info(fmt.Sprintf(format, v...))
}

// Warnf는 warn 레벨로 기록합니다
func Warnf(format string, v ...any) {
	L().Warn(fmt.Sprintf(format, v...))
}

// Errorf는 error 레벨로 기록합니다
func Errorf(format string, v ...any) {
	L().Error(fmt.Sprintf(format, v...))
}
