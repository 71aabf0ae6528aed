package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/assist-by/strategylab/internal/domain"
)

var (
	// ErrUnknownSymbol은 소스에 심볼 데이터가 없을 때 반환됩니다
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrMalformedData는 읽을 수 없는 가격 파일일 때 반환됩니다
	ErrMalformedData = errors.New("malformed price data")
)

// Source는 심볼의 과거 봉 데이터를 제공합니다
type Source interface {
	// Load는 심볼의 검증된 전체 가격 이력을 반환합니다
	Load(ctx context.Context, symbol string) (domain.PriceSeries, error)

	// Symbols는 사용 가능한 심볼을 정렬해 반환합니다
	Symbols(ctx context.Context) ([]string, error)
}

// ParseError는 가격 파일에서 읽지 못한 행을 가리킵니다
type ParseError struct {
	Line int // 1부터 시작, 헤더가 1행
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Unwrap은 내부 에러를 반환합니다 (errors.Is/As 지원)
func (e *ParseError) Unwrap() error {
	return e.Err
}

// date 컬럼에 순서대로 시도하는 레이아웃
var timestampLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
}

// 표준 컬럼 이름에 대응하는 헤더 별칭
var headerAliases = map[string]string{
	"date":      "date",
	"datetime":  "date",
	"time":      "date",
	"timestamp": "date",
	"open":      "open",
	"high":      "high",
	"low":       "low",
	"close":     "close",
	"price":     "close",
	"volume":    "volume",
	"vol":       "volume",
}

// 모든 가격 파일에 있어야 하는 컬럼. volume은 선택
var requiredColumns = []string{"date", "open", "high", "low", "close"}

func canonicalHeader(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, "\ufeff")
	return headerAliases[key]
}

// NormalizeSymbol은 심볼을 대문자로 바꾸고 경로 형태의 이름을 거부합니다
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", fmt.Errorf("%w: empty symbol", ErrUnknownSymbol)
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', strings.ContainsRune("-_.^=", r):
		default:
			return "", fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
		}
	}
	if strings.Contains(s, "..") {
		return "", fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}
	return s, nil
}
