package market

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/assist-by/strategylab/internal/domain"
	"github.com/assist-by/strategylab/internal/logger"
)

// ReadCSV는 헤더가 있는 OHLCV 행을 파싱합니다 (date, open, high, low,
// close, 선택적으로 volume, 순서 무관). "null"이나 빈 가격을 가진 행은
// 건너뜁니다. 행은 어느 시간 순서든 상관없으며 결과는 오름차순으로
// 정렬되어 domain.NewPriceSeries로 검증됩니다.
func ReadCSV(r io.Reader) (domain.PriceSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrMalformedData)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		if col := canonicalHeader(name); col != "" {
			if _, dup := index[col]; !dup {
				index[col] = i
			}
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: missing %q column", ErrMalformedData, col)
		}
	}

	var points []domain.PricePoint
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				line = csvErr.Line
			}
			return nil, fmt.Errorf("%w: %w", ErrMalformedData, &ParseError{Line: line, Err: err})
		}
		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}

		point, skip, err := parseRow(record, index)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedData, &ParseError{Line: line, Err: err})
		}
		if skip {
			logger.Debugf("csv line %d skipped: no prices", line)
			continue
		}
		points = append(points, point)
	}

	if len(points) > 1 && points[0].Timestamp.After(points[len(points)-1].Timestamp) {
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].Timestamp.Before(points[j].Timestamp)
		})
	}

	return domain.NewPriceSeries(points)
}

func parseRow(record []string, index map[string]int) (domain.PricePoint, bool, error) {
	field := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	ts, err := ParseTimestamp(field("date"))
	if err != nil {
		return domain.PricePoint{}, false, fmt.Errorf("date: %w", err)
	}

	var prices [4]float64
	for i, col := range []string{"open", "high", "low", "close"} {
		raw := field(col)
		if raw == "" || strings.EqualFold(raw, "null") {
			return domain.PricePoint{}, true, nil
		}
		v, err := parseNumber(raw)
		if err != nil {
			return domain.PricePoint{}, false, fmt.Errorf("%s: %w", col, err)
		}
		prices[i] = v
	}

	volume := 0.0
	if raw := field("volume"); raw != "" && !strings.EqualFold(raw, "null") {
		v, err := parseNumber(raw)
		if err != nil {
			return domain.PricePoint{}, false, fmt.Errorf("volume: %w", err)
		}
		volume = v
	}

	return domain.PricePoint{
		Timestamp: ts,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    volume,
	}, false, nil
}

// parseNumber는 유한한 실수를 파싱합니다. NaN과 ±Inf 셀은 거부됩니다
func parseNumber(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", raw)
	}
	return v, nil
}

// ParseTimestamp는 날짜(2006-01-02), RFC 3339, 몇 가지 흔한 레이아웃,
// unix 초/밀리초를 받습니다. 시간대가 없으면 UTC입니다.
func ParseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return ts, nil
		}
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	series  domain.PriceSeries
}

// CSVSource는 디렉터리의 <SYMBOL>.csv 파일을 읽습니다. 파싱한 파일은
// 크기나 수정 시각이 바뀔 때까지 캐시되며 반환된 시리즈는 공유되므로
// 수정하면 안 됩니다. 파일 이름은 대문자입니다.
type CSVSource struct {
	dir string

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewCSVSource는 주어진 디렉터리의 소스를 생성합니다
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{
		dir:   dir,
		cache: make(map[string]cacheEntry),
	}
}

// Dir은 데이터 디렉터리를 반환합니다
func (s *CSVSource) Dir() string {
	return s.dir
}

// Load는 심볼의 가격 파일을 읽고 검증합니다
func (s *CSVSource) Load(ctx context.Context, symbol string) (domain.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, name+".csv")
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, name)
		}
		return nil, err
	}

	s.mu.Lock()
	entry, ok := s.cache[name]
	s.mu.Unlock()
	if ok && entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		return entry.series, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	series, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	logger.Debugf("loaded %s: %d bars", name, len(series))

	s.mu.Lock()
	s.cache[name] = cacheEntry{modTime: info.ModTime(), size: info.Size(), series: series}
	s.mu.Unlock()

	return series, nil
}

// Symbols는 가격 파일이 있는 심볼 목록을 반환합니다
func (s *CSVSource) Symbols(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		name, err := NormalizeSymbol(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		if err != nil {
			continue
		}
		symbols = append(symbols, name)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// Preload는 모든 가격 파일을 캐시에 파싱합니다. 로드에 실패한 파일은
// 한꺼번에 보고되고 나머지는 계속 사용할 수 있습니다.
func (s *CSVSource) Preload(ctx context.Context) error {
	symbols, err := s.Symbols(ctx)
	if err != nil {
		return err
	}

	var errs []error
	loaded := 0
	for _, symbol := range symbols {
		if _, err := s.Load(ctx, symbol); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			errs = append(errs, err)
			continue
		}
		loaded++
	}
	logger.Infof("market data: %d of %d symbols loaded from %s", loaded, len(symbols), s.dir)
	return errors.Join(errs...)
}
