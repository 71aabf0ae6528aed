package domain

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe은 시리즈를 더 큰 봉으로 묶을 때 쓰는 봉 주기입니다
type Timeframe string

const (
	Timeframe1h Timeframe = "1h"
	Timeframe4h Timeframe = "4h"
	Timeframe1d Timeframe = "1d"
	Timeframe1w Timeframe = "1w"
	Timeframe1M Timeframe = "1M"
)

// ParseTimeframe은 1h, 4h, 1d, 1w, 1M (daily, weekly, monthly 포함)을 해석합니다
func ParseTimeframe(s string) (Timeframe, error) {
	switch strings.TrimSpace(s) {
	case "1h", "1H", "hourly":
		return Timeframe1h, nil
	case "4h", "4H":
		return Timeframe4h, nil
	case "1d", "1D", "daily":
		return Timeframe1d, nil
	case "1w", "1W", "weekly":
		return Timeframe1w, nil
	case "1M", "1mo", "monthly":
		return Timeframe1M, nil
	default:
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
}

// bucket은 ts가 속한 주기의 UTC 시작 시각을 반환합니다.
// 주는 월요일에 시작합니다.
func (tf Timeframe) bucket(ts time.Time) time.Time {
	ts = ts.UTC()
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	switch tf {
	case Timeframe1h:
		return ts.Truncate(time.Hour)
	case Timeframe4h:
		return ts.Truncate(4 * time.Hour)
	case Timeframe1w:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case Timeframe1M:
		return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

// Resample은 시리즈를 주어진 주기의 봉으로 묶습니다:
// 첫 시가, 최고 고가, 최저 저가, 마지막 종가, 거래량 합계.
// 각 봉의 시각은 해당 주기의 시작 시각입니다.
func (s PriceSeries) Resample(tf Timeframe) (PriceSeries, error) {
	if _, err := ParseTimeframe(string(tf)); err != nil {
		return nil, err
	}

	out := make(PriceSeries, 0, len(s))
	for _, p := range s {
		start := tf.bucket(p.Timestamp)

		n := len(out)
		if n == 0 || !out[n-1].Timestamp.Equal(start) {
			out = append(out, PricePoint{
				Timestamp: start,
				Open:      p.Open,
				High:      p.High,
				Low:       p.Low,
				Close:     p.Close,
				Volume:    p.Volume,
			})
			continue
		}

		bar := &out[n-1]
		if p.High > bar.High {
			bar.High = p.High
		}
		if p.Low < bar.Low {
			bar.Low = p.Low
		}
		bar.Close = p.Close
		bar.Volume += p.Volume
	}

	return NewPriceSeries(out)
}
