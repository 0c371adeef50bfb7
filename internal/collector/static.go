package collector

import (
	"context"
	"time"

	"QuantLab/internal/model"
)

// StaticFetcher serves a fixed set of bars, for tests and offline runs.
type StaticFetcher struct {
	Bars []model.OHLCV
	Err  error
}

func (s *StaticFetcher) Name() string { return "static" }

func (s *StaticFetcher) FetchDailyBars(_ context.Context, _ string, start, end time.Time) ([]model.OHLCV, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]model.OHLCV, 0, len(s.Bars))
	for _, b := range s.Bars {
		if b.Time.Before(start) || b.Time.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// BarsFromCloses builds one bar per consecutive calendar day starting at
// start, with every price field set to the close.
func BarsFromCloses(start time.Time, closes []float64) []model.OHLCV {
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000000,
		}
	}
	return bars
}
