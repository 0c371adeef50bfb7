package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"QuantLab/internal/model"
)

// ErrDataUnavailable is returned when a series cannot be obtained or is empty.
var ErrDataUnavailable = errors.New("market data unavailable")

// Collector turns raw fetcher bars into a validated PriceSeries.
type Collector struct {
	Fetcher  Fetcher
	Adjusted bool
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, adjusted bool) *Collector {
	return &Collector{Fetcher: fetcher, Adjusted: adjusted}
}

// FetchDailyCloses fetches bars and cleans them: null or non-positive
// closes are dropped, bars are sorted and de-duplicated by trading date
// (the last bar of a date wins).
func (c *Collector) FetchDailyCloses(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("%w: %s: end %s not after start %s", ErrDataUnavailable, symbol,
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	bars, err := c.Fetcher.FetchDailyBars(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %s via %s: %w", ErrDataUnavailable, symbol, c.Fetcher.Name(), err)
	}

	cleaned := cleanBars(bars)
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: %s via %s: no usable bars between %s and %s", ErrDataUnavailable,
			symbol, c.Fetcher.Name(), start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	if dropped := len(bars) - len(cleaned); dropped > 0 {
		log.Debug().Str("symbol", symbol).Int("dropped", dropped).Msg("discarded null or duplicate bars")
	}

	series, err := model.SeriesFromBars(symbol, cleaned, c.Adjusted)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDataUnavailable, symbol, err)
	}
	log.Info().
		Str("symbol", symbol).
		Str("source", c.Fetcher.Name()).
		Int("points", series.Len()).
		Str("first", series.First().Date.Format(time.DateOnly)).
		Str("last", series.Last().Date.Format(time.DateOnly)).
		Msg("loaded price history")
	return series, nil
}

func cleanBars(bars []model.OHLCV) []model.OHLCV {
	out := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if !(b.Close > 0) || math.IsInf(b.Close, 0) {
			continue
		}
		b.Time = truncateDay(b.Time)
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	deduped := out[:0]
	for _, b := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Time.Equal(b.Time) {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
