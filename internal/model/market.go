package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrEmptySeries      = errors.New("price series is empty")
	ErrUnorderedDates   = errors.New("price series dates must be strictly increasing")
	ErrNonPositivePrice = errors.New("price series contains a non-positive price")
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   float64
}

// PricePoint is one daily close.
type PricePoint struct {
	Date  time.Time
	Price float64
}

// PriceSeries is an ordered, validated sequence of daily closes.
// It must not be modified after construction; accessors return copies.
type PriceSeries struct {
	Symbol string
	points []PricePoint
}

// NewPriceSeries validates points and wraps them in a PriceSeries.
func NewPriceSeries(symbol string, points []PricePoint) (*PriceSeries, error) {
	if len(points) == 0 {
		return nil, ErrEmptySeries
	}
	for i, p := range points {
		if !(p.Price > 0) || math.IsInf(p.Price, 0) {
			return nil, fmt.Errorf("%w: index %d price %v", ErrNonPositivePrice, i, p.Price)
		}
		if i > 0 && !p.Date.After(points[i-1].Date) {
			return nil, fmt.Errorf("%w: index %d (%s after %s)", ErrUnorderedDates, i,
				p.Date.Format("2006-01-02"), points[i-1].Date.Format("2006-01-02"))
		}
	}
	cp := make([]PricePoint, len(points))
	copy(cp, points)
	return &PriceSeries{Symbol: symbol, points: cp}, nil
}

// SeriesFromBars builds a close-price series from bars, preferring the
// adjusted close when adjusted is set and the bar carries one.
func SeriesFromBars(symbol string, bars []OHLCV, adjusted bool) (*PriceSeries, error) {
	points := make([]PricePoint, 0, len(bars))
	for _, b := range bars {
		price := b.Close
		if adjusted && b.AdjClose > 0 {
			price = b.AdjClose
		}
		points = append(points, PricePoint{Date: b.Time, Price: price})
	}
	return NewPriceSeries(symbol, points)
}

func (s *PriceSeries) Len() int { return len(s.points) }

func (s *PriceSeries) At(i int) PricePoint { return s.points[i] }

func (s *PriceSeries) First() PricePoint { return s.points[0] }

func (s *PriceSeries) Last() PricePoint { return s.points[len(s.points)-1] }

// Prices returns a copy of the close prices in chronological order.
func (s *PriceSeries) Prices() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Price
	}
	return out
}

// Dates returns a copy of the dates in chronological order.
func (s *PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.points))
	for i, p := range s.points {
		out[i] = p.Date
	}
	return out
}
