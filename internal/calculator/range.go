package calculator

import (
	"errors"
	"math"
)

// TradingDaysPerYear is the trailing window used for 52-week ranges.
const TradingDaysPerYear = 252

// PriceRange is the high/low of a trailing window and where the latest
// price sits inside it.
type PriceRange struct {
	High     float64
	Low      float64
	Position float64 // 0 at the low, 1 at the high
}

// TrailingRange scans the most recent window closes and returns their range.
func TrailingRange(prices []float64, window int) (PriceRange, error) {
	if len(prices) == 0 {
		return PriceRange{}, errors.New("no prices provided")
	}
	if window <= 0 {
		return PriceRange{}, errors.New("window must be positive")
	}
	start := max(len(prices)-window, 0)
	high, low := math.Inf(-1), math.Inf(1)
	for _, p := range prices[start:] {
		high = math.Max(high, p)
		low = math.Min(low, p)
	}
	pos, err := RangePosition(prices[len(prices)-1], high, low)
	if err != nil {
		return PriceRange{}, err
	}
	return PriceRange{High: high, Low: low, Position: pos}, nil
}

// RangePosition returns where current sits within [low, high], clamped to 0..1.
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	return math.Min(math.Max(pos, 0), 1), nil
}
