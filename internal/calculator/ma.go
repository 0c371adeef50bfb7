package calculator

import (
	"errors"
	"math"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// RollingSMA returns the trailing simple moving average at every index.
// The first window-1 entries are NaN, so a window longer than the input
// (or a non-positive window) yields an all-NaN slice.
func RollingSMA(prices []float64, window int) []float64 {
	out := make([]float64, len(prices))
	for i := range out {
		if window <= 0 || i < window-1 {
			out[i] = math.NaN()
			continue
		}
		// Each window is summed directly; equal windows give bit-identical means.
		out[i], _ = CalculateSMA(prices[:i+1], window)
	}
	return out
}
