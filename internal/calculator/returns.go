package calculator

import (
	"errors"
	"fmt"
	"math"
)

// ErrInsufficientHistory is returned when fewer than two prices are available.
var ErrInsufficientHistory = errors.New("insufficient price history")

// ReturnStats summarizes a log-return series.
type ReturnStats struct {
	Observations     int
	DailyMean        float64
	DailyStd         float64
	AnnualDrift      float64
	AnnualVolatility float64
}

// LogReturns returns ln(p[t]/p[t-1]) for t >= 1.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		out[i-1] = math.Log(prices[i] / prices[i-1])
	}
	return out
}

// EstimateReturnStats estimates drift and volatility from daily closes and
// annualizes them with periodsPerYear. Volatility uses the sample (n-1)
// standard deviation; with a single return it is NaN.
func EstimateReturnStats(prices []float64, periodsPerYear int) (ReturnStats, error) {
	if len(prices) < 2 {
		return ReturnStats{}, fmt.Errorf("%w: need at least 2 prices, got %d", ErrInsufficientHistory, len(prices))
	}
	if periodsPerYear <= 0 {
		return ReturnStats{}, errors.New("periods per year must be positive")
	}
	rets := LogReturns(prices)
	mean := Mean(rets)
	std := SampleStdDev(rets)
	p := float64(periodsPerYear)
	return ReturnStats{
		Observations:     len(rets),
		DailyMean:        mean,
		DailyStd:         std,
		AnnualDrift:      mean * p,
		AnnualVolatility: std * math.Sqrt(p),
	}, nil
}
