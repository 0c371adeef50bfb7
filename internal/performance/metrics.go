package performance

import (
	"errors"
	"math"

	"QuantLab/internal/calculator"
	"QuantLab/internal/model"
)

// ErrDegenerateVolatility means the return series has fewer than two
// observations or zero dispersion, so risk-adjusted ratios are undefined.
var ErrDegenerateVolatility = errors.New("volatility is zero or undefined")

// Undefined is the sentinel returned for ratios that cannot be computed.
var Undefined = math.NaN()

// IsUndefined reports whether v is the undefined sentinel.
func IsUndefined(v float64) bool {
	return math.IsNaN(v)
}

// PctChange returns v[t]/v[t-1] - 1 for t >= 1.
func PctChange(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = values[i]/values[i-1] - 1
	}
	return out
}

func TotalReturn(final, initial float64) float64 {
	return final/initial - 1
}

// Volatility is the sample standard deviation of per-period returns.
func Volatility(returns []float64) (float64, error) {
	if len(returns) < 2 {
		return 0, ErrDegenerateVolatility
	}
	sd := calculator.SampleStdDev(returns)
	if sd == 0 || math.IsNaN(sd) {
		return 0, ErrDegenerateVolatility
	}
	return sd, nil
}

// SharpeRatio annualizes mean/stdev with a zero risk-free rate. It returns
// Undefined instead of an infinity when volatility is degenerate.
func SharpeRatio(returns []float64, periodsPerYear int) float64 {
	sd, err := Volatility(returns)
	if err != nil {
		return Undefined
	}
	return math.Sqrt(float64(periodsPerYear)) * calculator.Mean(returns) / sd
}

func RunningMax(values []float64) []float64 {
	out := make([]float64, len(values))
	peak := math.Inf(-1)
	for i, v := range values {
		if v > peak {
			peak = v
		}
		out[i] = peak
	}
	return out
}

// Drawdown is (v - running max) / running max. It is never positive and is
// zero at every new high.
func Drawdown(values []float64) []float64 {
	peaks := RunningMax(values)
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - peaks[i]) / peaks[i]
	}
	return out
}

// MaxDrawdown is the most negative drawdown, or 0 for an empty series.
func MaxDrawdown(values []float64) float64 {
	worst := 0.0
	for _, d := range Drawdown(values) {
		if d < worst {
			worst = d
		}
	}
	return worst
}

// TradeCount counts true buy signals plus true sell signals. Signals the
// state machine ignored are still counted.
func TradeCount(signals *model.SignalSet) int {
	if signals == nil {
		return 0
	}
	n := 0
	for _, b := range signals.Buy {
		if b {
			n++
		}
	}
	for _, s := range signals.Sell {
		if s {
			n++
		}
	}
	return n
}

// Summary bundles the metrics for one value series.
type Summary struct {
	InitialCapital float64
	FinalValue     float64
	TotalReturn    float64
	Volatility     float64 // per period; Undefined when degenerate
	Sharpe         float64
	MaxDrawdown    float64
}

func Summarize(values []float64, initialCapital float64, periodsPerYear int) Summary {
	s := Summary{
		InitialCapital: initialCapital,
		FinalValue:     initialCapital,
		Volatility:     Undefined,
		Sharpe:         Undefined,
	}
	if len(values) == 0 {
		return s
	}
	s.FinalValue = values[len(values)-1]
	s.TotalReturn = TotalReturn(s.FinalValue, initialCapital)
	s.MaxDrawdown = MaxDrawdown(values)

	returns := PctChange(values)
	if vol, err := Volatility(returns); err == nil {
		s.Volatility = vol
	}
	s.Sharpe = SharpeRatio(returns, periodsPerYear)
	return s
}
