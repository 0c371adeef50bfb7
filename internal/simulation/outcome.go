package simulation

import (
	"math"
	"sort"

	"QuantLab/internal/calculator"
	"QuantLab/internal/model"
)

// OutcomeOptions parameterizes Analyze.
type OutcomeOptions struct {
	Confidence    float64 // VaR confidence, e.g. 0.95
	GainThreshold float64 // e.g. 0.05 for "up more than 5%"
}

// DefaultOutcomeOptions matches the 95% VaR and 5% gain threshold.
var DefaultOutcomeOptions = OutcomeOptions{Confidence: 0.95, GainThreshold: 0.05}

// Outcome holds risk and probability metrics of the final simulated prices.
type Outcome struct {
	StartPrice    float64
	ExpectedPrice float64
	MedianPrice   float64
	VaR           float64 // (1-Confidence) percentile of final prices
	Confidence    float64
	ProbLoss      float64 // final < S0
	ProbProfit    float64 // final > S0
	ProbGain      float64 // final > S0*(1+GainThreshold)
	GainThreshold float64
}

// Analyze derives outcome metrics from the last row of e. Paths ending
// exactly at s0 count as neither loss nor profit.
func Analyze(e *model.Ensemble, s0 float64, opts OutcomeOptions) Outcome {
	final := e.FinalPrices()
	sort.Float64s(final)

	n := float64(len(final))
	target := s0 * (1 + opts.GainThreshold)
	var loss, profit, gain int
	for _, v := range final {
		switch {
		case v < s0:
			loss++
		case v > s0:
			profit++
		}
		if v > target {
			gain++
		}
	}

	return Outcome{
		StartPrice:    s0,
		ExpectedPrice: calculator.Mean(final),
		MedianPrice:   calculator.PercentileSorted(final, 50),
		VaR:           calculator.PercentileSorted(final, tailPercentile(opts.Confidence)),
		Confidence:    opts.Confidence,
		ProbLoss:      float64(loss) / n,
		ProbProfit:    float64(profit) / n,
		ProbGain:      float64(gain) / n,
		GainThreshold: opts.GainThreshold,
	}
}

// tailPercentile converts a confidence level to the lower-tail percentile,
// snapped to 1e-6 so 0.95 maps to exactly 5.
func tailPercentile(confidence float64) float64 {
	return math.Round((1-confidence)*100*1e6) / 1e6
}
