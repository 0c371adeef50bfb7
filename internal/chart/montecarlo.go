package chart

import (
	"fmt"
	"strings"

	charts "github.com/vicanso/go-charts/v2"

	"QuantLab/internal/analysis"
	"QuantLab/internal/calculator"
)

// MonteCarloPaths draws the first n simulated paths with the starting
// price as a reference line.
func MonteCarloPaths(r *analysis.MonteCarloReport, n int) ([]byte, error) {
	e := r.Ensemble
	n = min(max(n, 1), e.Paths())

	series := make([][]float64, 0, n+1)
	for p := 0; p < n; p++ {
		series = append(series, e.Path(p))
	}
	start := make([]float64, e.Steps()+1)
	for i := range start {
		start[i] = r.Params.S0
	}
	series = append(series, start)

	x := make([]string, len(r.Times))
	for i, t := range r.Times {
		x[i] = fmt.Sprintf("%.2f", t)
	}
	lo, hi := bounds(series...)
	title := fmt.Sprintf("Monte Carlo Simulations of %s (%g Year Forecast)", r.Symbol, r.Params.Horizon)
	subtitle := fmt.Sprintf("%d of %d paths | Starting Price: %.4f | time in years", n, e.Paths(), r.Params.S0)
	return render(series, nil, x, title, subtitle, charts.YAxisOption{Min: &lo, Max: &hi, DivideCount: 5})
}

// FinalPriceHistogram bins the simulated final prices.
func FinalPriceHistogram(r *analysis.MonteCarloReport, bins int) ([]byte, error) {
	counts, edges := calculator.Histogram(r.Ensemble.FinalPrices(), bins)
	if len(counts) == 0 {
		return nil, fmt.Errorf("histogram: no final prices")
	}
	values := make([]float64, len(counts))
	labels := make([]string, len(counts))
	for i, c := range counts {
		values[i] = float64(c)
		labels[i] = fmt.Sprintf("%.4g", (edges[i]+edges[i+1])/2)
	}
	o := r.Outcome
	subtitle := strings.Join([]string{
		fmt.Sprintf("Starting Price: %.4f", o.StartPrice),
		fmt.Sprintf("Expected Price: %.4f", o.ExpectedPrice),
		fmt.Sprintf("VaR %g: %.4f", o.Confidence*100, o.VaR),
	}, " | ")
	p, err := charts.BarRender([][]float64{values},
		charts.TitleTextOptionFunc("Distribution of Simulated Final Prices", subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, SplitNumber: splitNumber(len(labels))}),
		charts.YAxisOptionFunc(charts.YAxisOption{DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(width),
		charts.HeightOptionFunc(height),
	)
	if err != nil {
		return nil, fmt.Errorf("render histogram: %w", err)
	}
	return p.Bytes()
}

// MonteCarloCharts renders every Monte Carlo chart.
func MonteCarloCharts(r *analysis.MonteCarloReport, samplePaths, bins int) ([]Image, error) {
	paths, err := MonteCarloPaths(r, samplePaths)
	if err != nil {
		return nil, err
	}
	hist, err := FinalPriceHistogram(r, bins)
	if err != nil {
		return nil, err
	}
	prefix := fileSafe(r.Symbol)
	return []Image{
		{Name: prefix + "_mc_paths.png", Caption: r.Symbol + " simulated paths", PNG: paths},
		{Name: prefix + "_mc_final_prices.png", Caption: r.Symbol + " final price distribution", PNG: hist},
	}, nil
}

func fileSafe(symbol string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, symbol)
}
