package chart

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	charts "github.com/vicanso/go-charts/v2"

	"QuantLab/internal/analysis"
	"QuantLab/internal/performance"
)

func dateLabels(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(time.DateOnly)
	}
	return out
}

// signalMarkers keeps the price at each flagged index and NaN elsewhere, so
// the series renders as isolated markers on the price line.
func signalMarkers(prices []float64, flags []bool) []float64 {
	out := make([]float64, len(prices))
	for i := range out {
		out[i] = math.NaN()
		if i < len(flags) && flags[i] {
			out[i] = prices[i]
		}
	}
	return out
}

// PriceWithSignals plots closes, both moving averages and the buy and sell
// signals as markers on the price.
func PriceWithSignals(r *analysis.BacktestReport) ([]byte, error) {
	prices := r.Series.Prices()
	s := r.Signals
	lo, hi := bounds(prices, s.ShortMA, s.LongMA)
	names := []string{
		r.Symbol + " Closing prices",
		fmt.Sprintf("%d Day MA", s.ShortWindow),
		fmt.Sprintf("%d Day MA", s.LongWindow),
		"Buy Signal",
		"Sell Signal",
	}
	dates := r.Series.Dates()
	title := fmt.Sprintf("%s Closing prices %s to %s with %d&%d Day Moving Averages", r.Symbol,
		dates[0].Format(time.DateOnly), dates[len(dates)-1].Format(time.DateOnly), s.ShortWindow, s.LongWindow)
	subtitle := fmt.Sprintf("%d signals, %d executed trades", r.TradeCount, len(r.Result.Trades))
	return render(
		[][]float64{
			prices, nulls(s.ShortMA), nulls(s.LongMA),
			nulls(signalMarkers(prices, s.Buy)), nulls(signalMarkers(prices, s.Sell)),
		},
		names, dateLabels(dates), title, subtitle,
		charts.YAxisOption{Min: &lo, Max: &hi, DivideCount: 5},
	)
}

// PortfolioComparison plots strategy value against buy-and-hold.
func PortfolioComparison(r *analysis.BacktestReport) ([]byte, error) {
	lo, hi := bounds(r.Result.Values, r.BuyAndHold)
	title := fmt.Sprintf("Portfolio Value Comparison: %s Initial Investment", money(r.Strategy.InitialCapital))
	subtitle := fmt.Sprintf("Strategy %.2f%% | Buy & Hold %.2f%%", r.Strategy.TotalReturn*100, r.Benchmark.TotalReturn*100)
	return render(
		[][]float64{r.Result.Values, r.BuyAndHold},
		[]string{"MA Crossover Strategy", "Buy & Hold"},
		dateLabels(r.Series.Dates()), title, subtitle,
		charts.YAxisOption{Min: &lo, Max: &hi, DivideCount: 5},
	)
}

// DrawdownComparison plots both drawdown curves in percent.
func DrawdownComparison(r *analysis.BacktestReport) ([]byte, error) {
	strat := percent(performance.Drawdown(r.Result.Values))
	hold := percent(performance.Drawdown(r.BuyAndHold))
	lo, _ := bounds(strat, hold)
	top := 0.0
	subtitle := fmt.Sprintf("Max: strategy %.2f%% | buy & hold %.2f%%", r.Strategy.MaxDrawdown*100, r.Benchmark.MaxDrawdown*100)
	return render(
		[][]float64{strat, hold},
		[]string{"Strategy Drawdown", "Buy & Hold Drawdown"},
		dateLabels(r.Series.Dates()), "Maximum Drawdown Comparison", subtitle,
		charts.YAxisOption{Min: &lo, Max: &top, DivideCount: 5, Formatter: "{value}%"},
	)
}

// BacktestCharts renders every backtest chart.
func BacktestCharts(r *analysis.BacktestReport) ([]Image, error) {
	prefix := fileSafe(r.Symbol)
	plots := []struct {
		name, caption string
		fn            func(*analysis.BacktestReport) ([]byte, error)
	}{
		{prefix + "_bt_signals.png", r.Symbol + " prices and crossover signals", PriceWithSignals},
		{prefix + "_bt_portfolio.png", r.Symbol + " strategy vs buy & hold", PortfolioComparison},
		{prefix + "_bt_drawdown.png", r.Symbol + " drawdown", DrawdownComparison},
	}
	images := make([]Image, 0, len(plots))
	for _, s := range plots {
		png, err := s.fn(r)
		if err != nil {
			return nil, err
		}
		images = append(images, Image{Name: s.name, Caption: s.caption, PNG: png})
	}
	return images, nil
}

func percent(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * 100
	}
	return out
}

func money(v float64) string {
	return "$" + humanize.FormatFloat("#,###.", v)
}
