package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"QuantLab/internal/analysis"
	"QuantLab/internal/model"
	"QuantLab/internal/performance"
)

const rule = "=================================================="

// money formats v as a dollar amount with thousands separators.
func money(v float64) string {
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// ratio prints an undefined ratio as n/a.
func ratio(v float64) string {
	if performance.IsUndefined(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

func plural(v float64, unit string) string {
	if v == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%g %ss", v, unit)
}

// FormatMonteCarloReport renders the simulation summary as plain text.
func FormatMonteCarloReport(r *analysis.MonteCarloReport) string {
	var b strings.Builder
	o := r.Outcome
	fmt.Fprintf(&b, "== Monte Carlo Simulation Results: %s ==\n", r.Symbol)
	fmt.Fprintf(&b, "History: %s to %s (%d returns)\n",
		r.Start.Format(time.DateOnly), r.AsOf.Format(time.DateOnly), r.Stats.Observations)
	fmt.Fprintf(&b, "Paths: %s x %d steps\n", humanize.Comma(int64(r.Params.Paths)), r.Params.Steps)
	fmt.Fprintf(&b, "Initial Price: %.4f\n", o.StartPrice)
	fmt.Fprintf(&b, "52-Week Range: %.4f - %.4f (at %.0f%%)\n", r.Range.Low, r.Range.High, r.Range.Position*100)
	fmt.Fprintf(&b, "Expected Price after %s: %.4f\n", plural(r.Params.Horizon, "year"), o.ExpectedPrice)
	fmt.Fprintf(&b, "Median Price: %.4f\n", o.MedianPrice)
	fmt.Fprintf(&b, "VaR %g: %.4f\n", o.Confidence*100, o.VaR)
	fmt.Fprintf(&b, "Probability of Loss: %s\n", pct(o.ProbLoss))
	fmt.Fprintf(&b, "Probability of Profit: %s\n", pct(o.ProbProfit))
	fmt.Fprintf(&b, "Probability of %g%% Gain: %s\n", o.GainThreshold*100, pct(o.ProbGain))
	fmt.Fprintf(&b, "Annualized Drift (mu): %.4f\n", r.Params.Mu)
	fmt.Fprintf(&b, "Annualized Volatility (sigma): %.4f\n", r.Params.Sigma)
	b.WriteString(rule + "\n")
	return b.String()
}

// FormatBacktestReport renders the strategy vs buy-and-hold comparison.
func FormatBacktestReport(r *analysis.BacktestReport) string {
	var b strings.Builder
	s, h := r.Strategy, r.Benchmark
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "BACKTEST RESULTS: %d/%d MA Crossover Strategy (%s)\n",
		r.Signals.ShortWindow, r.Signals.LongWindow, r.Symbol)
	b.WriteString(rule + "\n")
	if r.Series != nil && r.Series.Len() > 0 {
		fmt.Fprintf(&b, "Period: %s to %s (%d days)\n",
			r.Series.First().Date.Format(time.DateOnly), r.Series.Last().Date.Format(time.DateOnly), r.Series.Len())
	}
	fmt.Fprintf(&b, "Initial Capital: %s\n", money(s.InitialCapital))
	fmt.Fprintf(&b, "Final Strategy Value: %s\n", money(s.FinalValue))
	fmt.Fprintf(&b, "Final Buy & Hold Value: %s\n", money(h.FinalValue))
	fmt.Fprintf(&b, "Strategy Total Return: %s\n", pct(s.TotalReturn))
	fmt.Fprintf(&b, "Buy & Hold Total Return: %s\n", pct(h.TotalReturn))
	fmt.Fprintf(&b, "Strategy Sharpe Ratio: %s\n", ratio(s.Sharpe))
	fmt.Fprintf(&b, "Buy & Hold Sharpe Ratio: %s\n", ratio(h.Sharpe))
	fmt.Fprintf(&b, "Strategy Max Drawdown: %s\n", pct(s.MaxDrawdown))
	fmt.Fprintf(&b, "Buy & Hold Max Drawdown: %s\n", pct(h.MaxDrawdown))
	fmt.Fprintf(&b, "Number of Trades: %d\n", r.TradeCount)
	b.WriteString(rule + "\n")
	return b.String()
}

// FormatTradeLog lists every buy and sell signal with the portfolio value on
// that date. Signals the engine did not act on are marked ignored.
func FormatTradeLog(r *analysis.BacktestReport) string {
	var b strings.Builder
	b.WriteString("TRADE LOG:\n")
	b.WriteString("Date       | Action | Price      | Portfolio Value\n")
	b.WriteString(strings.Repeat("-", 50) + "\n")

	executed := make(map[int]model.Action)
	if r.Result != nil {
		for _, t := range r.Result.Trades {
			executed[t.Index] = t.Action
		}
	}
	rows := 0
	if r.Series != nil && r.Signals != nil && r.Result != nil {
		n := min(r.Series.Len(), r.Signals.Len(), len(r.Result.Values))
		for i := 0; i < n; i++ {
			pt := r.Series.At(i)
			for _, a := range signalActions(r.Signals, i) {
				note := ""
				if executed[i] != a {
					note = " (ignored)"
				}
				fmt.Fprintf(&b, "%s | %-6s | $%-9.2f | %s%s\n",
					pt.Date.Format(time.DateOnly), a, pt.Price, money(r.Result.Values[i]), note)
				rows++
			}
		}
	}
	if rows == 0 {
		b.WriteString("(no signals)\n")
	}
	return b.String()
}

func signalActions(s *model.SignalSet, i int) []model.Action {
	var out []model.Action
	if s.Buy[i] {
		out = append(out, model.ActionBuy)
	}
	if s.Sell[i] {
		out = append(out, model.ActionSell)
	}
	return out
}

// HTMLBlock wraps plain text in a preformatted block for Telegram HTML mode.
func HTMLBlock(title, text string) string {
	return fmt.Sprintf("<b>%s</b>\n<pre>%s</pre>", html.EscapeString(title), html.EscapeString(text))
}
