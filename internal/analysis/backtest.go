package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"QuantLab/internal/backtest"
	"QuantLab/internal/collector"
	"QuantLab/internal/config"
	"QuantLab/internal/model"
	"QuantLab/internal/performance"
	"QuantLab/internal/strategy"
)

// BacktestReport compares the crossover strategy against buy-and-hold.
type BacktestReport struct {
	Symbol     string
	Series     *model.PriceSeries
	Signals    *model.SignalSet
	Result     *backtest.Result
	BuyAndHold []float64
	Strategy   performance.Summary
	Benchmark  performance.Summary
	TradeCount int
}

// RunBacktest loads closes, generates crossover signals, runs the state
// machine and summarizes both the strategy and the benchmark.
func RunBacktest(ctx context.Context, loader collector.Loader, cfg config.Backtest, now time.Time) (*BacktestReport, error) {
	crossover, err := strategy.NewCrossover(cfg.ShortWindow, cfg.LongWindow)
	if err != nil {
		return nil, err
	}
	start, end, err := cfg.Window(now)
	if err != nil {
		return nil, err
	}
	series, err := loader.FetchDailyCloses(ctx, cfg.Ticker, start, end)
	if err != nil {
		return nil, err
	}

	prices := series.Prices()
	signals, err := crossover.Generate(prices)
	if err != nil {
		return nil, err
	}
	if series.Len() < cfg.LongWindow+1 {
		log.Warn().
			Str("symbol", cfg.Ticker).
			Int("points", series.Len()).
			Int("long_window", cfg.LongWindow).
			Msg("history shorter than long window, no signals possible")
	}

	result, err := backtest.Run(series, signals, cfg.InitialCapital)
	if err != nil {
		return nil, err
	}
	hold := backtest.BuyAndHold(prices, cfg.InitialCapital)

	report := &BacktestReport{
		Symbol:     cfg.Ticker,
		Series:     series,
		Signals:    signals,
		Result:     result,
		BuyAndHold: hold,
		Strategy:   performance.Summarize(result.Values, cfg.InitialCapital, cfg.TradingDays),
		Benchmark:  performance.Summarize(hold, cfg.InitialCapital, cfg.TradingDays),
		TradeCount: performance.TradeCount(signals),
	}
	if performance.IsUndefined(report.Strategy.Sharpe) {
		log.Warn().Str("symbol", cfg.Ticker).Err(performance.ErrDegenerateVolatility).Msg("strategy sharpe ratio undefined")
	}
	if performance.IsUndefined(report.Benchmark.Sharpe) {
		log.Warn().Str("symbol", cfg.Ticker).Err(performance.ErrDegenerateVolatility).Msg("buy-and-hold sharpe ratio undefined")
	}
	log.Info().
		Str("symbol", cfg.Ticker).
		Int("points", series.Len()).
		Int("trades", report.TradeCount).
		Float64("strategy_return", report.Strategy.TotalReturn).
		Float64("benchmark_return", report.Benchmark.TotalReturn).
		Msg("backtest complete")
	return report, nil
}
