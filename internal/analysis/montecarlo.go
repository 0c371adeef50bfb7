package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"QuantLab/internal/calculator"
	"QuantLab/internal/collector"
	"QuantLab/internal/config"
	"QuantLab/internal/model"
	"QuantLab/internal/simulation"
)

// MonteCarloReport is the result of one forecasting run.
type MonteCarloReport struct {
	Symbol   string
	Start    time.Time
	End      time.Time
	AsOf     time.Time // date of the starting price
	Stats    calculator.ReturnStats
	Range    calculator.PriceRange // trailing 52-week range of closes
	Params   simulation.Params
	Outcome  simulation.Outcome
	Ensemble *model.Ensemble
	Times    []float64 // year offsets for each ensemble row
	Elapsed  time.Duration
}

// RunMonteCarlo loads history, estimates drift and volatility from log
// returns, and simulates GBM paths from the last observed price.
func RunMonteCarlo(ctx context.Context, loader collector.Loader, src simulation.NormalSource, cfg config.MonteCarlo, now time.Time) (*MonteCarloReport, error) {
	start, end, err := cfg.Window(now)
	if err != nil {
		return nil, err
	}
	series, err := loader.FetchDailyCloses(ctx, cfg.Ticker, start, end)
	if err != nil {
		return nil, err
	}

	stats, err := calculator.EstimateReturnStats(series.Prices(), cfg.TradingDays)
	if err != nil {
		return nil, fmt.Errorf("estimate %s: %w", cfg.Ticker, err)
	}
	rng, err := calculator.TrailingRange(series.Prices(), calculator.TradingDaysPerYear)
	if err != nil {
		return nil, fmt.Errorf("range %s: %w", cfg.Ticker, err)
	}
	if math.IsNaN(stats.AnnualVolatility) {
		return nil, fmt.Errorf("estimate %s: %w", cfg.Ticker, simulation.ErrUndefinedVolatility)
	}

	params := simulation.Params{
		S0:      series.Last().Price,
		Mu:      stats.AnnualDrift,
		Sigma:   stats.AnnualVolatility,
		Horizon: cfg.HorizonYears,
		Steps:   cfg.NSteps,
		Paths:   cfg.NSimulations,
	}
	log.Info().
		Str("symbol", cfg.Ticker).
		Float64("s0", params.S0).
		Float64("mu", params.Mu).
		Float64("sigma", params.Sigma).
		Int("paths", params.Paths).
		Int("steps", params.Steps).
		Msg("simulating GBM paths")

	began := time.Now()
	ensemble, err := simulation.NewSimulator(src, cfg.Workers).Simulate(params)
	if err != nil {
		return nil, fmt.Errorf("simulate %s: %w", cfg.Ticker, err)
	}

	outcome := simulation.Analyze(ensemble, params.S0, simulation.OutcomeOptions{
		Confidence:    cfg.Confidence,
		GainThreshold: cfg.GainThreshold,
	})

	return &MonteCarloReport{
		Symbol:   cfg.Ticker,
		Start:    start,
		End:      end,
		AsOf:     series.Last().Date,
		Stats:    stats,
		Range:    rng,
		Params:   params,
		Outcome:  outcome,
		Ensemble: ensemble,
		Times:    simulation.TimeGrid(params.Horizon, params.Steps),
		Elapsed:  time.Since(began),
	}, nil
}
