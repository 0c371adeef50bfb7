package telemetry

import (
	"time"

	"QuantLab/internal/analysis"
)

const (
	PipelineMonteCarlo = "montecarlo"
	PipelineBacktest   = "backtest"
)

// Recorder captures the outcome of each pipeline run.
type Recorder interface {
	RecordMonteCarlo(r *analysis.MonteCarloReport, elapsed time.Duration)
	RecordBacktest(r *analysis.BacktestReport, elapsed time.Duration)
	RecordFailure(pipeline string, elapsed time.Duration)
}

// NoopRecorder is used when no metrics address is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (NoopRecorder) RecordMonteCarlo(*analysis.MonteCarloReport, time.Duration) {}
func (NoopRecorder) RecordBacktest(*analysis.BacktestReport, time.Duration)     {}
func (NoopRecorder) RecordFailure(string, time.Duration)                        {}
