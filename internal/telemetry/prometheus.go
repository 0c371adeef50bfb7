package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"QuantLab/internal/analysis"
	"QuantLab/internal/performance"
)

// PrometheusRecorder implements Recorder on its own registry.
type PrometheusRecorder struct {
	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	valueAtRisk *prometheus.GaugeVec
	totalReturn *prometheus.GaugeVec
	sharpe      *prometheus.GaugeVec
}

// NewPrometheusRecorder creates a recorder with all metrics registered.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		registry: reg,
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantlab_runs_total",
				Help: "Total number of pipeline runs",
			},
			[]string{"pipeline"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantlab_run_failures_total",
				Help: "Total number of failed pipeline runs",
			},
			[]string{"pipeline"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantlab_run_duration_seconds",
				Help:    "Duration of pipeline runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"pipeline"},
		),
		valueAtRisk: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantlab_montecarlo_var",
				Help: "Latest simulated value at risk (final price percentile)",
			},
			[]string{"symbol"},
		),
		totalReturn: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantlab_backtest_total_return",
				Help: "Latest backtest total return",
			},
			[]string{"symbol", "series"},
		),
		sharpe: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantlab_backtest_sharpe_ratio",
				Help: "Latest backtest Sharpe ratio; absent when undefined",
			},
			[]string{"symbol", "series"},
		),
	}
}

func (p *PrometheusRecorder) observe(pipeline string, elapsed time.Duration) {
	p.runs.WithLabelValues(pipeline).Inc()
	p.duration.WithLabelValues(pipeline).Observe(elapsed.Seconds())
}

func (p *PrometheusRecorder) RecordMonteCarlo(r *analysis.MonteCarloReport, elapsed time.Duration) {
	p.observe(PipelineMonteCarlo, elapsed)
	p.valueAtRisk.WithLabelValues(r.Symbol).Set(r.Outcome.VaR)
}

func (p *PrometheusRecorder) RecordBacktest(r *analysis.BacktestReport, elapsed time.Duration) {
	p.observe(PipelineBacktest, elapsed)
	p.totalReturn.WithLabelValues(r.Symbol, "strategy").Set(r.Strategy.TotalReturn)
	p.totalReturn.WithLabelValues(r.Symbol, "buy_and_hold").Set(r.Benchmark.TotalReturn)
	p.setSharpe(r.Symbol, "strategy", r.Strategy.Sharpe)
	p.setSharpe(r.Symbol, "buy_and_hold", r.Benchmark.Sharpe)
}

func (p *PrometheusRecorder) setSharpe(symbol, series string, v float64) {
	if performance.IsUndefined(v) {
		p.sharpe.DeleteLabelValues(symbol, series)
		return
	}
	p.sharpe.WithLabelValues(symbol, series).Set(v)
}

func (p *PrometheusRecorder) RecordFailure(pipeline string, elapsed time.Duration) {
	p.observe(pipeline, elapsed)
	p.failures.WithLabelValues(pipeline).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Serve runs a /metrics endpoint on addr until ctx is cancelled.
func (p *PrometheusRecorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	shutdown := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdown <- srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdown; err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("metrics server shutdown")
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	log.Info().Str("addr", addr).Msg("metrics server stopped")
	return nil
}
