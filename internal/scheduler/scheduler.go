package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"QuantLab/internal/analysis"
	"QuantLab/internal/chart"
	"QuantLab/internal/collector"
	"QuantLab/internal/config"
	"QuantLab/internal/notifier"
	"QuantLab/internal/simulation"
	"QuantLab/internal/telemetry"
)

const (
	JobMonteCarlo = "montecarlo"
	JobBacktest   = "backtest"

	sendRetries = 3
)

var ErrUnknownJob = errors.New("unknown job")

// Notifier delivers reports. *notifier.TelegramNotifier satisfies it.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
	SendPhoto(name string, png []byte, caption string) error
}

// Scheduler runs both pipelines on cron and on demand.
type Scheduler struct {
	Cron     *cron.Cron
	Loader   collector.Loader
	Config   *config.Config
	Notifier Notifier // nil disables delivery
	Recorder telemetry.Recorder
	Ctx      context.Context

	// NewSource returns the normal source for one Monte Carlo run.
	NewSource func(seed uint64) simulation.NormalSource
	Now       func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, loader collector.Loader, cfg *config.Config, n Notifier, rec telemetry.Recorder) *Scheduler {
	if rec == nil {
		rec = telemetry.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		Loader:   loader,
		Config:   cfg,
		Notifier: n,
		Recorder: rec,
		Ctx:      ctx,
		NewSource: func(seed uint64) simulation.NormalSource {
			return simulation.NewRandSource(seed)
		},
		Now: time.Now,
	}
}

// RegisterAll registers the Monte Carlo and backtest jobs.
func (s *Scheduler) RegisterAll(monteCarloCron, backtestCron string) error {
	if _, err := s.Cron.AddFunc(monteCarloCron, func() { s.runJob(JobMonteCarlo, "") }); err != nil {
		return fmt.Errorf("register montecarlo task: %w", err)
	}
	if _, err := s.Cron.AddFunc(backtestCron, func() { s.runJob(JobBacktest, "") }); err != nil {
		return fmt.Errorf("register backtest task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes a job immediately.
func (s *Scheduler) RunNow(job string) error {
	return s.runJob(job, "")
}

func (s *Scheduler) runJob(job, ticker string) error {
	switch job {
	case JobMonteCarlo:
		return s.monteCarloTask(ticker)
	case JobBacktest:
		return s.backtestTask(ticker)
	}
	return fmt.Errorf("%w: %q", ErrUnknownJob, job)
}

func (s *Scheduler) monteCarloTask(ticker string) error {
	cfg := s.Config.MonteCarlo
	if ticker != "" {
		cfg.Ticker = ticker
	}
	log.Info().Str("symbol", cfg.Ticker).Msg("running montecarlo task")

	began := time.Now()
	report, err := analysis.RunMonteCarlo(s.Ctx, s.Loader, s.NewSource(cfg.Seed), cfg, s.Now())
	if err != nil {
		s.Recorder.RecordFailure(telemetry.PipelineMonteCarlo, time.Since(began))
		log.Error().Err(err).Str("symbol", cfg.Ticker).Msg("montecarlo task failed")
		s.trySend(html.EscapeString(fmt.Sprintf("❌ Monte Carlo %s failed: %v", cfg.Ticker, err)))
		return err
	}
	s.Recorder.RecordMonteCarlo(report, time.Since(began))

	s.trySend(notifier.HTMLBlock("Monte Carlo | "+report.Symbol, notifier.FormatMonteCarloReport(report)))
	images, err := chart.MonteCarloCharts(report, s.Config.Report.SamplePaths, s.Config.Report.HistogramBins)
	if err != nil {
		log.Error().Err(err).Msg("render montecarlo charts")
		return nil
	}
	s.deliverCharts(images)
	return nil
}

func (s *Scheduler) backtestTask(ticker string) error {
	cfg := s.Config.Backtest
	if ticker != "" {
		cfg.Ticker = ticker
	}
	log.Info().Str("symbol", cfg.Ticker).Msg("running backtest task")

	began := time.Now()
	report, err := analysis.RunBacktest(s.Ctx, s.Loader, cfg, s.Now())
	if err != nil {
		s.Recorder.RecordFailure(telemetry.PipelineBacktest, time.Since(began))
		log.Error().Err(err).Str("symbol", cfg.Ticker).Msg("backtest task failed")
		s.trySend(html.EscapeString(fmt.Sprintf("❌ Backtest %s failed: %v", cfg.Ticker, err)))
		return err
	}
	s.Recorder.RecordBacktest(report, time.Since(began))

	text := notifier.FormatBacktestReport(report) + "\n" + notifier.FormatTradeLog(report)
	s.trySend(notifier.HTMLBlock("Backtest | "+report.Symbol, text))
	images, err := chart.BacktestCharts(report)
	if err != nil {
		log.Error().Err(err).Msg("render backtest charts")
		return nil
	}
	s.deliverCharts(images)
	return nil
}

func (s *Scheduler) deliverCharts(images []chart.Image) {
	if dir := s.Config.Report.ChartDir; dir != "" {
		if err := chart.WriteAll(dir, images); err != nil {
			log.Error().Err(err).Msg("write charts")
		}
	}
	if s.Notifier == nil {
		return
	}
	for _, img := range images {
		if err := s.Notifier.SendPhoto(img.Name, img.PNG, img.Caption); err != nil {
			log.Error().Err(err).Str("chart", img.Name).Msg("send chart")
		}
	}
}

const helpText = `Available commands:
/montecarlo [TICKER] - GBM forecast (default from config)
/backtest [TICKER] - MA crossover backtest
/help - this message`

// HandleCommand processes a user command and returns a reply. Pipeline
// commands deliver their own reports and reply with nothing.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// Commands may arrive as /cmd@botname in groups.
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	ticker := ""
	if len(fields) > 1 {
		ticker = strings.ToUpper(fields[1])
	}
	switch name {
	case "/montecarlo", "/mc":
		s.runJob(JobMonteCarlo, ticker)
		return ""
	case "/backtest", "/bt":
		s.runJob(JobBacktest, ticker)
		return ""
	default:
		return helpText
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
