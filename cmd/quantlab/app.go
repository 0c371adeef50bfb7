package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"QuantLab/internal/analysis"
	"QuantLab/internal/chart"
	"QuantLab/internal/collector"
	"QuantLab/internal/config"
	"QuantLab/internal/logger"
	"QuantLab/internal/notifier"
	"QuantLab/internal/scheduler"
	"QuantLab/internal/simulation"
	"QuantLab/internal/telemetry"
)

const defaultConfigPath = "configs/config.yaml"

func newApp(out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "quantlab"
	app.Usage = "Monte Carlo price forecasting and moving-average crossover backtesting"
	app.Writer = out
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   defaultConfigPath,
			Usage:   "path to the YAML config file",
			EnvVars: []string{"CONFIG_PATH"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "override log.level (debug, info, warn, error)",
		},
	}
	app.Commands = []*cli.Command{
		monteCarloCommand,
		backtestCommand,
		scheduleCommand,
	}
	return app
}

func tickerFlag() cli.Flag {
	return &cli.StringFlag{Name: "ticker", Aliases: []string{"t"}, Usage: "symbol to analyse"}
}

func chartFlag() cli.Flag {
	return &cli.StringFlag{Name: "chart-dir", Usage: "write PNG charts into this directory"}
}

func notifyFlag() cli.Flag {
	return &cli.BoolFlag{Name: "notify", Usage: "send the report and charts to Telegram"}
}

var monteCarloCommand = &cli.Command{
	Name:    "montecarlo",
	Aliases: []string{"mc"},
	Usage:   "simulate GBM price paths from historical drift and volatility",
	Flags: []cli.Flag{
		tickerFlag(),
		&cli.IntFlag{Name: "simulations", Aliases: []string{"n"}, Usage: "number of simulated paths"},
		&cli.Uint64Flag{Name: "seed", Usage: "random seed (0 = time based)"},
		chartFlag(),
		notifyFlag(),
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c, func(cfg *config.Config) {
			if v := c.String("ticker"); v != "" {
				cfg.MonteCarlo.Ticker = v
			}
			if c.IsSet("simulations") {
				cfg.MonteCarlo.NSimulations = c.Int("simulations")
			}
			if c.IsSet("seed") {
				cfg.MonteCarlo.Seed = c.Uint64("seed")
			}
		})
		if err != nil {
			return err
		}
		report, err := analysis.RunMonteCarlo(c.Context, newLoader(cfg), simulation.NewRandSource(cfg.MonteCarlo.Seed), cfg.MonteCarlo, time.Now())
		if err != nil {
			return err
		}
		text := notifier.FormatMonteCarloReport(report)
		fmt.Fprint(c.App.Writer, text)

		var images []chart.Image
		if cfg.Report.ChartDir != "" || c.Bool("notify") {
			if images, err = chart.MonteCarloCharts(report, cfg.Report.SamplePaths, cfg.Report.HistogramBins); err != nil {
				return err
			}
		}
		return publish(c, cfg, "Monte Carlo | "+report.Symbol, text, images)
	},
}

var backtestCommand = &cli.Command{
	Name:    "backtest",
	Aliases: []string{"bt"},
	Usage:   "backtest a moving-average crossover strategy against buy-and-hold",
	Flags: []cli.Flag{
		tickerFlag(),
		&cli.IntFlag{Name: "short", Usage: "short moving-average window"},
		&cli.IntFlag{Name: "long", Usage: "long moving-average window"},
		&cli.Float64Flag{Name: "capital", Usage: "initial capital"},
		&cli.BoolFlag{Name: "trades", Usage: "print the trade log"},
		chartFlag(),
		notifyFlag(),
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c, func(cfg *config.Config) {
			if v := c.String("ticker"); v != "" {
				cfg.Backtest.Ticker = v
			}
			if c.IsSet("short") {
				cfg.Backtest.ShortWindow = c.Int("short")
			}
			if c.IsSet("long") {
				cfg.Backtest.LongWindow = c.Int("long")
			}
			if c.IsSet("capital") {
				cfg.Backtest.InitialCapital = c.Float64("capital")
			}
		})
		if err != nil {
			return err
		}
		report, err := analysis.RunBacktest(c.Context, newLoader(cfg), cfg.Backtest, time.Now())
		if err != nil {
			return err
		}
		text := notifier.FormatBacktestReport(report)
		if c.Bool("trades") {
			text += "\n" + notifier.FormatTradeLog(report)
		}
		fmt.Fprint(c.App.Writer, text)

		var images []chart.Image
		if cfg.Report.ChartDir != "" || c.Bool("notify") {
			if images, err = chart.BacktestCharts(report); err != nil {
				return err
			}
		}
		return publish(c, cfg, "Backtest | "+report.Symbol, text, images)
	},
}

var scheduleCommand = &cli.Command{
	Name:  "schedule",
	Usage: "run both pipelines on their cron schedules and serve Telegram commands",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "run-on-start", Usage: "run both jobs once at startup", EnvVars: []string{"RUN_ON_START"}},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c, nil)
		if err != nil {
			return err
		}
		ctx := c.Context

		var tn *notifier.TelegramNotifier
		var sink scheduler.Notifier
		if cfg.Telegram.Enabled() {
			if tn, err = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy); err != nil {
				return err
			}
			sink = tn
		} else {
			log.Warn().Msg("telegram not configured, reports are only logged")
		}

		var rec telemetry.Recorder = telemetry.NewNoopRecorder()
		g, ctx := errgroup.WithContext(ctx)
		if cfg.Metrics.Addr != "" {
			prom := telemetry.NewPrometheusRecorder()
			rec = prom
			g.Go(func() error { return prom.Serve(ctx, cfg.Metrics.Addr) })
		}

		sched := scheduler.NewScheduler(ctx, newLoader(cfg), cfg, sink, rec)
		if err := sched.RegisterAll(cfg.Schedule.MonteCarloCron, cfg.Schedule.BacktestCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		if tn != nil {
			g.Go(func() error {
				tn.StartPolling(ctx, sched.HandleCommand)
				return nil
			})
		}
		if c.Bool("run-on-start") {
			log.Info().Msg("run-on-start enabled, executing both jobs now")
			g.Go(func() error {
				sched.RunNow(scheduler.JobMonteCarlo)
				sched.RunNow(scheduler.JobBacktest)
				return nil
			})
		}

		log.Info().Msg("quantlab is running, press Ctrl+C to stop")
		<-ctx.Done()
		log.Info().Msg("shutdown signal received, stopping")
		return g.Wait()
	},
}

// loadConfig reads the config file, applies command-line overrides,
// validates, and initializes logging.
func loadConfig(c *cli.Context, override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if v := c.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if c.IsSet("chart-dir") {
		cfg.Report.ChartDir = c.String("chart-dir")
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, c.App.ErrWriter); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLoader(cfg *config.Config) collector.Loader {
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "rest":
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.DataSource.Timeout)
	default:
		yf := collector.NewYahooFetcher(cfg.Proxy, cfg.DataSource.Timeout)
		if cfg.DataSource.BaseURL != "" {
			yf.BaseURL = cfg.DataSource.BaseURL
		}
		fetcher = yf
	}
	log.Debug().Str("source", fetcher.Name()).Msg("data source selected")
	return collector.NewCollector(fetcher, cfg.Backtest.Adjusted)
}

// publish writes charts and, when requested, sends everything to Telegram.
func publish(c *cli.Context, cfg *config.Config, title, text string, images []chart.Image) error {
	if cfg.Report.ChartDir != "" {
		if err := chart.WriteAll(cfg.Report.ChartDir, images); err != nil {
			return err
		}
	}
	if !c.Bool("notify") {
		return nil
	}
	if !cfg.Telegram.Enabled() {
		return fmt.Errorf("--notify requires telegram.bot_token and telegram.chat_id")
	}
	tn, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	if err != nil {
		return err
	}
	return sendAll(c.Context, tn, title, text, images)
}

func sendAll(ctx context.Context, n scheduler.Notifier, title, text string, images []chart.Image) error {
	if err := n.SendWithRetry(ctx, notifier.HTMLBlock(title, text), 3); err != nil {
		return err
	}
	for _, img := range images {
		if err := n.SendPhoto(img.Name, img.PNG, img.Caption); err != nil {
			return err
		}
	}
	return nil
}
