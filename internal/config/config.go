package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DateLayout is the format of every date in the config file.
const DateLayout = time.DateOnly

var ErrInvalidWindow = errors.New("end date must be after start date")

type DataSource struct {
	Provider string        `yaml:"provider" default:"yahoo" validate:"oneof=yahoo rest"`
	BaseURL  string        `yaml:"base_url" validate:"required_if=Provider rest"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
}

// MonteCarlo configures the GBM forecasting pipeline.
type MonteCarlo struct {
	Ticker        string  `yaml:"ticker" default:"EURUSD=X" validate:"required"`
	StartDate     string  `yaml:"start_date"`
	EndDate       string  `yaml:"end_date"`
	LookbackYears int     `yaml:"lookback_years" default:"5" validate:"gte=1"`
	NSimulations  int     `yaml:"n_simulations" default:"10000" validate:"gte=1"`
	HorizonYears  float64 `yaml:"horizon_years" default:"1" validate:"gt=0"`
	NSteps        int     `yaml:"n_steps" default:"252" validate:"gte=1"`
	TradingDays   int     `yaml:"trading_days" default:"252" validate:"gte=1"`
	Confidence    float64 `yaml:"confidence" default:"0.95" validate:"gt=0,lt=1"`
	GainThreshold float64 `yaml:"gain_threshold" default:"0.05" validate:"gte=0"`
	Seed          uint64  `yaml:"seed"` // 0 seeds from the clock
	Workers       int     `yaml:"workers" validate:"gte=0"`
}

// Window resolves the history window. An empty end means now; an empty
// start means LookbackYears before the end.
func (m MonteCarlo) Window(now time.Time) (time.Time, time.Time, error) {
	end, err := parseDate(m.EndDate, now)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("monte_carlo.end_date: %w", err)
	}
	start, err := parseDate(m.StartDate, end.AddDate(-m.LookbackYears, 0, 0))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("monte_carlo.start_date: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, ErrInvalidWindow
	}
	return start, end, nil
}

// Backtest configures the moving-average crossover pipeline.
type Backtest struct {
	Ticker         string  `yaml:"ticker" default:"AAPL" validate:"required"`
	StartDate      string  `yaml:"start_date" default:"2023-01-01" validate:"required"`
	EndDate        string  `yaml:"end_date"`
	ShortWindow    int     `yaml:"short_window" default:"20" validate:"gte=1"`
	LongWindow     int     `yaml:"long_window" default:"50" validate:"gtfield=ShortWindow"`
	InitialCapital float64 `yaml:"initial_capital" default:"10000" validate:"gt=0"`
	TradingDays    int     `yaml:"trading_days" default:"252" validate:"gte=1"`
	Adjusted       bool    `yaml:"adjusted" default:"true"`
}

func (b Backtest) Window(now time.Time) (time.Time, time.Time, error) {
	end, err := parseDate(b.EndDate, now)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest.end_date: %w", err)
	}
	start, err := parseDate(b.StartDate, time.Time{})
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest.start_date: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, ErrInvalidWindow
	}
	return start, end, nil
}

func parseDate(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

type Report struct {
	ChartDir      string `yaml:"chart_dir"`
	SamplePaths   int    `yaml:"sample_paths" default:"50" validate:"gte=0"`
	HistogramBins int    `yaml:"histogram_bins" default:"50" validate:"gte=1"`
}

type Telegram struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// Enabled reports whether both credentials are present.
func (t Telegram) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

type Schedule struct {
	MonteCarloCron string `yaml:"montecarlo_cron" default:"0 0 22 * * 1-5"`
	BacktestCron   string `yaml:"backtest_cron" default:"0 30 22 * * 1-5"`
}

type Log struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
}

// Config holds all application configuration.
type Config struct {
	DataSource DataSource `yaml:"data_source"`
	Proxy      string     `yaml:"proxy"`
	MonteCarlo MonteCarlo `yaml:"monte_carlo"`
	Backtest   Backtest   `yaml:"backtest"`
	Report     Report     `yaml:"report"`
	Telegram   Telegram   `yaml:"telegram"`
	Schedule   Schedule   `yaml:"schedule"`
	Log        Log        `yaml:"log"`
	Metrics    struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// Default returns a config populated from struct-tag defaults only.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Load applies defaults, then the YAML file, then environment variable
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("MC_TICKER"); v != "" {
		cfg.MonteCarlo.Ticker = v
	}
	if v := os.Getenv("BT_TICKER"); v != "" {
		cfg.Backtest.Ticker = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and the date windows.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	now := time.Now()
	if _, _, err := c.MonteCarlo.Window(now); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, _, err := c.Backtest.Window(now); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Telegram.ChatID != "" {
		if _, err := strconv.ParseInt(c.Telegram.ChatID, 10, 64); err != nil {
			return fmt.Errorf("telegram.chat_id must be numeric: %w", err)
		}
	}
	return nil
}
