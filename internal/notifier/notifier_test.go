package notifier

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantLab/internal/analysis"
	"QuantLab/internal/backtest"
	"QuantLab/internal/calculator"
	"QuantLab/internal/model"
	"QuantLab/internal/performance"
	"QuantLab/internal/simulation"
)

type fakeBot struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	fail    int // number of Send calls to fail first
	updates chan tgbotapi.Update
	stopped bool
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail > 0 {
		f.fail--
		return tgbotapi.Message{}, errors.New("telegram down")
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeBot) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeBot) messages() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.sent...)
}

func noWait(int) time.Duration { return 0 }

func TestSend(t *testing.T) {
	bot := &fakeBot{}
	n := NewTelegramNotifierWithBot(bot, 42)
	require.NoError(t, n.Send("<b>hi</b>"))

	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "<b>hi</b>", msg.Text)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
}

func TestSendPhoto(t *testing.T) {
	bot := &fakeBot{}
	n := NewTelegramNotifierWithBot(bot, 7)
	require.NoError(t, n.SendPhoto("paths.png", []byte{0x89, 'P', 'N', 'G'}, "paths"))

	photo, ok := bot.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, "paths", photo.Caption)
	assert.Equal(t, tgbotapi.FileBytes{Name: "paths.png", Bytes: []byte{0x89, 'P', 'N', 'G'}}, photo.File)
}

func TestSendWithRetry(t *testing.T) {
	bot := &fakeBot{fail: 2}
	n := NewTelegramNotifierWithBot(bot, 1)
	n.Backoff = noWait
	require.NoError(t, n.SendWithRetry(context.Background(), "x", 3))
	assert.Len(t, bot.messages(), 1)

	bot = &fakeBot{fail: 10}
	n = NewTelegramNotifierWithBot(bot, 1)
	n.Backoff = noWait
	err := n.SendWithRetry(context.Background(), "x", 2)
	assert.ErrorContains(t, err, "all 3 attempts exhausted")
}

func TestSendWithRetry_ContextCancelled(t *testing.T) {
	n := NewTelegramNotifierWithBot(&fakeBot{fail: 10}, 1)
	n.Backoff = func(int) time.Duration { return time.Hour }
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.SendWithRetry(ctx, "x", 3), context.Canceled)
}

func TestStartPolling(t *testing.T) {
	bot := &fakeBot{updates: make(chan tgbotapi.Update, 3)}
	n := NewTelegramNotifierWithBot(bot, 99)

	bot.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Text: "/help", Chat: &tgbotapi.Chat{ID: 99}}}
	bot.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Text: "/help", Chat: &tgbotapi.Chat{ID: 5}}}
	bot.updates <- tgbotapi.Update{}
	close(bot.updates)

	var got []string
	n.StartPolling(context.Background(), func(_ context.Context, cmd string) string {
		got = append(got, cmd)
		return "reply to " + cmd
	})

	assert.Equal(t, []string{"/help"}, got)
	require.Len(t, bot.messages(), 1)
	assert.Equal(t, "reply to /help", bot.messages()[0].(tgbotapi.MessageConfig).Text)
	assert.True(t, bot.stopped)
}

func TestFormatMonteCarloReport(t *testing.T) {
	r := &analysis.MonteCarloReport{
		Symbol: "EURUSD=X",
		Start:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		AsOf:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		Stats:  calculator.ReturnStats{Observations: 1300},
		Range:  calculator.PriceRange{High: 1.12, Low: 1.02, Position: 0.64},
		Params: simulation.Params{S0: 1.0835, Mu: 0.0123, Sigma: 0.0712, Horizon: 1, Steps: 252, Paths: 10000},
		Outcome: simulation.Outcome{
			StartPrice: 1.0835, ExpectedPrice: 1.0969, MedianPrice: 1.0941, VaR: 0.9701, Confidence: 0.95,
			ProbLoss: 0.4312, ProbProfit: 0.5688, ProbGain: 0.2206, GainThreshold: 0.05,
		},
	}
	out := FormatMonteCarloReport(r)
	for _, want := range []string{
		"Initial Price: 1.0835",
		"52-Week Range: 1.0200 - 1.1200 (at 64%)",
		"Expected Price after 1 year: 1.0969",
		"VaR 95: 0.9701",
		"Probability of Loss: 43.12%",
		"Probability of Profit: 56.88%",
		"Probability of 5% Gain: 22.06%",
		"Annualized Drift (mu): 0.0123",
		"Annualized Volatility (sigma): 0.0712",
		"Paths: 10,000 x 252 steps",
	} {
		assert.Contains(t, out, want)
	}
}

func TestFormatBacktestReport(t *testing.T) {
	r := &analysis.BacktestReport{
		Symbol:  "AAPL",
		Signals: &model.SignalSet{ShortWindow: 20, LongWindow: 50},
		Strategy: performance.Summary{
			InitialCapital: 10000, FinalValue: 12345.678, TotalReturn: 0.2345678, Sharpe: 1.234, MaxDrawdown: -0.1,
		},
		Benchmark: performance.Summary{
			InitialCapital: 10000, FinalValue: 9000, TotalReturn: -0.1, Sharpe: math.NaN(), MaxDrawdown: -0.2,
		},
		TradeCount: 3,
	}
	out := FormatBacktestReport(r)
	for _, want := range []string{
		"BACKTEST RESULTS: 20/50 MA Crossover Strategy (AAPL)",
		"Initial Capital: $10,000.00",
		"Final Strategy Value: $12,345.68",
		"Final Buy & Hold Value: $9,000.00",
		"Strategy Total Return: 23.46%",
		"Buy & Hold Total Return: -10.00%",
		"Strategy Sharpe Ratio: 1.23",
		"Buy & Hold Sharpe Ratio: n/a",
		"Number of Trades: 3",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "NaN")
}

func TestFormatTradeLog(t *testing.T) {
	d := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	prices := []float64{100, 102, 104, 95, 90, 92}
	points := make([]model.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = model.PricePoint{Date: d.AddDate(0, 0, i), Price: p}
	}
	series, err := model.NewPriceSeries("AAPL", points)
	require.NoError(t, err)
	signals := &model.SignalSet{
		Buy:  []bool{false, true, true, false, false, false},
		Sell: []bool{false, false, false, true, false, true},
	}
	res, err := backtest.Run(series, signals, 10000)
	require.NoError(t, err)

	out := FormatTradeLog(&analysis.BacktestReport{Series: series, Signals: signals, Result: res})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.True(t, strings.HasPrefix(lines[3], "2023-03-02 | BUY "))
	assert.Contains(t, lines[3], "$10,000.00")
	assert.NotContains(t, lines[3], "ignored")
	assert.True(t, strings.HasPrefix(lines[4], "2023-03-03 | BUY "))
	assert.True(t, strings.HasSuffix(lines[4], "(ignored)"))
	assert.True(t, strings.HasPrefix(lines[5], "2023-03-04 | SELL"))
	assert.NotContains(t, lines[5], "ignored")
	assert.True(t, strings.HasPrefix(lines[6], "2023-03-06 | SELL"))
	assert.True(t, strings.HasSuffix(lines[6], "(ignored)"))

	empty := &analysis.BacktestReport{
		Series:  series,
		Signals: &model.SignalSet{Buy: make([]bool, len(prices)), Sell: make([]bool, len(prices))},
		Result:  res,
	}
	assert.Contains(t, FormatTradeLog(empty), "(no signals)")
}

func TestHTMLBlock(t *testing.T) {
	assert.Equal(t, "<b>A &amp; B</b>\n<pre>x &lt; y</pre>", HTMLBlock("A & B", "x < y"))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$1,234,567.89", money(1234567.891))
	assert.Equal(t, "-$50.00", money(-50))
}
