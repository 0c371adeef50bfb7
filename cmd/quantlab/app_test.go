package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// barsServer serves a deterministic oscillating series for any symbol.
func barsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
		type bar struct {
			Timestamp int64   `json:"timestamp"`
			Close     float64 `json:"close"`
		}
		bars := make([]bar, 400)
		for i := range bars {
			bars[i] = bar{
				Timestamp: start.AddDate(0, 0, i).Unix(),
				Close:     150 + 20*math.Sin(float64(i)/15) + float64(i)/20,
			}
		}
		json.NewEncoder(w).Encode(bars)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := fmt.Sprintf(`
data_source:
  provider: rest
  base_url: %s
monte_carlo:
  n_simulations: 300
  n_steps: 20
log:
  level: error
  format: json
`, baseURL)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp(&out)
	app.ErrWriter = &bytes.Buffer{}
	err := app.Run(append([]string{"quantlab"}, args...))
	return out.String(), err
}

func TestBacktestCommand(t *testing.T) {
	cfg := writeConfig(t, barsServer(t).URL)
	charts := filepath.Join(t.TempDir(), "charts")

	out, err := run(t, "--config", cfg, "backtest", "--ticker", "MSFT", "--short", "10", "--long", "30",
		"--capital", "5000", "--trades", "--chart-dir", charts)
	require.NoError(t, err)

	assert.Contains(t, out, "BACKTEST RESULTS: 10/30 MA Crossover Strategy (MSFT)")
	assert.Contains(t, out, "Initial Capital: $5,000.00")
	assert.Contains(t, out, "TRADE LOG:")
	entries, err := os.ReadDir(charts)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestMonteCarloCommand(t *testing.T) {
	cfg := writeConfig(t, barsServer(t).URL)

	out1, err := run(t, "--config", cfg, "montecarlo", "--seed", "11")
	require.NoError(t, err)
	out2, err := run(t, "--config", cfg, "mc", "--seed", "11")
	require.NoError(t, err)

	assert.Contains(t, out1, "== Monte Carlo Simulation Results: EURUSD=X ==")
	assert.Contains(t, out1, "Paths: 300 x 20 steps")
	assert.Equal(t, out1, out2, "seeded runs are reproducible")
}

func TestInvalidOverrides(t *testing.T) {
	cfg := writeConfig(t, barsServer(t).URL)

	_, err := run(t, "--config", cfg, "backtest", "--short", "50", "--long", "20")
	assert.Error(t, err)

	_, err = run(t, "--config", cfg, "montecarlo", "--simulations", "0")
	assert.Error(t, err)
}

func TestNotifyRequiresTelegram(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	cfg := writeConfig(t, barsServer(t).URL)
	_, err := run(t, "--config", cfg, "backtest", "--notify")
	assert.ErrorContains(t, err, "--notify requires")
}
