package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"QuantLab/internal/model"
)

// Fetcher downloads raw daily bars for a symbol between start and end
// inclusive. Bars may be unordered, duplicated, or contain null closes;
// Collector cleans them up.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error)
	Name() string
}

// Loader produces a validated daily close series.
type Loader interface {
	FetchDailyCloses(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error)
}

const defaultTimeout = 30 * time.Second

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
