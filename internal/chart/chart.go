package chart

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	charts "github.com/vicanso/go-charts/v2"
)

const (
	width  = 1000
	height = 600
)

// Image is one rendered PNG chart.
type Image struct {
	Name    string
	Caption string
	PNG     []byte
}

// WriteAll writes every image into dir, creating it if needed.
func WriteAll(dir string, images []Image) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	for _, img := range images {
		path := filepath.Join(dir, img.Name)
		if err := os.WriteFile(path, img.PNG, 0o644); err != nil {
			return fmt.Errorf("write chart %s: %w", img.Name, err)
		}
		log.Info().Str("path", path).Msg("chart written")
	}
	return nil
}

// bounds returns a padded y-axis range over all finite values.
func bounds(series ...[]float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Abs(hi) * 0.05
	}
	if pad == 0 {
		pad = 1
	}
	return lo - pad, hi + pad
}

// nulls replaces NaN with the renderer's null marker so gaps are skipped.
func nulls(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = charts.GetNullValue()
			continue
		}
		out[i] = v
	}
	return out
}

func splitNumber(n int) int {
	if n <= 30 {
		return max(n/3, 3)
	}
	return 10
}

// render draws line series against the given y axes.
func render(series [][]float64, names []string, xLabels []string, title, subtitle string, y ...charts.YAxisOption) ([]byte, error) {
	list := charts.NewSeriesListDataFromValues(series, charts.ChartTypeLine)
	for i := range list {
		if i < len(names) {
			list[i].Name = names[i]
		}
	}
	opts := []charts.OptionFunc{
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels, BoundaryGap: charts.FalseFlag(), SplitNumber: splitNumber(len(xLabels))}),
		charts.YAxisOptionFunc(y...),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(width),
		charts.HeightOptionFunc(height),
	}
	if len(names) > 0 {
		opts = append(opts, charts.LegendOptionFunc(charts.LegendOption{Data: names, Top: charts.PositionBottom}))
	}
	p, err := charts.Render(charts.ChartOption{SeriesList: list}, opts...)
	if err != nil {
		return nil, fmt.Errorf("render %q: %w", title, err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", title, err)
	}
	return buf, nil
}
