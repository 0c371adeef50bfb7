package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestNewPriceSeries_Valid(t *testing.T) {
	s, err := NewPriceSeries("AAPL", []PricePoint{{day(0), 100}, {day(1), 101}, {day(3), 99}})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{100, 101, 99}, s.Prices())
	assert.Equal(t, 99.0, s.Last().Price)
	assert.Equal(t, day(0), s.First().Date)
}

func TestNewPriceSeries_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		points []PricePoint
		want   error
	}{
		{"empty", nil, ErrEmptySeries},
		{"zero price", []PricePoint{{day(0), 0}}, ErrNonPositivePrice},
		{"negative price", []PricePoint{{day(0), 1}, {day(1), -2}}, ErrNonPositivePrice},
		{"duplicate date", []PricePoint{{day(0), 1}, {day(0), 2}}, ErrUnorderedDates},
		{"descending", []PricePoint{{day(2), 1}, {day(1), 2}}, ErrUnorderedDates},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPriceSeries("X", tt.points)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPriceSeries_AccessorsCopy(t *testing.T) {
	s, err := NewPriceSeries("X", []PricePoint{{day(0), 10}, {day(1), 11}})
	require.NoError(t, err)
	p := s.Prices()
	p[0] = 999
	assert.Equal(t, 10.0, s.At(0).Price)
}

func TestSeriesFromBars_Adjusted(t *testing.T) {
	bars := []OHLCV{
		{Time: day(0), Close: 10, AdjClose: 9.5},
		{Time: day(1), Close: 11},
	}
	s, err := SeriesFromBars("X", bars, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{9.5, 11}, s.Prices())

	s, err = SeriesFromBars("X", bars, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11}, s.Prices())
}

func TestEnsemble_Layout(t *testing.T) {
	e := NewEnsemble(2, 3)
	for step := 0; step <= 2; step++ {
		row := e.Row(step)
		for p := range row {
			row[p] = float64(step*10 + p)
		}
	}
	assert.Equal(t, 12.0, e.At(1, 2))
	assert.Equal(t, []float64{1, 11, 21}, e.Path(1))
	assert.Equal(t, []float64{20, 21, 22}, e.FinalPrices())
}

func TestPortfolioState_Value(t *testing.T) {
	flat := NewPortfolioState(1000)
	assert.Equal(t, PositionFlat, flat.Position())
	assert.Equal(t, 1000.0, flat.Value(50))

	inv := PortfolioState{Shares: 4, InPosition: true}
	assert.Equal(t, PositionInvested, inv.Position())
	assert.Equal(t, 200.0, inv.Value(50))
}
