package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func count(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

// risingThroughCross falls for 60 days, then rises steadily: the 20-day mean
// crosses above the 50-day mean exactly once and never crosses back.
func risingThroughCross() []float64 {
	prices := make([]float64, 0, 200)
	for i := 0; i < 60; i++ {
		prices = append(prices, 200-float64(i))
	}
	for i := 0; i < 140; i++ {
		prices = append(prices, 141+2*float64(i))
	}
	return prices
}

func TestGenerate_SingleGoldenCross(t *testing.T) {
	c, err := NewCrossover(20, 50)
	require.NoError(t, err)
	set, err := c.Generate(risingThroughCross())
	require.NoError(t, err)

	assert.Equal(t, 1, count(set.Buy))
	assert.Equal(t, 0, count(set.Sell))
	for i := range set.Buy {
		assert.False(t, set.Buy[i] && set.Sell[i], "index %d has both signals", i)
	}
}

func TestGenerate_CrossRule(t *testing.T) {
	// window 1 short mean is the price itself; window 2 long mean is the pair average.
	c := &Crossover{ShortWindow: 1, LongWindow: 2}
	set, err := c.Generate([]float64{10, 10, 12, 12, 9, 9})
	require.NoError(t, err)
	// long: NaN, 10, 11, 12, 10.5, 9
	// short > long at 2 (12 > 11), previous 10 <= 10 -> buy at 2
	// long > short at 4 (10.5 > 9), previous 12 <= 12 -> sell at 4
	assert.Equal(t, []bool{false, false, true, false, false, false}, set.Buy)
	assert.Equal(t, []bool{false, false, false, false, true, false}, set.Sell)
	assert.Len(t, set.ShortMA, 6)
	assert.Len(t, set.LongMA, 6)
}

func TestGenerate_UndefinedHistoryNeverSignals(t *testing.T) {
	c := &Crossover{ShortWindow: 2, LongWindow: 3}
	set, err := c.Generate([]float64{1, 5, 10, 10})
	require.NoError(t, err)
	// long defined from index 2; index 2 has no defined predecessor pair.
	assert.False(t, set.Buy[0] || set.Buy[1] || set.Buy[2])
	assert.False(t, set.Sell[0] || set.Sell[1] || set.Sell[2])
}

func TestGenerate_WindowsLongerThanHistory(t *testing.T) {
	c := &Crossover{ShortWindow: 20, LongWindow: 50}
	set, err := c.Generate([]float64{1, 2, 3, 4, 5})
	require.NoError(t, err)
	assert.Zero(t, count(set.Buy))
	assert.Zero(t, count(set.Sell))
}

func TestGenerate_EmptyInput(t *testing.T) {
	c := &Crossover{ShortWindow: 2, LongWindow: 3}
	set, err := c.Generate(nil)
	require.NoError(t, err)
	assert.Zero(t, set.Len())
}

func TestNewCrossover_Validation(t *testing.T) {
	_, err := NewCrossover(0, 50)
	assert.ErrorIs(t, err, ErrInvalidWindow)
	_, err = NewCrossover(50, 20)
	assert.ErrorIs(t, err, ErrWindowOrder)
	_, err = NewCrossover(20, 20)
	assert.ErrorIs(t, err, ErrWindowOrder)

	_, err = (&Crossover{ShortWindow: 5, LongWindow: 3}).Generate([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrWindowOrder)
}
