package strategy

import (
	"errors"
	"fmt"
	"math"

	"QuantLab/internal/calculator"
	"QuantLab/internal/model"
)

var (
	ErrInvalidWindow = errors.New("moving average window must be positive")
	ErrWindowOrder   = errors.New("short window must be shorter than long window")
)

// Crossover generates golden-cross / death-cross signals from two simple
// moving averages.
type Crossover struct {
	ShortWindow int
	LongWindow  int
}

// NewCrossover validates the windows.
func NewCrossover(short, long int) (*Crossover, error) {
	if short <= 0 || long <= 0 {
		return nil, fmt.Errorf("%w: short=%d long=%d", ErrInvalidWindow, short, long)
	}
	if short >= long {
		return nil, fmt.Errorf("%w: short=%d long=%d", ErrWindowOrder, short, long)
	}
	return &Crossover{ShortWindow: short, LongWindow: long}, nil
}

// Generate computes both rolling means and the crossover events.
// A buy fires at i when the short mean moves from <= long to > long between
// i-1 and i; a sell is the mirror image. Indices where any of the four
// means is undefined never fire, so windows longer than the history give
// no signals at all.
func (c *Crossover) Generate(prices []float64) (*model.SignalSet, error) {
	if _, err := NewCrossover(c.ShortWindow, c.LongWindow); err != nil {
		return nil, err
	}
	short := calculator.RollingSMA(prices, c.ShortWindow)
	long := calculator.RollingSMA(prices, c.LongWindow)

	set := &model.SignalSet{
		ShortWindow: c.ShortWindow,
		LongWindow:  c.LongWindow,
		ShortMA:     short,
		LongMA:      long,
		Buy:         make([]bool, len(prices)),
		Sell:        make([]bool, len(prices)),
	}
	for i := 1; i < len(prices); i++ {
		if anyNaN(short[i], long[i], short[i-1], long[i-1]) {
			continue
		}
		set.Buy[i] = short[i] > long[i] && short[i-1] <= long[i-1]
		set.Sell[i] = long[i] > short[i] && long[i-1] <= short[i-1]
	}
	return set, nil
}

func anyNaN(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
