package model

import "time"

// SignalSet holds the rolling means and crossover events for one price series.
// All slices are index-aligned with the series. Undefined rolling-mean
// entries (insufficient history) are NaN.
type SignalSet struct {
	ShortWindow int
	LongWindow  int
	ShortMA     []float64
	LongMA      []float64
	Buy         []bool
	Sell        []bool
}

func (s *SignalSet) Len() int { return len(s.Buy) }

// Action is what the backtest engine did at one step.
type Action string

const (
	ActionNone Action = "NONE"
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Trade is an executed state transition of the backtest engine.
type Trade struct {
	Index  int
	Date   time.Time
	Action Action
	Price  float64
	Shares float64
	Value  float64 // portfolio value right after the trade
}
