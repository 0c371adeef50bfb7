package backtest

import (
	"errors"
	"fmt"

	"QuantLab/internal/model"
)

var (
	ErrNonPositiveCapital = errors.New("initial capital must be positive")
	ErrLengthMismatch     = errors.New("signals and prices must have the same length")
)

// Step advances the portfolio by one time step. It is pure: the returned
// state is a new value and the input is untouched.
//
// A buy signal is checked before a sell signal, so if both were set on the
// same step only the buy could fire. The crossover generator never sets
// both.
func Step(state model.PortfolioState, buy, sell bool, price float64) (model.PortfolioState, model.Action) {
	switch {
	case buy && !state.InPosition:
		return model.PortfolioState{Shares: state.Cash / price, InPosition: true}, model.ActionBuy
	case sell && state.InPosition:
		return model.PortfolioState{Cash: state.Shares * price}, model.ActionSell
	}
	return state, model.ActionNone
}

// Result holds the output of one backtest run.
type Result struct {
	InitialCapital float64
	Values         []float64 // mark-to-market value per date
	Trades         []model.Trade
	Final          model.PortfolioState
}

// FinalValue is the last mark-to-market value.
func (r *Result) FinalValue() float64 {
	return r.Values[len(r.Values)-1]
}

// Run drives the FLAT/INVESTED state machine over the series. The value at
// index 0 is the initial capital; signals are evaluated from index 1.
func Run(series *model.PriceSeries, signals *model.SignalSet, initialCapital float64) (*Result, error) {
	if series == nil || series.Len() == 0 {
		return nil, model.ErrEmptySeries
	}
	if !(initialCapital > 0) {
		return nil, fmt.Errorf("%w: %v", ErrNonPositiveCapital, initialCapital)
	}
	n := series.Len()
	if signals == nil || len(signals.Buy) != n || len(signals.Sell) != n {
		return nil, fmt.Errorf("%w: %d prices", ErrLengthMismatch, n)
	}

	state := model.NewPortfolioState(initialCapital)
	res := &Result{
		InitialCapital: initialCapital,
		Values:         make([]float64, n),
	}
	res.Values[0] = initialCapital

	for i := 1; i < n; i++ {
		pt := series.At(i)
		prev := state
		var action model.Action
		state, action = Step(state, signals.Buy[i], signals.Sell[i], pt.Price)
		res.Values[i] = state.Value(pt.Price)
		if action != model.ActionNone {
			res.Trades = append(res.Trades, model.Trade{
				Index:  i,
				Date:   pt.Date,
				Action: action,
				Price:  pt.Price,
				Shares: prev.Shares + state.Shares, // one side is always zero
				Value:  res.Values[i],
			})
		}
	}
	res.Final = state
	return res, nil
}

// BuyAndHold invests everything at the first price and holds to the end.
func BuyAndHold(prices []float64, initialCapital float64) []float64 {
	if len(prices) == 0 {
		return nil
	}
	shares := initialCapital / prices[0]
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = shares * p
	}
	return out
}
