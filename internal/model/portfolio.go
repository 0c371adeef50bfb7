package model

// Position is the backtest state machine state.
type Position string

const (
	PositionFlat     Position = "FLAT"
	PositionInvested Position = "INVESTED"
)

// PortfolioState is the single-asset, all-in/all-out portfolio.
// InPosition is true exactly when Shares > 0.
type PortfolioState struct {
	Cash       float64
	Shares     float64
	InPosition bool
}

// NewPortfolioState returns a flat portfolio holding only cash.
func NewPortfolioState(cash float64) PortfolioState {
	return PortfolioState{Cash: cash}
}

func (p PortfolioState) Position() Position {
	if p.InPosition {
		return PositionInvested
	}
	return PositionFlat
}

// Value marks the portfolio to market at price.
func (p PortfolioState) Value(price float64) float64 {
	if p.InPosition {
		return p.Shares * price
	}
	return p.Cash
}
