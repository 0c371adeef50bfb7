package model

// Ensemble is a grid of simulated prices with Steps()+1 rows (time steps)
// and Paths() columns. Row 0 holds the starting price for every path.
type Ensemble struct {
	steps  int
	paths  int
	values []float64 // row-major
}

// NewEnsemble allocates a zeroed (steps+1) x paths grid.
func NewEnsemble(steps, paths int) *Ensemble {
	return &Ensemble{
		steps:  steps,
		paths:  paths,
		values: make([]float64, (steps+1)*paths),
	}
}

func (e *Ensemble) Steps() int { return e.steps }

func (e *Ensemble) Paths() int { return e.paths }

func (e *Ensemble) At(step, path int) float64 { return e.values[step*e.paths+path] }

// Row returns the prices of all paths at step. The slice aliases the
// ensemble storage; the simulator writes through it, callers must not.
func (e *Ensemble) Row(step int) []float64 {
	off := step * e.paths
	return e.values[off : off+e.paths : off+e.paths]
}

// Path returns a copy of one path across all steps.
func (e *Ensemble) Path(path int) []float64 {
	out := make([]float64, e.steps+1)
	for i := range out {
		out[i] = e.values[i*e.paths+path]
	}
	return out
}

// FinalPrices returns a copy of the last row.
func (e *Ensemble) FinalPrices() []float64 {
	row := e.Row(e.steps)
	out := make([]float64, len(row))
	copy(out, row)
	return out
}
