package simulation

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"time"

	"QuantLab/internal/model"

	"golang.org/x/sync/errgroup"
)

var (
	ErrNonPositiveStart    = errors.New("starting price must be positive")
	ErrNegativeVolatility  = errors.New("volatility must be non-negative")
	ErrUndefinedVolatility = errors.New("volatility is undefined")
	ErrInvalidHorizon      = errors.New("horizon must be positive")
	ErrInvalidSteps        = errors.New("number of steps must be at least 1")
	ErrInvalidPaths        = errors.New("number of paths must be at least 1")
)

// parallelThreshold is the path count below which rows are updated inline.
const parallelThreshold = 1024

// Params describes one GBM ensemble.
type Params struct {
	S0      float64 // starting price
	Mu      float64 // annualized drift
	Sigma   float64 // annualized volatility
	Horizon float64 // years
	Steps   int
	Paths   int
}

// Validate checks the preconditions of Simulate.
func (p Params) Validate() error {
	switch {
	case !(p.S0 > 0) || math.IsInf(p.S0, 0):
		return fmt.Errorf("%w: %v", ErrNonPositiveStart, p.S0)
	case math.IsNaN(p.Sigma):
		return ErrUndefinedVolatility
	case !(p.Sigma >= 0) || math.IsInf(p.Sigma, 0):
		return fmt.Errorf("%w: %v", ErrNegativeVolatility, p.Sigma)
	case math.IsNaN(p.Mu) || math.IsInf(p.Mu, 0):
		return fmt.Errorf("drift must be finite: %v", p.Mu)
	case !(p.Horizon > 0):
		return fmt.Errorf("%w: %v", ErrInvalidHorizon, p.Horizon)
	case p.Steps < 1:
		return fmt.Errorf("%w: %d", ErrInvalidSteps, p.Steps)
	case p.Paths < 1:
		return fmt.Errorf("%w: %d", ErrInvalidPaths, p.Paths)
	}
	return nil
}

// NormalSource produces i.i.d. standard-normal draws.
type NormalSource interface {
	Fill(dst []float64)
}

// RandSource is a NormalSource backed by a PCG generator.
type RandSource struct {
	rng *rand.Rand
}

// NewRandSource returns a seeded source. Seed 0 picks a time-based seed.
func NewRandSource(seed uint64) *RandSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *RandSource) Fill(dst []float64) {
	for i := range dst {
		dst[i] = r.rng.NormFloat64()
	}
}

// Simulator generates GBM ensembles.
type Simulator struct {
	Source  NormalSource
	Workers int // <= 0 means GOMAXPROCS
}

// NewSimulator creates a Simulator drawing from src.
func NewSimulator(src NormalSource, workers int) *Simulator {
	return &Simulator{Source: src, Workers: workers}
}

// Simulate builds a (Steps+1) x Paths ensemble from the exact log-normal
// solution price[i] = S0 * exp((mu - sigma^2/2)*t[i] + sigma*W[i]), where W
// is the running sum of sqrt(dt)*Z per path and t comes from TimeGrid. With
// sigma = 0 the last row is exactly S0 * exp(mu*Horizon).
// Draws are taken one row at a time from the single source, so a seeded
// source gives the same ensemble regardless of Workers.
func (s *Simulator) Simulate(p Params) (*model.Ensemble, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if s.Source == nil {
		return nil, errors.New("simulator has no normal source")
	}

	times := TimeGrid(p.Horizon, p.Steps)
	drift := p.Mu - 0.5*p.Sigma*p.Sigma
	sqrtDt := math.Sqrt(p.Horizon / float64(p.Steps))

	e := model.NewEnsemble(p.Steps, p.Paths)
	first := e.Row(0)
	for j := range first {
		first[j] = p.S0
	}

	z := make([]float64, p.Paths)
	w := make([]float64, p.Paths)
	chunks := s.chunks(p.Paths)
	for i := 1; i <= p.Steps; i++ {
		s.Source.Fill(z)
		g := gbmRow{s0: p.S0, driftT: drift * times[i], sigma: p.Sigma, sqrtDt: sqrtDt}
		cur := e.Row(i)
		if len(chunks) == 1 {
			g.fill(cur, w, z)
			continue
		}
		var eg errgroup.Group
		for _, c := range chunks {
			lo, hi := c[0], c[1]
			eg.Go(func() error {
				g.fill(cur[lo:hi], w[lo:hi], z[lo:hi])
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	return e, nil
}

// gbmRow holds the per-row constants of the closed-form update.
type gbmRow struct {
	s0, driftT, sigma, sqrtDt float64
}

// fill advances the Brownian sums w by one step and writes prices into cur.
func (g gbmRow) fill(cur, w, z []float64) {
	for j := range cur {
		w[j] += g.sqrtDt * z[j]
		cur[j] = g.s0 * math.Exp(g.driftT+g.sigma*w[j])
	}
}

// chunks splits [0, paths) into contiguous ranges, one per worker.
func (s *Simulator) chunks(paths int) [][2]int {
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if paths < parallelThreshold || workers == 1 {
		return [][2]int{{0, paths}}
	}
	if workers > paths {
		workers = paths
	}
	size := (paths + workers - 1) / workers
	out := make([][2]int, 0, workers)
	for lo := 0; lo < paths; lo += size {
		hi := min(lo+size, paths)
		out = append(out, [2]int{lo, hi})
	}
	return out
}

// TimeGrid returns the Steps+1 time points (in years) of an ensemble. The
// last point is exactly horizon.
func TimeGrid(horizon float64, steps int) []float64 {
	out := make([]float64, steps+1)
	for i := range out {
		out[i] = horizon * (float64(i) / float64(steps))
	}
	return out
}
