package simulation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constSource returns the same draw for every path and step.
type constSource float64

func (c constSource) Fill(dst []float64) {
	for i := range dst {
		dst[i] = float64(c)
	}
}

func defaultParams() Params {
	return Params{S0: 1.08, Mu: 0.02, Sigma: 0.08, Horizon: 1, Steps: 252, Paths: 2000}
}

func TestSimulate_RowZeroIsStartPrice(t *testing.T) {
	e, err := NewSimulator(NewRandSource(7), 4).Simulate(defaultParams())
	require.NoError(t, err)
	assert.Equal(t, 252, e.Steps())
	assert.Equal(t, 2000, e.Paths())
	for _, v := range e.Row(0) {
		assert.Equal(t, 1.08, v)
	}
}

func TestSimulate_AllValuesPositive(t *testing.T) {
	p := defaultParams()
	p.Sigma = 1.5 // large volatility pushes many paths towards zero
	e, err := NewSimulator(NewRandSource(11), 0).Simulate(p)
	require.NoError(t, err)
	for step := 0; step <= e.Steps(); step++ {
		for _, v := range e.Row(step) {
			require.Greater(t, v, 0.0)
		}
	}
}

func TestSimulate_ZeroVolatilityIsDeterministic(t *testing.T) {
	p := Params{S0: 100, Mu: 0.07, Sigma: 0, Horizon: 2, Steps: 504, Paths: 50}
	e, err := NewSimulator(NewRandSource(3), 1).Simulate(p)
	require.NoError(t, err)
	want := 100 * math.Exp(0.07*2)
	for _, v := range e.FinalPrices() {
		assert.Equal(t, want, v)
	}
}

func TestSimulate_ZeroVolatilityFinalRowIsExact(t *testing.T) {
	tests := []Params{
		{S0: 100, Mu: 0.07, Sigma: 0, Horizon: 2, Steps: 504, Paths: 3},
		{S0: 1.0832, Mu: 0.013, Sigma: 0, Horizon: 1, Steps: 252, Paths: 3},
		{S0: 57.3, Mu: -0.21, Sigma: 0, Horizon: 0.1, Steps: 3, Paths: 2000},
	}
	for _, p := range tests {
		e, err := NewSimulator(NewRandSource(9), 4).Simulate(p)
		require.NoError(t, err)
		want := p.S0 * math.Exp(p.Mu*p.Horizon)
		for _, v := range e.FinalPrices() {
			require.Equal(t, want, v)
		}
	}
}

func TestSimulate_ZeroVolatilityZeroDriftStaysAtStart(t *testing.T) {
	p := Params{S0: 1.2345, Mu: 0, Sigma: 0, Horizon: 1, Steps: 10, Paths: 5}
	e, err := NewSimulator(constSource(3), 1).Simulate(p)
	require.NoError(t, err)
	for _, v := range e.FinalPrices() {
		assert.Equal(t, 1.2345, v)
	}
}

func TestSimulate_KnownStep(t *testing.T) {
	p := Params{S0: 100, Mu: 0.1, Sigma: 0.2, Horizon: 1, Steps: 4, Paths: 3}
	e, err := NewSimulator(constSource(1), 1).Simulate(p)
	require.NoError(t, err)
	dt := 0.25
	step := math.Exp((0.1-0.5*0.04)*dt + 0.2*math.Sqrt(dt))
	assert.InEpsilon(t, 100*step, e.At(1, 0), 1e-12)
	assert.InEpsilon(t, 100*math.Pow(step, 4), e.At(4, 2), 1e-12)
}

func TestSimulate_WorkersDoNotChangeResult(t *testing.T) {
	p := defaultParams()
	p.Paths = 5000
	serial, err := NewSimulator(NewRandSource(42), 1).Simulate(p)
	require.NoError(t, err)
	parallel, err := NewSimulator(NewRandSource(42), 8).Simulate(p)
	require.NoError(t, err)
	assert.Equal(t, serial.FinalPrices(), parallel.FinalPrices())
}

func TestSimulate_SampleMomentsMatchGBM(t *testing.T) {
	p := Params{S0: 1, Mu: 0.05, Sigma: 0.2, Horizon: 1, Steps: 12, Paths: 20000}
	e, err := NewSimulator(NewRandSource(2024), 0).Simulate(p)
	require.NoError(t, err)

	final := e.FinalPrices()
	var sum float64
	for _, v := range final {
		sum += math.Log(v)
	}
	meanLog := sum / float64(len(final))
	// ln S_T ~ N((mu - sigma^2/2)T, sigma^2 T); standard error ~ 0.2/sqrt(20000) ~ 0.0014
	assert.InDelta(t, 0.05-0.02, meanLog, 0.01)
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Params)
		want error
	}{
		{"zero start", func(p *Params) { p.S0 = 0 }, ErrNonPositiveStart},
		{"negative start", func(p *Params) { p.S0 = -1 }, ErrNonPositiveStart},
		{"nan start", func(p *Params) { p.S0 = math.NaN() }, ErrNonPositiveStart},
		{"negative sigma", func(p *Params) { p.Sigma = -0.1 }, ErrNegativeVolatility},
		{"nan sigma", func(p *Params) { p.Sigma = math.NaN() }, ErrUndefinedVolatility},
		{"zero horizon", func(p *Params) { p.Horizon = 0 }, ErrInvalidHorizon},
		{"zero steps", func(p *Params) { p.Steps = 0 }, ErrInvalidSteps},
		{"zero paths", func(p *Params) { p.Paths = 0 }, ErrInvalidPaths},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultParams()
			tt.mod(&p)
			_, err := NewSimulator(constSource(0), 1).Simulate(p)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSimulate_NilSource(t *testing.T) {
	_, err := (&Simulator{}).Simulate(defaultParams())
	assert.Error(t, err)
}

func TestChunks_CoverAllPaths(t *testing.T) {
	s := &Simulator{Workers: 3}
	c := s.chunks(10000)
	require.Len(t, c, 3)
	assert.Equal(t, 0, c[0][0])
	assert.Equal(t, 10000, c[len(c)-1][1])
	for i := 1; i < len(c); i++ {
		assert.Equal(t, c[i-1][1], c[i][0])
	}
	assert.Len(t, s.chunks(10), 1)
}

func TestTimeGrid(t *testing.T) {
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, TimeGrid(1, 4))
	for _, steps := range []int{3, 7, 252, 504} {
		grid := TimeGrid(0.1, steps)
		assert.Equal(t, 0.1, grid[steps])
	}
}
