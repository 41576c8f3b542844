package mcmc

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaussian(mean, sd float64) func() LogProb {
	return func() LogProb {
		return func(x []float64) (float64, error) {
			var s float64
			for _, v := range x {
				if v < -5 || v > 5 {
					return math.Inf(-1), nil
				}
				d := (v - mean) / sd
				s += d * d
			}
			return -0.5 * s, nil
		}
	}
}

func baseConfig() Config {
	return Config{
		Lower:   []float64{-5, -5},
		Upper:   []float64{5, 5},
		Walkers: 16,
		Burnin:  200,
		Steps:   500,
		Seed:    7,
	}
}

func TestRun_RecoversGaussian(t *testing.T) {
	t.Parallel()

	chain, err := Run(context.Background(), baseConfig(), gaussian(1, 0.5))
	require.NoError(t, err)
	require.Equal(t, 16*500, chain.Len())

	for d := 0; d < 2; d++ {
		assert.InDelta(t, 1, chain.Quantile(d, 0.5), 0.1)
		assert.InDelta(t, 1, chain.Quantile(d, 0.84)-chain.Quantile(d, 0.16), 0.2)
	}
	best, lp := chain.Best()
	assert.InDelta(t, 1, best[0], 0.25)
	assert.LessOrEqual(t, lp, 0.0)

	acc := chain.AcceptanceFraction()
	assert.Greater(t, acc, 0.2)
	assert.Less(t, acc, 0.95)
}

func TestRun_DeterministicAcrossWorkers(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Burnin, cfg.Steps = 20, 30
	one, err := Run(context.Background(), cfg, gaussian(0, 1))
	require.NoError(t, err)

	cfg.Workers = 3
	three, err := Run(context.Background(), cfg, gaussian(0, 1))
	require.NoError(t, err)

	assert.Equal(t, one.Column(0), three.Column(0))
	assert.Equal(t, one.Trace(5, 1), three.Trace(5, 1))
	assert.Equal(t, one.AcceptanceFraction(), three.AcceptanceFraction())

	cfg.Seed = 8
	other, err := Run(context.Background(), cfg, gaussian(0, 1))
	require.NoError(t, err)
	assert.NotEqual(t, one.Column(0), other.Column(0))
}

func TestRun_Progress(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Burnin, cfg.Steps = 3, 4
	var calls, last int
	cfg.Progress = func(done, total int) {
		calls++
		last = done
		assert.Equal(t, 7, total)
	}
	_, err := Run(context.Background(), cfg, gaussian(0, 1))
	require.NoError(t, err)
	assert.Equal(t, 7, calls)
	assert.Equal(t, 7, last)
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, baseConfig(), gaussian(0, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_PropagatesLogProbError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	cfg := baseConfig()
	cfg.Workers = 2
	_, err := Run(context.Background(), cfg, func() LogProb {
		return func([]float64) (float64, error) { return 0, boom }
	})
	assert.ErrorIs(t, err, boom)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no dimensions", func(c *Config) { c.Lower, c.Upper = nil, nil }},
		{"bound mismatch", func(c *Config) { c.Upper = []float64{1} }},
		{"odd walkers", func(c *Config) { c.Walkers = 5 }},
		{"no steps", func(c *Config) { c.Steps = 0 }},
		{"negative burnin", func(c *Config) { c.Burnin = -1 }},
		{"small stretch", func(c *Config) { c.Stretch = 0.5 }},
		{"empty box", func(c *Config) { c.Lower[1] = 5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.Lower = append([]float64(nil), cfg.Lower...)
			tt.mutate(&cfg)
			_, err := Run(context.Background(), cfg, gaussian(0, 1))
			assert.Error(t, err)
		})
	}
}

func TestWalkers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 48, Walkers(16, 3))
	assert.Equal(t, 10, Walkers(3, 3))
	assert.Equal(t, 2, Walkers(1, 1))
}

func TestChain_Quantile(t *testing.T) {
	t.Parallel()

	c := newChain(1, 1, 4)
	for step, v := range []float64{4, 1, 3, 2} {
		c.record(step, [][]float64{{v}}, []float64{0})
	}

	tests := []struct {
		p, want float64
	}{
		{0, 1},
		{0.16, 1.48},
		{0.5, 2.5},
		{0.84, 3.52},
		{1, 4},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, c.Quantile(0, tt.p), 1e-12, "p=%g", tt.p)
	}
	assert.True(t, math.IsNaN(newChain(1, 1, 0).Quantile(0, 0.5)))
}
