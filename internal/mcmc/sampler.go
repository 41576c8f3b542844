// Package mcmc implements the affine-invariant ensemble sampler of
// Goodman and Weare with the stretch move.
package mcmc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/channelfit/internal/monitoring"
)

// LogProb returns the log posterior density at x. -Inf rejects x.
type LogProb func(x []float64) (float64, error)

// DefaultStretch is the stretch move scale a.
const DefaultStretch = 2.0

// Config describes one sampling run.
type Config struct {
	// Lower and Upper bound the box in which walkers start.
	Lower, Upper []float64
	Walkers      int
	Burnin       int
	Steps        int
	Stretch      float64 // DefaultStretch when zero
	Seed         uint64
	// Workers evaluate the walkers of a half ensemble concurrently.
	Workers int
	// Progress, when set, is called after every step with the number of
	// steps done and the total.
	Progress func(done, total int)
}

func (c Config) validate() error {
	ndim := len(c.Lower)
	switch {
	case ndim == 0:
		return errors.New("mcmc: no free dimensions")
	case len(c.Upper) != ndim:
		return fmt.Errorf("mcmc: %d lower bounds but %d upper bounds", ndim, len(c.Upper))
	case c.Walkers < 2 || c.Walkers%2 != 0:
		return fmt.Errorf("mcmc: walkers must be even and at least 2, got %d", c.Walkers)
	case c.Burnin < 0 || c.Steps < 1:
		return fmt.Errorf("mcmc: need burnin >= 0 and steps >= 1, got %d and %d", c.Burnin, c.Steps)
	case c.Stretch != 0 && c.Stretch <= 1:
		return fmt.Errorf("mcmc: stretch scale must exceed 1, got %g", c.Stretch)
	}
	for i := range c.Lower {
		if !(c.Lower[i] < c.Upper[i]) {
			return fmt.Errorf("mcmc: dimension %d has empty box [%g, %g]", i, c.Lower[i], c.Upper[i])
		}
	}
	return nil
}

// Walkers rounds perDim*ndim up to an even ensemble size.
func Walkers(perDim, ndim int) int {
	n := perDim * ndim
	if n%2 == 1 {
		n++
	}
	return max(n, 2)
}

// Run samples with one LogProb per worker from newProb. Each LogProb
// is only called from a single goroutine. Random numbers are drawn
// before every parallel section so the chain depends on the seed alone.
func Run(ctx context.Context, cfg Config, newProb func() LogProb) (*Chain, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	a := cfg.Stretch
	if a == 0 {
		a = DefaultStretch
	}
	workers := max(cfg.Workers, 1)
	probs := make([]LogProb, workers)
	for i := range probs {
		probs[i] = newProb()
	}

	ndim, nw := len(cfg.Lower), cfg.Walkers
	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	unit := distuv.Uniform{Min: 0, Max: 1, Src: src}

	pos := make([][]float64, nw)
	lp := make([]float64, nw)
	for w := range pos {
		pos[w] = make([]float64, ndim)
		for d := range pos[w] {
			pos[w][d] = cfg.Lower[d] + (cfg.Upper[d]-cfg.Lower[d])*unit.Rand()
		}
	}
	if err := evaluate(ctx, probs, pos, lp); err != nil {
		return nil, fmt.Errorf("mcmc: initial ensemble: %w", err)
	}

	chain := newChain(ndim, nw, cfg.Steps)
	total := cfg.Burnin + cfg.Steps
	half := nw / 2
	proposals := make([][]float64, half)
	for i := range proposals {
		proposals[i] = make([]float64, ndim)
	}
	plp := make([]float64, half)
	zs := make([]float64, half)
	us := make([]float64, half)

	for step := 0; step < total; step++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("mcmc: step %d: %w", step, err)
		}
		sampling := step >= cfg.Burnin
		for s := 0; s < 2; s++ {
			self, other := s*half, (1-s)*half
			for i := 0; i < half; i++ {
				z := ((a-1)*unit.Rand() + 1)
				zs[i] = z * z / a
				partner := pos[other+int(unit.Rand()*float64(half))%half]
				x := pos[self+i]
				for d := range x {
					proposals[i][d] = partner[d] + zs[i]*(x[d]-partner[d])
				}
				us[i] = unit.Rand()
			}
			if err := evaluate(ctx, probs, proposals, plp); err != nil {
				return nil, fmt.Errorf("mcmc: step %d: %w", step, err)
			}
			for i := 0; i < half; i++ {
				w := self + i
				q := float64(ndim-1)*math.Log(zs[i]) + plp[i] - lp[w]
				accept := !math.IsInf(plp[i], -1) && !math.IsNaN(q) && math.Log(us[i]) < q
				if accept {
					copy(pos[w], proposals[i])
					lp[w] = plp[i]
				}
				if sampling {
					chain.proposed++
					if accept {
						chain.accepted++
					}
				}
			}
		}
		if sampling {
			chain.record(step-cfg.Burnin, pos, lp)
		}
		if cfg.Progress != nil {
			cfg.Progress(step+1, total)
		}
	}
	monitoring.Logf("mcmc: %d walkers, %d burn-in, %d steps, acceptance %.3f", nw, cfg.Burnin, cfg.Steps, chain.AcceptanceFraction())
	return chain, nil
}

// evaluate fills out[i] = lnp(xs[i]), spreading the points over the
// workers in contiguous blocks.
func evaluate(ctx context.Context, probs []LogProb, xs [][]float64, out []float64) error {
	if len(probs) == 1 {
		for i, x := range xs {
			v, err := probs[0](x)
			if err != nil {
				return err
			}
			out[i] = v
		}
		return nil
	}
	g, _ := errgroup.WithContext(ctx)
	per := (len(xs) + len(probs) - 1) / len(probs)
	for w, lnp := range probs {
		lo, hi := w*per, min((w+1)*per, len(xs))
		if lo >= hi {
			break
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				v, err := lnp(xs[i])
				if err != nil {
					return err
				}
				out[i] = v
			}
			return nil
		})
	}
	return g.Wait()
}
