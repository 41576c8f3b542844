package mcmc

import (
	"math"
	"slices"
)

// Chain holds the post burn-in positions of every walker.
type Chain struct {
	NDim, Walkers, Steps int

	// samples[(step*Walkers+walker)*NDim+dim]
	samples  []float64
	logProb  []float64
	accepted int
	proposed int
}

func newChain(ndim, walkers, steps int) *Chain {
	return &Chain{
		NDim: ndim, Walkers: walkers, Steps: steps,
		samples: make([]float64, ndim*walkers*steps),
		logProb: make([]float64, walkers*steps),
	}
}

func (c *Chain) record(step int, pos [][]float64, lp []float64) {
	for w, x := range pos {
		copy(c.samples[(step*c.Walkers+w)*c.NDim:], x)
		c.logProb[step*c.Walkers+w] = lp[w]
	}
}

// Len is the number of recorded samples.
func (c *Chain) Len() int { return c.Walkers * c.Steps }

// Sample returns sample n, ordered by step then walker.
func (c *Chain) Sample(n int) []float64 {
	return c.samples[n*c.NDim : (n+1)*c.NDim]
}

// LogProb returns the log density of sample n.
func (c *Chain) LogProb(n int) float64 { return c.logProb[n] }

// Column returns every sample of one dimension.
func (c *Chain) Column(dim int) []float64 {
	out := make([]float64, c.Len())
	for n := range out {
		out[n] = c.samples[n*c.NDim+dim]
	}
	return out
}

// Trace returns one walker's path in one dimension.
func (c *Chain) Trace(walker, dim int) []float64 {
	out := make([]float64, c.Steps)
	for s := range out {
		out[s] = c.samples[(s*c.Walkers+walker)*c.NDim+dim]
	}
	return out
}

// Best returns the sample with the highest log density.
func (c *Chain) Best() ([]float64, float64) {
	best, lp := 0, math.Inf(-1)
	for n, v := range c.logProb {
		if v > lp {
			best, lp = n, v
		}
	}
	return append([]float64(nil), c.Sample(best)...), lp
}

// Quantile returns the p quantile of one dimension, interpolating
// linearly between the order statistics at p*(n-1) (Hyndman-Fan type 7).
func (c *Chain) Quantile(dim int, p float64) float64 {
	col := c.Column(dim)
	if len(col) == 0 {
		return math.NaN()
	}
	slices.Sort(col)
	return quantile7(col, p)
}

// quantile7 interpolates sorted x at position p*(len(x)-1).
func quantile7(x []float64, p float64) float64 {
	h := math.Min(math.Max(p, 0), 1) * float64(len(x)-1)
	lo := int(math.Floor(h))
	if lo >= len(x)-1 {
		return x[len(x)-1]
	}
	return x[lo] + (h-float64(lo))*(x[lo+1]-x[lo])
}

// AcceptanceFraction is the share of accepted proposals after burn-in.
func (c *Chain) AcceptanceFraction() float64 {
	if c.proposed == 0 {
		return 0
	}
	return float64(c.accepted) / float64(c.proposed)
}
