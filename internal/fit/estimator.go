package fit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/channelfit/internal/mcmc"
	"github.com/banshee-data/channelfit/internal/model"
	"github.com/banshee-data/channelfit/internal/monitoring"
)

// Options control the sampler.
type Options struct {
	WalkersPerDim int
	Burnin        int
	Steps         int
	Seed          uint64
	Workers       int
	// Combine fits two window-averaged channels instead of every
	// channel.
	Combine  bool
	Progress func(done, total int)
}

// DefaultOptions returns the sampler defaults.
func DefaultOptions() Options {
	return Options{WalkersPerDim: 16, Burnin: 1000, Steps: 1000, Workers: 1}
}

// Estimator fits one model.
type Estimator struct {
	model *model.Model
	specs Specs
	opts  Options
}

// NewEstimator validates specs and opts.
func NewEstimator(m *model.Model, specs Specs, opts Options) (*Estimator, error) {
	if m == nil {
		return nil, errors.New("fit: nil model")
	}
	if err := specs.Validate(); err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	if opts.WalkersPerDim < 1 || opts.Burnin < 0 || opts.Steps < 1 {
		return nil, fmt.Errorf("fit: need walkers_per_dim >= 1, burnin >= 0 and steps >= 1, got %d, %d, %d",
			opts.WalkersPerDim, opts.Burnin, opts.Steps)
	}
	return &Estimator{model: m, specs: specs, opts: opts}, nil
}

// Result is the outcome of a fit. Low, Mid and High are the 16th, 50th
// and 84th percentiles; Opt is the highest-probability sample. Fixed
// parameters carry their value in all four.
type Result struct {
	Low, Mid, High, Opt model.Params
	Free                []string
	// Labels name the sampled dimensions, with a log prefix on
	// log-scaled parameters.
	Labels     []string
	Chain      *mcmc.Chain
	Acceptance float64
	MaxLogProb float64
}

// Rows returns Low, Mid, High and Opt in table order.
func (r *Result) Rows() [4]model.Params {
	return [4]model.Params{r.Low, r.Mid, r.High, r.Opt}
}

// Run fits the model. With every parameter fixed it returns the fixed
// point without sampling. In combined mode the model is switched back
// to individual channels before Run returns.
func (e *Estimator) Run(ctx context.Context) (*Result, error) {
	fixed := e.fixedParams()
	free := e.specs.Free()
	if len(free) == 0 {
		monitoring.Logf("fit: every parameter fixed, skipping sampling")
		r := &Result{Low: fixed, Mid: fixed, High: fixed, Opt: fixed}
		logRows(r)
		return r, nil
	}

	lower := make([]float64, len(free))
	upper := make([]float64, len(free))
	labels := make([]string, len(free))
	for i, name := range free {
		lo, hi := e.specs[name].Range()
		labels[i] = name
		if logScaled(name) {
			lo, hi = math.Log10(lo), math.Log10(hi)
			labels[i] = "log" + name
		}
		lower[i], upper[i] = lo, hi
	}

	if e.opts.Combine {
		if err := e.model.SetCombined(true); err != nil {
			return nil, fmt.Errorf("fit: %w", err)
		}
		defer func() {
			if err := e.model.SetCombined(false); err != nil {
				monitoring.Warnf("fit: restoring individual channels: %v", err)
			}
		}()
	}

	toParams := func(x []float64) model.Params {
		p := fixed
		for i, name := range free {
			v := x[i]
			if logScaled(name) {
				v = math.Pow(10, v)
			}
			// Names come from specs, which Validate checked.
			_ = p.Set(name, v)
		}
		return p
	}
	newProb := func() mcmc.LogProb {
		m := e.model.Clone()
		return func(x []float64) (float64, error) {
			for i, v := range x {
				if v < lower[i] || v > upper[i] {
					return math.Inf(-1), nil
				}
			}
			return m.LogLikelihood(toParams(x))
		}
	}

	walkers := mcmc.Walkers(e.opts.WalkersPerDim, len(free))
	monitoring.Logf("fit: sampling %s with %d walkers", strings.Join(labels, ", "), walkers)
	chain, err := mcmc.Run(ctx, mcmc.Config{
		Lower:    lower,
		Upper:    upper,
		Walkers:  walkers,
		Burnin:   e.opts.Burnin,
		Steps:    e.opts.Steps,
		Seed:     e.opts.Seed,
		Workers:  e.opts.Workers,
		Progress: e.opts.Progress,
	}, newProb)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	quantile := func(q float64) model.Params {
		x := make([]float64, len(free))
		for i := range free {
			x[i] = chain.Quantile(i, q)
		}
		return toParams(x)
	}
	best, lp := chain.Best()
	r := &Result{
		Low:        quantile(0.16),
		Mid:        quantile(0.5),
		High:       quantile(0.84),
		Opt:        toParams(best),
		Free:       free,
		Labels:     labels,
		Chain:      chain,
		Acceptance: chain.AcceptanceFraction(),
		MaxLogProb: lp,
	}
	logRows(r)
	return r, nil
}

func (e *Estimator) fixedParams() model.Params {
	var p model.Params
	for _, name := range model.Names {
		if s := e.specs[name]; !s.IsFree() {
			_ = p.Set(name, s.Value())
		}
	}
	return p
}

func logRows(r *Result) {
	for i, row := range r.Rows() {
		vals := make([]string, 0, model.NumParams)
		for _, v := range row.Vector() {
			vals = append(vals, fmt.Sprintf("%.2e", v))
		}
		monitoring.Logf("%s: %s", RowNames[i], strings.Join(vals, ", "))
	}
}
