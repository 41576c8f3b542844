// Package fit estimates model parameters by ensemble MCMC and reports
// the posterior quantiles and optimum.
package fit

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/channelfit/internal/config"
	"github.com/banshee-data/channelfit/internal/model"
)

// ParamSpec is either a fixed value or a free [Lo, Hi] prior range.
type ParamSpec struct {
	free   bool
	value  float64
	lo, hi float64
}

// Fixed pins a parameter to v.
func Fixed(v float64) ParamSpec { return ParamSpec{value: v} }

// Free samples a parameter uniformly in [lo, hi]. Mstar and Rc are
// sampled uniformly in log10 over the same bounds.
func Free(lo, hi float64) ParamSpec { return ParamSpec{free: true, lo: lo, hi: hi} }

// IsFree reports whether the parameter is sampled.
func (s ParamSpec) IsFree() bool { return s.free }

// Value is the fixed value; zero for a free parameter.
func (s ParamSpec) Value() float64 { return s.value }

// Range is the prior range; zeros for a fixed parameter.
func (s ParamSpec) Range() (lo, hi float64) { return s.lo, s.hi }

func (s ParamSpec) String() string {
	if s.free {
		return fmt.Sprintf("[%g, %g]", s.lo, s.hi)
	}
	return fmt.Sprintf("=%g", s.value)
}

// Specs maps every parameter name to its spec.
type Specs map[string]ParamSpec

// DefaultRanges returns the default prior: every parameter free.
func DefaultRanges() Specs {
	return Specs{
		model.NameMstar:    Free(0.01, 10),
		model.NameRc:       Free(1, 1000),
		model.NameCs:       Free(0.01, 1),
		model.NameH1:       Free(0.01, 1),
		model.NameH2:       Free(0.01, 1),
		model.NamePI:       Free(-2, 2),
		model.NameRin:      Free(0, 1000),
		model.NameOffMajor: Free(-100, 100),
		model.NameOffMinor: Free(-100, 100),
		model.NameOffVsys:  Free(-0.2, 0.2),
		model.NameIncl:     Free(-45, 45),
	}
}

// logScaled reports whether a parameter is sampled in log10.
func logScaled(name string) bool {
	return name == model.NameMstar || name == model.NameRc
}

// Validate checks that s names every parameter exactly once with a
// usable spec.
func (s Specs) Validate() error {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !model.IsName(name) {
			return fmt.Errorf("unknown parameter %q", name)
		}
	}
	for _, name := range model.Names {
		spec, ok := s[name]
		if !ok {
			return fmt.Errorf("parameter %q has no spec", name)
		}
		if spec.free {
			if math.IsNaN(spec.lo) || math.IsNaN(spec.hi) || !(spec.lo < spec.hi) {
				return fmt.Errorf("parameter %q: range [%g, %g] must have lo < hi", name, spec.lo, spec.hi)
			}
			if logScaled(name) && !(spec.lo > 0) {
				return fmt.Errorf("parameter %q: range [%g, %g] must be positive", name, spec.lo, spec.hi)
			}
			continue
		}
		if math.IsNaN(spec.value) || math.IsInf(spec.value, 0) {
			return fmt.Errorf("parameter %q: fixed value %g is not finite", name, spec.value)
		}
		if logScaled(name) && !(spec.value > 0) {
			return fmt.Errorf("parameter %q: fixed value %g must be positive", name, spec.value)
		}
	}
	return nil
}

// Free lists the sampled parameters in canonical order.
func (s Specs) Free() []string {
	var out []string
	for _, name := range model.Names {
		if s[name].free {
			out = append(out, name)
		}
	}
	return out
}

// SpecsFrom merges configured entries over DefaultRanges.
func SpecsFrom(entries map[string]config.ParamEntry) (Specs, error) {
	specs := DefaultRanges()
	for name, e := range entries {
		switch {
		case e.Fixed != nil && len(e.Range) > 0:
			return nil, fmt.Errorf("parameter %q: fixed and range are mutually exclusive", name)
		case e.Fixed != nil:
			specs[name] = Fixed(*e.Fixed)
		case len(e.Range) == 2:
			specs[name] = Free(e.Range[0], e.Range[1])
		case len(e.Range) != 0:
			return nil, fmt.Errorf("parameter %q: range needs 2 values, got %d", name, len(e.Range))
		}
	}
	if err := specs.Validate(); err != nil {
		return nil, err
	}
	return specs, nil
}
