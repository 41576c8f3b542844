// Package scaling matches the amplitude of a normalized model cube to the
// observation. Each policy computes a ratio of observed to model flux;
// ratios with a zero model denominator, negative ratios and non-finite
// ratios are forced to zero.
package scaling

import (
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/channelfit/internal/cube"
)

// Policy selects how scale factors are computed.
type Policy string

// Policy constants
const (
	// Chi2 minimizes the squared residual of each channel.
	Chi2 Policy = "chi2"
	// Peak matches channel maxima.
	Peak Policy = "peak"
	// Mom0 matches the integrated intensity of each pixel.
	Mom0 Policy = "mom0"
	// Uniform minimizes the squared residual of the whole cube with one
	// factor.
	Uniform Policy = "uniform"
)

// ValidPolicies contains all valid policy values
var ValidPolicies = []Policy{Chi2, Peak, Mom0, Uniform}

// ParsePolicy checks a policy name.
func ParsePolicy(s string) (Policy, error) {
	for _, p := range ValidPolicies {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	names := make([]string, len(ValidPolicies))
	for i, p := range ValidPolicies {
		names[i] = string(p)
	}
	return "", fmt.Errorf("unknown scaling policy %q (want one of %s)", s, strings.Join(names, ", "))
}

// Reference is the observed side of the flux match.
type Reference struct {
	// Data holds the observed channels matching the model channels.
	Data *cube.Cube
	// Mom0 and SigmaMom0 are used by the Mom0 policy. Pixels below
	// 3*SigmaMom0 do not constrain the scale.
	Mom0      *cube.Map
	SigmaMom0 float64
	// Dv is the channel width used to integrate the model.
	Dv float64
}

// Factors are per-channel (Chi2, Peak, Uniform) or per-pixel (Mom0)
// scale factors.
type Factors struct {
	Policy     Policy
	PerChannel []float64
	PerPixel   []float64
}

// Compute returns the factors that scale model onto ref.
func Compute(p Policy, model *cube.Cube, ref Reference) (Factors, error) {
	obs := ref.Data
	if obs == nil || obs.NV != model.NV || obs.NY != model.NY || obs.NX != model.NX {
		return Factors{}, fmt.Errorf("scaling: observed shape does not match model (%d, %d, %d)", model.NV, model.NY, model.NX)
	}
	plane := model.Plane()
	f := Factors{Policy: p}
	switch p {
	case Chi2:
		f.PerChannel = make([]float64, model.NV)
		for k := range f.PerChannel {
			m, o, mask := model.Channel(k), obs.Channel(k), obs.ChannelValid(k)
			var gf, ff float64
			for i := 0; i < plane; i++ {
				if mask != nil && !mask[i] {
					continue
				}
				gf += m[i] * o[i]
				ff += m[i] * m[i]
			}
			f.PerChannel[k] = ratio(gf, ff)
		}
	case Peak:
		f.PerChannel = make([]float64, model.NV)
		for k := range f.PerChannel {
			m, o, mask := model.Channel(k), obs.Channel(k), obs.ChannelValid(k)
			gf, ff := math.Inf(-1), math.Inf(-1)
			for i := 0; i < plane; i++ {
				if m[i] > ff {
					ff = m[i]
				}
				if (mask == nil || mask[i]) && o[i] > gf {
					gf = o[i]
				}
			}
			if math.IsInf(gf, -1) {
				gf = 0
			}
			f.PerChannel[k] = ratio(gf, ff)
		}
	case Mom0:
		if ref.Mom0 == nil || len(ref.Mom0.Data) != plane {
			return Factors{}, fmt.Errorf("scaling: mom0 policy needs an observed moment 0 map of %d pixels", plane)
		}
		f.PerPixel = make([]float64, plane)
		for i := 0; i < plane; i++ {
			gf := ref.Mom0.Data[i]
			if !ref.Mom0.IsValid(i) || gf < 3*ref.SigmaMom0 {
				gf = 0
			}
			var ff float64
			for k := 0; k < model.NV; k++ {
				ff += model.Data[k*plane+i]
			}
			f.PerPixel[i] = ratio(gf, ff*ref.Dv)
		}
	case Uniform:
		var gf, ff float64
		for i, m := range model.Data {
			if !obs.IsValid(i) {
				continue
			}
			gf += m * obs.Data[i]
			ff += m * m
		}
		s := ratio(gf, ff)
		f.PerChannel = make([]float64, model.NV)
		for k := range f.PerChannel {
			f.PerChannel[k] = s
		}
	default:
		return Factors{}, fmt.Errorf("unknown scaling policy %q", p)
	}
	return f, nil
}

func ratio(gf, ff float64) float64 {
	if ff == 0 {
		return 0
	}
	s := gf / ff
	if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}

// Apply multiplies model in place.
func (f Factors) Apply(model *cube.Cube) {
	plane := model.Plane()
	if f.PerPixel != nil {
		for k := 0; k < model.NV; k++ {
			ch := model.Channel(k)
			for i := range ch {
				ch[i] *= f.PerPixel[i]
			}
		}
		return
	}
	for k, s := range f.PerChannel {
		ch := model.Data[k*plane : (k+1)*plane]
		for i := range ch {
			ch[i] *= s
		}
	}
}

// Relative returns the factors divided by their maximum, for progress
// reports. A zero maximum yields zeros.
func (f Factors) Relative() []float64 {
	src := f.PerChannel
	if src == nil {
		src = f.PerPixel
	}
	var max float64
	for _, s := range src {
		max = math.Max(max, s)
	}
	out := make([]float64, len(src))
	if max == 0 {
		return out
	}
	for i, s := range src {
		out[i] = s / max
	}
	return out
}
