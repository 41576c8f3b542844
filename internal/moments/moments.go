// Package moments computes the integrated intensity, intensity-weighted
// velocity and velocity dispersion maps of a cube.
package moments

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/channelfit/internal/cube"
)

// Maps holds the moment maps of one cube and the noise of moment 0.
type Maps struct {
	Mom0, Mom1, Mom2 *cube.Map
	SigmaMom0        float64
	Dv               float64
}

// Threshold is the detection level in units of the noise.
const Threshold = 3

// Compute returns the moment maps of c with channel velocities v and
// per-channel noise sigma. Moments 1 and 2 use only entries at or above
// Threshold*sigma and are invalid where moment 0 is below
// Threshold*SigmaMom0.
func Compute(c *cube.Cube, v []float64, sigma float64) (Maps, error) {
	if c == nil {
		return Maps{}, errors.New("moments: nil cube")
	}
	if c.NV != len(v) {
		return Maps{}, fmt.Errorf("moments: cube has %d channels, %d velocities given", c.NV, len(v))
	}
	dv, err := minSpacing(v)
	if err != nil {
		return Maps{}, fmt.Errorf("moments: %w", err)
	}

	m := Maps{
		Mom0:      cube.NewMap(c.NY, c.NX),
		Mom1:      cube.NewMap(c.NY, c.NX),
		Mom2:      cube.NewMap(c.NY, c.NX),
		SigmaMom0: sigma * dv * math.Sqrt(float64(c.NV)),
		Dv:        dv,
	}
	plane := c.Plane()
	cut := Threshold * sigma
	for p := 0; p < plane; p++ {
		var sum, wsum, wv float64
		seen := false
		for k := 0; k < c.NV; k++ {
			idx := k*plane + p
			if !c.IsValid(idx) {
				continue
			}
			seen = true
			val := c.Data[idx]
			sum += val
			if val >= cut {
				wsum += val
				wv += val * v[k]
			}
		}
		if !seen {
			m.Mom0.Invalidate(p)
			m.Mom1.Invalidate(p)
			m.Mom2.Invalidate(p)
			continue
		}
		m.Mom0.Data[p] = sum * dv
		if m.Mom0.Data[p] < Threshold*m.SigmaMom0 || wsum == 0 {
			m.Mom1.Invalidate(p)
			m.Mom2.Invalidate(p)
			continue
		}
		mean := wv / wsum
		var sq float64
		for k := 0; k < c.NV; k++ {
			idx := k*plane + p
			if val := c.Data[idx]; c.IsValid(idx) && val >= cut {
				sq += val * (v[k] - mean) * (v[k] - mean)
			}
		}
		m.Mom1.Data[p] = mean
		m.Mom2.Data[p] = math.Sqrt(sq / wsum)
	}
	return m, nil
}

// minSpacing is the smallest gap between neighbouring channels.
func minSpacing(v []float64) (float64, error) {
	if len(v) < 2 {
		return 0, fmt.Errorf("need at least 2 channels, got %d", len(v))
	}
	dv := math.Inf(1)
	for i := 1; i < len(v); i++ {
		dv = math.Min(dv, math.Abs(v[i]-v[i-1]))
	}
	if !(dv > 0) {
		return 0, errors.New("channel velocities must be distinct")
	}
	return dv, nil
}
