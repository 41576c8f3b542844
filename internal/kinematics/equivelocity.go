package kinematics

import (
	"math"

	"github.com/banshee-data/channelfit/internal/units"
)

// CurvePoint is one point of an equal-velocity curve in disk-frame sky
// offsets.
type CurvePoint struct {
	Major, Minor, V float64
}

// curveSamples is the number of samples along the major axis.
const curveSamples = 128

// EqualVelocityCurves traces, for every channel velocity in v, the sky
// locus where a Keplerian disk of mass mstar on the surfaces h1 and h2
// (negative disables) has that line-of-sight velocity. extent bounds the
// major-axis offsets searched (au). Each surface contributes its near
// and far sides on both sides of the minor axis.
func EqualVelocityCurves(mstar, h1, h2 float64, inc Incl, v []float64, extent float64) []CurvePoint {
	trace := func(ymax float64) (xs, ys, rs [][]float64) {
		xs = make([][]float64, len(v))
		ys = make([][]float64, len(v))
		rs = make([][]float64, len(v))
		for k, vk := range v {
			for s := 0; s < curveSamples; s++ {
				y := -ymax + 2*ymax*float64(s)/float64(curveSamples-1)
				if y*vk <= 0 {
					continue
				}
				q := vk / inc.Sin / units.VUnit / y
				r := math.Cbrt(mstar / (q * q))
				if r < math.Abs(y) {
					continue
				}
				xs[k] = append(xs[k], math.Sqrt(r*r-y*y))
				ys[k] = append(ys[k], y)
				rs[k] = append(rs[k], r)
			}
		}
		return xs, ys, rs
	}

	_, ys, _ := trace(extent)
	var ymax float64
	for _, row := range ys {
		for _, y := range row {
			ymax = math.Max(ymax, math.Abs(y))
		}
	}
	if ymax == 0 {
		return nil
	}
	xs, ys, rs := trace(ymax)

	var out []CurvePoint
	for k, vk := range v {
		for n, x := range xs[k] {
			xcosi := x * inc.Cos
			rsini := rs[k][n] * inc.Sin
			for _, h := range []float64{h1, h2} {
				if h < 0 {
					continue
				}
				for _, minor := range []float64{xcosi + h*rsini, xcosi - h*rsini, -xcosi + h*rsini, -xcosi - h*rsini} {
					out = append(out, CurvePoint{Major: ys[k][n], Minor: minor, V: vk})
				}
			}
		}
	}
	return out
}
