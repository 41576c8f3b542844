package kinematics

import (
	"math"

	"github.com/banshee-data/channelfit/internal/cube"
	"github.com/banshee-data/channelfit/internal/grid"
	"github.com/banshee-data/channelfit/internal/monitoring"
	"github.com/banshee-data/channelfit/internal/units"
)

// Radii are the radial parameters of the velocity law.
type Radii struct {
	Rc       float64 // transition radius (au)
	Rin      float64 // inner cavity radius (au)
	Envelope bool    // infalling envelope beyond Rc
}

// Polarity orients the velocity field on the sky: Major is the sign of
// the rotation along the major axis, Minor the sign of the infall along
// the minor axis.
type Polarity struct {
	Major, Minor float64
}

// Field is the line-of-sight velocity (km/s for 1 M_sun) and disk-plane
// radius of every cell of one branch.
type Field struct {
	V     []float64
	R     []float64
	Valid []bool
}

// Velocity evaluates the velocity law on branch b. Inside Rc gas
// rotates with v = r^-1/2. Beyond Rc, with an envelope, it conserves
// angular momentum and falls in, v_phi = sqrt(Rc)/r and
// v_r = -r^-1/2 sqrt(2 - Rc/r); without one the cell is empty. Cells
// inside Rin are empty.
func Velocity(b Branch, major []float64, k Radii, pol Polarity, inc Incl) Field {
	n := len(b.X)
	f := Field{V: make([]float64, n), R: make([]float64, n), Valid: make([]bool, n)}
	sqrtRc := math.Sqrt(k.Rc)
	for i, x := range b.X {
		if !b.IsValid(i) {
			continue
		}
		y := major[i]
		r := math.Hypot(x, y)
		f.R[i] = r
		if r == 0 || r < k.Rin || math.IsInf(r, 0) || math.IsNaN(r) {
			continue
		}
		vp := 1 / math.Sqrt(r)
		var vr float64
		if r > k.Rc {
			if !k.Envelope {
				continue
			}
			vp = sqrtRc / r
			vr = -math.Sqrt(2-k.Rc/r) / math.Sqrt(r)
		}
		erot := y * pol.Major / r
		erad := x * pol.Minor / r
		v := (vp*erot + vr*erad) * inc.Sin * units.VUnit
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		f.V[i] = v
		f.Valid[i] = true
	}
	return f
}

// DerivePolarity reads the rotation and infall directions off an
// observed moment-1 map: the major sign follows the velocity gradient
// along the major axis and the minor sign is opposite to the gradient
// along the minor axis. A direction with no net gradient defaults to +1.
func DerivePolarity(mom1 *cube.Map, x, y []float64, pa float64) Polarity {
	r := pa * math.Pi / 180
	cospa, sinpa := math.Cos(r), math.Sin(r)
	var sMajor, sMinor float64
	for j, yy := range y {
		for i, xx := range x {
			idx := j*len(x) + i
			if !mom1.IsValid(idx) {
				continue
			}
			minor, major := grid.Rotate(xx, yy, cospa, sinpa)
			sMajor += mom1.Data[idx] * major
			sMinor += mom1.Data[idx] * minor
		}
	}
	p := Polarity{Major: sign(sMajor), Minor: -sign(sMinor)}
	if sMajor == 0 {
		monitoring.Warnf("moment 1 has no gradient along the major axis; assuming positive rotation")
		p.Major = 1
	}
	if sMinor == 0 {
		monitoring.Warnf("moment 1 has no gradient along the minor axis; assuming positive infall sign")
		p.Minor = 1
	}
	return p
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
