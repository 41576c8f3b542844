// Package kinematics solves the disk-plane geometry of flared emitting
// surfaces and the line-of-sight velocity of a rotating, optionally
// infalling, disk and envelope.
package kinematics

import "math"

// Incl caches the trigonometry of an inclination angle.
type Incl struct {
	Deg, Sin, Cos, Tan float64
}

// NewIncl returns the trigonometry of deg degrees.
func NewIncl(deg float64) Incl {
	r := deg * math.Pi / 180
	return Incl{Deg: deg, Sin: math.Sin(r), Cos: math.Cos(r), Tan: math.Tan(r)}
}

// Branch holds one candidate disk-plane minor-axis coordinate per cell.
// A nil Valid means every cell has a solution.
type Branch struct {
	X     []float64
	Valid []bool
}

// IsValid reports whether cell i has a solution.
func (b Branch) IsValid(i int) bool { return b.Valid == nil || b.Valid[i] }

// ThinLimit is the flare ratio below which a surface is treated as the
// midplane.
const ThinLimit = 0.01

// linearLimit bounds the leading coefficient below which the quadratic
// is solved to first order.
const linearLimit = 1e-3

// SolveSurface returns the de-projected minor-axis coordinate of each sky
// cell (minor, major) on a conical surface z = h*r seen at inclination
// inc. A negative h disables the surface. Below ThinLimit both branches
// are the midplane solution. Otherwise the two roots of the height
// quadratic are returned, with cells of negative discriminant marked
// invalid; when the quadratic degenerates only the linear root exists.
func SolveSurface(minor, major []float64, inc Incl, h float64) []Branch {
	if h < 0 {
		return nil
	}
	n := len(minor)
	if h < ThinLimit {
		x := make([]float64, n)
		for i, s := range minor {
			x[i] = s / inc.Cos
		}
		return []Branch{{X: x}, {X: x}}
	}

	h2 := h * h
	a := 1/(inc.Tan*inc.Tan) - h2
	if math.Abs(a) < linearLimit {
		b1 := Branch{X: make([]float64, n), Valid: make([]bool, n)}
		for i, s := range minor {
			xc := s * inc.Cos
			b := (1 + h2) * xc
			c := (inc.Tan*inc.Tan-h2)*xc*xc - h2*major[i]*major[i]
			if b == 0 {
				continue
			}
			b1.X[i] = xc + c/b/2
			b1.Valid[i] = true
		}
		return []Branch{b1}
	}

	b1 := Branch{X: make([]float64, n), Valid: make([]bool, n)}
	b2 := Branch{X: make([]float64, n), Valid: make([]bool, n)}
	for i, s := range minor {
		xc := s * inc.Cos
		b := (1 + h2) * xc
		c := (inc.Tan*inc.Tan-h2)*xc*xc - h2*major[i]*major[i]
		d := b*b - a*c
		if d < 0 {
			continue
		}
		sq := math.Sqrt(d)
		b1.X[i] = xc + (b+sq)/a
		b2.X[i] = xc + (b-sq)/a
		b1.Valid[i] = true
		b2.Valid[i] = true
	}
	return []Branch{b1, b2}
}
