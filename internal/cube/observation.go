package cube

import (
	"errors"
	"fmt"
	"math"
)

// Beam is the instrument point-spread ellipse: the header BMAJ and BMIN
// in au and position angle in degrees. The beam kernel uses the axes as
// 1/e half widths.
type Beam struct {
	Major, Minor, PA float64
}

// Observation is a loaded sky cube with linear axes in au (X, Y) and km/s
// (V, ascending). It is immutable after Load.
type Observation struct {
	X, Y, V    []float64
	Dx, Dy, Dv float64
	Data       *Cube
	Sigma      float64
	Beam       Beam

	// SyntheticBeam is set when the file had no beam keywords and a
	// one-pixel beam was substituted.
	SyntheticBeam bool

	// Header describes the cropped cube in file conventions. Flipped is
	// set when the velocity axis runs opposite to the file's channel order.
	Header  Header
	Flipped bool
}

// Pitch returns the smaller absolute spatial pixel size.
func (o *Observation) Pitch() float64 {
	return math.Min(math.Abs(o.Dx), math.Abs(o.Dy))
}

// Validate checks the invariants the model relies on.
func (o *Observation) Validate() error {
	if o.Data == nil {
		return errors.New("observation has no data")
	}
	if o.Data.NV != len(o.V) || o.Data.NY != len(o.Y) || o.Data.NX != len(o.X) {
		return fmt.Errorf("observation axes (%d, %d, %d) do not match data shape (%d, %d, %d)",
			len(o.V), len(o.Y), len(o.X), o.Data.NV, o.Data.NY, o.Data.NX)
	}
	if len(o.X) < 2 || len(o.Y) < 2 || len(o.V) < 2 {
		return fmt.Errorf("observation needs at least 2 pixels per axis, got (%d, %d, %d)", len(o.V), len(o.Y), len(o.X))
	}
	if o.Dx == 0 || o.Dy == 0 || o.Dv <= 0 {
		return fmt.Errorf("observation pitches must be nonzero with ascending velocity, got dx=%g dy=%g dv=%g", o.Dx, o.Dy, o.Dv)
	}
	if !(o.Sigma > 0) {
		return fmt.Errorf("observation sigma must be positive, got %g", o.Sigma)
	}
	if !(o.Beam.Major > 0) || !(o.Beam.Minor > 0) {
		return fmt.Errorf("observation beam must be positive, got %+v", o.Beam)
	}
	return nil
}

// Grid returns the sky-plane coordinates of every pixel as flat (row,
// column) slices.
func (o *Observation) Grid() (xs, ys []float64) {
	n := len(o.X) * len(o.Y)
	xs = make([]float64, n)
	ys = make([]float64, n)
	for j, y := range o.Y {
		for i, x := range o.X {
			xs[j*len(o.X)+i] = x
			ys[j*len(o.X)+i] = y
		}
	}
	return xs, ys
}
