package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/channelfit/internal/cube"
)

// Spec describes the grid to build.
type Spec struct {
	Pitch     float64 // base pixel pitch (au)
	HalfWidth float64 // requested half width of the field (au)
	Beam      cube.Beam
	Layers    int
	PA        float64 // disk position angle (degrees)
}

// Layer is one resolution level. Minor and Major hold the disk-frame
// coordinates of every cell, row-major with rows along the sky y axis.
type Layer struct {
	Pitch float64
	Axis  []float64
	Minor []float64
	Major []float64
}

// Nested is the grid stack plus the bookkeeping needed to collapse it.
type Nested struct {
	N      int
	Layers []Layer

	// Q1:Q3 is the central block of a coarser layer covered by the next
	// finer one.
	Q1, Q3 int

	// Need0:Need1 is the crop of layer 0 that covers HalfWidth plus beam
	// padding. NeedAxis are the coordinates of that crop.
	Need0, Need1 int
	NeedAxis     []float64
}

// Build validates s and constructs the nested grid.
func Build(s Spec) (*Nested, error) {
	switch {
	case !(s.Pitch > 0):
		return nil, fmt.Errorf("grid pitch must be positive, got %g", s.Pitch)
	case s.HalfWidth < 0:
		return nil, fmt.Errorf("grid half width must be non-negative, got %g", s.HalfWidth)
	case s.Layers < 1:
		return nil, fmt.Errorf("grid needs at least one layer, got %d", s.Layers)
	case !(s.Beam.Major > 0) || !(s.Beam.Minor > 0):
		return nil, errors.New("grid beam must have positive axes")
	}

	rNeed := s.HalfWidth + 1.1*s.Beam.Major
	npix := int(2*rNeed/s.Pitch + 0.5)
	n := 4
	for n < npix {
		n *= 2
	}

	g := &Nested{N: n, Layers: make([]Layer, s.Layers)}
	g.Q1 = n/2 - n/4
	g.Q3 = g.Q1 + n/2

	pa := s.PA * math.Pi / 180
	cospa, sinpa := math.Cos(pa), math.Sin(pa)
	half := float64(n)/2 - 0.5
	for l := range g.Layers {
		pitch := s.Pitch / math.Pow(2, float64(l))
		ax := floats.Span(make([]float64, n), -half*pitch, half*pitch)
		minor := make([]float64, n*n)
		major := make([]float64, n*n)
		for j, y := range ax {
			for i, x := range ax {
				minor[j*n+i], major[j*n+i] = Rotate(x, y, cospa, sinpa)
			}
		}
		g.Layers[l] = Layer{Pitch: pitch, Axis: ax, Minor: minor, Major: major}
	}

	nNeed := int(rNeed/s.Pitch + 0.5)
	g.Need0 = max(n/2-nNeed, 0)
	g.Need1 = min(n/2+nNeed, n)
	if g.Need1-g.Need0 < 2 {
		g.Need0, g.Need1 = n/2-1, n/2+1
	}
	g.NeedAxis = g.Layers[0].Axis[g.Need0:g.Need1]
	return g, nil
}

// Rotate maps sky offsets (x, y) to minor and major axis offsets for a
// position angle with the given cosine and sine.
func Rotate(x, y, cospa, sinpa float64) (minor, major float64) {
	return x*cospa - y*sinpa, x*sinpa + y*cospa
}

// NeedSize is the side length of the cropped layer 0.
func (g *Nested) NeedSize() int { return g.Need1 - g.Need0 }

// Collapse block-averages every finer layer into the centre of the next
// coarser one, finest first, and returns the crop of layer 0. planes
// holds one N*N plane per layer and is modified in place.
func (g *Nested) Collapse(planes [][]float64) []float64 {
	n := g.N
	for l := len(planes) - 1; l > 0; l-- {
		fine, coarse := planes[l], planes[l-1]
		for j := 0; j < n/2; j++ {
			for i := 0; i < n/2; i++ {
				a := fine[(2*j)*n+2*i]
				b := fine[(2*j)*n+2*i+1]
				c := fine[(2*j+1)*n+2*i]
				d := fine[(2*j+1)*n+2*i+1]
				coarse[(g.Q1+j)*n+g.Q1+i] = (a + b + c + d) / 4
			}
		}
	}
	m := g.NeedSize()
	out := make([]float64, m*m)
	for j := 0; j < m; j++ {
		copy(out[j*m:(j+1)*m], planes[0][(g.Need0+j)*n+g.Need0:(g.Need0+j)*n+g.Need1])
	}
	return out
}
