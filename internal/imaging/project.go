package imaging

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/channelfit/internal/cube"
)

// Offset is a shift of the model centre along the disk axes.
type Offset struct {
	Major, Minor float64
	PA           float64 // degrees
}

// Sky returns the offset in sky coordinates.
func (o Offset) Sky() (x, y float64) {
	pa := o.PA * math.Pi / 180
	cospa, sinpa := math.Cos(pa), math.Sin(pa)
	x = o.Minor*cospa + o.Major*sinpa
	y = -o.Minor*sinpa + o.Major*cospa
	return x, y
}

// Project resamples every channel of c, defined on the square model axis
// (rows and columns both), at the observed pixel centres xs and ys
// shifted by off. Samples outside the model axis are zero.
func Project(c *cube.Cube, axis, xs, ys []float64, off Offset) (*cube.Cube, error) {
	if c.NY != len(axis) || c.NX != len(axis) {
		return nil, fmt.Errorf("project: model plane is %dx%d, axis has %d points", c.NY, c.NX, len(axis))
	}
	if len(axis) < 2 {
		return nil, fmt.Errorf("project: model axis needs at least 2 points, got %d", len(axis))
	}
	xoff, yoff := off.Sky()
	cols := make([]stencil, len(xs))
	for i, x := range xs {
		cols[i] = locate(axis, x-xoff)
	}
	rows := make([]stencil, len(ys))
	for j, y := range ys {
		rows[j] = locate(axis, y-yoff)
	}

	n := len(axis)
	out := cube.New(c.NV, len(ys), len(xs))
	for k := 0; k < c.NV; k++ {
		src := c.Channel(k)
		dst := out.Channel(k)
		for j, r := range rows {
			if !r.ok {
				continue
			}
			lo := src[r.i*n : (r.i+1)*n]
			hi := src[(r.i+1)*n : (r.i+2)*n]
			for i, q := range cols {
				if !q.ok {
					continue
				}
				a := lo[q.i]*(1-q.t) + lo[q.i+1]*q.t
				b := hi[q.i]*(1-q.t) + hi[q.i+1]*q.t
				dst[j*len(xs)+i] = a*(1-r.t) + b*r.t
			}
		}
	}
	return out, nil
}

// stencil is the left neighbour index and fractional position of one
// sample on an ascending axis.
type stencil struct {
	i  int
	t  float64
	ok bool
}

func locate(axis []float64, v float64) stencil {
	n := len(axis)
	if math.IsNaN(v) || v < axis[0] || v > axis[n-1] {
		return stencil{}
	}
	i := sort.SearchFloat64s(axis, v) - 1
	i = min(max(i, 0), n-2)
	return stencil{i: i, t: (v - axis[i]) / (axis[i+1] - axis[i]), ok: true}
}
