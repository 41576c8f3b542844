package profile

import (
	"fmt"
	"math"

	"github.com/banshee-data/channelfit/internal/cube"
	"github.com/banshee-data/channelfit/internal/grid"
	"github.com/banshee-data/channelfit/internal/kinematics"
)

// Input is everything needed to rasterize one model cube.
type Input struct {
	Grid *grid.Nested
	// Fields holds the velocity fields of every surface branch, per
	// layer: Fields[l][b].
	Fields   [][]kinematics.Field
	Channels []float64
	Dv       float64
	Kernel   Kernel

	Mstar   float64
	PI      float64 // radial brightness index, I ~ r^-PI
	OffVsys float64
}

// emitter is the per-cell part of the kernel index and the brightness
// weight of one branch on one layer.
type emitter struct {
	cells  []int
	base   []float64
	weight []float64
}

// Rasterize returns the model cube on the cropped base layer, one
// channel per entry of in.Channels.
func Rasterize(in Input) (*cube.Cube, error) {
	g := in.Grid
	if g == nil {
		return nil, fmt.Errorf("rasterize: nil grid")
	}
	if len(in.Fields) != len(g.Layers) {
		return nil, fmt.Errorf("rasterize: need velocity fields for %d layers, got %d", len(g.Layers), len(in.Fields))
	}
	if !(in.Dv > 0) {
		return nil, fmt.Errorf("rasterize: channel width must be positive, got %g", in.Dv)
	}
	sqrtM := math.Sqrt(in.Mstar)
	scale := 1 / (in.Dv * in.Kernel.Step)
	centre := float64(in.Kernel.N/2) + 0.5

	layers := make([][]emitter, len(g.Layers))
	for l, fields := range in.Fields {
		for _, f := range fields {
			var e emitter
			for i, ok := range f.Valid {
				if !ok {
					continue
				}
				w := 1.0
				if in.PI != 0 {
					w = math.Pow(f.R[i], -in.PI)
					if math.IsInf(w, 0) || math.IsNaN(w) {
						continue
					}
				}
				e.cells = append(e.cells, i)
				e.base = append(e.base, -(f.V[i]*sqrtM+in.OffVsys)*scale+centre)
				e.weight = append(e.weight, w)
			}
			layers[l] = append(layers[l], e)
		}
	}

	m := g.NeedSize()
	out := cube.New(len(in.Channels), m, m)
	planes := make([][]float64, len(g.Layers))
	for l := range planes {
		planes[l] = make([]float64, g.N*g.N)
	}
	for k, v := range in.Channels {
		shift := v * scale
		for l, emitters := range layers {
			plane := planes[l]
			clear(plane)
			for _, e := range emitters {
				for n, i := range e.cells {
					iv := int(shift + e.base[n])
					iv = min(max(iv, 0), in.Kernel.N)
					plane[i] += in.Kernel.Values[iv] * e.weight[n]
				}
			}
		}
		copy(out.Channel(k), g.Collapse(planes))
	}
	return out, nil
}
