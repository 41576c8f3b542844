// Package plots renders diagnostic images of a fit: moment maps,
// equal-velocity curves and posterior histograms as PNG with gonum/plot,
// and the walker traces as an interactive echarts page.
package plots

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/channelfit/internal/cube"
)

// mapGrid adapts a cube.Map to plotter.GridXYZ with ascending axes.
// Invalid pixels read as NaN.
type mapGrid struct {
	m      *cube.Map
	x, y   []float64
	flipX  bool
	flipY  bool
	lo, hi float64
}

func newMapGrid(m *cube.Map, x, y []float64) *mapGrid {
	g := &mapGrid{
		m: m, x: x, y: y,
		flipX: len(x) > 1 && x[0] > x[len(x)-1],
		flipY: len(y) > 1 && y[0] > y[len(y)-1],
		lo:    math.Inf(1),
		hi:    math.Inf(-1),
	}
	for i, v := range m.Data {
		if m.IsValid(i) && !math.IsNaN(v) {
			g.lo = math.Min(g.lo, v)
			g.hi = math.Max(g.hi, v)
		}
	}
	return g
}

func (g *mapGrid) col(c int) int {
	if g.flipX {
		return len(g.x) - 1 - c
	}
	return c
}

func (g *mapGrid) row(r int) int {
	if g.flipY {
		return len(g.y) - 1 - r
	}
	return r
}

func (g *mapGrid) Dims() (c, r int) { return len(g.x), len(g.y) }

func (g *mapGrid) Z(c, r int) float64 {
	idx := g.row(r)*g.m.NX + g.col(c)
	if !g.m.IsValid(idx) {
		return math.NaN()
	}
	return g.m.Data[idx]
}

func (g *mapGrid) X(c int) float64 { return g.x[g.col(c)] }
func (g *mapGrid) Y(r int) float64 { return g.y[g.row(r)] }

// finite reports whether the map has any valid value.
func (g *mapGrid) finite() bool { return g.lo <= g.hi }

// VelocityRange returns half the 5 to 95 percentile spread of the valid
// values of m, or 1 when that is not positive.
func VelocityRange(m *cube.Map) float64 {
	var vals []float64
	for i, v := range m.Data {
		if m.IsValid(i) && !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 1
	}
	slices.Sort(vals)
	r := (stat.Quantile(0.95, stat.LinInterp, vals, nil) - stat.Quantile(0.05, stat.LinInterp, vals, nil)) / 2
	if !(r > 0) {
		return 1
	}
	return r
}
