package profile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/channelfit/internal/cube"
	"github.com/banshee-data/channelfit/internal/grid"
	"github.com/banshee-data/channelfit/internal/kinematics"
)

func uniformFields(t *testing.T, g *grid.Nested, v, r float64) [][]kinematics.Field {
	t.Helper()
	fields := make([][]kinematics.Field, len(g.Layers))
	for l := range g.Layers {
		n := g.N * g.N
		f := kinematics.Field{V: make([]float64, n), R: make([]float64, n), Valid: make([]bool, n)}
		for i := range f.V {
			f.V[i], f.R[i], f.Valid[i] = v, r, true
		}
		fields[l] = []kinematics.Field{f}
	}
	return fields
}

func testGrid(t *testing.T, layers int) *grid.Nested {
	t.Helper()
	g, err := grid.Build(grid.Spec{Pitch: 1, HalfWidth: 3, Beam: cube.Beam{Major: 1, Minor: 1}, Layers: layers})
	require.NoError(t, err)
	return g
}

func TestRasterize_UniformField(t *testing.T) {
	t.Parallel()

	g := testGrid(t, 2)
	k := NewKernel(1)
	out, err := Rasterize(Input{
		Grid:     g,
		Fields:   uniformFields(t, g, 0, 1),
		Channels: []float64{0, 0.5, 10},
		Dv:       0.5,
		Kernel:   k,
		Mstar:    1,
	})
	require.NoError(t, err)

	m := g.NeedSize()
	require.Equal(t, 3, out.NV)
	require.Equal(t, m, out.NY)
	require.Equal(t, m, out.NX)

	for _, p := range out.Channel(0) {
		assert.InDelta(t, k.Values[22], p, 1e-12)
	}
	for _, p := range out.Channel(1) {
		assert.InDelta(t, k.At(1), p, 1e-12)
	}
	for _, p := range out.Channel(2) {
		assert.Zero(t, p)
	}
}

func TestRasterize_MassAndSystemicOffset(t *testing.T) {
	t.Parallel()

	g := testGrid(t, 1)
	k := NewKernel(1)
	// v = 1 with Mstar 4 projects to 2 km/s, shifted by 0.5 km/s.
	out, err := Rasterize(Input{
		Grid: g, Fields: uniformFields(t, g, 1, 1),
		Channels: []float64{2.5}, Dv: 1, Kernel: k, Mstar: 4, OffVsys: 0.5,
	})
	require.NoError(t, err)
	assert.InDelta(t, k.Values[22], out.At(0, 0, 0), 1e-12)
}

func TestRasterize_RadialWeight(t *testing.T) {
	t.Parallel()

	g := testGrid(t, 1)
	k := NewKernel(1)
	out, err := Rasterize(Input{
		Grid: g, Fields: uniformFields(t, g, 0, 4),
		Channels: []float64{0}, Dv: 1, Kernel: k, Mstar: 1, PI: 1.5,
	})
	require.NoError(t, err)
	assert.InDelta(t, k.Values[22]*math.Pow(4, -1.5), out.At(0, 1, 1), 1e-12)
}

func TestRasterize_SkipsInvalidAndSumsBranches(t *testing.T) {
	t.Parallel()

	g := testGrid(t, 1)
	k := NewKernel(1)
	fields := uniformFields(t, g, 0, 1)
	second := uniformFields(t, g, 0, 1)[0][0]
	centre := (g.Need0+1)*g.N + g.Need0 + 1
	second.Valid[centre] = false
	fields[0] = append(fields[0], second)

	out, err := Rasterize(Input{Grid: g, Fields: fields, Channels: []float64{0}, Dv: 1, Kernel: k, Mstar: 1})
	require.NoError(t, err)
	assert.InDelta(t, 2*k.Values[22], out.At(0, 0, 0), 1e-12)
	assert.InDelta(t, k.Values[22], out.At(0, 1, 1), 1e-12)
}

func TestRasterize_Errors(t *testing.T) {
	t.Parallel()

	g := testGrid(t, 2)
	_, err := Rasterize(Input{Grid: nil})
	assert.Error(t, err)
	_, err = Rasterize(Input{Grid: g, Fields: uniformFields(t, g, 0, 1)[:1], Dv: 1})
	assert.ErrorContains(t, err, "2 layers")
	_, err = Rasterize(Input{Grid: g, Fields: uniformFields(t, g, 0, 1), Dv: 0})
	assert.ErrorContains(t, err, "channel width")
}
