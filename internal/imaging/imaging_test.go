package imaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/channelfit/internal/cube"
	"github.com/banshee-data/channelfit/internal/grid"
)

func TestConvolve_PointSourceReproducesKernel(t *testing.T) {
	t.Parallel()

	k, err := grid.NewKernel(cube.Beam{Major: 2, Minor: 1, PA: 30}, 1)
	require.NoError(t, err)
	n := 11
	c := cube.New(1, n, n)
	c.Set(0, 5, 5, 1)

	out, err := Convolve(c, k)
	require.NoError(t, err)

	h := k.Size / 2
	for q := 0; q < k.Size; q++ {
		for p := 0; p < k.Size; p++ {
			assert.InDelta(t, k.Weights[q*k.Size+p], out.At(0, 5+q-h, 5+p-h), 1e-12)
		}
	}
}

func TestConvolve_ConservesFluxAwayFromEdges(t *testing.T) {
	t.Parallel()

	k, err := grid.NewKernel(cube.Beam{Major: 1.5, Minor: 1.5}, 1)
	require.NoError(t, err)
	c := cube.New(2, 15, 15)
	c.Set(0, 7, 7, 3)
	c.Set(1, 6, 8, 2)
	c.Set(1, 8, 6, 1)

	out, err := Convolve(c, k)
	require.NoError(t, err)
	for ch, want := range []float64{3, 3} {
		var sum float64
		for _, v := range out.Channel(ch) {
			sum += v
		}
		assert.InDelta(t, want, sum, 1e-9)
	}
}

func TestConvolve_EdgeTruncates(t *testing.T) {
	t.Parallel()

	k, err := grid.NewKernel(cube.Beam{Major: 2, Minor: 2}, 1)
	require.NoError(t, err)
	c := cube.New(1, 5, 5)
	c.Set(0, 0, 0, 1)

	out, err := Convolve(c, k)
	require.NoError(t, err)
	var sum float64
	for _, v := range out.Data {
		sum += v
	}
	assert.Less(t, sum, 1.0)
	assert.InDelta(t, k.Weights[(k.Size/2)*k.Size+k.Size/2], out.At(0, 0, 0), 1e-12)
}

func TestConvolve_RejectsEvenKernel(t *testing.T) {
	t.Parallel()

	_, err := Convolve(cube.New(1, 3, 3), grid.Kernel{Size: 2, Weights: make([]float64, 4)})
	assert.Error(t, err)
}

func TestPeakNormalize(t *testing.T) {
	t.Parallel()

	c := cube.New(2, 1, 3)
	copy(c.Data, []float64{1, 4, 2, 0, 0, 0})
	PeakNormalize(c)
	assert.Equal(t, []float64{0.25, 1, 0.5, 0, 0, 0}, c.Data)
}

func TestOffset_Sky(t *testing.T) {
	t.Parallel()

	x, y := Offset{Major: 1}.Sky()
	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, 1, y, 1e-12)

	x, y = Offset{Major: 1, PA: 90}.Sky()
	assert.InDelta(t, 1, x, 1e-12)
	assert.InDelta(t, 0, y, 1e-12)

	x, y = Offset{Minor: 1, PA: 90}.Sky()
	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, -1, y, 1e-12)
}

func TestProject_BilinearAndFill(t *testing.T) {
	t.Parallel()

	axis := []float64{-1, 0, 1}
	c := cube.New(1, 3, 3)
	// value = x + 10 y, linear so bilinear is exact.
	for j, y := range axis {
		for i, x := range axis {
			c.Set(0, j, i, x+10*y)
		}
	}
	xs := []float64{0.5, -0.25, 2}
	ys := []float64{0.5, -1}

	out, err := Project(c, axis, xs, ys, Offset{})
	require.NoError(t, err)
	require.Equal(t, 2, out.NY)
	require.Equal(t, 3, out.NX)

	assert.InDelta(t, 5.5, out.At(0, 0, 0), 1e-12)
	assert.InDelta(t, 4.75, out.At(0, 0, 1), 1e-12)
	assert.Zero(t, out.At(0, 0, 2))
	assert.InDelta(t, -9.5, out.At(0, 1, 0), 1e-12)
}

func TestProject_ShiftsByOffset(t *testing.T) {
	t.Parallel()

	axis := []float64{-2, -1, 0, 1, 2}
	c := cube.New(1, 5, 5)
	c.Set(0, 2, 2, 1)

	// A major-axis offset of 1 at PA 0 moves the peak one pixel north.
	out, err := Project(c, axis, axis, axis, Offset{Major: 1})
	require.NoError(t, err)
	assert.InDelta(t, 1, out.At(0, 3, 2), 1e-12)
	assert.Zero(t, out.At(0, 2, 2))
}

func TestProject_ShapeMismatch(t *testing.T) {
	t.Parallel()

	_, err := Project(cube.New(1, 3, 3), []float64{0, 1}, nil, nil, Offset{})
	assert.Error(t, err)
}
