package scaling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/channelfit/internal/cube"
)

func filled(nv, ny, nx int, vals ...float64) *cube.Cube {
	c := cube.New(nv, ny, nx)
	copy(c.Data, vals)
	return c
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"chi2", "peak", "mom0", "uniform", "CHI2"} {
		_, err := ParsePolicy(name)
		assert.NoError(t, err, name)
	}
	_, err := ParsePolicy("median")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chi2, peak, mom0, uniform")
}

func TestCompute_ZeroModel(t *testing.T) {
	t.Parallel()

	obs := filled(2, 1, 2, 1, 2, 3, 4)
	model := cube.New(2, 1, 2)
	mom0 := cube.NewMap(1, 2)
	mom0.Data[0], mom0.Data[1] = 10, 10

	for _, p := range ValidPolicies {
		t.Run(string(p), func(t *testing.T) {
			f, err := Compute(p, model, Reference{Data: obs, Mom0: mom0, SigmaMom0: 1, Dv: 1})
			require.NoError(t, err)
			for _, s := range append(f.PerChannel, f.PerPixel...) {
				assert.Equal(t, 0.0, s)
			}
		})
	}
}

func TestCompute_Chi2(t *testing.T) {
	t.Parallel()

	model := filled(2, 1, 2, 1, 1, 1, 2)
	obs := filled(2, 1, 2, 2, 2, 3, 6)
	f, err := Compute(Chi2, model, Reference{Data: obs})
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{2, 3}, f.PerChannel, 1e-12)

	f.Apply(model)
	assert.InDeltaSlice(t, []float64{2, 2, 3, 6}, model.Data, 1e-12)
}

func TestCompute_Chi2SkipsInvalid(t *testing.T) {
	t.Parallel()

	model := filled(1, 1, 2, 1, 1)
	obs := filled(1, 1, 2, 2, 100)
	obs.Invalidate(0, 0, 1)
	f, err := Compute(Chi2, model, Reference{Data: obs})
	require.NoError(t, err)
	assert.InDelta(t, 2, f.PerChannel[0], 1e-12)
}

func TestCompute_NegativeForcedToZero(t *testing.T) {
	t.Parallel()

	model := filled(1, 1, 2, 1, 1)
	obs := filled(1, 1, 2, -2, -2)
	f, err := Compute(Chi2, model, Reference{Data: obs})
	require.NoError(t, err)
	assert.Equal(t, 0.0, f.PerChannel[0])
}

func TestCompute_Peak(t *testing.T) {
	t.Parallel()

	model := filled(2, 1, 2, 0.5, 1, 2, 1)
	obs := filled(2, 1, 2, 3, 4, 1, 8)
	f, err := Compute(Peak, model, Reference{Data: obs})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{4, 4}, f.PerChannel, 1e-12)
}

func TestCompute_Mom0(t *testing.T) {
	t.Parallel()

	model := filled(2, 1, 3, 1, 1, 0, 1, 3, 0)
	obs := cube.New(2, 1, 3)
	mom0 := cube.NewMap(1, 3)
	copy(mom0.Data, []float64{4, 2, 5})

	f, err := Compute(Mom0, model, Reference{Data: obs, Mom0: mom0, SigmaMom0: 1, Dv: 0.5})
	require.NoError(t, err)
	// Pixel 1 is below 3 sigma and pixel 2 has no model flux.
	assert.InDeltaSlice(t, []float64{4, 0, 0}, f.PerPixel, 1e-12)

	f.Apply(model)
	assert.InDeltaSlice(t, []float64{4, 0, 0, 4, 0, 0}, model.Data, 1e-12)
}

func TestCompute_Mom0NeedsMap(t *testing.T) {
	t.Parallel()

	_, err := Compute(Mom0, cube.New(1, 1, 1), Reference{Data: cube.New(1, 1, 1)})
	assert.Error(t, err)
}

func TestCompute_Uniform(t *testing.T) {
	t.Parallel()

	model := filled(2, 1, 1, 1, 2)
	obs := filled(2, 1, 1, 3, 4)
	f, err := Compute(Uniform, model, Reference{Data: obs})
	require.NoError(t, err)
	// (1*3 + 2*4) / (1 + 4)
	assert.InDeltaSlice(t, []float64{2.2, 2.2}, f.PerChannel, 1e-12)
	assert.InDeltaSlice(t, []float64{1, 1}, f.Relative(), 1e-12)
}

func TestCompute_ShapeMismatch(t *testing.T) {
	t.Parallel()

	_, err := Compute(Chi2, cube.New(1, 1, 2), Reference{Data: cube.New(2, 1, 2)})
	assert.Error(t, err)
	_, err = Compute(Policy("x"), cube.New(1, 1, 1), Reference{Data: cube.New(1, 1, 1)})
	assert.Error(t, err)
}
