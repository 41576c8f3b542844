package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/channelfit/internal/cube"
	"github.com/banshee-data/channelfit/internal/scaling"
	"github.com/banshee-data/channelfit/internal/testutil"
)

func testSetup() Setup {
	return Setup{
		Incl:     45,
		RMax:     80,
		Layers:   2,
		Windows:  cube.DefaultWindows(),
		Envelope: true,
		Scaling:  scaling.Uniform,
	}
}

func testParams() Params {
	return Params{Mstar: 1, Rc: 1000, Cs: 0.3, H1: 0, H2: -1}
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := New(testutil.SyntheticObservation(t, testutil.SyntheticOptions{}), testSetup())
	require.NoError(t, err)
	return m
}

func TestNew_DerivesPolarityAndGrid(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)
	assert.Equal(t, 1.0, m.Polarity().Major)
	assert.Equal(t, 12, m.Channels().Len())
	assert.Len(t, m.Grid().Layers, 2)
	assert.Greater(t, m.PixPerBeam(), 1.0)
	assert.False(t, m.Combined())
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	obs := testutil.SyntheticObservation(t, testutil.SyntheticOptions{})
	_, err := New(nil, testSetup())
	assert.Error(t, err)

	s := testSetup()
	s.Scaling = "median"
	_, err = New(obs, s)
	assert.ErrorContains(t, err, "scaling")

	s = testSetup()
	s.Windows = cube.Windows{BlueMin: 50, BlueMax: 60, RedMin: 70, RedMax: 80}
	_, err = New(obs, s)
	assert.ErrorContains(t, err, "need at least 2")

	s = testSetup()
	s.Layers = 0
	_, err = New(obs, s)
	assert.Error(t, err)
}

func TestEvaluate_ShapeAndFinite(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)
	out, err := m.Evaluate(testParams())
	require.NoError(t, err)

	obs := m.Observation()
	assert.Equal(t, 12, out.NV)
	assert.Equal(t, len(obs.Y), out.NY)
	assert.Equal(t, len(obs.X), out.NX)
	var sum float64
	for _, v := range out.Data {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		assert.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	assert.Greater(t, sum, 0.0)
}

func TestEvaluate_CachesFollowTheirInputs(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)
	p := testParams()
	eval := func() {
		t.Helper()
		_, err := m.Evaluate(p)
		require.NoError(t, err)
	}

	eval()
	eval()
	assert.Equal(t, Recomputes{Incl: 1, Profile: 1, Surfaces: 1, Fields: 1}, m.Recomputes())

	p.Mstar, p.PI, p.OffMajor, p.OffVsys = 2, 0.5, 3, 0.1
	eval()
	assert.Equal(t, Recomputes{Incl: 1, Profile: 1, Surfaces: 1, Fields: 1}, m.Recomputes())

	p.Cs = 0.2
	eval()
	assert.Equal(t, Recomputes{Incl: 1, Profile: 2, Surfaces: 1, Fields: 1}, m.Recomputes())

	p.H1 = 0.2
	eval()
	assert.Equal(t, Recomputes{Incl: 1, Profile: 2, Surfaces: 2, Fields: 2}, m.Recomputes())

	p.Rc = 50
	eval()
	assert.Equal(t, Recomputes{Incl: 1, Profile: 2, Surfaces: 2, Fields: 3}, m.Recomputes())

	p.Incl = 5
	eval()
	assert.Equal(t, Recomputes{Incl: 2, Profile: 2, Surfaces: 3, Fields: 4}, m.Recomputes())
}

func TestEvaluate_ZeroModelScalesToZero(t *testing.T) {
	t.Parallel()

	obs := testutil.SyntheticObservation(t, testutil.SyntheticOptions{})
	for _, policy := range scaling.ValidPolicies {
		s := testSetup()
		s.Scaling = policy
		m, err := New(obs, s)
		require.NoError(t, err)

		p := testParams()
		p.H1, p.H2 = -1, -1
		out, err := m.Evaluate(p)
		require.NoError(t, err, policy)
		for _, v := range out.Data {
			require.Zero(t, v, policy)
		}
		ll, err := m.LogLikelihood(p)
		require.NoError(t, err)
		assert.False(t, math.IsInf(ll, 0) || math.IsNaN(ll), policy)
	}
}

func TestEvaluateStage_NormalizedToPeak(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)
	for _, s := range []Stage{Unscaled, Unconvolved} {
		out, err := m.EvaluateStage(testParams(), s)
		require.NoError(t, err)
		peak, ok := out.Max()
		require.True(t, ok)
		assert.InDelta(t, 1, peak, 1e-12, s.String())
	}
	assert.Equal(t, "Stage(9)", Stage(9).String())
}

func TestSetCombined(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)
	require.NoError(t, m.SetCombined(true))
	assert.True(t, m.Combined())
	assert.Equal(t, []float64{-1.5, 1.5}, m.combined.v)
	assert.InDelta(t, 3, m.combined.dv, 1e-12)
	assert.InDelta(t, 0.05/math.Sqrt(6), m.combined.sigma, 1e-12)

	out, err := m.Evaluate(testParams())
	require.NoError(t, err)
	assert.Equal(t, 2, out.NV)

	c := m.Clone()
	assert.True(t, c.Combined())

	require.NoError(t, m.SetCombined(false))
	assert.False(t, m.Combined())
	out, err = m.Evaluate(testParams())
	require.NoError(t, err)
	assert.Equal(t, 12, out.NV)
}

func TestSetCombined_NeedsBothWindows(t *testing.T) {
	t.Parallel()

	s := testSetup()
	s.Windows = cube.Windows{BlueMin: -10, BlueMax: 10, RedMin: 50, RedMax: 60}
	m, err := New(testutil.SyntheticObservation(t, testutil.SyntheticOptions{}), s)
	require.NoError(t, err)
	assert.Error(t, m.SetCombined(true))
	assert.False(t, m.Combined())
}

func TestLogLikelihood_SelfConsistent(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)
	p := testParams()
	mod, err := m.Evaluate(p)
	require.NoError(t, err)

	obs := *m.Observation()
	obs.Data = m.Channels().Expand(mod, len(obs.V))
	perfect, err := New(&obs, testSetup())
	require.NoError(t, err)

	ll, err := perfect.LogLikelihood(p)
	require.NoError(t, err)
	assert.InDelta(t, 0, ll, 1e-9)

	p.Mstar = 2
	worse, err := perfect.LogLikelihood(p)
	require.NoError(t, err)
	assert.Less(t, worse, ll)
}

func TestClone_IndependentCaches(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)
	_, err := m.Evaluate(testParams())
	require.NoError(t, err)

	c := m.Clone()
	assert.Equal(t, Recomputes{}, c.Recomputes())
	a, err := c.Evaluate(testParams())
	require.NoError(t, err)
	b, err := m.Evaluate(testParams())
	require.NoError(t, err)
	assert.Equal(t, b.Data, a.Data)
}

func TestProducts_FullAxis(t *testing.T) {
	t.Parallel()

	s := testSetup()
	s.Windows = cube.Windows{BlueMin: -2, BlueMax: -0.5, RedMin: 0.5, RedMax: 2}
	m, err := New(testutil.SyntheticObservation(t, testutil.SyntheticOptions{}), s)
	require.NoError(t, err)
	require.Equal(t, []int{2, 3, 4, 7, 8, 9}, m.Channels().Indices)

	prods, err := m.Products(testParams())
	require.NoError(t, err)
	obs := m.Observation()
	plane := obs.Data.Plane()
	for _, c := range []*cube.Cube{prods.Model, prods.Residual, prods.BeforeConvolving, prods.BeforeScaling} {
		require.Equal(t, len(obs.V), c.NV)
		assert.False(t, c.IsValid(plane))
		assert.True(t, c.IsValid(2*plane))
		assert.False(t, c.IsValid(5*plane))
	}
	i := 2*plane + 7*obs.Data.NX + 8
	assert.InDelta(t, obs.Data.Data[i]-prods.Model.Data[i], prods.Residual.Data[i], 1e-12)
}

func TestMomentMaps(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)
	set, err := m.MomentMaps(testParams())
	require.NoError(t, err)

	assert.Same(t, m.Moments().Mom0, set.Observed.Mom0)
	assert.Equal(t, set.Observed.SigmaMom0, set.Residual.SigmaMom0)
	i := 7*set.Model.Mom0.NX + 8
	assert.InDelta(t, set.Observed.Mom0.Data[i]-set.Model.Mom0.Data[i], set.Residual.Mom0.Data[i], 1e-12)
}
