package fit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/channelfit/internal/config"
	"github.com/banshee-data/channelfit/internal/model"
)

func TestDefaultRanges_AllFreeAndValid(t *testing.T) {
	t.Parallel()

	s := DefaultRanges()
	require.NoError(t, s.Validate())
	assert.Equal(t, model.Names, s.Free())
	lo, hi := s[model.NameOffVsys].Range()
	assert.Equal(t, -0.2, lo)
	assert.Equal(t, 0.2, hi)
}

func TestParamSpec(t *testing.T) {
	t.Parallel()

	f := Fixed(3)
	assert.False(t, f.IsFree())
	assert.Equal(t, 3.0, f.Value())
	assert.Equal(t, "=3", f.String())

	r := Free(1, 2)
	assert.True(t, r.IsFree())
	assert.Equal(t, "[1, 2]", r.String())
}

func TestSpecs_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(Specs)
		wantErr string
	}{
		{"unknown", func(s Specs) { s["mass"] = Fixed(1) }, "unknown parameter"},
		{"missing", func(s Specs) { delete(s, model.NameRin) }, "no spec"},
		{"reversed range", func(s Specs) { s[model.NameCs] = Free(1, 0.1) }, "lo < hi"},
		{"log range", func(s Specs) { s[model.NameRc] = Free(0, 10) }, "positive"},
		{"log fixed", func(s Specs) { s[model.NameMstar] = Fixed(-1) }, "positive"},
		{"negative Rin fine", func(s Specs) { s[model.NameRin] = Fixed(-1) }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultRanges()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSpecsFrom(t *testing.T) {
	t.Parallel()

	one := 1.0
	specs, err := SpecsFrom(map[string]config.ParamEntry{
		model.NameMstar: {Fixed: &one},
		model.NameRc:    {Range: []float64{10, 500}},
		model.NameH2:    {},
	})
	require.NoError(t, err)
	assert.Equal(t, Fixed(1), specs[model.NameMstar])
	assert.Equal(t, Free(10, 500), specs[model.NameRc])
	assert.Equal(t, DefaultRanges()[model.NameH2], specs[model.NameH2])

	_, err = SpecsFrom(map[string]config.ParamEntry{model.NameCs: {Fixed: &one, Range: []float64{0, 1}}})
	assert.ErrorContains(t, err, "mutually exclusive")
	_, err = SpecsFrom(map[string]config.ParamEntry{model.NameCs: {Range: []float64{0}}})
	assert.ErrorContains(t, err, "2 values")
	_, err = SpecsFrom(map[string]config.ParamEntry{"bogus": {Fixed: &one}})
	assert.ErrorContains(t, err, "unknown")
	_, err = SpecsFrom(map[string]config.ParamEntry{" Mstar": {Fixed: &one}})
	assert.ErrorContains(t, err, `unknown parameter " Mstar"`)
}
