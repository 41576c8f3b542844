package model

import (
	"fmt"

	"github.com/banshee-data/channelfit/internal/cube"
	"github.com/banshee-data/channelfit/internal/moments"
)

// Products are the model cubes placed on the full observed velocity
// axis. Channels outside the fit windows are invalid.
type Products struct {
	Model            *cube.Cube
	Residual         *cube.Cube
	BeforeConvolving *cube.Cube
	BeforeScaling    *cube.Cube
}

// Products evaluates every stage at p on the individual fit channels.
func (m *Model) Products(p Params) (Products, error) {
	var out Products
	nv := len(m.obs.V)
	for _, s := range []struct {
		stage Stage
		dst   **cube.Cube
	}{
		{Full, &out.Model},
		{Unconvolved, &out.BeforeConvolving},
		{Unscaled, &out.BeforeScaling},
	} {
		c, err := m.evaluate(p, s.stage, &m.separate)
		if err != nil {
			return Products{}, fmt.Errorf("%s products: %w", s.stage, err)
		}
		*s.dst = m.channels.Expand(c, nv)
	}
	out.Residual = Residual(m.obs.Data, out.Model)
	return out, nil
}

// Residual returns obs - mod. Entries invalid in either cube are
// invalid.
func Residual(obs, mod *cube.Cube) *cube.Cube {
	out := cube.New(obs.NV, obs.NY, obs.NX)
	out.Valid = make([]bool, len(out.Data))
	for i := range out.Data {
		if obs.IsValid(i) && mod.IsValid(i) {
			out.Data[i] = obs.Data[i] - mod.Data[i]
			out.Valid[i] = true
		}
	}
	return out
}

// MomentSet holds observed, model and residual moment maps.
type MomentSet struct {
	Observed, Model moments.Maps
	Residual        moments.Maps
}

// MomentMaps computes the moment maps of the model at p on the fit
// channels along with the observed maps and their difference. The
// residual keeps the observed moment 0 noise.
func (m *Model) MomentMaps(p Params) (MomentSet, error) {
	mod, err := m.evaluate(p, Full, &m.separate)
	if err != nil {
		return MomentSet{}, err
	}
	mm, err := moments.Compute(mod, m.separate.v, m.separate.sigma)
	if err != nil {
		return MomentSet{}, fmt.Errorf("model moments: %w", err)
	}
	return MomentSet{
		Observed: m.mom,
		Model:    mm,
		Residual: moments.Maps{
			Mom0:      m.mom.Mom0.Sub(mm.Mom0),
			Mom1:      m.mom.Mom1.Sub(mm.Mom1),
			Mom2:      m.mom.Mom2.Sub(mm.Mom2),
			SigmaMom0: m.mom.SigmaMom0,
			Dv:        m.mom.Dv,
		},
	}, nil
}
