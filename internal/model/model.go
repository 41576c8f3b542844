// Package model is the forward model: it turns a parameter vector into a
// synthetic cube on the observed pixels and fit channels, and scores it
// against the observation.
package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/channelfit/internal/cube"
	"github.com/banshee-data/channelfit/internal/grid"
	"github.com/banshee-data/channelfit/internal/imaging"
	"github.com/banshee-data/channelfit/internal/kinematics"
	"github.com/banshee-data/channelfit/internal/moments"
	"github.com/banshee-data/channelfit/internal/monitoring"
	"github.com/banshee-data/channelfit/internal/profile"
	"github.com/banshee-data/channelfit/internal/scaling"
)

// Setup holds the fixed geometry and options of a model.
type Setup struct {
	PA       float64 // position angle of the major axis (deg, east of north)
	Incl     float64 // base inclination (deg); the Incl parameter adds to it
	RMax     float64 // model half extent (au)
	Layers   int
	Windows  cube.Windows
	Envelope bool
	Scaling  scaling.Policy
}

// Stage selects how far an evaluation goes.
type Stage int

const (
	// Full convolves with the beam and scales onto the observation.
	Full Stage = iota
	// Unscaled convolves and normalizes to the global peak.
	Unscaled
	// Unconvolved peak-normalizes every channel before projection and
	// normalizes to the global peak.
	Unconvolved
)

func (s Stage) String() string {
	switch s {
	case Full:
		return "full"
	case Unscaled:
		return "unscaled"
	case Unconvolved:
		return "unconvolved"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// target is the observed side of a fit: channel velocities, data,
// channel width and noise.
type target struct {
	v     []float64
	data  *cube.Cube
	dv    float64
	sigma float64
}

// Model evaluates synthetic cubes for one observation. A Model is not
// safe for concurrent use; give each goroutine its own Clone.
type Model struct {
	obs      *cube.Observation
	setup    Setup
	grid     *grid.Nested
	beam     grid.Kernel
	channels cube.ChannelSet
	mom      moments.Maps
	polarity kinematics.Polarity

	separate target
	combined *target
	active   *target

	cache caches
}

// New prepares a model of obs: it selects the fit channels, builds the
// nested grid and the beam kernel, and derives the rotation polarity
// from the observed moment 1 map.
func New(obs *cube.Observation, setup Setup) (*Model, error) {
	if obs == nil {
		return nil, errors.New("model: nil observation")
	}
	if err := obs.Validate(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	if _, err := scaling.ParsePolicy(string(setup.Scaling)); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	chans := setup.Windows.Select(obs.V)
	if chans.Len() < 2 {
		return nil, fmt.Errorf("model: velocity windows %+v keep %d channels, need at least 2", setup.Windows, chans.Len())
	}
	m := &Model{obs: obs, setup: setup, channels: chans}
	m.separate = target{
		v:     chans.Velocities(obs.V),
		data:  obs.Data.Channels(chans.Indices),
		dv:    obs.Dv,
		sigma: obs.Sigma,
	}
	m.active = &m.separate

	var err error
	if m.mom, err = moments.Compute(m.separate.data, m.separate.v, obs.Sigma); err != nil {
		return nil, fmt.Errorf("model: observed moments: %w", err)
	}
	m.polarity = kinematics.DerivePolarity(m.mom.Mom1, obs.X, obs.Y, setup.PA)

	m.grid, err = grid.Build(grid.Spec{
		Pitch:     obs.Pitch(),
		HalfWidth: setup.RMax,
		Beam:      obs.Beam,
		Layers:    setup.Layers,
		PA:        setup.PA,
	})
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	if m.beam, err = grid.NewKernel(obs.Beam, obs.Pitch()); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	monitoring.Logf("beam (major, minor) = (%.1f, %.1f) pixels", obs.Beam.Major/obs.Pitch(), obs.Beam.Minor/obs.Pitch())
	for _, l := range m.grid.Layers {
		monitoring.Debugf("nested layer: extent +/-%.2f au, pitch %.2f au, %d pixels", l.Axis[len(l.Axis)-1], l.Pitch, m.grid.N)
	}
	monitoring.Logf("polarity major %+g, minor %+g; %d fit channels", m.polarity.Major, m.polarity.Minor, chans.Len())
	return m, nil
}

// Clone returns a model sharing the observation, grid and kernel with m
// but with its own caches and fit mode.
func (m *Model) Clone() *Model {
	c := &Model{
		obs:      m.obs,
		setup:    m.setup,
		grid:     m.grid,
		beam:     m.beam,
		channels: m.channels,
		mom:      m.mom,
		polarity: m.polarity,
		separate: m.separate,
		combined: m.combined,
	}
	c.active = &c.separate
	if m.active == m.combined && m.combined != nil {
		c.active = c.combined
	}
	return c
}

// SetCombined switches the fit between the individual window channels
// and two window-averaged channels. The averaged channels have a width
// of dv*n/2 and noise sigma/sqrt(n/2) for n fit channels.
func (m *Model) SetCombined(on bool) error {
	if !on {
		m.active = &m.separate
		return nil
	}
	if m.combined == nil {
		if len(m.channels.Blue) == 0 || len(m.channels.Red) == 0 {
			return errors.New("model: combined mode needs channels in both velocity windows")
		}
		half := float64(m.channels.Len()) / 2
		data := cube.New(2, m.obs.Data.NY, m.obs.Data.NX)
		data.Valid = make([]bool, len(data.Data))
		plane := data.Plane()
		for k, idx := range [][]int{m.channels.Blue, m.channels.Red} {
			d, valid := cube.MeanChannel(m.obs.Data, idx)
			copy(data.Data[k*plane:], d)
			copy(data.Valid[k*plane:], valid)
		}
		m.combined = &target{
			v:     []float64{cube.MeanOf(m.obs.V, m.channels.Blue), cube.MeanOf(m.obs.V, m.channels.Red)},
			data:  data,
			dv:    m.obs.Dv * half,
			sigma: m.obs.Sigma / math.Sqrt(half),
		}
	}
	m.active = m.combined
	return nil
}

// Combined reports whether the fit uses window-averaged channels.
func (m *Model) Combined() bool { return m.active != &m.separate }

// Evaluate returns the fully processed model on the active fit channels.
func (m *Model) Evaluate(p Params) (*cube.Cube, error) {
	return m.evaluate(p, Full, m.active)
}

// EvaluateStage returns the model on the individual fit channels
// processed up to stage s.
func (m *Model) EvaluateStage(p Params, s Stage) (*cube.Cube, error) {
	return m.evaluate(p, s, &m.separate)
}

func (m *Model) evaluate(p Params, s Stage, t *target) (*cube.Cube, error) {
	inc := m.inclination(p.Incl)
	kern := m.lineProfile(p.Cs, t.dv)
	fields := m.velocityFields(inc, p)

	raw, err := profile.Rasterize(profile.Input{
		Grid:     m.grid,
		Fields:   fields,
		Channels: t.v,
		Dv:       t.dv,
		Kernel:   kern,
		Mstar:    p.Mstar,
		PI:       p.PI,
		OffVsys:  p.OffVsys,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if s == Unconvolved {
		imaging.PeakNormalize(raw)
	} else if raw, err = imaging.Convolve(raw, m.beam); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	out, err := imaging.Project(raw, m.grid.NeedAxis, m.obs.X, m.obs.Y, imaging.Offset{
		Major: p.OffMajor,
		Minor: p.OffMinor,
		PA:    m.setup.PA,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	if s != Full {
		if peak, ok := out.Max(); ok && peak > 0 {
			out.Scale(1 / peak)
		}
		return out, nil
	}
	f, err := scaling.Compute(m.setup.Scaling, out, scaling.Reference{
		Data:      t.data,
		Mom0:      m.mom.Mom0,
		SigmaMom0: m.mom.SigmaMom0,
		Dv:        t.dv,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	f.Apply(out)
	return out, nil
}

// LogLikelihood returns -chi^2/2 of the model against the active fit
// channels, with chi^2 = sum((obs - model)/sigma)^2 / PixPerBeam over
// valid observed entries.
func (m *Model) LogLikelihood(p Params) (float64, error) {
	mod, err := m.Evaluate(p)
	if err != nil {
		return math.Inf(-1), err
	}
	obs := m.active.data
	var chi2 float64
	for i, o := range obs.Data {
		if !obs.IsValid(i) {
			continue
		}
		d := o - mod.Data[i]
		chi2 += d * d
	}
	chi2 /= m.active.sigma * m.active.sigma * m.beam.PixPerBeam
	return -0.5 * chi2, nil
}

// Observation returns the observation the model was built for.
func (m *Model) Observation() *cube.Observation { return m.obs }

// Setup returns the model options.
func (m *Model) Setup() Setup { return m.setup }

// Grid returns the nested model grid.
func (m *Model) Grid() *grid.Nested { return m.grid }

// PixPerBeam is the number of pixels per beam.
func (m *Model) PixPerBeam() float64 { return m.beam.PixPerBeam }

// Channels returns the fit channel selection on the observed axis.
func (m *Model) Channels() cube.ChannelSet { return m.channels }

// Velocities returns the individual fit channel velocities.
func (m *Model) Velocities() []float64 { return m.separate.v }

// Moments returns the moment maps of the observed fit channels.
func (m *Model) Moments() moments.Maps { return m.mom }

// Polarity returns the rotation and infall signs derived from moment 1.
func (m *Model) Polarity() kinematics.Polarity { return m.polarity }

// Recomputes returns the cache rebuild counters.
func (m *Model) Recomputes() Recomputes { return m.cache.counts }
