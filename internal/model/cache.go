package model

import (
	"github.com/banshee-data/channelfit/internal/kinematics"
	"github.com/banshee-data/channelfit/internal/profile"
)

// Recomputes counts how often each cached intermediate was rebuilt.
type Recomputes struct {
	Incl, Profile, Surfaces, Fields int
}

type profileKey struct{ cs, dv float64 }

type surfaceKey struct{ incl, h1, h2 float64 }

type fieldKey struct {
	surface surfaceKey
	rc, rin float64
}

// caches memoizes the intermediates of one evaluation keyed by exactly
// the inputs they depend on. A key change rebuilds that entry; the
// dependants see a new key of their own and follow on their next read.
type caches struct {
	inclKey  float64
	incl     *kinematics.Incl
	profKey  profileKey
	prof     *profile.Kernel
	surfKey  surfaceKey
	surfaces [][]kinematics.Branch
	fieldKey fieldKey
	fields   [][]kinematics.Field

	counts Recomputes
}

func (m *Model) inclination(offset float64) kinematics.Incl {
	if m.cache.incl == nil || m.cache.inclKey != offset {
		inc := kinematics.NewIncl(m.setup.Incl + offset)
		m.cache.incl, m.cache.inclKey = &inc, offset
		m.cache.counts.Incl++
	}
	return *m.cache.incl
}

func (m *Model) lineProfile(cs, dv float64) profile.Kernel {
	key := profileKey{cs, dv}
	if m.cache.prof == nil || m.cache.profKey != key {
		k := profile.NewKernel(cs / dv)
		m.cache.prof, m.cache.profKey = &k, key
		m.cache.counts.Profile++
	}
	return *m.cache.prof
}

func (m *Model) branches(inc kinematics.Incl, h1, h2 float64) [][]kinematics.Branch {
	key := surfaceKey{inc.Deg, h1, h2}
	if m.cache.surfaces == nil || m.cache.surfKey != key {
		out := make([][]kinematics.Branch, len(m.grid.Layers))
		for l, layer := range m.grid.Layers {
			out[l] = append(
				kinematics.SolveSurface(layer.Minor, layer.Major, inc, h1),
				kinematics.SolveSurface(layer.Minor, layer.Major, inc, h2)...,
			)
		}
		m.cache.surfaces, m.cache.surfKey = out, key
		m.cache.counts.Surfaces++
	}
	return m.cache.surfaces
}

func (m *Model) velocityFields(inc kinematics.Incl, p Params) [][]kinematics.Field {
	branches := m.branches(inc, p.H1, p.H2)
	key := fieldKey{surface: m.cache.surfKey, rc: p.Rc, rin: p.Rin}
	if m.cache.fields == nil || m.cache.fieldKey != key {
		radii := kinematics.Radii{Rc: p.Rc, Rin: p.Rin, Envelope: m.setup.Envelope}
		out := make([][]kinematics.Field, len(branches))
		for l, bs := range branches {
			major := m.grid.Layers[l].Major
			out[l] = make([]kinematics.Field, len(bs))
			for b, br := range bs {
				out[l][b] = kinematics.Velocity(br, major, radii, m.polarity, inc)
			}
		}
		m.cache.fields, m.cache.fieldKey = out, key
		m.cache.counts.Fields++
	}
	return m.cache.fields
}
