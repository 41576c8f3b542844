// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"
	"testing"

	"github.com/banshee-data/channelfit/internal/cube"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertClose fails the test if got and want differ by more than tol.
func AssertClose(t testing.TB, name string, got, want, tol float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > tol {
		t.Errorf("%s = %g, want %g (tol %g)", name, got, want, tol)
	}
}

// SyntheticOptions shape a synthetic observation. Zero fields take the
// defaults documented on each field.
type SyntheticOptions struct {
	NX, NY, NV int     // 16, 16, 12
	Pitch      float64 // pixel size in au, 10
	Dv         float64 // channel width in km/s, 0.5
	Sigma      float64 // noise level, 0.05
	Beam       float64 // circular beam axis in au, 2 pixels
	Width      float64 // Gaussian source radius in au, 4 pixels
	Gradient   float64 // velocity gradient along +Y in km/s per au, 0.02
}

func (o SyntheticOptions) withDefaults() SyntheticOptions {
	setInt := func(v *int, d int) {
		if *v == 0 {
			*v = d
		}
	}
	setFloat := func(v *float64, d float64) {
		if *v == 0 {
			*v = d
		}
	}
	setInt(&o.NX, 16)
	setInt(&o.NY, 16)
	setInt(&o.NV, 12)
	setFloat(&o.Pitch, 10)
	setFloat(&o.Dv, 0.5)
	setFloat(&o.Sigma, 0.05)
	setFloat(&o.Beam, 2*o.Pitch)
	setFloat(&o.Width, 4*o.Pitch)
	setFloat(&o.Gradient, 0.02)
	return o
}

// Axis returns n samples spaced by step and centred on zero.
func Axis(n int, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = (float64(i) - float64(n-1)/2) * step
	}
	return out
}

// SyntheticObservation returns a noiseless observation of a Gaussian
// source whose line centre shifts linearly along +Y, so moment 1 rises
// to the north. X runs east to west as in sky images.
func SyntheticObservation(t testing.TB, opts SyntheticOptions) *cube.Observation {
	t.Helper()
	o := opts.withDefaults()
	obs := &cube.Observation{
		X:     Axis(o.NX, -o.Pitch),
		Y:     Axis(o.NY, o.Pitch),
		V:     Axis(o.NV, o.Dv),
		Dx:    -o.Pitch,
		Dy:    o.Pitch,
		Dv:    o.Dv,
		Sigma: o.Sigma,
		Beam:  cube.Beam{Major: o.Beam, Minor: o.Beam},
		Data:  cube.New(o.NV, o.NY, o.NX),
	}
	lineWidth := 2 * o.Dv
	for k, v := range obs.V {
		for j, y := range obs.Y {
			for i, x := range obs.X {
				r2 := (x*x + y*y) / (o.Width * o.Width)
				dv := (v - o.Gradient*y) / lineWidth
				obs.Data.Set(k, j, i, math.Exp(-r2/2)*math.Exp(-dv*dv/2))
			}
		}
	}
	if err := obs.Validate(); err != nil {
		t.Fatalf("synthetic observation: %v", err)
	}
	return obs
}
