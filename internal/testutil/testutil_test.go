package testutil

import (
	"errors"
	"testing"
)

func TestAssertNoError_NilErr(t *testing.T) {
	t.Parallel()
	AssertNoError(t, nil)
}

func TestAssertError_WithErr(t *testing.T) {
	t.Parallel()
	AssertError(t, errors.New("something wrong"))
}

func TestAssertClose_WithinTolerance(t *testing.T) {
	t.Parallel()
	AssertClose(t, "value", 1.0005, 1, 1e-3)
}

func TestAxis_Centred(t *testing.T) {
	t.Parallel()

	a := Axis(4, 2)
	want := []float64{-3, -1, 1, 3}
	for i := range want {
		if a[i] != want[i] {
			t.Fatalf("Axis(4, 2) = %v, want %v", a, want)
		}
	}
}

func TestSyntheticObservation_Defaults(t *testing.T) {
	t.Parallel()

	obs := SyntheticObservation(t, SyntheticOptions{})
	if obs.Data.NV != 12 || obs.Data.NY != 16 || obs.Data.NX != 16 {
		t.Fatalf("shape = (%d, %d, %d), want (12, 16, 16)", obs.Data.NV, obs.Data.NY, obs.Data.NX)
	}
	if obs.X[0] <= obs.X[1] {
		t.Errorf("X should descend, got %v then %v", obs.X[0], obs.X[1])
	}
	if obs.Beam.Major != 20 {
		t.Errorf("beam major = %g, want 20", obs.Beam.Major)
	}
	// North of centre the line peaks in a redder channel than south.
	north, south := obs.Data.At(7, 12, 8), obs.Data.At(7, 3, 8)
	if north <= south {
		t.Errorf("expected redshift to the north: north %g, south %g", north, south)
	}
}
