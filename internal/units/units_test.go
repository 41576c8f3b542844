package units

import (
	"math"
	"testing"
)

func TestSpectralAxis(t *testing.T) {
	tests := []struct {
		name     string
		ctype    string
		expected string
	}{
		{"frequency", "FREQ", Freq},
		{"padded frequency", "FREQ    ", Freq},
		{"radio velocity", "VRAD", VRad},
		{"velocity with frame", "VRAD-LSR", VRad},
		{"lower case", "freq", Freq},
		{"optical velocity", "VOPT", ""},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SpectralAxis(tt.ctype)
			if result != tt.expected {
				t.Errorf("SpectralAxis(%q) = %q, want %q", tt.ctype, result, tt.expected)
			}
			if IsValidSpectralAxis(tt.ctype) != (tt.expected != "") {
				t.Errorf("IsValidSpectralAxis(%q) disagrees with SpectralAxis", tt.ctype)
			}
		})
	}
}

func TestGetValidSpectralAxesString(t *testing.T) {
	if got := GetValidSpectralAxesString(); got != "FREQ, VRAD" {
		t.Errorf("GetValidSpectralAxesString() = %q, want %q", got, "FREQ, VRAD")
	}
}

func TestDegToAU(t *testing.T) {
	// 1 arcsec at 140 pc is 140 au.
	got := DegToAU(1.0/3600, 140)
	if math.Abs(got-140) > 1e-9 {
		t.Errorf("DegToAU(1 arcsec, 140 pc) = %f, want 140", got)
	}
}
