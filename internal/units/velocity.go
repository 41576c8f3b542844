package units

import (
	"math"
	"strings"
)

// VUnit is the Keplerian orbital speed in km/s at 1 au around 1 M_sun.
var VUnit = math.Sqrt(G*MSun/AU) * 1e-3

// Velocity unit constants
const (
	MPS  = "m/s"
	KMPS = "km/s"
)

// FreqToVelocity converts an observed frequency to a radio-convention
// line-of-sight velocity in km/s.
func FreqToVelocity(freq, restFreq float64) float64 {
	return (1 - freq/restFreq) * C / 1e3
}

// ToKMPS converts a velocity in the given CUNIT to km/s. FITS velocity axes
// default to m/s when the unit is absent.
func ToKMPS(v float64, unit string) float64 {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case KMPS:
		return v
	default:
		return v / 1e3
	}
}
