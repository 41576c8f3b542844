// Package units provides physical constants and conversions shared by the
// cube loader and the kinematic model.
package units

import "strings"

// Physical constants (SI)
const (
	G    = 6.6743e-11           // gravitational constant, m^3 kg^-1 s^-2
	MSun = 1.988409870698051e30 // solar mass, kg
	AU   = 1.495978707e11       // astronomical unit, m
	C    = 299792458.0          // speed of light, m/s
)

// ArcsecPerDeg converts sky angles in degrees to arcseconds.
const ArcsecPerDeg = 3600.0

// Spectral axis types understood by the cube loader
const (
	Freq = "FREQ"
	VRad = "VRAD"
)

// ValidSpectralAxes contains all supported spectral CTYPE values
var ValidSpectralAxes = []string{Freq, VRad}

// IsValidSpectralAxis checks a CTYPE3 keyword. FITS pads keyword values
// and some writers append a projection suffix ("VRAD-LSR"), so only the
// leading four characters are compared.
func IsValidSpectralAxis(ctype string) bool {
	return SpectralAxis(ctype) != ""
}

// SpectralAxis returns the canonical axis type for ctype, or "" if the
// axis is not supported.
func SpectralAxis(ctype string) string {
	c := strings.ToUpper(strings.TrimSpace(ctype))
	for _, valid := range ValidSpectralAxes {
		if strings.HasPrefix(c, valid) {
			return valid
		}
	}
	return ""
}

// GetValidSpectralAxesString returns a comma-separated string of valid axes for error messages
func GetValidSpectralAxesString() string {
	return strings.Join(ValidSpectralAxes, ", ")
}

// DegToAU converts a sky angle in degrees to a projected length in au at
// the given distance in parsec.
func DegToAU(deg, distPC float64) float64 {
	return deg * ArcsecPerDeg * distPC
}
