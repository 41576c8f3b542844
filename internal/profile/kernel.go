// Package profile rasterizes the line emission of the disk surfaces into
// channel maps: each cell contributes a broadened line profile centred
// on its line-of-sight velocity, integrated over the channel width.
package profile

import "math"

const (
	// samplesPerWidth is the number of kernel samples per line width.
	samplesPerWidth = 11
	// halfSpan is the kernel half extent in line widths.
	halfSpan = 2
	// fwhmPerSigma converts a Gaussian sigma to its full width.
	fwhmPerSigma = 2.35482
	// boxLimit is the cs/dv below which the profile is a pure box.
	boxLimit = 0.01
)

// Kernel is the channel-integrated line profile sampled every Step
// channels from -N/2*Step to N/2*Step.
type Kernel struct {
	Values []float64
	N      int
	Step   float64
}

// NewKernel tabulates the profile for a thermal/turbulent width cs
// expressed in channel widths. The line width is max(FWHM, 1 channel).
func NewKernel(csOverDv float64) Kernel {
	w := math.Max(csOverDv*fwhmPerSigma, 1)
	vmax := halfSpan * w
	n := 2*halfSpan*samplesPerWidth + 1
	k := Kernel{Values: make([]float64, n), N: n - 1, Step: w / samplesPerWidth}
	for i := range k.Values {
		v := -vmax + 2*vmax*float64(i)/float64(n-1)
		if csOverDv < boxLimit {
			k.Values[i] = box(v)
			continue
		}
		s := math.Sqrt2 * csOverDv
		k.Values[i] = math.Erf((v+0.5)/s) - math.Erf((v-0.5)/s)
	}
	if csOverDv >= boxLimit {
		k.Values[0], k.Values[n-1] = 0, 0
	}
	return k
}

// box is one inside |v| < 1/2, one half on the edges and zero outside.
func box(v float64) float64 {
	return (1 + sign(v+0.5)) * (1 - sign(v-0.5)) / 4
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Index maps a velocity offset, in channels, to the nearest sample,
// clamped to the kernel edges.
func (k Kernel) Index(offset float64) int {
	iv := int(offset/k.Step + float64(k.N/2) + 0.5)
	return min(max(iv, 0), k.N)
}

// At returns the profile at a velocity offset in channels.
func (k Kernel) At(offset float64) float64 {
	return k.Values[k.Index(offset)]
}
