package grid

import (
	"fmt"
	"math"

	"github.com/banshee-data/channelfit/internal/cube"
)

// Kernel is the beam sampled on a square stencil at the base pitch,
// normalized to unit sum.
type Kernel struct {
	Size    int
	Weights []float64

	// PixPerBeam is the sum of the unnormalized kernel divided by its
	// peak: the number of pixels in one resolution element.
	PixPerBeam float64
}

// NewKernel samples exp(-((t/Major)^2 + (s/Minor)^2)) on a stencil of
// half width 1.1*Major, with t along the beam position angle and s
// across it. Major and Minor are the 1/e half widths of the beam, not
// its FWHM.
func NewKernel(b cube.Beam, pitch float64) (Kernel, error) {
	if !(pitch > 0) || !(b.Major > 0) || !(b.Minor > 0) {
		return Kernel{}, fmt.Errorf("beam kernel needs positive pitch and axes, got pitch=%g beam=%+v", pitch, b)
	}
	n := int(b.Major/pitch*1.1 + 0.5)
	size := 2*n + 1
	bpa := b.PA * math.Pi / 180
	cosb, sinb := math.Cos(bpa), math.Sin(bpa)
	k := Kernel{Size: size, Weights: make([]float64, size*size)}

	var sum, peak float64
	for j := 0; j < size; j++ {
		for i := 0; i < size; i++ {
			x := float64(i-n) * pitch
			y := float64(j-n) * pitch
			s, t := Rotate(x, y, cosb, sinb)
			w := math.Exp(-((t/b.Major)*(t/b.Major) + (s/b.Minor)*(s/b.Minor)))
			k.Weights[j*size+i] = w
			sum += w
			peak = math.Max(peak, w)
		}
	}
	k.PixPerBeam = sum / peak
	for i := range k.Weights {
		k.Weights[i] /= sum
	}
	return k, nil
}
