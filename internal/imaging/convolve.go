// Package imaging holds the image-plane steps of the forward model:
// beam convolution, per-channel normalization and resampling onto the
// observed pixel grid.
package imaging

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/channelfit/internal/cube"
	"github.com/banshee-data/channelfit/internal/grid"
)

// Convolve convolves every channel of c with the beam kernel and returns
// a new cube of the same shape. Pixels beyond the edge count as zero.
func Convolve(c *cube.Cube, k grid.Kernel) (*cube.Cube, error) {
	if k.Size%2 != 1 || len(k.Weights) != k.Size*k.Size {
		return nil, fmt.Errorf("convolve: kernel must be odd and square, got size %d with %d weights", k.Size, len(k.Weights))
	}
	out := cube.New(c.NV, c.NY, c.NX)
	h := k.Size / 2
	for ch := 0; ch < c.NV; ch++ {
		src := c.Channel(ch)
		dst := out.Channel(ch)
		for j := 0; j < c.NY; j++ {
			for i := 0; i < c.NX; i++ {
				a := src[j*c.NX+i]
				if a == 0 {
					continue
				}
				// Scatter a into every output pixel the kernel reaches.
				for q := 0; q < k.Size; q++ {
					jj := j + q - h
					if jj < 0 || jj >= c.NY {
						continue
					}
					row := dst[jj*c.NX : (jj+1)*c.NX]
					w := k.Weights[q*k.Size : (q+1)*k.Size]
					i0 := max(0, h-i)
					i1 := min(k.Size, c.NX-i+h)
					if i0 >= i1 {
						continue
					}
					floats.AddScaled(row[i+i0-h:i+i1-h], a, w[i0:i1])
				}
			}
		}
	}
	return out, nil
}

// PeakNormalize scales every channel of c in place so its maximum is
// one. Channels whose maximum is zero are zeroed.
func PeakNormalize(c *cube.Cube) {
	for ch := 0; ch < c.NV; ch++ {
		p := c.Channel(ch)
		if len(p) == 0 {
			continue
		}
		peak := floats.Max(p)
		if peak == 0 {
			clear(p)
			continue
		}
		floats.Scale(1/peak, p)
	}
}
