// Package fitscube reads and writes spectral cubes as FITS primary
// images.
package fitscube

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/astrogo/fitsio"

	"github.com/banshee-data/channelfit/internal/cube"
)

// ReadFile opens path and decodes its primary image.
func ReadFile(path string) (*cube.Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cube: %w", err)
	}
	defer f.Close()
	raw, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("read cube %s: %w", path, err)
	}
	return raw, nil
}

// Decode reads the primary image of a FITS stream. A fourth axis, such
// as Stokes, is reduced to its first plane.
func Decode(r io.Reader) (*cube.Raw, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hdus := f.HDUs()
	if len(hdus) == 0 {
		return nil, errors.New("no HDU")
	}
	img, ok := hdus[0].(fitsio.Image)
	if !ok {
		return nil, errors.New("primary HDU is not an image")
	}
	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) < 3 || len(axes) > 4 {
		return nil, fmt.Errorf("need a 3- or 4-axis image, got %d axes", len(axes))
	}
	nx, ny, nv := axes[0], axes[1], axes[2]
	n := nx * ny * nv
	if n == 0 {
		return nil, fmt.Errorf("empty image %v", axes)
	}

	all, err := readFloats(img, hdr.Bitpix(), product(axes))
	if err != nil {
		return nil, err
	}
	data := all[:n:n]

	h := cube.Header{}
	for _, key := range hdr.Keys() {
		c := hdr.Get(key)
		if c == nil {
			continue
		}
		h.Cards = append(h.Cards, cube.Card{Name: c.Name, Value: c.Value, Comment: c.Comment})
	}

	// Integer images carry their physical scale in BSCALE and BZERO.
	if hdr.Bitpix() > 0 {
		bscale := h.FloatOr("BSCALE", 1)
		bzero := h.FloatOr("BZERO", 0)
		blank, hasBlank := h.Float("BLANK")
		for i, v := range data {
			if hasBlank && v == blank {
				data[i] = math.NaN()
				continue
			}
			data[i] = v*bscale + bzero
		}
		h.Delete("BSCALE")
		h.Delete("BZERO")
		h.Delete("BLANK")
	}
	return &cube.Raw{NV: nv, NY: ny, NX: nx, Data: data, Header: h}, nil
}

func product(axes []int) int {
	n := 1
	for _, a := range axes {
		n *= a
	}
	return n
}

// readFloats reads the image in its stored type and widens it.
func readFloats(img fitsio.Image, bitpix, n int) ([]float64, error) {
	out := make([]float64, n)
	var err error
	switch bitpix {
	case 8:
		buf := make([]uint8, n)
		if err = img.Read(&buf); err == nil {
			for i, v := range buf {
				out[i] = float64(v)
			}
		}
	case 16:
		buf := make([]int16, n)
		if err = img.Read(&buf); err == nil {
			for i, v := range buf {
				out[i] = float64(v)
			}
		}
	case 32:
		buf := make([]int32, n)
		if err = img.Read(&buf); err == nil {
			for i, v := range buf {
				out[i] = float64(v)
			}
		}
	case 64:
		buf := make([]int64, n)
		if err = img.Read(&buf); err == nil {
			for i, v := range buf {
				out[i] = float64(v)
			}
		}
	case -32:
		buf := make([]float32, n)
		if err = img.Read(&buf); err == nil {
			for i, v := range buf {
				out[i] = float64(v)
			}
		}
	case -64:
		if err = img.Read(&out); err == nil && len(out) != n {
			err = fmt.Errorf("image has %d values, want %d", len(out), n)
		}
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}
	if err != nil {
		return nil, fmt.Errorf("read image data: %w", err)
	}
	return out, nil
}

// structural keys are written by the encoder itself.
func structural(name string) bool {
	n := strings.ToUpper(strings.TrimSpace(name))
	switch n {
	case "SIMPLE", "BITPIX", "EXTEND", "END", "COMMENT", "HISTORY", "BSCALE", "BZERO", "BLANK", "":
		return true
	}
	if strings.HasPrefix(n, "NAXIS") {
		return true
	}
	// A squeezed fourth axis no longer exists.
	return strings.HasSuffix(n, "4") && (strings.HasPrefix(n, "CTYPE") || strings.HasPrefix(n, "CRPIX") ||
		strings.HasPrefix(n, "CDELT") || strings.HasPrefix(n, "CRVAL") || strings.HasPrefix(n, "CUNIT") ||
		strings.HasPrefix(n, "CROTA"))
}
