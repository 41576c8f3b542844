// Package cube holds the spectral cube and map containers shared by the
// model, the moment maps and the file readers, and the load-time
// preprocessing that turns a raw file image into an Observation.
//
// Cubes are dense (channel, row, column) arrays with an optional parallel
// validity mask. Blank pixels are never encoded as zero: they are marked
// invalid and excluded from every reduction.
package cube

import (
	"fmt"
	"math"
)

// Cube is a dense (channel, row, column) intensity array. A nil Valid
// means every entry is valid.
type Cube struct {
	NV, NY, NX int
	Data       []float64
	Valid      []bool
}

// New returns a zero-filled cube with every entry valid.
func New(nv, ny, nx int) *Cube {
	return &Cube{NV: nv, NY: ny, NX: nx, Data: make([]float64, nv*ny*nx)}
}

// FromNaN wraps data as a cube, marking non-finite entries invalid and
// storing zero in their place. data is used in place.
func FromNaN(nv, ny, nx int, data []float64) (*Cube, error) {
	if nv <= 0 || ny <= 0 || nx <= 0 {
		return nil, fmt.Errorf("invalid cube shape (%d, %d, %d)", nv, ny, nx)
	}
	if len(data) != nv*ny*nx {
		return nil, fmt.Errorf("cube data has %d values, shape (%d, %d, %d) needs %d", len(data), nv, ny, nx, nv*ny*nx)
	}
	c := &Cube{NV: nv, NY: ny, NX: nx, Data: data}
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			c.invalidate(i)
		}
	}
	return c, nil
}

func (c *Cube) invalidate(idx int) {
	if c.Valid == nil {
		c.Valid = make([]bool, len(c.Data))
		for i := range c.Valid {
			c.Valid[i] = true
		}
	}
	c.Valid[idx] = false
	c.Data[idx] = 0
}

// Invalidate marks entry (k, j, i) as having no value.
func (c *Cube) Invalidate(k, j, i int) {
	c.invalidate(c.Index(k, j, i))
}

// Plane is the number of pixels in one channel.
func (c *Cube) Plane() int { return c.NY * c.NX }

// Index returns the flat index of (k, j, i).
func (c *Cube) Index(k, j, i int) int { return (k*c.NY+j)*c.NX + i }

// At returns the value at (k, j, i).
func (c *Cube) At(k, j, i int) float64 { return c.Data[c.Index(k, j, i)] }

// Set stores v at (k, j, i).
func (c *Cube) Set(k, j, i int, v float64) { c.Data[c.Index(k, j, i)] = v }

// IsValid reports whether the flat index idx holds a value.
func (c *Cube) IsValid(idx int) bool { return c.Valid == nil || c.Valid[idx] }

// Channel returns channel k as a slice view into Data.
func (c *Cube) Channel(k int) []float64 {
	p := c.Plane()
	return c.Data[k*p : (k+1)*p]
}

// ChannelValid returns the validity view of channel k, or nil when the
// cube has no mask.
func (c *Cube) ChannelValid(k int) []bool {
	if c.Valid == nil {
		return nil
	}
	p := c.Plane()
	return c.Valid[k*p : (k+1)*p]
}

// Clone returns a deep copy.
func (c *Cube) Clone() *Cube {
	out := &Cube{NV: c.NV, NY: c.NY, NX: c.NX, Data: append([]float64(nil), c.Data...)}
	if c.Valid != nil {
		out.Valid = append([]bool(nil), c.Valid...)
	}
	return out
}

// Max returns the largest valid value. ok is false when nothing is valid.
func (c *Cube) Max() (max float64, ok bool) {
	max = math.Inf(-1)
	for i, v := range c.Data {
		if c.IsValid(i) && v > max {
			max = v
			ok = true
		}
	}
	return max, ok
}

// Scale multiplies every entry by f.
func (c *Cube) Scale(f float64) {
	for i := range c.Data {
		c.Data[i] *= f
	}
}

// Channels returns a new cube made of the listed channels in order.
func (c *Cube) Channels(idx []int) *Cube {
	p := c.Plane()
	out := New(len(idx), c.NY, c.NX)
	for n, k := range idx {
		copy(out.Data[n*p:(n+1)*p], c.Channel(k))
		if mask := c.ChannelValid(k); mask != nil {
			if out.Valid == nil {
				out.Valid = make([]bool, len(out.Data))
				for i := range out.Valid {
					out.Valid[i] = true
				}
			}
			copy(out.Valid[n*p:(n+1)*p], mask)
		}
	}
	return out
}

// NaNData returns a copy of Data with invalid entries set to NaN, the
// blank convention of image files.
func (c *Cube) NaNData() []float64 {
	out := append([]float64(nil), c.Data...)
	for i := range out {
		if !c.IsValid(i) {
			out[i] = math.NaN()
		}
	}
	return out
}

// Map is a 2-D (row, column) image with an optional validity mask.
type Map struct {
	NY, NX int
	Data   []float64
	Valid  []bool
}

// NewMap returns a zero-filled map with every pixel valid.
func NewMap(ny, nx int) *Map {
	return &Map{NY: ny, NX: nx, Data: make([]float64, ny*nx)}
}

// At returns the value at (j, i).
func (m *Map) At(j, i int) float64 { return m.Data[j*m.NX+i] }

// IsValid reports whether the flat index idx holds a value.
func (m *Map) IsValid(idx int) bool { return m.Valid == nil || m.Valid[idx] }

// Invalidate marks the flat index idx as having no value.
func (m *Map) Invalidate(idx int) {
	if m.Valid == nil {
		m.Valid = make([]bool, len(m.Data))
		for i := range m.Valid {
			m.Valid[i] = true
		}
	}
	m.Valid[idx] = false
	m.Data[idx] = 0
}

// NaNData returns a copy of Data with invalid pixels set to NaN.
func (m *Map) NaNData() []float64 {
	out := append([]float64(nil), m.Data...)
	for i := range out {
		if !m.IsValid(i) {
			out[i] = math.NaN()
		}
	}
	return out
}

// Sub returns m - o over pixels valid in both.
func (m *Map) Sub(o *Map) *Map {
	out := NewMap(m.NY, m.NX)
	for i := range out.Data {
		if !m.IsValid(i) || !o.IsValid(i) {
			out.Invalidate(i)
			continue
		}
		out.Data[i] = m.Data[i] - o.Data[i]
	}
	return out
}
