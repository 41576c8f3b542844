package cube

import "math"

// Windows are the blue and red velocity intervals (km/s, relative to the
// systemic velocity) whose channels enter the fit. Bounds are inclusive.
type Windows struct {
	BlueMin, BlueMax, RedMin, RedMax float64
}

// DefaultWindows keeps every channel.
func DefaultWindows() Windows {
	return Windows{BlueMin: -100, BlueMax: 0, RedMin: 0, RedMax: 100}
}

// WindowsFrom builds Windows from a [blue min, blue max, red min, red max]
// array.
func WindowsFrom(v [4]float64) Windows {
	return Windows{BlueMin: v[0], BlueMax: v[1], RedMin: v[2], RedMax: v[3]}
}

// ChannelSet lists the fit-worthy channels of a velocity axis.
type ChannelSet struct {
	// Indices is the sorted union of Blue and Red.
	Indices []int
	Blue    []int
	Red     []int
}

// Select returns the channels of v inside the windows. A channel inside
// both windows appears once in Indices.
func (w Windows) Select(v []float64) ChannelSet {
	var s ChannelSet
	for k, vk := range v {
		inBlue := w.BlueMin <= vk && vk <= w.BlueMax
		inRed := w.RedMin <= vk && vk <= w.RedMax
		if inBlue {
			s.Blue = append(s.Blue, k)
		}
		if inRed {
			s.Red = append(s.Red, k)
		}
		if inBlue || inRed {
			s.Indices = append(s.Indices, k)
		}
	}
	return s
}

// Len is the number of selected channels.
func (s ChannelSet) Len() int { return len(s.Indices) }

// Velocities returns the selected entries of v.
func (s ChannelSet) Velocities(v []float64) []float64 {
	out := make([]float64, len(s.Indices))
	for n, k := range s.Indices {
		out[n] = v[k]
	}
	return out
}

// Expand places the channels of c, which correspond to Indices, onto a
// full axis of nv channels. Channels outside the set are invalid.
func (s ChannelSet) Expand(c *Cube, nv int) *Cube {
	out := New(nv, c.NY, c.NX)
	p := c.Plane()
	out.Valid = make([]bool, len(out.Data))
	for n, k := range s.Indices {
		copy(out.Data[k*p:(k+1)*p], c.Channel(n))
		mask := c.ChannelValid(n)
		for i := 0; i < p; i++ {
			out.Valid[k*p+i] = mask == nil || mask[i]
		}
	}
	return out
}

// MeanChannel averages channels idx of c pixel by pixel over valid
// entries. Pixels with no valid entry are invalid.
func MeanChannel(c *Cube, idx []int) (data []float64, valid []bool) {
	p := c.Plane()
	data = make([]float64, p)
	valid = make([]bool, p)
	counts := make([]int, p)
	for _, k := range idx {
		ch := c.Channel(k)
		mask := c.ChannelValid(k)
		for i := 0; i < p; i++ {
			if mask != nil && !mask[i] {
				continue
			}
			data[i] += ch[i]
			counts[i]++
		}
	}
	for i := range data {
		if counts[i] > 0 {
			data[i] /= float64(counts[i])
			valid[i] = true
		}
	}
	return data, valid
}

// MeanOf returns the arithmetic mean of v over idx, or NaN for an empty
// list.
func MeanOf(v []float64, idx []int) float64 {
	if len(idx) == 0 {
		return math.NaN()
	}
	var s float64
	for _, k := range idx {
		s += v[k]
	}
	return s / float64(len(idx))
}
