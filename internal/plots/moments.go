package plots

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/channelfit/internal/cube"
)

// ContourStep is the moment 0 contour spacing in units of its noise.
const ContourStep = 6

// MomentMap describes one moment image.
type MomentMap struct {
	Label      string // "Obs.", "Model", ...
	Mom0, Mom1 *cube.Map
	X, Y       []float64
	SigmaMom0  float64
	// VRange is the half range of the moment 1 color scale.
	VRange float64
	PA     float64 // degrees
}

// ContourLevels returns the symmetric moment 0 contour ladder
// +-(1..19)*ContourStep*sigma in ascending order.
func ContourLevels(sigma float64) []float64 {
	levels := make([]float64, 0, 38)
	for i := 19; i >= 1; i-- {
		levels = append(levels, -float64(i)*ContourStep*sigma)
	}
	for i := 1; i <= 19; i++ {
		levels = append(levels, float64(i)*ContourStep*sigma)
	}
	return levels
}

// SaveMomentMap draws moment 1 in color, moment 0 as gray contours and
// the disk axes as dotted lines, with R.A. increasing to the left.
func SaveMomentMap(path string, mm MomentMap) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s mom1 (km/s, +/-%.2f)", mm.Label, mm.VRange)
	p.X.Label.Text = "R.A. offset (au)"
	p.Y.Label.Text = "Dec. offset (au)"
	p.X.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}

	vr := mm.VRange
	if !(vr > 0) {
		vr = 1
	}
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-vr)
	cmap.SetMax(vr)
	pal := cmap.Palette(255)
	heat := plotter.NewHeatMap(newMapGrid(mm.Mom1, mm.X, mm.Y), pal)
	heat.Min, heat.Max = -vr, vr
	heat.Underflow = pal.Colors()[0]
	heat.Overflow = pal.Colors()[len(pal.Colors())-1]
	heat.NaN = color.Transparent
	p.Add(heat)

	mom0 := newMapGrid(mm.Mom0, mm.X, mm.Y)
	if mom0.finite() && mm.SigmaMom0 > 0 {
		c := plotter.NewContour(mom0, ContourLevels(mm.SigmaMom0), nil)
		c.LineStyles = []draw.LineStyle{{Color: color.Gray{Y: 128}, Width: vg.Points(0.8)}}
		p.Add(c)
	}

	var xmax float64
	for _, x := range mm.X {
		xmax = math.Max(xmax, math.Abs(x))
	}
	pa := mm.PA * math.Pi / 180
	sinpa, cospa := math.Sin(pa), math.Cos(pa)
	r := xmax * 1.42
	for _, axis := range []plotter.XYs{
		{{X: -r * sinpa, Y: -r * cospa}, {X: r * sinpa, Y: r * cospa}},
		{{X: -r * cospa, Y: r * sinpa}, {X: r * cospa, Y: -r * sinpa}},
	} {
		l, err := plotter.NewLine(axis)
		if err != nil {
			return err
		}
		l.Color = color.Black
		l.Dashes = []vg.Length{vg.Points(1), vg.Points(3)}
		p.Add(l)
	}

	xlo, xhi := bounds(mm.X)
	ylo, yhi := bounds(mm.Y)
	p.X.Min, p.X.Max = xlo*1.01, xhi*1.01
	p.Y.Min, p.Y.Max = ylo*1.01, yhi*1.01

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save moment map: %w", err)
	}
	return nil
}

func bounds(v []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}
