package plots

import (
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/channelfit/internal/kinematics"
)

// SaveEqualVelocity scatters the equal-velocity curves colored by
// velocity on the [vmin, vmax] scale.
func SaveEqualVelocity(path string, pts []kinematics.CurvePoint, vmin, vmax float64) error {
	if len(pts) == 0 {
		return errors.New("equal-velocity plot: no curve points")
	}
	if !(vmin < vmax) {
		return fmt.Errorf("equal-velocity plot: empty velocity range [%g, %g]", vmin, vmax)
	}
	xys := make(plotter.XYs, len(pts))
	var extent float64
	for i, pt := range pts {
		xys[i] = plotter.XY{X: pt.Major, Y: pt.Minor}
		extent = max(extent, abs(pt.Major))
	}
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(vmin)
	cmap.SetMax(vmax)
	s.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		v := min(max(pts[i].V, vmin), vmax)
		c, err := cmap.At(v)
		if err != nil {
			c = cmap.Palette(2).Colors()[0]
		}
		return draw.GlyphStyle{Color: c, Radius: vg.Points(1), Shape: draw.CircleGlyph{}}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Equal-velocity curves, %.2f to %.2f km/s", vmin, vmax)
	p.X.Label.Text = "major offset (au)"
	p.Y.Label.Text = "minor offset (au)"
	p.Add(s)
	p.X.Min, p.X.Max = -extent*1.01, extent*1.01
	p.Y.Min, p.Y.Max = -extent*1.01, extent*1.01

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save equal-velocity plot: %w", err)
	}
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
