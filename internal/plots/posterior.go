package plots

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// histogramBins is the number of bins per posterior histogram.
const histogramBins = 40

// SavePosterior draws the normalized histogram of samples with dashed
// lines at the low, mid and high quantiles and a solid line at opt.
func SavePosterior(path, label string, samples []float64, low, mid, high, opt float64) error {
	h, err := plotter.NewHist(plotter.Values(samples), histogramBins)
	if err != nil {
		return fmt.Errorf("posterior %s: %w", label, err)
	}
	h.Normalize(1)
	h.FillColor = color.Gray{Y: 200}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s = %.3g (+%.2g / -%.2g)", label, mid, high-mid, mid-low)
	p.X.Label.Text = label
	p.Y.Label.Text = "probability density"
	p.Add(h)

	_, _, _, ymax := h.DataRange()
	for _, m := range []struct {
		x      float64
		dashed bool
	}{{low, true}, {mid, true}, {high, true}, {opt, false}} {
		l, err := plotter.NewLine(plotter.XYs{{X: m.x, Y: 0}, {X: m.x, Y: ymax}})
		if err != nil {
			return err
		}
		l.Color = color.Black
		if m.dashed {
			l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		} else {
			l.Color = color.RGBA{R: 200, A: 255}
		}
		p.Add(l)
	}

	if err := p.Save(5*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save posterior %s: %w", label, err)
	}
	return nil
}
