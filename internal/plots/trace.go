package plots

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/channelfit/internal/mcmc"
)

// AssetsHost is where the rendered trace page loads echarts from.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// MaxTraceWalkers caps the walkers drawn per parameter.
const MaxTraceWalkers = 32

// RenderTraces writes an HTML page with one line chart per sampled
// parameter, one series per walker.
func RenderTraces(ch *mcmc.Chain, labels []string) ([]byte, error) {
	if ch == nil || ch.Steps == 0 {
		return nil, fmt.Errorf("trace page: empty chain")
	}
	if len(labels) != ch.NDim {
		return nil, fmt.Errorf("trace page: %d labels for %d parameters", len(labels), ch.NDim)
	}
	steps := make([]int, ch.Steps)
	for i := range steps {
		steps[i] = i
	}
	walkers := min(ch.Walkers, MaxTraceWalkers)

	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)
	page.PageTitle = "channelfit traces"
	for d, label := range labels {
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "1000px", Height: "320px", AssetsHost: AssetsHost}),
			charts.WithTitleOpts(opts.Title{Title: label, Subtitle: fmt.Sprintf("%d walkers, acceptance %.2f", ch.Walkers, ch.AcceptanceFraction())}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
			charts.WithXAxisOpts(opts.XAxis{Name: "step", NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Name: label}),
			charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", Start: 0, End: 100}),
		)
		line.SetXAxis(steps)
		for w := 0; w < walkers; w++ {
			trace := ch.Trace(w, d)
			data := make([]opts.LineData, len(trace))
			for i, v := range trace {
				data[i] = opts.LineData{Value: v}
			}
			line.AddSeries(fmt.Sprintf("walker %d", w), data)
		}
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
		page.AddCharts(line)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("render trace page: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveTraces renders the trace page to path.
func SaveTraces(path string, ch *mcmc.Chain, labels []string) error {
	html, err := RenderTraces(ch, labels)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return fmt.Errorf("write trace page: %w", err)
	}
	return nil
}
