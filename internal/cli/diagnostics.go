package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/banshee-data/channelfit/internal/fit"
	"github.com/banshee-data/channelfit/internal/kinematics"
	"github.com/banshee-data/channelfit/internal/model"
	"github.com/banshee-data/channelfit/internal/moments"
	"github.com/banshee-data/channelfit/internal/monitoring"
	"github.com/banshee-data/channelfit/internal/plots"
	"github.com/banshee-data/channelfit/internal/security"
)

// writeMomentPlots writes head.mom.{obs,model,residual}.png for p.
func writeMomentPlots(head string, m *model.Model, p model.Params) ([]string, error) {
	set, err := m.MomentMaps(p)
	if err != nil {
		return nil, err
	}
	obs := m.Observation()
	vr := plots.VelocityRange(set.Observed.Mom1)
	panels := []struct {
		name, label string
		maps        moments.Maps
	}{
		{"obs", "Obs.", set.Observed},
		{"model", "Model", set.Model},
		{"residual", "Obs. - model", set.Residual},
	}
	var paths []string
	for _, panel := range panels {
		path := fmt.Sprintf("%s.mom.%s.png", head, panel.name)
		if err := plots.SaveMomentMap(path, plots.MomentMap{
			Label:     panel.label,
			Mom0:      panel.maps.Mom0,
			Mom1:      panel.maps.Mom1,
			X:         obs.X,
			Y:         obs.Y,
			SigmaMom0: set.Observed.SigmaMom0,
			VRange:    vr,
			PA:        m.Setup().PA,
		}); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// writeEqualVelocity writes head.eqv.png for the fitted channels, or
// nothing when no channel has a solution inside the model extent.
func writeEqualVelocity(head string, m *model.Model, p model.Params) (string, error) {
	v := m.Velocities()
	inc := kinematics.NewIncl(m.Setup().Incl + p.Incl)
	pts := kinematics.EqualVelocityCurves(p.Mstar, p.H1, p.H2, inc, v, m.Setup().RMax)
	if len(pts) == 0 {
		monitoring.Warnf("no equal-velocity curves inside %g au", m.Setup().RMax)
		return "", nil
	}
	path := head + ".eqv.png"
	return path, plots.SaveEqualVelocity(path, pts, slices.Min(v), slices.Max(v))
}

// writePosteriors writes one histogram per sampled dimension, in the
// sampled units.
func writePosteriors(head string, res *fit.Result) ([]string, error) {
	if res.Chain == nil {
		return nil, nil
	}
	best, _ := res.Chain.Best()
	var paths []string
	for d, label := range res.Labels {
		path := fmt.Sprintf("%s.post.%s.png", head, security.SanitizeFilename(strings.ToLower(label)))
		err := plots.SavePosterior(path, label, res.Chain.Column(d),
			res.Chain.Quantile(d, 0.16), res.Chain.Quantile(d, 0.5), res.Chain.Quantile(d, 0.84), best[d])
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// writeDiagnostics writes every image for a fit result and, when traces
// is set, the chain trace page.
func writeDiagnostics(head string, m *model.Model, res *fit.Result, traces bool) ([]string, error) {
	paths, err := writeMomentPlots(head, m, res.Opt)
	if err != nil {
		return paths, err
	}
	eqv, err := writeEqualVelocity(head, m, res.Opt)
	if err != nil {
		return paths, err
	}
	if eqv != "" {
		paths = append(paths, eqv)
	}
	post, err := writePosteriors(head, res)
	paths = append(paths, post...)
	if err != nil {
		return paths, err
	}
	if traces && res.Chain != nil {
		path := head + ".traces.html"
		if err := plots.SaveTraces(path, res.Chain, res.Labels); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
