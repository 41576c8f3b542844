package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/channelfit/internal/moments"
	"github.com/banshee-data/channelfit/internal/plots"
)

func newMomentsCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "moments",
		Short: "Draw the observed moment 0 and moment 1 maps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMoments(cmd.Context(), out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PNG (default: <filehead>.mom.obs.png)")
	return cmd
}

func (a *app) runMoments(ctx context.Context, out string) error {
	logger := loggerFromContext(ctx)
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if out == "" {
		head, err := a.outputHead("", cfg)
		if err != nil {
			return err
		}
		out = head + ".mom.obs.png"
	}
	obs, err := loadObservation(cfg)
	if err != nil {
		return err
	}
	maps, err := moments.Compute(obs.Data, obs.V, obs.Sigma)
	if err != nil {
		return err
	}
	vr := plots.VelocityRange(maps.Mom1)
	logger.Infof("moment 0 noise %.3e, moment 1 range +/-%.3f km/s", maps.SigmaMom0, vr)
	if err := plots.SaveMomentMap(out, plots.MomentMap{
		Label:     "Obs.",
		Mom0:      maps.Mom0,
		Mom1:      maps.Mom1,
		X:         obs.X,
		Y:         obs.Y,
		SigmaMom0: maps.SigmaMom0,
		VRange:    vr,
		PA:        cfg.GetPA(),
	}); err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, out)
	return err
}
