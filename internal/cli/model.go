package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/channelfit/internal/config"
	"github.com/banshee-data/channelfit/internal/fit"
	"github.com/banshee-data/channelfit/internal/fitscube"
	"github.com/banshee-data/channelfit/internal/model"
	"github.com/banshee-data/channelfit/internal/store"
)

type modelFlags struct {
	out   string
	db    string
	runID string
}

func newModelCmd(a *app) *cobra.Command {
	var f modelFlags
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Evaluate the model at fixed parameters and write its products",
		Long: `Model evaluates the disk model either at the configured parameters,
which must all be fixed, or at the optimum of a stored run (--run). It
writes the model, residual, before-convolving and before-scaling cubes
and the moment maps.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runModel(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output file prefix (default: filehead from config)")
	cmd.Flags().StringVar(&f.db, "db", "", "run database path (default: $CHANNELFIT_DB)")
	cmd.Flags().StringVar(&f.runID, "run", "", "use the optimum of this stored run")
	return cmd
}

func (a *app) runModel(ctx context.Context, f modelFlags) error {
	logger := loggerFromContext(ctx)
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	head, err := a.outputHead(f.out, cfg)
	if err != nil {
		return err
	}
	m, err := buildModel(cfg)
	if err != nil {
		return err
	}

	var p model.Params
	if f.runID != "" {
		p, err = a.storedOptimum(f.db, f.runID)
	} else {
		p, err = fixedParams(ctx, m, cfg.Params)
	}
	if err != nil {
		return err
	}

	ll, err := m.LogLikelihood(p)
	if err != nil {
		return err
	}
	logger.Infof("log likelihood %.6e", ll)

	products, err := m.Products(p)
	if err != nil {
		return err
	}
	paths, err := fitscube.WriteProducts(head, m.Observation(), products)
	if err != nil {
		return err
	}
	if cfg.GetPlots() {
		mom, err := writeMomentPlots(head, m, p)
		if err != nil {
			return err
		}
		paths = append(paths, mom...)
	}
	for _, path := range paths {
		fmt.Fprintln(a.stdout, path)
	}
	return nil
}

// fixedParams resolves a parameter set in which nothing is sampled.
func fixedParams(ctx context.Context, m *model.Model, entries map[string]config.ParamEntry) (model.Params, error) {
	specs, err := fit.SpecsFrom(entries)
	if err != nil {
		return model.Params{}, err
	}
	if free := specs.Free(); len(free) > 0 {
		return model.Params{}, fmt.Errorf("model needs every parameter fixed or --run, free: %v", free)
	}
	est, err := fit.NewEstimator(m, specs, fit.DefaultOptions())
	if err != nil {
		return model.Params{}, err
	}
	res, err := est.Run(ctx)
	if err != nil {
		return model.Params{}, err
	}
	return res.Opt, nil
}

func (a *app) storedOptimum(dbFlag, runID string) (model.Params, error) {
	db, err := store.Open(a.dbPath(dbFlag))
	if err != nil {
		return model.Params{}, err
	}
	defer db.Close()
	rows, err := store.NewRunStore(db).Rows(runID)
	if err != nil {
		return model.Params{}, err
	}
	return rows[3], nil
}
