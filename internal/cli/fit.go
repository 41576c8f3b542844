package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/channelfit/internal/fit"
	"github.com/banshee-data/channelfit/internal/fitscube"
	"github.com/banshee-data/channelfit/internal/mcmc"
	"github.com/banshee-data/channelfit/internal/model"
	"github.com/banshee-data/channelfit/internal/store"
)

type fitFlags struct {
	out     string
	db      string
	workers int
	noStore bool
}

func newFitCmd(a *app) *cobra.Command {
	var f fitFlags
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Sample the disk parameters and write the best-fit products",
		Long: `Fit loads the configured cube, samples the free parameters with an
affine-invariant ensemble sampler and writes <head>.popt.txt, the model
cubes, moment maps, posterior histograms and a chain trace page. The run
and its estimates are recorded in the run database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFit(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output file prefix (default: filehead from config)")
	cmd.Flags().StringVar(&f.db, "db", "", "run database path (default: $CHANNELFIT_DB)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "walker evaluation workers (default: config)")
	cmd.Flags().BoolVar(&f.noStore, "no-store", false, "do not record the run in the database")
	return cmd
}

func (a *app) runFit(ctx context.Context, f fitFlags) error {
	logger := loggerFromContext(ctx)
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if f.workers > 0 {
		cfg.Workers = &f.workers
	}
	head, err := a.outputHead(f.out, cfg)
	if err != nil {
		return err
	}
	specs, err := fit.SpecsFrom(cfg.Params)
	if err != nil {
		return err
	}

	m, err := buildModel(cfg)
	if err != nil {
		return err
	}
	opts := fitOptions(cfg)
	opts.Progress = stepReporter(logger)
	est, err := fit.NewEstimator(m, specs, opts)
	if err != nil {
		return err
	}

	var runs *store.RunStore
	var runID string
	if !f.noStore {
		db, err := store.Open(a.dbPath(f.db))
		if err != nil {
			return err
		}
		defer db.Close()
		runs = store.NewRunStore(db).WithClock(a.clock)
		raw, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		walkers := 0
		if n := len(specs.Free()); n > 0 {
			walkers = mcmc.Walkers(opts.WalkersPerDim, n)
		}
		runID, err = runs.Start(cfg.GetCubePath(), raw, walkers, opts.Burnin, opts.Steps)
		if err != nil {
			return err
		}
		logger.Info("recording run", "id", runID)
	}

	// fail records err against the stored run before returning it.
	fail := func(err error) error {
		if runs == nil {
			return err
		}
		status := store.StatusFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = store.StatusCancelled
		}
		if ferr := runs.Fail(runID, status, err.Error()); ferr != nil {
			logger.Warn("recording failed run", "err", ferr)
		}
		return err
	}

	prog := newProgress(logger, a.clock)
	res, err := est.Run(ctx)
	if err != nil {
		return fail(err)
	}
	prog.done("fit finished")
	if res.Chain != nil {
		logger.Infof("acceptance fraction %.3f", res.Acceptance)
	}

	table, err := writeFitOutputs(head, m, res, cfg.GetPlots(), cfg.GetTraceHTML())
	if err != nil {
		return fail(err)
	}

	if runs != nil {
		estimates := store.Estimates(res.Rows(), res.Free)
		if err := runs.Complete(runID, estimates, res.Acceptance, res.MaxLogProb, table); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "run %s\n", runID)
	}
	return fit.WriteTable(a.stdout, res)
}

// writeFitOutputs writes the popt table, the model products and, when
// plots is set, the diagnostics. It returns the table path.
func writeFitOutputs(head string, m *model.Model, res *fit.Result, plots, traces bool) (string, error) {
	table := head + ".popt.txt"
	if err := fit.WriteTableFile(table, res); err != nil {
		return "", err
	}
	products, err := m.Products(res.Opt)
	if err != nil {
		return "", err
	}
	if _, err := fitscube.WriteProducts(head, m.Observation(), products); err != nil {
		return "", err
	}
	if plots {
		if _, err := writeDiagnostics(head, m, res, traces); err != nil {
			return "", err
		}
	}
	return table, nil
}
