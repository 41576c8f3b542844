package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/channelfit/internal/store"
)

func newRunsCmd(a *app) *cobra.Command {
	var dbFlag string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored fit runs",
	}
	cmd.PersistentFlags().StringVar(&dbFlag, "db", "", "run database path (default: $CHANNELFIT_DB)")

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuns(dbFlag, func(s *store.RunStore) error {
				runs, err := s.List(limit)
				if err != nil {
					return err
				}
				return printRuns(a.stdout, runs)
			})
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs")

	show := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one run and its parameter estimates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuns(dbFlag, func(s *store.RunStore) error {
				run, err := s.Get(args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", args[0])
				}
				est, err := s.Params(run.RunID)
				if err != nil {
					return err
				}
				return printRun(a.stdout, run, est)
			})
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func (a *app) withRuns(dbFlag string, fn func(*store.RunStore) error) error {
	db, err := store.Open(a.dbPath(dbFlag))
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(store.NewRunStore(db))
}

func printRuns(w io.Writer, runs []store.FitRun) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, styleDim.Render("no runs"))
		return err
	}
	fmt.Fprintln(w, styleTitle.Render(fmt.Sprintf("%-36s  %-10s  %-20s  %s", "RUN", "STATUS", "STARTED", "CUBE")))
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %s  %-20s  %s\n", r.RunID, renderStatus(r.Status, 10),
			r.StartedAt.Local().Format(time.DateTime), r.CubePath)
	}
	return nil
}

func printRun(w io.Writer, r *store.FitRun, est []store.ParamEstimate) error {
	fmt.Fprintf(w, "%s %s\n", styleTitle.Render("run"), r.RunID)
	fmt.Fprintf(w, "  status     %s\n", renderStatus(r.Status, 0))
	fmt.Fprintf(w, "  cube       %s\n", r.CubePath)
	fmt.Fprintf(w, "  sampler    %d walkers, %d burn-in, %d steps\n", r.Walkers, r.Burnin, r.Steps)
	fmt.Fprintf(w, "  started    %s\n", r.StartedAt.Local().Format(time.DateTime))
	if r.CompletedAt != nil {
		fmt.Fprintf(w, "  duration   %s\n", r.CompletedAt.Sub(r.StartedAt).Round(time.Second))
	}
	if r.Acceptance != nil {
		fmt.Fprintf(w, "  acceptance %.3f\n", *r.Acceptance)
	}
	if r.MaxLogProb != nil {
		fmt.Fprintf(w, "  max lnP    %.6e\n", *r.MaxLogProb)
	}
	if r.TablePath != "" {
		fmt.Fprintf(w, "  table      %s\n", r.TablePath)
	}
	if r.Error != "" {
		fmt.Fprintf(w, "  error      %s\n", r.Error)
	}
	if len(est) == 0 {
		return nil
	}
	fmt.Fprintln(w, styleTitle.Render(fmt.Sprintf("%-9s %-5s %12s %12s %12s %12s", "PARAM", "FREE", "PLOW", "PMID", "PHIGH", "POPT")))
	for _, e := range est {
		free := "fixed"
		if e.Free {
			free = "free"
		}
		_, err := fmt.Fprintf(w, "%-9s %-5s %12.4e %12.4e %12.4e %12.4e\n", e.Name, free, e.Low, e.Mid, e.High, e.Opt)
		if err != nil {
			return err
		}
	}
	return nil
}
