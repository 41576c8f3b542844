// Package cli implements the channelfit command-line interface: fitting a
// disk model to a FITS cube, writing model products and moment maps, and
// listing stored fit runs.
//
// Every command takes --config with a JSON, TOML or YAML fit file.
// Process-wide settings (run database, log level, workers, output
// directory) come from CHANNELFIT_* environment variables and can be
// overridden by flags. Diagnostics from the core packages are routed to a
// charmbracelet logger on stderr; --verbose enables debug output.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/banshee-data/channelfit/internal/config"
	"github.com/banshee-data/channelfit/internal/monitoring"
	"github.com/banshee-data/channelfit/internal/timeutil"
	"github.com/banshee-data/channelfit/internal/version"
)

// app carries what every subcommand shares.
type app struct {
	stdout, stderr io.Writer
	configPath     string
	verbose        bool
	env            config.Env
	logger         *charmlog.Logger
	clock          timeutil.Clock
}

// NewRootCommand builds the command tree writing results to stdout and
// logs to stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, clock: timeutil.RealClock{}}

	root := &cobra.Command{
		Use:           "channelfit",
		Short:         "Fit rotating and infalling disk models to spectral-line cubes",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env, err := config.LoadEnv()
			if err != nil {
				return err
			}
			a.env = env
			level, err := parseLevel(env.LogLevel)
			if err != nil {
				return err
			}
			if a.verbose {
				level = charmlog.DebugLevel
			}
			a.logger = newLogger(a.stderr, level)
			monitoring.Use(a.logger)
			cmd.SetContext(withLogger(cmd.Context(), a.logger))
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate(fmt.Sprintf("channelfit %s\ncommit: %s\nbuilt: %s\n", version.Version, version.GitSHA, version.BuildTime))
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "fit configuration file (.json, .toml, .yaml)")

	root.AddCommand(newFitCmd(a))
	root.AddCommand(newModelCmd(a))
	root.AddCommand(newMomentsCmd(a))
	root.AddCommand(newRunsCmd(a))
	root.AddCommand(newVersionCmd(a))
	return root
}

// Execute runs the CLI with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(a.stdout, "channelfit "+version.String())
			return err
		},
	}
}
