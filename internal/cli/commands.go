package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/specialistvlad/buildgraph/internal/app"
	"github.com/specialistvlad/buildgraph/internal/hcl"
)

// action is one app operation a command runs.
type action func(a *app.App, ctx context.Context) error

func newRunCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run [PLAN_PATH...]",
		Short: "Validate the build graph and execute it once.",
		Long: `Validate the build graph and execute it once.

PLAN_PATH is a .hcl plan file or a directory searched recursively for them.
The report lists the final status of every step and the produced items.`,
		RunE: runE(v, (*app.App).Run),
	}
}

func newValidateCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [PLAN_PATH...]",
		Short: "Validate the build graph without running any step.",
		RunE:  runE(v, (*app.App).Validate),
	}
}

func newGraphCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "graph [PLAN_PATH...]",
		Short: "Print the build graph in Graphviz DOT format.",
		RunE:  runE(v, (*app.App).Graph),
	}
}

func newWatchCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [PLAN_PATH...]",
		Short: "Run the build, then rebuild incrementally whenever files change.",
		Long: `Run the build, then rebuild incrementally whenever files change.

Only steps whose watch patterns match a changed file, and the steps
downstream of them, run again; every other step reuses its previous
productions. Editing a plan file reloads the graph.`,
		RunE: runE(v, (*app.App).Watch),
	}
	addWatchFlags(cmd.Flags())
	return cmd
}

// runE builds the app from the bound configuration and runs do.
func runE(v *viper.Viper, do action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := configFrom(v, args)
		if err != nil {
			return usageError(err)
		}
		slog.Debug("CLI configuration resolved.", "command", cmd.Name(), "plans", cfg.PlanPaths, "targets", cfg.Targets)

		a, err := app.NewApp(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, hcl.NewLoader(nil))
		if err != nil {
			return failure(err)
		}
		if err := do(a, cmd.Context()); err != nil {
			return failure(err)
		}
		return nil
	}
}
