package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "BUILDGRAPH"

// NewRootCommand enables all children commands to read flags from CLI flags,
// environment variables prefixed with BUILDGRAPH, or buildgraph.yaml (in that
// order). Each call uses its own viper instance.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "buildgraph [command]",
		Short: "A build-item dependency graph engine.",
		Long: `BuildGraph - a declarative build-step engine.

Build steps declare the typed items they consume and produce. The engine
validates the resulting graph, runs every step exactly once with as much
concurrency as the dependencies allow, and reruns only what a change reaches
in watch mode.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return usageError(err)
			}
			return readConfig(v, cmd)
		},
	}
	addPersistentFlags(root.PersistentFlags())
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	root.AddCommand(
		newRunCommand(v),
		newValidateCommand(v),
		newGraphCommand(v),
		newWatchCommand(v),
	)
	return root
}

// readConfig loads the config file named by --config, or buildgraph.yaml
// from the default locations when it exists.
func readConfig(v *viper.Viper, cmd *cobra.Command) error {
	if path, _ := cmd.Flags().GetString(configFlag); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return usageError(fmt.Errorf("reading config file: %w", err))
		}
		slog.Debug("Config file loaded.", "path", path)
		return nil
	}

	v.SetConfigName("buildgraph")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.buildgraph")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return usageError(fmt.Errorf("reading config file: %w", err))
	}
	slog.Debug("Config file loaded.", "path", v.ConfigFileUsed())
	return nil
}

// Execute runs the command line args. Every returned error is an
// *ExitError carrying the process exit code.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) error {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	// Anything cobra rejects before a command runs, such as an unknown
	// command, is a usage error.
	return usageError(err)
}
