package cli

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/specialistvlad/buildgraph/internal/app"
	"github.com/specialistvlad/buildgraph/internal/watch"
)

const (
	configFlag      = "config"
	logLevelFlag    = "log-level"
	logFormatFlag   = "log-format"
	workersFlag     = "workers"
	targetFlag      = "target"
	outputFlag      = "output"
	metricsPortFlag = "metrics-port"
	envPrefixFlag   = "env-prefix"
	watchRootFlag   = "watch-root"
	debounceFlag    = "debounce"

	// plansKey lists plan paths in a config file; positional arguments win.
	plansKey = "plans"
)

// addPersistentFlags declares the flags shared by every command.
func addPersistentFlags(flags *pflag.FlagSet) {
	flags.String(configFlag, "", "Path to a config file (default: buildgraph.yaml in . or $HOME/.buildgraph).")
	flags.String(logLevelFlag, "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.String(logFormatFlag, "text", "Log output format. Options: 'text' or 'json'.")
	flags.Int(workersFlag, 0, "Number of concurrent workers for the executor. 0 uses every CPU.")
	flags.StringSlice(targetFlag, nil, "Item to build; only the steps it needs run. Repeatable.")
	flags.StringP(outputFlag, "o", "text", "Report format. Options: 'text' or 'json'.")
	flags.Int(metricsPortFlag, 0, "Port for the /health and /metrics HTTP server. 0 is disabled.")
	flags.String(envPrefixFlag, "BUILDGRAPH_VAR_", "Environment variables with this prefix are collected by the env_vars module.")
}

// addWatchFlags declares the flags of the watch command.
func addWatchFlags(flags *pflag.FlagSet) {
	flags.String(watchRootFlag, ".", "Directory watched for changes.")
	flags.Duration(debounceFlag, watch.DefaultDebounce, "Quiet period before a batch of changes triggers a rebuild.")
}

// configFrom assembles the app configuration. Positional arguments are plan
// paths.
func configFrom(v *viper.Viper, args []string) (*app.Config, error) {
	plans := args
	if len(plans) == 0 {
		plans = v.GetStringSlice(plansKey)
	}
	return app.NewConfig(app.Config{
		PlanPaths:   plans,
		Targets:     v.GetStringSlice(targetFlag),
		LogFormat:   strings.ToLower(v.GetString(logFormatFlag)),
		LogLevel:    strings.ToLower(v.GetString(logLevelFlag)),
		Output:      strings.ToLower(v.GetString(outputFlag)),
		MetricsPort: v.GetInt(metricsPortFlag),
		Workers:     v.GetInt(workersFlag),
		EnvPrefix:   v.GetString(envPrefixFlag),
		WatchRoot:   v.GetString(watchRootFlag),
		Debounce:    v.GetDuration(debounceFlag),
	})
}
