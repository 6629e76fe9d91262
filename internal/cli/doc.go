// Package cli is the cobra command tree of the buildgraph binary. It merges
// flags, BUILDGRAPH_* environment variables and an optional config file via
// viper, validates the result into an app.Config, and maps failures to
// process exit codes.
package cli
