// Package app is the embedding host of the build engine. It owns the
// configuration, the logger and the set of installed modules, and offers the
// operations the CLI exposes: a one-shot Run, Validate, Graph export and the
// incremental Watch loop. Results and diagnostics are rendered as text or
// JSON reports, independent of any specific entrypoint.
package app
