package testutil

import (
	"context"
	"io"
	"log/slog"

	"github.com/specialistvlad/buildgraph/internal/ctxlog"
)

// NewContext returns a background context carrying a logger that discards
// everything. Packages that fetch their logger via ctxlog panic without one.
func NewContext() context.Context {
	return NewLoggingContext(io.Discard)
}

// NewLoggingContext returns a background context whose logger writes debug
// level text records to w.
func NewLoggingContext(w io.Writer) context.Context {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger)
}
