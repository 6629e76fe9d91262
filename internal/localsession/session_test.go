package localsession

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/buildgraph/internal/builder"
	"github.com/specialistvlad/buildgraph/internal/itemtype"
	"github.com/specialistvlad/buildgraph/internal/localexecutor"
	"github.com/specialistvlad/buildgraph/internal/node"
	"github.com/specialistvlad/buildgraph/internal/nodeid"
	"github.com/specialistvlad/buildgraph/internal/registry"
	"github.com/specialistvlad/buildgraph/internal/resultstore"
	"github.com/specialistvlad/buildgraph/internal/session"
	"github.com/specialistvlad/buildgraph/internal/step"
	"github.com/specialistvlad/buildgraph/internal/telemetry"
	"github.com/specialistvlad/buildgraph/internal/testutil"
)

func TestSession_RunAndReuse(t *testing.T) {
	ctx := testutil.NewContext()
	version := itemtype.Simple[string]("version")
	banner := itemtype.Simple[string]("banner")

	calls := 0
	r := registry.New()
	r.Step("version").Produces(version).Run(func(_ context.Context, c step.Context) error {
		calls++
		return c.Produce(version, "1.2.3")
	})
	r.Step("banner").Consumes(version).Produces(banner).Run(func(_ context.Context, c step.Context) error {
		v, _ := step.Value[string](c, version)
		return c.Produce(banner, "v"+v)
	})
	bg, err := builder.Build(ctx, r.Descriptors())
	require.NoError(t, err)

	f := &SessionFactory{ExecutorOptions: []localexecutor.Option{
		localexecutor.WithMetrics(telemetry.NewMetrics(prometheus.NewRegistry())),
	}}

	run := func(opts session.Options) (session.Session, *resultstore.Store) {
		s, err := f.NewSession(ctx, bg, opts)
		require.NoError(t, err)
		t.Cleanup(func() { assert.NoError(t, s.Close(ctx)) })
		exec, err := s.GetExecutor()
		require.NoError(t, err)
		results, err := exec.Execute(ctx)
		require.NoError(t, err)
		return s, results
	}

	_, first := run(session.Options{Workers: 1})
	s, second := run(session.Options{Workers: 2, Reused: []string{"version"}, Previous: first})

	assert.Equal(t, 1, calls)
	v, _ := resultstore.Value[string](second, banner)
	assert.Equal(t, "v1.2.3", v)
	status, _ := s.Graph().NodeStatus(ctx, *nodeid.MustParse("version"))
	assert.Equal(t, node.StatusReused, status)
}
