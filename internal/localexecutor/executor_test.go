package localexecutor

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"github.com/specialistvlad/buildgraph/internal/builder"
	"github.com/specialistvlad/buildgraph/internal/diag"
	"github.com/specialistvlad/buildgraph/internal/graph"
	"github.com/specialistvlad/buildgraph/internal/inmemorystore"
	"github.com/specialistvlad/buildgraph/internal/inmemorytopology"
	"github.com/specialistvlad/buildgraph/internal/itemtype"
	"github.com/specialistvlad/buildgraph/internal/node"
	"github.com/specialistvlad/buildgraph/internal/nodeid"
	"github.com/specialistvlad/buildgraph/internal/registry"
	"github.com/specialistvlad/buildgraph/internal/resultstore"
	"github.com/specialistvlad/buildgraph/internal/scheduler"
	"github.com/specialistvlad/buildgraph/internal/step"
	"github.com/specialistvlad/buildgraph/internal/telemetry"
	"github.com/specialistvlad/buildgraph/internal/testutil"
)

var (
	source   = itemtype.Simple[string]("source")
	symbols  = itemtype.Multi[int]("symbols")
	artifact = itemtype.Simple[string]("artifact")
	envs     = itemtype.Named[string]("env")
	ready    = itemtype.Empty("ready")
)

type harness struct {
	ctx    context.Context
	graph  graph.Graph
	build  *builder.Graph
	reused []string
	opts   []Option
}

func newHarness(t *testing.T, r *registry.Registry) *harness {
	t.Helper()
	ctx := testutil.NewContext()
	bg, err := builder.Build(ctx, r.Descriptors())
	require.NoError(t, err)
	ts := inmemorytopology.New()
	require.NoError(t, graph.Load(ctx, ts, bg))
	return &harness{
		ctx:   ctx,
		graph: graph.New(ts, inmemorystore.New()),
		build: bg,
		opts:  []Option{WithMetrics(telemetry.NewMetrics(prometheus.NewRegistry()))},
	}
}

func (h *harness) execute() (*resultstore.Store, error) {
	sch := scheduler.New(h.graph, scheduler.WithReused(h.reused...))
	return New(h.build, h.graph, sch, h.opts...).Execute(h.ctx)
}

func (h *harness) status(id string) node.Status {
	s, _ := h.graph.NodeStatus(h.ctx, *nodeid.MustParse(id))
	return s
}

func produce(t itemtype.Type, v any) step.Body {
	return func(_ context.Context, c step.Context) error {
		return c.Produce(t, v)
	}
}

func noop(context.Context, step.Context) error { return nil }

// compiler registers read -> scan.a, scan.b -> assemble.
func compiler(r *registry.Registry) {
	r.Step("read").Produces(source).Run(produce(source, "main.go"))
	r.Step("scan.a").Consumes(source).ProducesMulti(symbols).Run(func(_ context.Context, c step.Context) error {
		src, _ := step.Value[string](c, source)
		if err := c.Produce(symbols, len(src)); err != nil {
			return err
		}
		return c.Produce(symbols, 3)
	})
	r.Step("scan.b").Consumes(source).ProducesMulti(symbols).Run(produce(symbols, 1))
	r.Step("assemble").ConsumesAll(symbols).Produces(artifact).Run(func(_ context.Context, c step.Context) error {
		parts := []string{}
		for _, v := range step.Values[int](c, symbols) {
			parts = append(parts, string(rune('0'+v)))
		}
		return c.Produce(artifact, strings.Join(parts, ","))
	})
}

func TestExecute_Success(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	r := registry.New()
	compiler(r)
	h := newHarness(t, r)

	results, err := h.execute()
	require.NoError(t, err)
	require.True(t, results.Frozen())

	v, ok := resultstore.Value[string](results, artifact)
	require.True(t, ok)
	assert.Equal(t, "1,3,7", v, "orderable MULTI values are sorted")
	assert.Equal(t, []string{"scan.a", "scan.b"}, slices.Sorted(slices.Values(results.Producers(symbols))))
	for _, id := range []string{"read", "scan.a", "scan.b", "assemble"} {
		assert.Equal(t, node.StatusDone, h.status(id), id)
	}
}

func TestExecute_MultiWithoutProducers(t *testing.T) {
	r := registry.New()
	var seen []any
	r.Step("assemble").ConsumesAll(symbols).Produces(artifact).Run(func(_ context.Context, c step.Context) error {
		seen = c.GetAll(symbols)
		return c.Produce(artifact, "empty")
	})
	h := newHarness(t, r)

	_, err := h.execute()
	require.NoError(t, err)
	assert.NotNil(t, seen)
	assert.Empty(t, seen)
}

func TestExecute_FailureSkipsDownstreamOnly(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	boom := errors.New("disk full")
	r := registry.New()
	r.Step("read").Produces(source).Run(func(context.Context, step.Context) error { return boom })
	r.Step("scan").Consumes(source).ProducesMulti(symbols).Run(noop)
	r.Step("assemble").ConsumesAll(symbols).Produces(artifact).Run(produce(artifact, "x"))
	var envRan atomic.Bool
	r.Step("env").Produces(envs).Run(func(_ context.Context, c step.Context) error {
		envRan.Store(true)
		return c.ProduceNamed(envs, "HOME", "/root")
	})
	h := newHarness(t, r)

	results, err := h.execute()
	require.Error(t, err)
	assert.Nil(t, results, "partial results are discarded")
	assert.True(t, envRan.Load(), "independent branches still run")

	var execErr *diag.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.ErrorIs(t, err, diag.ErrExecutionFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"read"}, execErr.Failed())
	assert.Equal(t, []string{"scan", "assemble"}, execErr.Failures[0].Skipped)

	assert.Equal(t, node.StatusFailed, h.status("read"))
	assert.Equal(t, node.StatusSkipped, h.status("assemble"))
	assert.Equal(t, node.StatusDone, h.status("env"))
}

func TestExecute_EveryRootFailureIsReported(t *testing.T) {
	r := registry.New()
	r.Step("a").Produces(source).Run(func(context.Context, step.Context) error { return errors.New("a") })
	r.Step("b").ProducesMulti(symbols).Run(func(context.Context, step.Context) error { return errors.New("b") })
	r.Step("c").Consumes(source).ConsumesAll(symbols).Run(noop)
	h := newHarness(t, r)

	_, err := h.execute()
	var execErr *diag.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, []string{"a", "b"}, execErr.Failed())
	assert.Equal(t, []string{"c"}, execErr.Skipped(), "a step is skipped once however many producers fail")
}

func TestExecute_StepContract(t *testing.T) {
	other := itemtype.Simple[string]("other")

	testCases := []struct {
		name    string
		body    step.Body
		wantErr error
	}{
		{
			name:    "panic is a step failure",
			body:    func(context.Context, step.Context) error { panic("kaboom") },
			wantErr: nil,
		},
		{
			name: "reading an undeclared item",
			body: func(_ context.Context, c step.Context) error {
				c.Get(other)
				return nil
			},
			wantErr: ErrUndeclared,
		},
		{
			name: "reading through the wrong accessor",
			body: func(_ context.Context, c step.Context) error {
				c.GetAll(source)
				return nil
			},
			wantErr: ErrWrongAccess,
		},
		{
			name:    "producing an undeclared item",
			body:    produce(other, "x"),
			wantErr: ErrUndeclared,
		},
		{
			name:    "producing the wrong payload",
			body:    produce(artifact, 42),
			wantErr: ErrPayload,
		},
		{
			name: "producing a SINGLE twice",
			body: func(_ context.Context, c step.Context) error {
				if err := c.Produce(artifact, "one"); err != nil {
					return err
				}
				return c.Produce(artifact, "two")
			},
			wantErr: ErrProducedTwice,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := registry.New()
			r.Step("read").Produces(source).Run(produce(source, "main.go"))
			r.Step("link").Consumes(source).Produces(artifact).Run(tc.body)
			h := newHarness(t, r)

			_, err := h.execute()
			var execErr *diag.ExecutionError
			require.ErrorAs(t, err, &execErr)
			assert.Equal(t, []string{"link"}, execErr.Failed())
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.ErrorContains(t, err, "step panicked: kaboom")
			}
		})
	}
}

func TestExecute_UnfulfilledProduceIsFatal(t *testing.T) {
	r := registry.New()
	r.Step("read").Produces(source).Run(noop)
	h := newHarness(t, r)

	assert.PanicsWithError(t, "fatal: step 'read': declared produce never fulfilled: source", func() {
		_, _ = h.execute()
	})
}

func TestExecute_OverrideShadowsLoser(t *testing.T) {
	r := registry.New()
	r.Step("defaults").Produces(source).Run(produce(source, "default.go"))
	r.Step("custom").Produces(source).Override().Run(produce(source, "custom.go"))
	r.Step("link").Consumes(source).Produces(artifact).Run(func(_ context.Context, c step.Context) error {
		v, _ := step.Value[string](c, source)
		return c.Produce(artifact, v)
	})
	h := newHarness(t, r)

	results, err := h.execute()
	require.NoError(t, err)
	v, _ := resultstore.Value[string](results, artifact)
	assert.Equal(t, "custom.go", v)
	assert.Equal(t, []string{"custom"}, results.Producers(source))
	assert.Equal(t, node.StatusDone, h.status("defaults"), "the shadowed step still runs")
}

func TestExecute_MarkersAndNamedItems(t *testing.T) {
	r := registry.New()
	r.Step("migrate").Before(ready).Run(noop)
	r.Step("env.home").Produces(envs).Run(func(_ context.Context, c step.Context) error {
		return c.ProduceNamed(envs, "HOME", "/root")
	})
	r.Step("env.path").ProducesMulti(envs).Run(func(_ context.Context, c step.Context) error {
		if err := c.ProduceNamed(envs, "PATH", "/bin"); err != nil {
			return err
		}
		return c.ProduceNamed(envs, "SHELL", "sh")
	})
	var sawMarker atomic.Bool
	var env map[string]string
	r.Step("serve").After(ready).ConsumesAll(envs).Run(func(_ context.Context, c step.Context) error {
		sawMarker.Store(c.Has(ready))
		env = step.NamedValues[string](c, envs)
		return nil
	})
	h := newHarness(t, r)

	results, err := h.execute()
	require.NoError(t, err)
	assert.True(t, sawMarker.Load(), "EMPTY produces are marked when the body succeeds")
	assert.Equal(t, map[string]string{"HOME": "/root", "PATH": "/bin", "SHELL": "sh"}, env)
	assert.Equal(t, []string{"HOME", "PATH", "SHELL"}, results.Names(envs))
}

func TestExecute_DuplicateNameAcrossSteps(t *testing.T) {
	r := registry.New()
	r.Step("env.a").ProducesMulti(envs).Run(func(_ context.Context, c step.Context) error {
		return c.ProduceNamed(envs, "HOME", "/a")
	})
	r.Step("env.b").ProducesMulti(envs).Run(func(_ context.Context, c step.Context) error {
		return c.ProduceNamed(envs, "HOME", "/b")
	})
	h := newHarness(t, r)

	_, err := h.execute()
	assert.ErrorIs(t, err, resultstore.ErrDuplicateName)
}

func TestExecute_Cancelled(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	r := registry.New()
	compiler(r)
	h := newHarness(t, r)
	ctx, cancel := context.WithCancel(h.ctx)
	cancel()
	h.ctx = ctx

	_, err := h.execute()
	require.ErrorIs(t, err, context.Canceled)
	var execErr *diag.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, []string{"read"}, execErr.Failed())
	assert.Equal(t, []string{"scan.a", "scan.b", "assemble"}, execErr.Failures[0].Skipped)
}

func TestExecute_BoundedWorkers(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	var running, peak atomic.Int32
	body := func(_ context.Context, c step.Context) error {
		now := running.Add(1)
		for {
			old := peak.Load()
			if now <= old || peak.CompareAndSwap(old, now) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return c.Produce(symbols, 1)
	}

	r := registry.New()
	for _, id := range []string{"w.a", "w.b", "w.c", "w.d", "w.e", "w.f", "w.g", "w.h"} {
		r.Step(id).ProducesMulti(symbols).Run(body)
	}
	r.Step("sum").ConsumesAll(symbols).Run(func(_ context.Context, c step.Context) error {
		if n := len(c.GetAll(symbols)); n != 8 {
			return errors.New("sum ran before every producer")
		}
		return nil
	})
	h := newHarness(t, r)
	h.opts = append(h.opts, WithWorkers(3))

	_, err := h.execute()
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestExecute_Reuse(t *testing.T) {
	var reads atomic.Int32
	register := func() *registry.Registry {
		r := registry.New()
		r.Step("read").Produces(source).Run(func(_ context.Context, c step.Context) error {
			reads.Add(1)
			return c.Produce(source, "main.go")
		})
		r.Step("link").Consumes(source).Produces(artifact).Run(func(_ context.Context, c step.Context) error {
			v, _ := step.Value[string](c, source)
			return c.Produce(artifact, "bin/"+v)
		})
		return r
	}

	first, err := newHarness(t, register()).execute()
	require.NoError(t, err)

	h := newHarness(t, register())
	h.reused = []string{"read"}
	h.opts = append(h.opts, WithReuse(first, "read"))
	second, err := h.execute()
	require.NoError(t, err)

	assert.Equal(t, int32(1), reads.Load(), "reused steps do not run")
	assert.Equal(t, node.StatusReused, h.status("read"))
	v, _ := resultstore.Value[string](second, artifact)
	assert.Equal(t, "bin/main.go", v)
}

func TestExecute_Spans(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))

	r := registry.New()
	compiler(r)
	h := newHarness(t, r)
	h.opts = append(h.opts, WithTracerProvider(tp))

	_, err := h.execute()
	require.NoError(t, err)

	names := []string{}
	for _, s := range spanRecorder.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"read", "scan.a", "scan.b", "assemble", "Execute"}, names)
}

type token struct {
	Text string
	Step string
}

// contents flattens a store into comparable values keyed by item name.
func contents(s *resultstore.Store) map[string]any {
	out := make(map[string]any)
	for _, typ := range s.Types() {
		switch typ.Kind() {
		case itemtype.KindSimple:
			out[typ.Name()], _ = s.Get(typ)
		case itemtype.KindMulti:
			out[typ.Name()] = s.GetAll(typ)
		case itemtype.KindNamed:
			out[typ.Name()] = s.Named(typ)
		case itemtype.KindEmpty:
			out[typ.Name()] = s.Has(typ)
		}
	}
	return out
}

func TestExecute_SameGraphTwiceGivesEqualResults(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	tokens := itemtype.Multi[token]("tokens")
	r := registry.New()
	compiler(r)
	for _, id := range []string{"lex.a", "lex.b", "lex.c"} {
		r.Step(id).Consumes(source).ProducesMulti(tokens).Run(func(_ context.Context, c step.Context) error {
			time.Sleep(time.Duration(len(id)%3) * time.Millisecond)
			for _, text := range []string{"package", "main"} {
				if err := c.Produce(tokens, token{Text: text, Step: c.StepID()}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	r.Step("env").ProducesMulti(envs).Run(func(_ context.Context, c step.Context) error {
		if err := c.ProduceNamed(envs, "GOOS", "linux"); err != nil {
			return err
		}
		return c.ProduceNamed(envs, "GOARCH", "amd64")
	})
	r.Step("done").ConsumesAll(tokens).Before(ready).Run(noop)
	bg, err := builder.Build(testutil.NewContext(), r.Descriptors())
	require.NoError(t, err)

	run := func() *resultstore.Store {
		ctx := testutil.NewContext()
		ts := inmemorytopology.New()
		require.NoError(t, graph.Load(ctx, ts, bg))
		g := graph.New(ts, inmemorystore.New())
		results, err := New(bg, g, scheduler.New(g), WithWorkers(4),
			WithMetrics(telemetry.NewMetrics(prometheus.NewRegistry()))).Execute(ctx)
		require.NoError(t, err)
		return results
	}

	first := contents(run())
	second := contents(run())
	require.Len(t, first, 6)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second execution differs (-first +second):\n%s", diff)
	}
}
