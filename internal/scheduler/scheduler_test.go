package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/buildgraph/internal/builder"
	"github.com/specialistvlad/buildgraph/internal/graph"
	"github.com/specialistvlad/buildgraph/internal/inmemorystore"
	"github.com/specialistvlad/buildgraph/internal/inmemorytopology"
	"github.com/specialistvlad/buildgraph/internal/itemtype"
	"github.com/specialistvlad/buildgraph/internal/node"
	"github.com/specialistvlad/buildgraph/internal/nodeid"
	"github.com/specialistvlad/buildgraph/internal/step"
	"github.com/specialistvlad/buildgraph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func noop(context.Context, step.Context) error { return nil }

// chain builds a -> b -> c plus an independent d.
func chain(t *testing.T) graph.Graph {
	t.Helper()
	ctx := testutil.NewContext()
	ab := itemtype.Simple[string]("ab")
	bc := itemtype.Simple[string]("bc")
	d := itemtype.Simple[string]("d")

	bg, err := builder.Build(ctx, []*step.Descriptor{
		{ID: "a", Rank: 0, Body: noop, Produces: []step.Produce{{Type: ab}}},
		{ID: "b", Rank: 1, Body: noop, Consumes: []step.Consume{{Type: ab}}, Produces: []step.Produce{{Type: bc}}},
		{ID: "c", Rank: 2, Body: noop, Consumes: []step.Consume{{Type: bc}}},
		{ID: "d", Rank: 3, Body: noop, Produces: []step.Produce{{Type: d}}},
	})
	require.NoError(t, err)

	ts := inmemorytopology.New()
	require.NoError(t, graph.Load(ctx, ts, bg))
	return graph.New(ts, inmemorystore.New())
}

func nodeAddr(id string) nodeid.Address {
	return *nodeid.MustParse(id)
}

func receive(t *testing.T, ch <-chan *node.Node) *node.Node {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a ready node")
		return nil
	}
}

func run(t *testing.T, g graph.Graph, n *node.Node) {
	t.Helper()
	require.NoError(t, g.MarkRunning(testutil.NewContext(), n.ID))
}

func TestScheduler_ReleasesInOrder(t *testing.T) {
	ctx := testutil.NewContext()
	g := chain(t)
	s := New(g)
	require.NoError(t, s.Start(ctx))

	first := []string{receive(t, s.ReadyNodes()).Key(), receive(t, s.ReadyNodes()).Key()}
	assert.Equal(t, []string{"a", "d"}, first)

	a, _ := g.Node(ctx, nodeAddr("a"))
	run(t, g, a)
	require.NoError(t, s.Complete(ctx, a))
	b := receive(t, s.ReadyNodes())
	assert.Equal(t, "b", b.Key())

	for _, id := range []string{"d", "b"} {
		n, _ := g.Node(ctx, nodeAddr(id))
		run(t, g, n)
		require.NoError(t, s.Complete(ctx, n))
	}
	c := receive(t, s.ReadyNodes())
	run(t, g, c)
	require.NoError(t, s.Complete(ctx, c))

	s.Wait()
	s.Close()
	s.Close()
	_, open := <-s.ReadyNodes()
	assert.False(t, open)
}

func TestScheduler_FailSkipsTransitively(t *testing.T) {
	ctx := testutil.NewContext()
	g := chain(t)
	s := New(g)
	require.NoError(t, s.Start(ctx))

	a := receive(t, s.ReadyNodes())
	d := receive(t, s.ReadyNodes())
	run(t, g, a)
	run(t, g, d)

	skipped, err := s.Fail(ctx, a, errors.New("boom"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, skipped)
	require.NoError(t, s.Complete(ctx, d), "independent branch continues")

	s.Wait()
	s.Close()

	status, _ := g.NodeStatus(ctx, nodeAddr("c"))
	assert.Equal(t, node.StatusSkipped, status)
	cause, ok := g.SkipCause(ctx, nodeAddr("c"))
	require.True(t, ok)
	assert.Equal(t, "a", cause.String(), "skips name the root failure")
	assert.EqualError(t, g.NodeError(ctx, nodeAddr("a")), "boom")

	var rest []string
	for n := range s.ReadyNodes() {
		rest = append(rest, n.Key())
	}
	assert.Empty(t, rest)
}

func TestScheduler_Reused(t *testing.T) {
	ctx := testutil.NewContext()

	t.Run("reused nodes release their consumers", func(t *testing.T) {
		g := chain(t)
		s := New(g, WithReused("a", "d"))
		require.NoError(t, s.Start(ctx))

		b := receive(t, s.ReadyNodes())
		assert.Equal(t, "b", b.Key())
		status, _ := g.NodeStatus(ctx, nodeAddr("a"))
		assert.Equal(t, node.StatusReused, status)

		run(t, g, b)
		require.NoError(t, s.Complete(ctx, b))
		c := receive(t, s.ReadyNodes())
		run(t, g, c)
		require.NoError(t, s.Complete(ctx, c))
		s.Wait()
		s.Close()
	})

	t.Run("reuse must be closed upstream", func(t *testing.T) {
		s := New(chain(t), WithReused("b"))
		err := s.Start(ctx)
		assert.ErrorContains(t, err, "reused step 'b' depends on step 'a'")
	})
}

func TestScheduler_ConcurrentWorkers(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	ctx := testutil.NewContext()
	layer := itemtype.Multi[int]("layer")
	descs := []*step.Descriptor{}
	for i := 0; i < 20; i++ {
		descs = append(descs, &step.Descriptor{
			ID: "producer" + string(rune('a'+i)), Rank: i, Body: noop,
			Produces: []step.Produce{{Type: layer, Modifier: step.Multi}},
		})
	}
	descs = append(descs, &step.Descriptor{
		ID: "sink", Rank: 20, Body: noop,
		Consumes: []step.Consume{{Type: layer, Modifier: step.MultiRequired}},
	})
	bg, err := builder.Build(ctx, descs)
	require.NoError(t, err)
	ts := inmemorytopology.New()
	require.NoError(t, graph.Load(ctx, ts, bg))
	g := graph.New(ts, inmemorystore.New())

	s := New(g)
	require.NoError(t, s.Start(ctx))
	go func() {
		s.Wait()
		s.Close()
	}()

	var mu sync.Mutex
	var order []string
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range s.ReadyNodes() {
				assert.NoError(t, g.MarkRunning(ctx, n.ID))
				mu.Lock()
				order = append(order, n.Key())
				mu.Unlock()
				assert.NoError(t, s.Complete(ctx, n))
			}
		}()
	}
	wg.Wait()

	require.Len(t, order, 21)
	assert.Equal(t, "sink", order[20], "the consumer runs after every producer")
	producers := append([]string{}, order[:20]...)
	sort.Strings(producers)
	assert.Equal(t, "producera", producers[0])
}
