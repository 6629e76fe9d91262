package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, nodes []string, edges [][2]string) *Graph {
	t.Helper()
	g := New()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e[0], e[1]))
	}
	return g
}

func TestAddNode(t *testing.T) {
	g := New()
	g.AddNode("a")
	g.AddNode("a") // idempotent
	g.AddNode("b")

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []string{"a", "b"}, g.Nodes())
	assert.True(t, g.Has("a"))
	assert.False(t, g.Has("z"))
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := build(t, []string{"a", "b", "c"}, [][2]string{{"a", "c"}, {"b", "c"}})

		deps, err := g.Dependencies("c")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, deps)

		dependents, err := g.Dependents("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, dependents)
	})

	t.Run("error cases", func(t *testing.T) {
		g := build(t, []string{"a", "b"}, nil)

		assert.ErrorContains(t, g.AddEdge("dne", "a"), "source node not found")
		assert.ErrorContains(t, g.AddEdge("a", "dne"), "destination node not found")
		assert.ErrorContains(t, g.AddEdge("a", "a"), "self-referential edge")

		_, err := g.Dependencies("dne")
		assert.Error(t, err)
		_, err = g.Dependents("dne")
		assert.Error(t, err)
	})
}

func TestFindCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		assert.Empty(t, New().FindCycles())
		assert.NoError(t, New().DetectCycles())
	})

	t.Run("valid dag has no cycles", func(t *testing.T) {
		g := build(t, []string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"b", "c"}, {"a", "c"}, {"c", "d"}})
		assert.Empty(t, g.FindCycles())
	})

	t.Run("direct cycle reports both members", func(t *testing.T) {
		g := build(t, []string{"a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}})
		assert.Equal(t, [][]string{{"a", "b"}}, g.FindCycles())

		err := g.DetectCycles()
		require.ErrorIs(t, err, ErrCycle)
		assert.ErrorContains(t, err, "a -> b -> a")
	})

	t.Run("longer cycle keeps the full path", func(t *testing.T) {
		g := build(t, []string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}, {"d", "a"}})
		assert.Equal(t, [][]string{{"a", "b", "c", "d"}}, g.FindCycles())
	})

	t.Run("cycle entered midway is rotated to its earliest node", func(t *testing.T) {
		g := build(t, []string{"entry", "x", "y", "z"}, [][2]string{{"entry", "y"}, {"y", "z"}, {"z", "x"}, {"x", "y"}})
		assert.Equal(t, [][]string{{"x", "y", "z"}}, g.FindCycles())
	})

	t.Run("a shortcut inside a component is not reported separately", func(t *testing.T) {
		// a -> c -> a is elementary too, but c is already finished when the
		// walk returns to a.
		g := build(t, []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}, {"a", "c"}})
		assert.Equal(t, [][]string{{"a", "b", "c"}}, g.FindCycles())
	})

	t.Run("disjoint cycles are all reported", func(t *testing.T) {
		g := build(t, []string{"a", "b", "ok", "x", "y"}, [][2]string{{"a", "b"}, {"b", "a"}, {"x", "y"}, {"y", "x"}, {"ok", "x"}})
		assert.Equal(t, [][]string{{"a", "b"}, {"x", "y"}}, g.FindCycles())
	})
}

func TestTopoLayers(t *testing.T) {
	t.Run("diamond", func(t *testing.T) {
		g := build(t, []string{"root", "left", "right", "join", "lonely"},
			[][2]string{{"root", "left"}, {"root", "right"}, {"left", "join"}, {"right", "join"}})

		layers, err := g.TopoLayers()
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"root", "lonely"}, {"left", "right"}, {"join"}}, layers)
	})

	t.Run("insertion order wins inside a layer", func(t *testing.T) {
		g := build(t, []string{"z", "b", "a", "c"}, [][2]string{{"z", "c"}, {"b", "a"}})

		layers, err := g.TopoLayers()
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"z", "b"}, {"a", "c"}}, layers)
	})

	t.Run("cycle", func(t *testing.T) {
		g := build(t, []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "a"}})
		_, err := g.TopoLayers()
		assert.ErrorIs(t, err, ErrCycle)
	})
}
