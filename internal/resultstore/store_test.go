package resultstore

import (
	"fmt"
	"sync"
	"testing"

	"github.com/specialistvlad/buildgraph/internal/itemtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bean struct{ name string }

var (
	appName = itemtype.Simple[string]("app.name")
	ports   = itemtype.Multi[int]("http.ports")
	beans   = itemtype.Multi[*bean]("cdi.beans")
	configs = itemtype.Named[string]("config.values")
	started = itemtype.Empty("service.started")
)

func origin(step string, rank int) Origin { return Origin{Step: step, Rank: rank} }

func TestSimpleIsSetOnce(t *testing.T) {
	s := New()

	_, ok := s.Get(appName)
	assert.False(t, ok)

	require.NoError(t, s.Set(origin("a", 0), appName, "demo"))
	err := s.Set(origin("b", 1), appName, "other")
	require.ErrorIs(t, err, ErrAlreadySet)
	assert.ErrorContains(t, err, "produced by step 'a'")

	v, ok := Value[string](s, appName)
	require.True(t, ok)
	assert.Equal(t, "demo", v)
	assert.Equal(t, []string{"a"}, s.Producers(appName))
}

func TestMultiOrdering(t *testing.T) {
	t.Run("orderable payload is sorted", func(t *testing.T) {
		s := New()
		require.NoError(t, s.Append(origin("late", 5), ports, 9090))
		require.NoError(t, s.Append(origin("early", 1), ports, 80))
		require.NoError(t, s.Append(origin("early", 1), ports, 443))

		assert.Equal(t, []int{80, 443, 9090}, Values[int](s, ports))
	})

	t.Run("unorderable payload follows registration rank", func(t *testing.T) {
		s := New()
		b1, b2, b3 := &bean{"x"}, &bean{"y"}, &bean{"z"}
		require.NoError(t, s.Commit(origin("third", 7), []Production{{Type: beans, Value: b3}}))
		require.NoError(t, s.Commit(origin("first", 2), []Production{{Type: beans, Value: b1}, {Type: beans, Value: b2}}))

		got := Values[*bean](s, beans)
		require.Len(t, got, 3)
		assert.Same(t, b1, got[0])
		assert.Same(t, b2, got[1])
		assert.Same(t, b3, got[2])
	})

	t.Run("nothing produced yields an empty sequence", func(t *testing.T) {
		got := New().GetAll(ports)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestNamed(t *testing.T) {
	s := New()
	require.NoError(t, s.PutNamed(origin("a", 0), configs, "port", "8080"))
	require.NoError(t, s.PutNamed(origin("b", 1), configs, "host", "localhost"))

	err := s.PutNamed(origin("c", 2), configs, "port", "9090")
	require.ErrorIs(t, err, ErrDuplicateName)

	assert.ErrorContains(t, s.PutNamed(origin("c", 2), configs, "", "x"), "non-empty name")

	v, ok := NamedValue[string](s, configs, "port")
	require.True(t, ok)
	assert.Equal(t, "8080", v)
	assert.Equal(t, []string{"host", "port"}, s.Names(configs))
	assert.Equal(t, map[string]any{"host": "localhost", "port": "8080"}, s.Named(configs))
}

func TestEmptyMarker(t *testing.T) {
	s := New()
	assert.False(t, s.Has(started))
	require.NoError(t, s.Mark(origin("boot", 0), started))
	require.NoError(t, s.Mark(origin("other", 1), started))
	assert.True(t, s.Has(started))
	assert.Equal(t, []string{"boot", "other"}, s.Producers(started))
}

func TestTypeChecks(t *testing.T) {
	s := New()

	err := s.Set(origin("a", 0), appName, 42)
	assert.ErrorIs(t, err, ErrKindMismatch)

	require.NoError(t, s.Set(origin("a", 0), appName, "demo"))
	conflicting := itemtype.Multi[string]("app.name")
	assert.ErrorIs(t, s.Append(origin("b", 1), conflicting, "x"), ErrKindMismatch)

	_, ok := s.Get(itemtype.Simple[int]("app.name"))
	assert.False(t, ok, "lookups with a different payload must not match")
	assert.Empty(t, s.GetAll(conflicting))
}

func TestCommitIsAtomic(t *testing.T) {
	s := New()
	require.NoError(t, s.PutNamed(origin("first", 0), configs, "port", "1"))

	err := s.Commit(origin("second", 1), []Production{
		{Type: appName, Value: "demo"},
		{Type: ports, Value: 80},
		{Type: configs, Name: "port", Value: "2"},
	})
	require.ErrorIs(t, err, ErrDuplicateName)

	assert.False(t, s.Has(appName), "no production of a failed commit may be visible")
	assert.False(t, s.Has(ports))
	assert.Empty(t, s.Productions("second"))
	assert.Len(t, s.Types(), 1)

	err = s.Commit(origin("third", 2), []Production{{Type: appName, Value: "a"}, {Type: appName, Value: "b"}})
	assert.ErrorIs(t, err, ErrAlreadySet)
}

func TestFreeze(t *testing.T) {
	s := New()
	require.NoError(t, s.Set(origin("a", 0), appName, "demo"))
	s.Freeze()
	assert.True(t, s.Frozen())

	assert.PanicsWithError(t, "result store is frozen: step 'late' produced after execution completed", func() {
		_ = s.Append(origin("late", 3), ports, 1)
	})
	assert.PanicsWithError(t, "result store is frozen: step 'idle' produced after execution completed", func() {
		_ = s.Commit(origin("idle", 4), nil)
	}, "an empty commit after freeze is still a late step")

	v, ok := s.Get(appName)
	assert.True(t, ok, "reads keep working after freeze")
	assert.Equal(t, "demo", v)
}

func TestJournalReplayKeepsIdentity(t *testing.T) {
	prev := New()
	b := &bean{"kept"}
	require.NoError(t, prev.Commit(origin("scan", 3), []Production{
		{Type: beans, Value: b},
		{Type: configs, Name: "mode", Value: "dev"},
	}))
	prev.Freeze()

	next := New()
	require.NoError(t, next.Replay(origin("scan", 3), prev.Productions("scan")))

	got := Values[*bean](next, beans)
	require.Len(t, got, 1)
	assert.Same(t, b, got[0])
	v, _ := next.GetNamed(configs, "mode")
	assert.Equal(t, "dev", v)
	assert.Len(t, next.Productions("scan"), 2)
}

func TestConcurrentProducers(t *testing.T) {
	s := New()
	const producers = 100

	var wg sync.WaitGroup
	for i := range producers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o := origin(fmt.Sprintf("step%d", i), i)
			assert.NoError(t, s.Append(o, ports, i))
			assert.NoError(t, s.PutNamed(o, configs, fmt.Sprintf("k%d", i), "v"))
			assert.NoError(t, s.Commit(o, []Production{{Type: beans, Value: &bean{}}, {Type: ports, Value: 1000 + i}}))
		}(i)
	}
	wg.Wait()

	got := Values[int](s, ports)
	require.Len(t, got, 2*producers)
	assert.IsNonDecreasing(t, got)
	assert.Len(t, s.Named(configs), producers)
	assert.Len(t, s.GetAll(beans), producers)
}
