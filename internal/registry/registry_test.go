package registry

import (
	"context"
	"testing"

	"github.com/specialistvlad/buildgraph/internal/itemtype"
	"github.com/specialistvlad/buildgraph/internal/step"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type twoStepModule struct{}

func (twoStepModule) Register(r *Registry) {
	name := itemtype.Simple[string]("app.name")
	r.Step("app.name").Produces(name).Run(func(ctx context.Context, c step.Context) error {
		return c.Produce(name, "demo")
	})
	r.Step("app.print").Consumes(name).Run(func(ctx context.Context, c step.Context) error { return nil })
}

func TestRegistry_InstallAssignsRanks(t *testing.T) {
	r := New()
	r.Install(twoStepModule{})

	descs := r.Descriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, "app.name", descs[0].ID)
	assert.Equal(t, 0, descs[0].Rank)
	assert.Equal(t, "app.print", descs[1].ID)
	assert.Equal(t, 1, descs[1].Rank)
	assert.Equal(t, 2, r.Len())

	descs[0] = nil
	assert.NotNil(t, r.Descriptors()[0], "Descriptors should return a copy")
}

func TestRegistry_PanicsOnProgrammingErrors(t *testing.T) {
	t.Run("duplicate id", func(t *testing.T) {
		r := New()
		r.Add(&step.Descriptor{ID: "a.b"})
		assert.PanicsWithValue(t, "step with id 'a.b' already registered", func() {
			r.Add(&step.Descriptor{ID: "a.b"})
		})
	})

	t.Run("malformed id", func(t *testing.T) {
		r := New()
		assert.Panics(t, func() { r.Add(&step.Descriptor{ID: "a..b"}) })
	})

	t.Run("nil descriptor", func(t *testing.T) {
		assert.Panics(t, func() { New().Add(nil) })
	})
}

func TestStepBuilder(t *testing.T) {
	marker := itemtype.Empty("service.started")
	cfg := itemtype.Simple[int]("cfg.port")
	routes := itemtype.Multi[string]("http.routes")
	beans := itemtype.Named[string]("cdi.beans")
	sealed := itemtype.Simple[string]("app.final")

	r := New()
	d := r.Step("http.server").
		Consumes(cfg).
		ConsumesOptional(beans).
		ConsumesAll(routes).
		After(marker).
		ProducesFinal(sealed).
		ProducesWeak(itemtype.Simple[bool]("http.enabled")).
		ProducesMulti(itemtype.Multi[string]("http.logs")).
		Before(itemtype.Empty("http.ready")).
		Override().
		Watches("src/**/*.go", "config:http").
		Run(func(ctx context.Context, c step.Context) error { return nil })

	require.NotNil(t, d.Body)
	assert.True(t, d.Override)
	assert.Equal(t, []string{"src/**/*.go", "config:http"}, d.Watches)

	wantConsumes := []step.ConsumeModifier{step.Required, step.Optional, step.MultiRequired, step.Optional}
	require.Len(t, d.Consumes, len(wantConsumes))
	for i, m := range wantConsumes {
		assert.Equal(t, m, d.Consumes[i].Modifier, "consume %d", i)
	}

	require.Len(t, d.Produces, 4)
	assert.Equal(t, step.Final, d.Produces[0].Modifier)
	assert.True(t, d.Produces[1].Weak)
	assert.Equal(t, step.Multi, d.Produces[2].Modifier)
	assert.Equal(t, "http.ready", d.Produces[3].Type.Name())
}
