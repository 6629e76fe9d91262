package hcl

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/buildgraph/internal/itemtype"
	"github.com/specialistvlad/buildgraph/internal/step"
	"github.com/specialistvlad/buildgraph/internal/testutil"
)

const itemsPlan = `
item "config" {
  kind = "simple"
  type = string
}

item "sources" {
  kind    = "multi"
  type    = string
  ordered = true
}

item "env" {
  kind = "named"
}

item "ready" {
  kind = "virtual"
}
`

const stepsPlan = `
step "config" {
  watch = ["build.hcl"]
  produce "config" {
    value = "release"
  }
}

step "scan" {
  watch = ["src/**/*.go"]
  consume "config" {}
  produce "sources" {
    modifier = "multi"
    values   = [for f in ["b.go", "a.go"] : "${item.config}/${f}"]
  }
  produce "ready" {}
}

`

func writePlans(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, src := range files {
		require.NoError(t, afero.WriteFile(fsys, name, []byte(src), 0o644))
	}
	return fsys
}

func TestLoader_Load(t *testing.T) {
	fsys := writePlans(t, map[string]string{
		"plans/items.hcl":      itemsPlan,
		"plans/steps/main.hcl": stepsPlan,
		"plans/README.md":      "not a plan",
	})

	model, conv, err := NewLoader(fsys).Load(testutil.NewContext(), "plans", "does/not/exist")
	require.NoError(t, err)
	require.NotNil(t, conv)

	require.Len(t, model.Items, 4)
	assert.Equal(t, itemtype.KindEmpty, model.Items["ready"].Kind)
	assert.Equal(t, cty.String, model.Items["sources"].Type)
	assert.True(t, model.Items["sources"].Ordered)
	assert.Equal(t, cty.DynamicPseudoType, model.Items["env"].Type)

	require.Len(t, model.Steps, 2)
	scan := model.Steps[1]
	assert.Equal(t, "scan", scan.ID)
	assert.Equal(t, []string{"src/**/*.go"}, scan.Watches)
	require.Len(t, scan.Consumes, 1)
	assert.Equal(t, step.Required, scan.Consumes[0].Modifier)
	require.Len(t, scan.Produces, 2)
	assert.Equal(t, step.Multi, scan.Produces[0].Modifier)
	assert.NotNil(t, scan.Produces[0].Values)
	assert.Nil(t, scan.Produces[0].Value)
}

func TestLoader_ReportsEveryProblem(t *testing.T) {
	fsys := writePlans(t, map[string]string{
		"plan.hcl": `
item "a" {
  kind = "simple"
}
item "a" {
  kind = "multi"
}
item "b" {
  kind    = "simple"
  ordered = true
}
item "c" {
  kind = "plenty"
}
step "x" {
  consume "missing" {}
}
step "y" {
  produce "a" {
    modifier = "sometimes"
    value    = 1
  }
}
`,
	})

	_, _, err := NewLoader(fsys).Load(testutil.NewContext(), "plan.hcl")
	require.Error(t, err)
	for _, want := range []string{
		"item 'a' is declared more than once",
		"item 'b': only multi items can be ordered",
		`item 'c': unknown item kind "plenty"`,
		"step 'x' consumes undeclared item 'missing'",
		`step 'y', produce 'a': unknown produce modifier "sometimes"`,
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestTranslateProduce_Shapes(t *testing.T) {
	testCases := []struct {
		name string
		kind string
		body string
		want string
	}{
		{"value on empty item", "empty", `value = 1`, "an empty item carries no value"},
		{"simple without value", "simple", ``, "a simple item takes exactly one value"},
		{"name on multi", "multi", `name = "x"`, "a multi item has no name"},
		{"named value without name", "named", `value = 1`, "a named value needs a name"},
		{"both value and values", "multi", "value = 1\nvalues = [2]", "mutually exclusive"},
		{"unknown argument", "multi", `color = "red"`, `unsupported argument "color"`},
		{"type on empty item", "", ``, "cannot declare a type"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plan := `item "i" {
  kind = "` + tc.kind + `"
}
step "s" {
  produce "i" {
    ` + tc.body + `
  }
}`
			if tc.kind == "" {
				plan = `item "i" {
  kind = "empty"
  type = string
}`
			}
			_, _, err := NewLoader(writePlans(t, map[string]string{"p.hcl": plan})).Load(testutil.NewContext(), "p.hcl")
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestTranslateItem_PayloadTypes(t *testing.T) {
	testCases := []struct {
		expr    string
		want    cty.Type
		wantErr string
	}{
		{"string", cty.String, ""},
		{"any", cty.DynamicPseudoType, ""},
		{"list(number)", cty.List(cty.Number), ""},
		{"map(string)", cty.Map(cty.String), ""},
		{"list(any)", cty.DynamicPseudoType, "is not a concrete leaf type"},
		{"color", cty.DynamicPseudoType, "type"},
	}
	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			plan := "item \"i\" {\n  kind = \"simple\"\n  type = " + tc.expr + "\n}\n"
			model, _, err := NewLoader(writePlans(t, map[string]string{"p.hcl": plan})).Load(testutil.NewContext(), "p.hcl")
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.want.Equals(model.Items["i"].Type), "got %s", model.Items["i"].Type.FriendlyName())
		})
	}
}

func TestLoader_StepRevision(t *testing.T) {
	load := func(greet, other string) map[string]uint64 {
		plan := `item "word" {
  kind = "simple"
  type = string
}
item "other" {
  kind = "simple"
}
step "greet" {
  produce "word" {
    value = "` + greet + `"
  }
}
step "other" {
  produce "other" {
    value = "` + other + `"
  }
}`
		model, _, err := NewLoader(writePlans(t, map[string]string{"p.hcl": plan})).Load(testutil.NewContext(), "p.hcl")
		require.NoError(t, err)
		revs := make(map[string]uint64)
		for _, s := range model.Steps {
			revs[s.ID] = s.Revision
		}
		return revs
	}

	base := load("old", "x")
	assert.NotZero(t, base["greet"])
	assert.Equal(t, base, load("old", "x"), "loading the same source is stable")

	edited := load("new", "x")
	assert.NotEqual(t, base["greet"], edited["greet"])
	assert.Equal(t, base["other"], edited["other"], "an edit is local to its step")
}

func TestLoader_SyntaxError(t *testing.T) {
	fsys := writePlans(t, map[string]string{"broken.hcl": `step "x" {`})
	_, _, err := NewLoader(fsys).Load(testutil.NewContext(), "broken.hcl")
	assert.ErrorContains(t, err, "failed to parse HCL file broken.hcl")
}
