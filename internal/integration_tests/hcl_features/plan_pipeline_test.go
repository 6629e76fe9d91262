package integration_tests

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/buildgraph/internal/app"
	"github.com/specialistvlad/buildgraph/internal/hcl"
	"github.com/specialistvlad/buildgraph/internal/registry"
	"github.com/specialistvlad/buildgraph/internal/testutil"
)

type noModules struct{}

func (noModules) Register(*registry.Registry) {}

const itemsHCL = `
item "version" {
  kind = "simple"
  type = string
}

item "artifact" {
  kind    = "multi"
  type    = string
  ordered = true
}

item "labels" {
  kind = "named"
  type = string
}

item "bundle" {
  kind = "simple"
  type = string
}
`

const stepsHCL = `
step "version" {
  produce "version" {
    value = "1.2.0"
  }
}

step "release_version" {
  override = true
  produce "version" {
    value = "2.0.0"
  }
}

step "build.linux" {
  consume "version" {}
  produce "artifact" {
    modifier = "multi"
    value    = "app-${item.version}-linux"
  }
}

step "build.darwin" {
  consume "version" {}
  produce "artifact" {
    modifier = "multi"
    value    = "app-${item.version}-darwin"
  }
  produce "labels" {
    modifier = "multi"
    values   = { os = "darwin", step = step.id }
  }
}

step "bundle" {
  consume "artifact" {
    modifier = "multi"
  }
  consume "labels" {
    modifier = "multi"
  }
  produce "bundle" {
    value = "${join(",", item.artifact)} [${item.labels.os}]"
  }
}
`

// Test for: steps declared in plan files link through the items they
// consume and produce, with no explicit dependency list.
func TestHCLFeatures_PlanPipeline(t *testing.T) {
	// --- Arrange ---
	root := testutil.WriteFiles(t, map[string]string{
		"plans/items.hcl": itemsHCL,
		"plans/steps.hcl": stepsHCL,
	})
	cfg, err := app.NewConfig(app.Config{
		PlanPaths: []string{root + "/plans"},
		Targets:   []string{"bundle"},
		Output:    "json",
	})
	require.NoError(t, err)
	out := &bytes.Buffer{}
	testApp, err := app.NewApp(out, &testutil.SafeBuffer{}, cfg, hcl.NewLoader(nil), noModules{})
	require.NoError(t, err)

	// --- Act ---
	require.NoError(t, testApp.Run(context.Background()))

	// --- Assert ---
	var report app.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, app.StatusSucceeded, report.Status)
	require.Len(t, report.Items, 1)
	assert.Equal(t, "bundle", report.Items[0].Name)
	assert.Equal(t, "app-2.0.0-darwin,app-2.0.0-linux [darwin]", report.Items[0].Value)

	var overrides int
	for _, d := range report.Diagnostics {
		if d.Kind == "override-applied" {
			overrides++
		}
	}
	assert.Equal(t, 1, overrides, "the override is reported")
}
