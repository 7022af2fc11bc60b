package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/thrustmig/internal/ir"
)

// writeScenario writes content to a scenario file in a temp dir.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalScenario = `
name: test_scenario
description: "Test scenario for validation"
run_id: run-test
flags:
  unified_addressing: true
sites:
  - callee: thrust::fill
    args:
      - { kind: decl_ref, text: p, type: "int *" }
      - { kind: other, text: p + n, type: "int *" }
      - { kind: other, text: "0", type: int }
    expect:
      kind: rewritten
assertions:
  - type: outcome_count
    kind: rewritten
    count: 1
`

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "run-test", scenario.RunID)
	assert.True(t, scenario.Flags.UnifiedAddressing)
	require.Len(t, scenario.Sites, 1)
	assert.Equal(t, "thrust::fill", scenario.Sites[0].Callee)
	assert.Len(t, scenario.Sites[0].Args, 3)
	assert.Equal(t, ir.ExprDeclRef, scenario.Sites[0].Args[0].Kind)
	assert.Equal(t, "rewritten", scenario.Sites[0].Expect.Kind)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, minimalScenario+"assertion: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_ResolvesRulesPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fill.cue"),
		[]byte(`function: "thrust::fill": overloads: [{args: 3, target: "oneapi::dpl::fill"}]`), 0o644))

	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario+"rules: fill.cue\n"), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "fill.cue"), scenario.Rules)
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing name",
			content: "description: d\nsites: [{callee: f}]\nassertions: [{type: skipped_count}]\n",
			want:    "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nsites: [{callee: f}]\nassertions: [{type: skipped_count}]\n",
			want:    "description is required",
		},
		{
			name:    "no sites",
			content: "name: n\ndescription: d\nassertions: [{type: skipped_count}]\n",
			want:    "sites list is required",
		},
		{
			name:    "no assertions",
			content: "name: n\ndescription: d\nsites: [{callee: f}]\n",
			want:    "assertions list is required",
		},
		{
			name:    "missing callee",
			content: "name: n\ndescription: d\nsites: [{text: x}]\nassertions: [{type: skipped_count}]\n",
			want:    "sites[0]: callee is required",
		},
		{
			name:    "bad arg kind",
			content: "name: n\ndescription: d\nsites: [{callee: f, args: [{kind: lambda}]}]\nassertions: [{type: skipped_count}]\n",
			want:    `unknown kind "lambda"`,
		},
		{
			name:    "expect without kind",
			content: "name: n\ndescription: d\nsites: [{callee: f, expect: {text: x}}]\nassertions: [{type: skipped_count}]\n",
			want:    "sites[0].expect: kind is required",
		},
		{
			name:    "diagnostic on rewritten",
			content: "name: n\ndescription: d\nsites: [{callee: f, expect: {kind: rewritten, diagnostic: X}}]\nassertions: [{type: skipped_count}]\n",
			want:    "diagnostic is only valid for unsupported outcomes",
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\nsites: [{callee: f}]\nassertions: [{type: trace_contains}]\n",
			want:    `unknown assertion type "trace_contains"`,
		},
		{
			name:    "feature_order without features",
			content: "name: n\ndescription: d\nsites: [{callee: f}]\nassertions: [{type: feature_order}]\n",
			want:    "features list is required for feature_order",
		},
		{
			name:    "outcome_count without kind",
			content: "name: n\ndescription: d\nsites: [{callee: f}]\nassertions: [{type: outcome_count, count: 1}]\n",
			want:    "kind is required for outcome_count",
		},
		{
			name:    "diagnostic_count without code",
			content: "name: n\ndescription: d\nsites: [{callee: f}]\nassertions: [{type: diagnostic_count}]\n",
			want:    "code is required for diagnostic_count",
		},
		{
			name:    "negative count",
			content: "name: n\ndescription: d\nsites: [{callee: f}]\nassertions: [{type: skipped_count, count: -1}]\n",
			want:    "count must be non-negative",
		},
		{
			name:    "bad guard style",
			content: "name: n\ndescription: d\noptions: {guard_style: ternary}\nsites: [{callee: f}]\nassertions: [{type: skipped_count}]\n",
			want:    "options.guard_style",
		},
		{
			name:    "missing rules file",
			content: "name: n\ndescription: d\nrules: nope.cue\nsites: [{callee: f}]\nassertions: [{type: skipped_count}]\n",
			want:    "rules file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for i := 1; i < len(scenarios); i++ {
		assert.Less(t, scenarios[i-1].Name, scenarios[i].Name, "sorted by file name")
	}
}
