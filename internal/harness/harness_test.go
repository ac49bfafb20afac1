package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenariosAgainstGolden(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, scenario := range scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			runner := NewRunner(t.TempDir())
			result, err := runner.Run(scenario)
			require.NoError(t, err)
			require.True(t, result.Pass, "expectation failures: %v", result.Errors)

			snap, err := Snapshot(result)
			require.NoError(t, err)
			g.Assert(t, scenario.Name, snap)
		})
	}
}

func TestRunReportsUnmetExpectations(t *testing.T) {
	scenario := &Scenario{
		Name:  "unmet",
		Brain: "demo",
		Steps: []Step{
			{Op: "save", Project: "worldbook", Entity: "article",
				Payload: map[string]any{"rev": 1},
				Expect:  &Expect{Version: 7}},
			{Op: "restore", Project: "worldbook", Entity: "article", Ref: "9",
				Expect: &Expect{Error: "CONFLICT"}},
		},
	}

	runner := NewRunner(t.TempDir())
	result, err := runner.Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected version 7, got 1")
	assert.Contains(t, result.Errors[1], "expected CONFLICT error")
}

func TestRunFailsOnUnknownOp(t *testing.T) {
	scenario := &Scenario{
		Name:  "bad-op",
		Brain: "demo",
		Steps: []Step{{Op: "frobnicate"}},
	}

	runner := NewRunner(t.TempDir())
	result, err := runner.Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `unknown op "frobnicate"`)
}

func TestSplitSchemaSelector(t *testing.T) {
	tests := []struct {
		selector string
		slug     string
		ref      string
	}{
		{"schemas/character", "schemas/character", ""},
		{"schemas/character@2", "schemas/character", "2"},
		{"schemas/character#deadbeef", "schemas/character", "#deadbeef"},
	}
	for _, tt := range tests {
		slug, ref := splitSchemaSelector(tt.selector)
		assert.Equal(t, tt.slug, slug, tt.selector)
		assert.Equal(t, tt.ref, ref, tt.selector)
	}
}
