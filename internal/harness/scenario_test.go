package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenarioDefaultsBrain(t *testing.T) {
	path := writeScenario(t, "s.yaml", `
name: sample
steps:
  - op: save
    project: worldbook
    entity: article
    payload:
      rev: 1
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "sample", s.Name)
	assert.Equal(t, "demo", s.Brain)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, "save", s.Steps[0].Op)
	assert.Equal(t, map[string]any{"rev": 1}, s.Steps[0].Payload)
}

func TestLoadScenarioRejectsMissingName(t *testing.T) {
	path := writeScenario(t, "s.yaml", `
steps:
  - op: save
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no name")
}

func TestLoadScenarioRejectsEmptySteps(t *testing.T) {
	path := writeScenario(t, "s.yaml", `name: empty`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no steps")
}

func TestLoadScenariosSortedByFileName(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []struct{ name, scenario string }{
		{"b.yaml", "second"},
		{"a.yaml", "first"},
	} {
		content := "name: " + f.scenario + "\nsteps:\n  - op: save\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, f.name), []byte(content), 0o644))
	}
	// Non-yaml files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	scenarios, err := LoadScenarios(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "first", scenarios[0].Name)
	assert.Equal(t, "second", scenarios[1].Name)
}

func TestBundledScenariosParse(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	assert.Len(t, scenarios, 4)
	for _, s := range scenarios {
		assert.NotEmpty(t, s.Description, s.Name)
	}
}
