package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes one invocation of the root command against an
// isolated store rooted in the test's temp directory.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setupHome(t *testing.T) {
	t.Helper()
	t.Setenv("BRAINSTORE_HOME", t.TempDir())
	t.Setenv("BRAINSTORE_BRAIN", "")
}

func TestRootRejectsInvalidFormat(t *testing.T) {
	setupHome(t)

	_, err := runCLI(t, "--format", "xml", "brain", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestBrainLifecycle(t *testing.T) {
	setupHome(t)

	out, err := runCLI(t, "brain", "create", "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "created")

	out, err = runCLI(t, "brain", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "demo")
	assert.Contains(t, out, "system")

	_, err = runCLI(t, "brain", "create", "demo")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestEntitySaveAndShow(t *testing.T) {
	setupHome(t)

	out, err := runCLI(t, "entity", "save", "worldbook", "characters/aria",
		"--payload", `{"name":"Aria","age":30}`)
	require.NoError(t, err)
	assert.Contains(t, out, "saved characters/aria@1")

	out, err = runCLI(t, "--format", "json", "entity", "show", "worldbook", "characters/aria")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "characters/aria", data["entity"])
	assert.EqualValues(t, 1, data["version"])
	payload := data["payload"].(map[string]any)
	assert.Equal(t, "Aria", payload["name"])
}

func TestEntityShowBySelector(t *testing.T) {
	setupHome(t)

	_, err := runCLI(t, "entity", "save", "worldbook", "article", "--payload", `{"rev":1}`)
	require.NoError(t, err)
	_, err = runCLI(t, "entity", "save", "worldbook", "article", "--payload", `{"rev":2}`)
	require.NoError(t, err)

	out, err := runCLI(t, "--format", "json", "entity", "show", "worldbook", "article@1")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data := resp.Data.(map[string]any)
	assert.EqualValues(t, 1, data["version"])
	assert.Equal(t, "inactive", data["status"])
}

func TestVersionRestoreCommand(t *testing.T) {
	setupHome(t)

	_, err := runCLI(t, "entity", "save", "worldbook", "article", "--payload", `{"rev":1}`)
	require.NoError(t, err)
	_, err = runCLI(t, "entity", "save", "worldbook", "article", "--payload", `{"rev":2}`)
	require.NoError(t, err)

	out, err := runCLI(t, "version", "restore", "worldbook", "article@1")
	require.NoError(t, err)
	assert.Contains(t, out, "restored article@1")

	out, err = runCLI(t, "--format", "json", "entity", "show", "worldbook", "article")
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data := resp.Data.(map[string]any)
	assert.EqualValues(t, 1, data["version"])
}

func TestShowMissingEntityFails(t *testing.T) {
	setupHome(t)

	_, err := runCLI(t, "entity", "save", "worldbook", "seed", "--payload", `{}`)
	require.NoError(t, err)

	out, err := runCLI(t, "--format", "json", "entity", "show", "worldbook", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "NOT_FOUND", resp.Error.Kind)
}

func TestProjectCommands(t *testing.T) {
	setupHome(t)

	_, err := runCLI(t, "project", "create", "worldbook", "--title", "World Book")
	require.NoError(t, err)

	out, err := runCLI(t, "project", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "World Book")

	_, err = runCLI(t, "project", "archive", "worldbook")
	require.NoError(t, err)

	out, err = runCLI(t, "project", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "(archived)")

	_, err = runCLI(t, "project", "restore", "worldbook")
	require.NoError(t, err)

	_, err = runCLI(t, "project", "delete", "worldbook")
	require.NoError(t, err)

	out, err = runCLI(t, "--format", "json", "project", "list")
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Empty(t, resp.Data)
}

func TestCleanupPurgeCommand(t *testing.T) {
	setupHome(t)

	for _, payload := range []string{`{"rev":1}`, `{"rev":2}`, `{"rev":3}`} {
		_, err := runCLI(t, "entity", "save", "worldbook", "article", "--payload", payload)
		require.NoError(t, err)
	}

	out, err := runCLI(t, "cleanup", "purge", "worldbook", "--keep", "0", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "would purge 2 versions")

	out, err = runCLI(t, "cleanup", "purge", "worldbook", "--keep", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "purged 1 versions")
}

func TestBackupCommandRoundTrip(t *testing.T) {
	setupHome(t)

	_, err := runCLI(t, "entity", "save", "worldbook", "article", "--payload", `{"rev":1}`)
	require.NoError(t, err)

	out, err := runCLI(t, "--format", "json", "backup", "--label", "nightly")
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	path := resp.Data.(map[string]any)["path"].(string)

	_, err = runCLI(t, "restore-backup", path, "--target", "copy")
	require.NoError(t, err)

	out, err = runCLI(t, "--brain", "copy", "--format", "json", "entity", "show", "worldbook", "article")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}
