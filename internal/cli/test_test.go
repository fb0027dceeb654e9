package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: holder
description: The holder of ar/1 at its creation
fixture: fixtures/roles.yaml
query: |
  PREFIX pro: <http://purl.org/spar/pro/>
  SELECT ?ra WHERE { <https://github.com/arcangelo7/time_agnostic/ar/1> pro:isHeldBy ?ra }
assertions:
  - type: rows
    at: 2021-05-07T09:59:15+00:00
    rows:
      - ["<ra/1>"]
`

const failingScenario = `
name: wrong_holder
description: Expects the wrong holder
fixture: fixtures/roles.yaml
query: |
  PREFIX pro: <http://purl.org/spar/pro/>
  SELECT ?ra WHERE { <https://github.com/arcangelo7/time_agnostic/ar/1> pro:isHeldBy ?ra }
assertions:
  - type: rows
    at: 2021-05-07T09:59:15+00:00
    rows:
      - ["<ra/2>"]
`

// scenariosDir creates a scenarios directory with the roles fixture and
// the given scenario files.
func scenariosDir(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "fixtures"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixtures", "roles.yaml"), []byte(rolesFixture), 0644))
	for name, content := range scenarios {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func executeTest(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := executeTest(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := executeTest(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	buf, err := executeTest(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	buf, err := executeTest(t, "json", t.TempDir())
	require.NoError(t, err)

	resp := decodeResponse[TestResult](t, buf)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
	assert.NotNil(t, resp.Data.Scenarios)
}

func TestTestCommandPassingAndFailing(t *testing.T) {
	dir := scenariosDir(t, map[string]string{
		"holder.yaml":       passingScenario,
		"wrong_holder.yaml": failingScenario,
	})

	buf, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "✓ holder")
	assert.Contains(t, output, "✗ wrong_holder")
	assert.Contains(t, output, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	dir := scenariosDir(t, map[string]string{
		"holder.yaml":       passingScenario,
		"wrong_holder.yaml": failingScenario,
	})

	buf, err := executeTest(t, "json", dir, "--filter", "hold*")
	require.NoError(t, err)

	resp := decodeResponse[TestResult](t, buf)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
}

func TestTestCommandGoldenUpdateAndCompare(t *testing.T) {
	dir := scenariosDir(t, map[string]string{"holder.yaml": passingScenario})

	buf, err := executeTest(t, "text", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "golden updated")

	golden := filepath.Join(dir, "golden", "holder.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario": "holder"`)

	_, err = executeTest(t, "text", dir)
	require.NoError(t, err, "output matches the golden file it just wrote")

	require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0644))
	buf, err = executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "does not match golden file")
}

func TestTestCommandInvalidScenario(t *testing.T) {
	dir := scenariosDir(t, map[string]string{"broken.yaml": "name: broken\n"})

	buf, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "✗ broken.yaml")
	assert.Contains(t, buf.String(), "failed to load scenario")
}
