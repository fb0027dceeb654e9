package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	t1 = "2021-05-07T09:59:15+00:00"
	t2 = "2021-06-01T10:00:00+00:00"

	base = "https://github.com/arcangelo7/time_agnostic/"
)

// rolesFixture: ar/1 is held by ra/1 at t1 and by ra/2 from t2.
const rolesFixture = `
base: https://github.com/arcangelo7/time_agnostic/
prefixes:
  pro: http://purl.org/spar/pro/
dataset:
  - graph: ar/
    data: |
      <ar/1> pro:isHeldBy <ra/2> .
provenance:
  - entity: ar/1
    snapshots:
      - at: 2021-05-07T09:59:15+00:00
        description: The entity has been created.
      - at: 2021-06-01T10:00:00+00:00
        description: The entity has been modified.
        update: |
          DELETE DATA { GRAPH <ar/> { <ar/1> pro:isHeldBy <ra/1> } };
          INSERT DATA { GRAPH <ar/> { <ar/1> pro:isHeldBy <ra/2> } }
`

const holderQuery = "PREFIX pro: <http://purl.org/spar/pro/>\n" +
	"SELECT ?ra WHERE { <" + base + "ar/1> pro:isHeldBy ?ra }"

// writeConfig writes the roles fixture and a configuration reading it for
// both sources. extra is merged into the top-level JSON object.
func writeConfig(t *testing.T, extra map[string]any) string {
	t.Helper()
	dir := t.TempDir()
	fixture := filepath.Join(dir, "roles.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte(rolesFixture), 0644))

	cfg := map[string]any{
		"dataset":    map[string]any{"file_paths": []string{fixture}},
		"provenance": map[string]any{"file_paths": []string{fixture}},
	}
	for k, v := range extra {
		cfg[k] = v
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	path := filepath.Join(dir, "tal.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// response decodes a JSON CLIResponse whose data is of type T.
type response[T any] struct {
	Status    string    `json:"status"`
	Data      T         `json:"data"`
	Error     *CLIError `json:"error"`
	SessionID string    `json:"session_id"`
}

func decodeResponse[T any](t *testing.T, buf *bytes.Buffer) response[T] {
	t.Helper()
	var resp response[T]
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), buf.String())
	return resp
}
