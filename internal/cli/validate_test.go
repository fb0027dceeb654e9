package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeValidate(t *testing.T, format, path string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})
	return buf, cmd.Execute()
}

func TestValidateValidConfig(t *testing.T) {
	cfg := writeConfig(t, map[string]any{"cache_backend_url": "sqlite:/tmp/cache.db"})

	buf, err := executeValidate(t, "text", cfg)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "✓ Configuration valid")
	assert.Contains(t, output, "full-text dialect: substring")
	assert.Contains(t, output, "cache: sqlite")
}

func TestValidateValidConfigJSON(t *testing.T) {
	cfg := writeConfig(t, map[string]any{
		"blazegraph_full_text_search": "yes",
	})

	buf, err := executeValidate(t, "json", cfg)
	require.NoError(t, err)

	resp := decodeResponse[ValidationResult](t, buf)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, "blazegraph", resp.Data.Dialect)
	assert.Equal(t, "memory", resp.Data.Cache)
	assert.Equal(t, 1, resp.Data.DatasetSources)
	assert.Equal(t, 1, resp.Data.ProvenanceSources)
}

func TestValidateNonExistentFile(t *testing.T) {
	buf, err := executeValidate(t, "text", filepath.Join(t.TempDir(), "none.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error ["+ErrCodeNotFound+"]")
}

func TestValidateInvalidConfigJSON(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantField string
	}{
		{"schema violation", `{"dataset": {"file_paths": ["a.db"]}, "provenance": {"file_paths": ["a.db"]}, "worker_threshold": -1}`, ""},
		{"bad cache scheme", `{"dataset": {"file_paths": ["a.db"]}, "provenance": {"file_paths": ["a.db"]}, "cache_backend_url": "ftp://x"}`, "cache_backend_url"},
		{"no dataset", `{"provenance": {"file_paths": ["a.db"]}}`, "dataset"},
		{"two dialects", `{"dataset": {"file_paths": ["a.db"]}, "provenance": {"file_paths": ["a.db"]},
			"fuseki_full_text_search": "yes", "virtuoso_full_text_search": "yes"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tal.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			buf, err := executeValidate(t, "json", path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			resp := decodeResponse[ValidationDetails](t, buf)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrCodeConfig, resp.Error.Code)
			if tt.wantField != "" {
				details, ok := resp.Error.Details.(map[string]any)
				require.True(t, ok, "details: %v", resp.Error.Details)
				assert.Contains(t, details["field"], tt.wantField)
			}
		})
	}
}
