package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `{
	"dataset":    {"backend_urls": ["http://localhost:9999/blazegraph/sparql"]},
	"provenance": {"file_paths": ["prov.db"], "is_quadstore": false}
}`

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse("config.json", []byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, []string{"http://localhost:9999/blazegraph/sparql"}, cfg.Dataset.BackendURLs)
	assert.Empty(t, cfg.Dataset.FilePaths)
	assert.True(t, cfg.Dataset.IsQuadstore)
	assert.False(t, cfg.Provenance.IsQuadstore)

	assert.Equal(t, "no", cfg.BlazegraphFullTextSearch)
	assert.Equal(t, "no", cfg.GraphDBFullTextSearch)
	assert.Equal(t, 8, cfg.WorkerThreshold)
	assert.Equal(t, 4, cfg.MaxWorkers)
	assert.Equal(t, 30, cfg.HTTP.TimeoutSeconds)
	assert.Equal(t, 3, cfg.HTTP.Retries)

	kind, loc := cfg.Cache()
	assert.Equal(t, CacheMemory, kind)
	assert.Empty(t, loc)
}

func TestParse_Cache(t *testing.T) {
	testCases := []struct {
		url  string
		kind CacheKind
		loc  string
	}{
		{"sqlite:/tmp/cache.db", CacheSQLite, "/tmp/cache.db"},
		{"http://localhost:3030/cache/sparql", CacheSPARQL, "http://localhost:3030/cache/sparql"},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			doc := `{"dataset": {"file_paths": ["d.db"]}, "provenance": {"file_paths": ["p.db"]}, "cache_backend_url": "` + tc.url + `"}`
			cfg, err := Parse("config.json", []byte(doc))
			require.NoError(t, err)
			kind, loc := cfg.Cache()
			assert.Equal(t, tc.kind, kind)
			assert.Equal(t, tc.loc, loc)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	testCases := []struct {
		name  string
		doc   string
		field string
	}{
		{
			name: "not json",
			doc:  `{"dataset": `,
		},
		{
			name:  "unknown flag value",
			doc:  `{"dataset": {"file_paths": ["d.db"]}, "provenance": {"file_paths": ["p.db"]}, "fuseki_full_text_search": "maybe"}`,
		},
		{
			name:  "unknown key",
			doc:  `{"dataset": {"file_paths": ["d.db"]}, "provenance": {"file_paths": ["p.db"]}, "colour": "blue"}`,
		},
		{
			name:  "wrong type",
			doc:  `{"dataset": {"file_paths": "d.db"}, "provenance": {"file_paths": ["p.db"]}}`,
		},
		{
			name:  "no dataset source",
			doc:   `{"provenance": {"file_paths": ["p.db"]}}`,
			field: "dataset",
		},
		{
			name:  "no provenance source",
			doc:   `{"dataset": {"file_paths": ["d.db"]}}`,
			field: "provenance",
		},
		{
			name:  "bad cache scheme",
			doc:   `{"dataset": {"file_paths": ["d.db"]}, "provenance": {"file_paths": ["p.db"]}, "cache_backend_url": "ftp://x"}`,
			field: "cache_backend_url",
		},
		{
			name:  "graphdb without connector",
			doc:   `{"dataset": {"file_paths": ["d.db"]}, "provenance": {"file_paths": ["p.db"]}, "graphdb_full_text_search": "yes"}`,
			field: "connector_name",
		},
		{
			name:  "negative threshold",
			doc:  `{"dataset": {"file_paths": ["d.db"]}, "provenance": {"file_paths": ["p.db"]}, "worker_threshold": -1}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("config.json", []byte(tc.doc))
			require.Error(t, err)
			require.True(t, IsConfigError(err), "got %T: %v", err, err)
			if tc.field != "" {
				var ce *ConfigError
				require.ErrorAs(t, err, &ce)
				assert.Contains(t, ce.Field, tc.field)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Provenance.FilePaths, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
	assert.False(t, IsConfigError(err))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8, cfg.WorkerThreshold)
	assert.Equal(t, "no", cfg.VirtuosoFullTextSearch)
	assert.True(t, IsConfigError(cfg.Validate()))
}
