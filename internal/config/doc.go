// Package config loads and validates the JSON configuration.
//
// The document is checked against an embedded CUE schema (schema.cue)
// before it is decoded, so unknown keys, wrong types, and flag values
// other than "yes"/"no" are rejected with a ConfigError carrying the
// offending path. Defaults are declared in the schema, not in Go.
//
// Example:
//
//	{
//	  "dataset":    {"backend_urls": ["http://localhost:9999/sparql"], "is_quadstore": true},
//	  "provenance": {"file_paths": ["prov.db"]},
//	  "blazegraph_full_text_search": "yes",
//	  "cache_backend_url": "sqlite:cache.db"
//	}
package config
