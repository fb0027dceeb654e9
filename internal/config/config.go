package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaCUE string

// Source describes where a store lives: remote SPARQL endpoints, local
// files, or both. Results from several sources are merged.
type Source struct {
	BackendURLs []string `json:"backend_urls"`
	FilePaths   []string `json:"file_paths"`
	IsQuadstore bool     `json:"is_quadstore"`
}

// Empty reports whether the source names no backend at all.
func (s Source) Empty() bool {
	return len(s.BackendURLs) == 0 && len(s.FilePaths) == 0
}

// HTTP configures the SPARQL protocol client.
type HTTP struct {
	TimeoutSeconds int `json:"timeout_seconds"`
	Retries        int `json:"retries"`
}

// Timeout returns the request timeout as a duration.
func (h HTTP) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// Config is the decoded configuration.
type Config struct {
	Dataset    Source `json:"dataset"`
	Provenance Source `json:"provenance"`

	BlazegraphFullTextSearch string `json:"blazegraph_full_text_search"`
	FusekiFullTextSearch     string `json:"fuseki_full_text_search"`
	VirtuosoFullTextSearch   string `json:"virtuoso_full_text_search"`
	GraphDBFullTextSearch    string `json:"graphdb_full_text_search"`
	ConnectorName            string `json:"connector_name"`

	// CacheBackendURL selects the snapshot sink: empty for in-memory,
	// "sqlite:<path>" for a SQLite cache, or an http(s) SPARQL endpoint.
	CacheBackendURL string `json:"cache_backend_url"`

	WorkerThreshold int  `json:"worker_threshold"`
	MaxWorkers      int  `json:"max_workers"`
	HTTP            HTTP `json:"http"`
}

// FullTextFlags returns the full-text search flags keyed by backend name.
func (c *Config) FullTextFlags() map[string]string {
	return map[string]string{
		"blazegraph": c.BlazegraphFullTextSearch,
		"fuseki":     c.FusekiFullTextSearch,
		"virtuoso":   c.VirtuosoFullTextSearch,
		"graphdb":    c.GraphDBFullTextSearch,
	}
}

// CacheKind classifies CacheBackendURL.
type CacheKind int

const (
	CacheMemory CacheKind = iota
	CacheSQLite
	CacheSPARQL
)

// Cache returns the cache kind and its location (a file path or URL).
func (c *Config) Cache() (CacheKind, string) {
	switch {
	case c.CacheBackendURL == "":
		return CacheMemory, ""
	case strings.HasPrefix(c.CacheBackendURL, "sqlite:"):
		return CacheSQLite, strings.TrimPrefix(c.CacheBackendURL, "sqlite:")
	default:
		return CacheSPARQL, c.CacheBackendURL
	}
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse validates data against the schema and decodes it. name is used in
// error positions.
func Parse(name string, data []byte) (*Config, error) {
	expr, err := cuejson.Extract(name, data)
	if err != nil {
		return nil, &ConfigError{Message: "invalid JSON", Err: err}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.BuildExpr(expr))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fromCUE(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, fromCUE(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration obtained from an empty document. It
// has no sources, so callers fill Dataset and Provenance before use.
func Default() *Config {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Config"))
	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		panic(fmt.Sprintf("config schema defaults: %v", err))
	}
	return &cfg
}

// Validate checks the constraints the schema cannot express.
func (c *Config) Validate() error {
	if c.Dataset.Empty() {
		return &ConfigError{Field: "dataset", Message: "at least one backend_url or file_path is required"}
	}
	if c.Provenance.Empty() {
		return &ConfigError{Field: "provenance", Message: "at least one backend_url or file_path is required"}
	}

	if kind, loc := c.Cache(); kind == CacheSPARQL {
		if !strings.HasPrefix(loc, "http://") && !strings.HasPrefix(loc, "https://") {
			return &ConfigError{Field: "cache_backend_url", Message: fmt.Sprintf("unsupported scheme in %q", loc)}
		}
	} else if kind == CacheSQLite && loc == "" {
		return &ConfigError{Field: "cache_backend_url", Message: "sqlite cache needs a path"}
	}

	if c.GraphDBFullTextSearch == "yes" && c.ConnectorName == "" {
		return &ConfigError{Field: "connector_name", Message: "required when graphdb_full_text_search is enabled"}
	}
	return nil
}
