// Package backend opens the gateways named by a configuration.
//
// A source may list SPARQL endpoints and local files. Files ending in
// .yaml or .yml are fixtures loaded into memory; any other path is a
// SQLite quad store. Several members are merged with triplestore.Multi.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/opencitations/time-agnostic-library-sub000/internal/config"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparqlhttp"
	"github.com/opencitations/time-agnostic-library-sub000/internal/store"
	"github.com/opencitations/time-agnostic-library-sub000/internal/triplestore"
)

// Role says which part of a fixture a source loads.
type Role int

const (
	RoleDataset Role = iota
	RoleProvenance
)

func (r Role) String() string {
	if r == RoleProvenance {
		return "provenance"
	}
	return "dataset"
}

// Gateways bundles the stores an orchestrator reads from and writes to.
type Gateways struct {
	Dataset    triplestore.Gateway
	Provenance triplestore.Gateway

	// Cache is nil when snapshots are kept in memory.
	Cache triplestore.Gateway
}

// Open builds every gateway cfg names. On failure the gateways opened so
// far are closed.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Gateways, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := sparqlhttp.Options{
		Timeout:     cfg.HTTP.Timeout(),
		Retries:     cfg.HTTP.Retries,
		Logger:      logger,
		IsQuadstore: cfg.Dataset.IsQuadstore,
	}

	g := &Gateways{}
	var err error
	if g.Dataset, err = OpenSource(ctx, cfg.Dataset, RoleDataset, opts); err != nil {
		return nil, err
	}

	opts.IsQuadstore = cfg.Provenance.IsQuadstore
	if g.Provenance, err = OpenSource(ctx, cfg.Provenance, RoleProvenance, opts); err != nil {
		g.Close()
		return nil, err
	}

	kind, location := cfg.Cache()
	switch kind {
	case config.CacheSQLite:
		s, err := store.Open(location)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("open cache %s: %w", location, err)
		}
		g.Cache = s
	case config.CacheSPARQL:
		opts.IsQuadstore = true
		g.Cache = sparqlhttp.New(location, opts)
	}

	logger.Info("backends opened",
		"dataset_urls", len(cfg.Dataset.BackendURLs),
		"dataset_files", len(cfg.Dataset.FilePaths),
		"provenance_urls", len(cfg.Provenance.BackendURLs),
		"provenance_files", len(cfg.Provenance.FilePaths),
		"cache", cacheName(kind))
	return g, nil
}

// Close closes every gateway.
func (g *Gateways) Close() error {
	var errs []error
	for _, gw := range []triplestore.Gateway{g.Dataset, g.Provenance, g.Cache} {
		if gw != nil {
			errs = append(errs, gw.Close())
		}
	}
	return errors.Join(errs...)
}

// OpenSource opens every member of src and merges them.
func OpenSource(ctx context.Context, src config.Source, role Role, opts sparqlhttp.Options) (triplestore.Gateway, error) {
	var members []triplestore.Gateway
	closeAll := func() {
		for _, m := range members {
			_ = m.Close()
		}
	}

	for _, url := range src.BackendURLs {
		members = append(members, sparqlhttp.New(url, opts))
	}
	for _, path := range src.FilePaths {
		m, err := openFile(ctx, path, role)
		if err != nil {
			closeAll()
			return nil, &config.ConfigError{Field: role.String() + ".file_paths", Message: err.Error(), Err: err}
		}
		members = append(members, m)
	}
	if len(members) == 0 {
		return nil, &config.ConfigError{Field: role.String(), Message: "no backend_urls or file_paths"}
	}
	return triplestore.NewMulti(members...), nil
}

func openFile(ctx context.Context, path string, role Role) (triplestore.Gateway, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f, err := store.ReadFixture(path)
		if err != nil {
			return nil, err
		}
		var quads []rdf.Quad
		if role == RoleProvenance {
			quads, err = f.ProvenanceQuads()
		} else {
			quads, err = f.DatasetQuads()
		}
		if err != nil {
			return nil, fmt.Errorf("fixture %s: %w", path, err)
		}
		return triplestore.NewMemory(quads...), nil
	default:
		s, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		if _, err := s.Len(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	}
}

func cacheName(k config.CacheKind) string {
	switch k {
	case config.CacheSQLite:
		return "sqlite"
	case config.CacheSPARQL:
		return "sparql"
	default:
		return "memory"
	}
}
