package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/store"
	"github.com/opencitations/time-agnostic-library-sub000/internal/triplestore"
)

// Base is the IRI base shared by test fixtures.
const Base = "https://github.com/arcangelo7/time_agnostic/"

// Gateways parses fixture YAML and returns in-memory dataset and
// provenance gateways holding it.
func Gateways(t testing.TB, fixtureYAML string) (dataset, prov *triplestore.Memory) {
	t.Helper()
	f, err := store.ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)

	data, err := f.DatasetQuads()
	require.NoError(t, err)
	provQuads, err := f.ProvenanceQuads()
	require.NoError(t, err)

	return triplestore.NewMemory(data...), triplestore.NewMemory(provQuads...)
}

// Snapshot builds a snapshot entity of Base+entity numbered n and
// generated at the instant at.
func Snapshot(entity string, n int, at string) provenance.SnapshotEntity {
	e := rdf.IRI(Base + entity)
	return provenance.SnapshotEntity{
		IRI:         provenance.SnapshotIRI(e, n),
		Entity:      e,
		GeneratedAt: provenance.MustParseInstant(at),
	}
}

// Triple builds a triple of IRIs, resolving relative subject and object
// against Base.
func Triple(s, p, o string) rdf.Triple {
	return rdf.Triple{S: iri(s), P: rdf.IRI(p), O: iri(o)}
}

// Quad builds a quad of IRIs in graph g, resolved like Triple.
func Quad(s, p, o, g string) rdf.Quad {
	q := rdf.Quad{Triple: Triple(s, p, o)}
	if g != "" {
		q.G = iri(g)
	}
	return q
}

func iri(s string) rdf.IRI {
	if strings.Contains(s, ":") {
		return rdf.IRI(s)
	}
	return rdf.IRI(Base + s)
}

