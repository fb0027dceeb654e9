package triplestore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencitations/time-agnostic-library-sub000/internal/dialect"
	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
)

const (
	base     = "https://github.com/arcangelo7/time_agnostic/"
	isHeldBy = rdf.IRI("http://purl.org/spar/pro/isHeldBy")
)

func quad(s, p, o, g string) rdf.Quad {
	return rdf.Quad{Triple: rdf.Triple{S: rdf.IRI(s), P: rdf.IRI(p), O: rdf.IRI(o)}, G: rdf.IRI(g)}
}

func TestMemory_SelectScopedToGraphs(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(
		quad(base+"ar/1", string(isHeldBy), base+"ra/1", "http://g/1"),
		quad(base+"ar/2", string(isHeldBy), base+"ra/2", "http://g/2"),
	)
	q := sparql.NewSelect(nil, rdf.Triple{S: rdf.Variable("a"), P: isHeldBy, O: rdf.Variable("r")})

	all, err := m.Select(ctx, q)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := m.Select(ctx, q, "http://g/2")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, rdf.IRI(base+"ar/2"), scoped[0]["a"])
}

func TestMemory_Quads(t *testing.T) {
	m := NewMemory(
		quad(base+"ar/1", string(isHeldBy), base+"ra/1", ""),
		quad(base+"ar/1", string(rdf.RDFType), "http://purl.org/spar/pro/RoleInTime", ""),
		quad(base+"ar/2", string(isHeldBy), base+"ra/2", ""),
	)
	quads, err := m.Quads(context.Background(), base+"ar/1")
	require.NoError(t, err)
	assert.Len(t, quads, 2)
}

func TestMemory_MineUpdates(t *testing.T) {
	ar := rdf.IRI(base + "ar/1")
	upd := `DELETE DATA { GRAPH <` + base + `ar/> { <` + base + `ar/1> <` + string(isHeldBy) + `> <` + base + `ra/4> . } }`
	se := provenance.SnapshotEntity{
		IRI:         provenance.SnapshotIRI(ar, 2),
		Entity:      ar,
		GeneratedAt: provenance.MustParseInstant("2021-06-01T00:00:00Z"),
		UpdateQuery: upd,
	}
	m := NewMemory(se.Quads()...)

	recs, err := m.MineUpdates(context.Background(), dialect.Substring{}, []rdf.Term{isHeldBy, rdf.IRI(base + "ra/4")})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, provenance.UpdateRecord{Snapshot: se.IRI, Entity: ar, Update: upd}, recs[0])

	none, err := m.MineUpdates(context.Background(), dialect.Substring{}, []rdf.Term{rdf.IRI(base + "ra/5")})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemory_MineUpdates_Literal(t *testing.T) {
	ra := rdf.IRI(base + "ra/1")
	upd := `DELETE DATA { GRAPH <` + base + `ra/> { <` + base + `ra/1> <http://xmlns.com/foaf/0.1/familyName> "Old" . } }`
	se := provenance.SnapshotEntity{
		IRI:         provenance.SnapshotIRI(ra, 2),
		Entity:      ra,
		GeneratedAt: provenance.MustParseInstant("2021-06-01T00:00:00Z"),
		UpdateQuery: upd,
	}
	m := NewMemory(se.Quads()...)

	recs, err := m.MineUpdates(context.Background(), dialect.Substring{}, []rdf.Term{rdf.Literal{Value: "Old"}})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, se.IRI, recs[0].Snapshot)

	none, err := m.MineUpdates(context.Background(), dialect.Substring{}, []rdf.Term{rdf.Literal{Value: "New"}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemory_ReplaceGraph(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(quad(base+"ar/1", string(isHeldBy), base+"ra/1", "http://cache/1"))

	require.NoError(t, m.ReplaceGraph(ctx, "http://cache/1", []rdf.Quad{
		quad(base+"ar/1", string(isHeldBy), base+"ra/2", ""),
	}))

	g := m.Graph()
	assert.Equal(t, 1, g.Len())
	assert.True(t, g.Has(quad(base+"ar/1", string(isHeldBy), base+"ra/2", "http://cache/1")))

	// Idempotent overwrite.
	require.NoError(t, m.ReplaceGraph(ctx, "http://cache/1", nil))
	assert.Equal(t, 0, m.Graph().Len())
}

func TestMemory_CanceledContextIsUpstream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory().Quads(ctx, base+"ar/1")
	require.Error(t, err)
	assert.True(t, IsUpstream(err))
	assert.True(t, errors.Is(err, context.Canceled))
}
