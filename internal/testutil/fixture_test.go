package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
)

func TestGateways(t *testing.T) {
	dataset, prov := Gateways(t, `
base: https://github.com/arcangelo7/time_agnostic/
dataset:
  - graph: ar/
    data: <ar/1> <http://purl.org/spar/pro/isHeldBy> <ra/1> .
provenance:
  - entity: ar/1
    snapshots:
      - at: 2021-05-07T09:59:15+00:00
`)
	quads, err := dataset.Quads(context.Background(), Base+"ar/1")
	require.NoError(t, err)
	assert.Equal(t, []rdf.Quad{Quad("ar/1", "http://purl.org/spar/pro/isHeldBy", "ra/1", "ar/")}, quads)

	rows, err := prov.Select(context.Background(), provenance.SnapshotQuery(Base+"ar/1"))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSnapshot(t *testing.T) {
	se := Snapshot("ar/1", 2, "2021-06-01")
	assert.Equal(t, rdf.IRI(Base+"ar/1/prov/se/2"), se.IRI)
	assert.Equal(t, 2, se.Number())
}

func TestTriple_ResolvesRelativeIRIs(t *testing.T) {
	tr := Triple("ar/1", "http://purl.org/spar/pro/isHeldBy", "http://example.org/x")
	assert.Equal(t, rdf.IRI(Base+"ar/1"), tr.S)
	assert.Equal(t, rdf.IRI("http://example.org/x"), tr.O)
}
