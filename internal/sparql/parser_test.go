package sparql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
)

const (
	ar   = "https://github.com/arcangelo7/time_agnostic/ar/"
	pro  = "http://purl.org/spar/pro/"
	foaf = "http://xmlns.com/foaf/0.1/"
)

func TestParseQuery_BasicSelect(t *testing.T) {
	q, err := ParseQuery(`
		PREFIX pro: <http://purl.org/spar/pro/>
		SELECT DISTINCT ?o WHERE {
			<https://github.com/arcangelo7/time_agnostic/ar/15519> pro:isHeldBy ?o .
		}`)
	require.NoError(t, err)

	assert.True(t, q.Distinct)
	assert.Equal(t, []rdf.Variable{"o"}, q.Projection)
	require.Len(t, q.Where.BGP.Triples, 1)

	tr := q.Where.BGP.Triples[0]
	assert.Equal(t, rdf.IRI(ar+"15519"), tr.S)
	assert.Equal(t, rdf.IRI(pro+"isHeldBy"), tr.P)
	assert.Equal(t, rdf.Variable("o"), tr.O)
}

func TestParseQuery_Abbreviations(t *testing.T) {
	q, err := ParseQuery(`
		PREFIX foaf: <http://xmlns.com/foaf/0.1/>
		SELECT * WHERE {
			?p a foaf:Person ;
			   foaf:name "Ada"@EN, "Augusta" ;
			   foaf:age 36 .
		}`)
	require.NoError(t, err)

	triples := q.Where.BGP.Triples
	require.Len(t, triples, 4)
	assert.Equal(t, rdf.RDFType, triples[0].P)
	assert.Equal(t, rdf.NewLangLiteral("Ada", "en"), triples[1].O)
	assert.Equal(t, rdf.Literal{Value: "Augusta"}, triples[2].O)
	assert.Equal(t, rdf.NewLiteral("36", xsdInteger), triples[3].O)

	assert.Equal(t, []rdf.Variable{"p"}, q.Variables())
}

func TestParseQuery_OptionalAndInverse(t *testing.T) {
	q, err := ParseQuery(`
		SELECT ?s ?name WHERE {
			<http://example.org/b> ^<http://example.org/p> ?s .
			OPTIONAL { ?s <http://xmlns.com/foaf/0.1/name> ?name . OPTIONAL { ?s <http://example.org/q> ?x } }
		}`)
	require.NoError(t, err)

	require.Len(t, q.Where.Optionals, 1)
	inner := q.Where.Optionals[0].Group
	require.Len(t, inner.Optionals, 1)
	assert.Equal(t, rdf.InversePath{IRI: "http://example.org/p"}, q.Where.BGP.Triples[0].P)

	assert.Len(t, Triples(q), 3)
}

func TestParseQuery_Rejections(t *testing.T) {
	testCases := []struct {
		name  string
		query string
	}{
		{"ask query", `ASK { ?s ?p ?o }`},
		{"filter", `SELECT ?s WHERE { ?s ?p ?o FILTER(?o = 1) }`},
		{"union", `SELECT ?s WHERE { { ?s ?p ?o } UNION { ?s ?p ?x } }`},
		{"limit", `SELECT ?s WHERE { ?s <http://x/p> ?o } LIMIT 10`},
		{"undeclared prefix", `SELECT ?s WHERE { ?s ex:p ?o }`},
		{"literal subject", `SELECT ?o WHERE { "x" <http://x/p> ?o }`},
		{"unterminated", `SELECT ?o WHERE { <http://x/s> <http://x/p> ?o `},
		{"empty projection", `SELECT WHERE { <http://x/s> <http://x/p> ?o }`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseQuery(tc.query)
			require.Error(t, err)
			var se *SyntaxError
			assert.ErrorAs(t, err, &se)
		})
	}
}

func TestWalk_SkipsChildren(t *testing.T) {
	q := MustParseQuery(`SELECT * WHERE { ?s <http://x/p> ?o OPTIONAL { ?o <http://x/q> ?z } }`)

	var bgps int
	Walk(q, func(n Node) bool {
		if _, ok := n.(*Optional); ok {
			return false
		}
		if _, ok := n.(*BGP); ok {
			bgps++
		}
		return true
	})
	assert.Equal(t, 1, bgps)
}

func TestRender_RoundTrip(t *testing.T) {
	q := MustParseQuery(`SELECT ?s ?n WHERE { ?s <http://x/p> "a\"b" . OPTIONAL { ?s <http://x/name> ?n } }`)

	text := Render(q, "http://x/g1", "http://x/g2")
	assert.Contains(t, text, "FROM <http://x/g1>")
	assert.Contains(t, text, "FROM <http://x/g2>")

	// FROM clauses are outside the fragment; strip them and re-parse.
	reparsed, err := ParseQuery(Render(q))
	require.NoError(t, err)
	assert.Equal(t, Triples(q), Triples(reparsed))
	assert.Equal(t, q.Projection, reparsed.Projection)
}
