package sparqlhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencitations/time-agnostic-library-sub000/internal/dialect"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
	"github.com/opencitations/time-agnostic-library-sub000/internal/triplestore"
)

const base = "https://github.com/arcangelo7/time_agnostic/"

// endpoint is a fake SPARQL server that records requests and answers with
// a canned body.
type endpoint struct {
	mu       sync.Mutex
	queries  []string
	updates  []string
	response string
	status   int
}

func (e *endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if q := r.PostForm.Get("query"); q != "" {
		e.queries = append(e.queries, q)
	}
	if u := r.PostForm.Get("update"); u != "" {
		e.updates = append(e.updates, u)
	}
	status := e.status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", resultsJSON)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(e.response))
}

func newTestClient(t *testing.T, e *endpoint, quadstore bool) *Client {
	t.Helper()
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	c := New(srv.URL, Options{
		Timeout:      2 * time.Second,
		Retries:      2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
		IsQuadstore:  quadstore,
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

const selectResponse = `{
  "head": {"vars": ["s", "label", "n", "b"]},
  "results": {"bindings": [
    {
      "s": {"type": "uri", "value": "https://github.com/arcangelo7/time_agnostic/ra/1"},
      "label": {"type": "literal", "value": "Peroni", "xml:lang": "EN"},
      "n": {"type": "literal", "value": "3", "datatype": "http://www.w3.org/2001/XMLSchema#integer"},
      "b": {"type": "bnode", "value": "x1"}
    },
    {
      "s": {"type": "uri", "value": "https://github.com/arcangelo7/time_agnostic/ra/2"},
      "label": {"type": "typed-literal", "value": "Shotton", "datatype": "http://www.w3.org/2001/XMLSchema#string"}
    }
  ]}
}`

func TestClient_SelectDecodesTerms(t *testing.T) {
	e := &endpoint{response: selectResponse}
	c := newTestClient(t, e, true)

	q := sparql.NewSelect(nil, rdf.Triple{S: rdf.Variable("s"), P: rdf.IRI("http://xmlns.com/foaf/0.1/familyName"), O: rdf.Variable("label")})
	rows, err := c.Select(context.Background(), q, base+"ra/")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, rdf.IRI(base+"ra/1"), rows[0]["s"])
	assert.Equal(t, rdf.NewLangLiteral("Peroni", "en"), rows[0]["label"])
	assert.Equal(t, rdf.NewLiteral("3", rdf.NSXSD+"integer"), rows[0]["n"])
	assert.Equal(t, rdf.BlankNode("x1"), rows[0]["b"])

	assert.Equal(t, rdf.Literal{Value: "Shotton"}, rows[1]["label"])
	_, bound := rows[1]["n"]
	assert.False(t, bound, "absent variables stay unbound")

	require.Len(t, e.queries, 1)
	assert.Contains(t, e.queries[0], "FROM <"+base+"ra/>")
}

func TestClient_QuadsUsesNamedGraphsOnQuadstores(t *testing.T) {
	e := &endpoint{response: `{"head":{"vars":["p","o","g"]},"results":{"bindings":[
		{"p":{"type":"uri","value":"http://purl.org/spar/pro/isHeldBy"},
		 "o":{"type":"uri","value":"https://github.com/arcangelo7/time_agnostic/ra/1"},
		 "g":{"type":"uri","value":"https://github.com/arcangelo7/time_agnostic/ar/"}}]}}`}
	c := newTestClient(t, e, true)

	quads, err := c.Quads(context.Background(), base+"ar/1")
	require.NoError(t, err)
	require.Len(t, quads, 1)
	assert.Equal(t, rdf.IRI(base+"ar/"), quads[0].G)
	assert.Equal(t, rdf.IRI(base+"ar/1"), quads[0].S)
	assert.Contains(t, e.queries[0], "GRAPH ?g")
}

func TestClient_QuadsOnTripleStore(t *testing.T) {
	e := &endpoint{response: `{"head":{"vars":["p","o"]},"results":{"bindings":[]}}`}
	c := newTestClient(t, e, false)

	quads, err := c.Quads(context.Background(), base+"ar/1")
	require.NoError(t, err)
	assert.Empty(t, quads)
	assert.NotContains(t, e.queries[0], "GRAPH")
}

func TestClient_MineUpdates(t *testing.T) {
	e := &endpoint{response: `{"head":{"vars":["se","entity","updateQuery"]},"results":{"bindings":[
		{"se":{"type":"uri","value":"https://github.com/arcangelo7/time_agnostic/ar/1/prov/se/2"},
		 "entity":{"type":"uri","value":"https://github.com/arcangelo7/time_agnostic/ar/1"},
		 "updateQuery":{"type":"literal","value":"DELETE DATA { <a:x> <a:y> <a:z> . }"}},
		{"se":{"type":"uri","value":"https://github.com/arcangelo7/time_agnostic/ar/1/prov/se/2"},
		 "entity":{"type":"uri","value":"https://github.com/arcangelo7/time_agnostic/ar/1"},
		 "updateQuery":{"type":"literal","value":"DELETE DATA { <a:x> <a:y> <a:z> . }"}}]}}`}
	c := newTestClient(t, e, true)

	records, err := c.MineUpdates(context.Background(), dialect.Blazegraph{}, []rdf.Term{rdf.IRI(base + "ra/1")})
	require.NoError(t, err)
	require.Len(t, records, 1, "duplicate rows collapse")
	assert.Equal(t, rdf.IRI(base+"ar/1"), records[0].Entity)
	assert.Contains(t, e.queries[0], "bigdata.com/rdf/search#search")
}

func TestClient_ReplaceGraphSendsUpdate(t *testing.T) {
	e := &endpoint{}
	c := newTestClient(t, e, true)

	graph := rdf.IRI(base + "ar/1/cache/20210524T130000Z")
	q := rdf.Quad{Triple: rdf.Triple{S: rdf.IRI(base + "ar/1"), P: rdf.IRI("http://purl.org/spar/pro/isHeldBy"), O: rdf.IRI(base + "ra/1")}}
	require.NoError(t, c.ReplaceGraph(context.Background(), graph, []rdf.Quad{q}))

	require.Len(t, e.updates, 1)
	assert.Contains(t, e.updates[0], "DROP SILENT GRAPH <"+string(graph)+">")
	assert.Contains(t, e.updates[0], "INSERT DATA { GRAPH <"+string(graph)+">")

	parsed, err := sparql.ParseUpdate(e.updates[0][len("DROP SILENT GRAPH <"+string(graph)+"> ;\n"):])
	require.NoError(t, err)
	require.Len(t, parsed.Quads(), 1)
	assert.Equal(t, graph, parsed.Quads()[0].G)
}

func TestClient_ServerErrorIsUpstreamAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{Retries: 2, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond})
	_, err := c.Query(context.Background(), "SELECT * WHERE { ?s ?p ?o }")
	require.Error(t, err)
	assert.True(t, triplestore.IsUpstream(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad query", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{Retries: 3, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond})
	_, err := c.Query(context.Background(), "SELECT * WHERE { ?s ?p ?o }")
	require.Error(t, err)
	assert.True(t, triplestore.IsUpstream(err))
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_MalformedResultsAreUpstream(t *testing.T) {
	e := &endpoint{response: `{"head":{}}`}
	c := newTestClient(t, e, true)

	_, err := c.Query(context.Background(), "SELECT * WHERE { ?s ?p ?o }")
	require.Error(t, err)
	assert.True(t, triplestore.IsUpstream(err))
}

func TestDecodeTerm_UnknownType(t *testing.T) {
	_, err := decodeResults([]byte(`{"results":{"bindings":[{"x":{"type":"triple","value":"?"}}]}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variable x")
}
