// Package sparqlhttp is a SPARQL 1.1 protocol client implementing
// triplestore.Gateway.
//
// Requests go through go-retryablehttp, which retries connection errors
// and 5xx responses with backoff; this is the only retry layer in the
// system. Result sets are decoded from application/sparql-results+json
// with gjson.
package sparqlhttp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/opencitations/time-agnostic-library-sub000/internal/dialect"
	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
	"github.com/opencitations/time-agnostic-library-sub000/internal/triplestore"
)

const resultsJSON = "application/sparql-results+json"

// Options configures a Client.
type Options struct {
	Timeout time.Duration
	Retries int

	// RetryWaitMin and RetryWaitMax bound the backoff between attempts.
	// Zero keeps the go-retryablehttp defaults.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// IsQuadstore makes Quads read named graphs (GRAPH ?g) instead of the
	// default graph.
	IsQuadstore bool

	Logger *slog.Logger
}

// Client talks to one SPARQL endpoint. It is safe for concurrent use.
type Client struct {
	endpoint string
	http     *retryablehttp.Client
	quads    bool
}

var _ triplestore.Gateway = (*Client)(nil)

// New creates a client for endpoint.
func New(endpoint string, opts Options) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = opts.Retries
	if opts.Timeout > 0 {
		hc.HTTPClient.Timeout = opts.Timeout
	}
	if opts.RetryWaitMin > 0 {
		hc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		hc.RetryWaitMax = opts.RetryWaitMax
	}
	// A nil Logger silences retry chatter. *slog.Logger satisfies
	// retryablehttp.LeveledLogger.
	hc.Logger = nil
	if opts.Logger != nil {
		hc.Logger = opts.Logger
	}
	return &Client{endpoint: endpoint, http: hc, quads: opts.IsQuadstore}
}

// Endpoint returns the endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Query sends a raw SELECT and decodes the solutions.
func (c *Client) Query(ctx context.Context, text string) ([]sparql.Binding, error) {
	body, err := c.post(ctx, "query", text, resultsJSON)
	if err != nil {
		return nil, c.upstream("select", err)
	}
	rows, err := decodeResults(body)
	if err != nil {
		return nil, c.upstream("select", err)
	}
	return rows, nil
}

// Update sends an update request.
func (c *Client) Update(ctx context.Context, text string) error {
	if _, err := c.post(ctx, "update", text, "*/*"); err != nil {
		return c.upstream("update", err)
	}
	return nil
}

func (c *Client) Select(ctx context.Context, q *sparql.Query, graphs ...rdf.IRI) ([]sparql.Binding, error) {
	return c.Query(ctx, sparql.Render(q, graphs...))
}

func (c *Client) Quads(ctx context.Context, subject rdf.IRI) ([]rdf.Quad, error) {
	s := rdf.Encode(subject)
	text := fmt.Sprintf("SELECT ?p ?o WHERE { %s ?p ?o }", s)
	if c.quads {
		text = fmt.Sprintf("SELECT ?p ?o ?g WHERE { GRAPH ?g { %s ?p ?o } }", s)
	}

	rows, err := c.Query(ctx, text)
	if err != nil {
		return nil, err
	}

	g := rdf.NewGraph()
	for _, row := range rows {
		q := rdf.Quad{Triple: rdf.Triple{S: subject, P: row["p"], O: row["o"]}}
		if graph, ok := row["g"].(rdf.IRI); ok {
			q.G = graph
		}
		if q.P == nil || q.O == nil {
			continue
		}
		g.Add(q)
	}
	return g.Quads(), nil
}

func (c *Client) MineUpdates(ctx context.Context, d dialect.FullTextDialect, terms []rdf.Term) ([]provenance.UpdateRecord, error) {
	rows, err := c.Query(ctx, dialect.MiningQuery(d, terms))
	if err != nil {
		return nil, err
	}

	var out []provenance.UpdateRecord
	for _, row := range rows {
		se, ok1 := row[dialect.VarSnapshot].(rdf.IRI)
		entity, ok2 := row[dialect.VarEntity].(rdf.IRI)
		update, ok3 := row[dialect.VarUpdate].(rdf.Literal)
		if ok1 && ok2 && ok3 {
			out = append(out, provenance.UpdateRecord{Snapshot: se, Entity: entity, Update: update.Value})
		}
	}
	return triplestore.SortRecords(out), nil
}

func (c *Client) ReplaceGraph(ctx context.Context, graph rdf.IRI, quads []rdf.Quad) error {
	text := fmt.Sprintf("DROP SILENT GRAPH %s", rdf.Encode(graph))
	if len(quads) > 0 {
		scoped := make([]rdf.Quad, len(quads))
		for i, q := range quads {
			q.G = graph
			scoped[i] = q
		}
		insert := sparql.RenderUpdate(&sparql.Update{Ops: []sparql.UpdateOp{{Kind: sparql.UpdateInsert, Quads: scoped}}})
		text += " ;\n" + insert
	}
	return c.Update(ctx, text)
}

func (c *Client) Close() error {
	c.http.HTTPClient.CloseIdleConnections()
	return nil
}

func (c *Client) upstream(op string, err error) error {
	return &triplestore.UpstreamError{Backend: c.endpoint, Op: op, Err: err}
}

func (c *Client) post(ctx context.Context, field, text, accept string) ([]byte, error) {
	form := url.Values{field: {text}}.Encode()
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", accept)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(snippet))
	}
	return body, nil
}
