package triplestore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/opencitations/time-agnostic-library-sub000/internal/dialect"
	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
)

// Memory is a Gateway over an in-process graph. It is safe for concurrent
// use.
type Memory struct {
	mu    sync.RWMutex
	graph *rdf.Graph
}

// NewMemory creates a Memory gateway holding quads.
func NewMemory(quads ...rdf.Quad) *Memory {
	return &Memory{graph: rdf.NewGraph(quads...)}
}

// Add inserts quads.
func (m *Memory) Add(quads ...rdf.Quad) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range quads {
		m.graph.Add(q)
	}
}

// Graph returns a copy of the stored quads.
func (m *Memory) Graph() *rdf.Graph {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph.Clone()
}

func (m *Memory) Select(ctx context.Context, q *sparql.Query, graphs ...rdf.IRI) ([]sparql.Binding, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UpstreamError{Backend: "memory", Op: "select", Err: err}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	g := m.graph
	if len(graphs) > 0 {
		g = g.Subgraph(graphs...)
	}
	return sparql.Evaluate(q, g), nil
}

func (m *Memory) Quads(ctx context.Context, subject rdf.IRI) ([]rdf.Quad, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UpstreamError{Backend: "memory", Op: "quads", Err: err}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph.Match(rdf.Triple{S: subject, P: rdf.Variable("p"), O: rdf.Variable("o")}), nil
}

// MineUpdates matches by substring; the dialect is ignored.
func (m *Memory) MineUpdates(ctx context.Context, _ dialect.FullTextDialect, terms []rdf.Term) ([]provenance.UpdateRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UpstreamError{Backend: "memory", Op: "mine", Err: err}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := dialect.SearchTerms(terms)
	var out []provenance.UpdateRecord
	for _, q := range m.graph.Match(rdf.Triple{S: rdf.Variable("se"), P: rdf.OCOHasUpdateQuery, O: rdf.Variable("u")}) {
		lit, ok := q.O.(rdf.Literal)
		if !ok || !containsAll(lit.Value, search) {
			continue
		}
		se, ok := q.S.(rdf.IRI)
		if !ok {
			continue
		}
		for _, link := range m.graph.Match(rdf.Triple{S: se, P: rdf.ProvSpecializationOf, O: rdf.Variable("e")}) {
			if entity, ok := link.O.(rdf.IRI); ok {
				out = append(out, provenance.UpdateRecord{Snapshot: se, Entity: entity, Update: lit.Value})
			}
		}
	}
	return SortRecords(out), nil
}

func (m *Memory) ReplaceGraph(ctx context.Context, graph rdf.IRI, quads []rdf.Quad) error {
	if err := ctx.Err(); err != nil {
		return &UpstreamError{Backend: "memory", Op: "replace", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graph.RemoveGraph(graph)
	for _, q := range quads {
		q.G = graph
		m.graph.Add(q)
	}
	return nil
}

func (m *Memory) Close() error { return nil }

func containsAll(text string, search []string) bool {
	for _, s := range search {
		if !strings.Contains(text, s) {
			return false
		}
	}
	return true
}

// SortRecords de-duplicates records and orders them by snapshot IRI.
func SortRecords(records []provenance.UpdateRecord) []provenance.UpdateRecord {
	seen := map[provenance.UpdateRecord]bool{}
	out := make([]provenance.UpdateRecord, 0, len(records))
	for _, r := range records {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Snapshot != out[j].Snapshot {
			return out[i].Snapshot < out[j].Snapshot
		}
		return out[i].Entity < out[j].Entity
	})
	return out
}
