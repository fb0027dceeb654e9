package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
	"github.com/opencitations/time-agnostic-library-sub000/internal/triplestore"
)

// SnapshotSink holds the per-instant entity states of one session.
//
// Instants are normalized to UTC seconds. A state is present for an
// (instant, entity) pair once it was Put or carried there; an empty state
// is present too and means the entity did not exist.
type SnapshotSink interface {
	// Put records the state entity took at instant at.
	Put(ctx context.Context, entity rdf.IRI, at time.Time, state *rdf.Graph) error

	// Carry makes the state entity had at from its state at to as well.
	// It does nothing when there is no state at from.
	Carry(entity rdf.IRI, from, to time.Time)

	// Has reports whether entity has a state at at.
	Has(at time.Time, entity rdf.IRI) bool

	// Instants returns every instant with at least one state, sorted.
	Instants() []time.Time

	// Entities returns the entities with a state at at, sorted.
	Entities(at time.Time) []rdf.IRI

	// Match evaluates a single pattern against the union of states at at.
	Match(ctx context.Context, at time.Time, p rdf.Triple) ([]sparql.Binding, error)

	// Select evaluates q against the union of states at at.
	Select(ctx context.Context, at time.Time, q *sparql.Query) ([]sparql.Binding, error)
}

// index maps instants (unix seconds) to per-entity values.
type index[V any] struct {
	m map[int64]map[rdf.IRI]V
}

func newIndex[V any]() index[V] {
	return index[V]{m: map[int64]map[rdf.IRI]V{}}
}

func (ix index[V]) get(at time.Time, entity rdf.IRI) (V, bool) {
	v, ok := ix.m[at.Unix()][entity]
	return v, ok
}

func (ix index[V]) set(at time.Time, entity rdf.IRI, v V) {
	key := at.Unix()
	if ix.m[key] == nil {
		ix.m[key] = map[rdf.IRI]V{}
	}
	ix.m[key][entity] = v
}

func (ix index[V]) instants() []time.Time {
	out := make([]time.Time, 0, len(ix.m))
	for k := range ix.m {
		out = append(out, time.Unix(k, 0).UTC())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (ix index[V]) entities(at time.Time) []rdf.IRI {
	row := ix.m[at.Unix()]
	out := make([]rdf.IRI, 0, len(row))
	for e := range row {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// memorySink keeps states as in-process graphs.
type memorySink struct {
	mu     sync.Mutex
	states index[*rdf.Graph]
	unions map[int64]*rdf.Graph
}

// NewMemorySink returns a sink that keeps every state in memory.
func NewMemorySink() SnapshotSink {
	return &memorySink{states: newIndex[*rdf.Graph](), unions: map[int64]*rdf.Graph{}}
}

func (s *memorySink) Put(_ context.Context, entity rdf.IRI, at time.Time, state *rdf.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states.set(at, entity, state)
	delete(s.unions, at.Unix())
	return nil
}

func (s *memorySink) Carry(entity rdf.IRI, from, to time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.states.get(from, entity); ok {
		s.states.set(to, entity, g)
		delete(s.unions, to.Unix())
	}
}

func (s *memorySink) Has(at time.Time, entity rdf.IRI) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.states.get(at, entity)
	return ok
}

func (s *memorySink) Instants() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states.instants()
}

func (s *memorySink) Entities(at time.Time) []rdf.IRI {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states.entities(at)
}

func (s *memorySink) Match(_ context.Context, at time.Time, p rdf.Triple) ([]sparql.Binding, error) {
	return sparql.MatchPattern(p, s.union(at)), nil
}

func (s *memorySink) Select(_ context.Context, at time.Time, q *sparql.Query) ([]sparql.Binding, error) {
	return sparql.Evaluate(q, s.union(at)), nil
}

// union returns the merged graph at at, cached until the instant changes.
func (s *memorySink) union(at time.Time) *rdf.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := at.Unix()
	if g, ok := s.unions[key]; ok {
		return g
	}
	g := rdf.NewGraph()
	for _, e := range s.states.entities(at) {
		state, _ := s.states.get(at, e)
		g.AddAll(state)
	}
	s.unions[key] = g
	return g
}

// cacheSink uploads states to a cache triplestore and keeps graph names.
type cacheSink struct {
	mu    sync.Mutex
	cache triplestore.Gateway
	refs  index[rdf.IRI]
}

// NewCacheSink returns a sink that stores each (entity, instant) state in
// the named graph CacheGraph(entity, instant) of cache.
func NewCacheSink(cache triplestore.Gateway) SnapshotSink {
	return &cacheSink{cache: cache, refs: newIndex[rdf.IRI]()}
}

// CacheGraph names the cache graph holding the state entity took at at.
func CacheGraph(entity rdf.IRI, at time.Time) rdf.IRI {
	return rdf.IRI(fmt.Sprintf("%s/cache/%s", string(entity), provenance.CompactInstant(at)))
}

// CacheLinkGraph names the graph holding the link from a cache graph to
// its entity. It is kept apart so that queries over states never see it.
func CacheLinkGraph(graph rdf.IRI) rdf.IRI {
	return graph + "/link"
}

func (s *cacheSink) Put(ctx context.Context, entity rdf.IRI, at time.Time, state *rdf.Graph) error {
	graph := CacheGraph(entity, at)
	if err := s.cache.ReplaceGraph(ctx, graph, state.Quads()); err != nil {
		return fmt.Errorf("cache state of %s: %w", entity, err)
	}
	link := rdf.Quad{Triple: rdf.Triple{S: graph, P: rdf.ProvSpecializationOf, O: entity}}
	if err := s.cache.ReplaceGraph(ctx, CacheLinkGraph(graph), []rdf.Quad{link}); err != nil {
		return fmt.Errorf("cache link of %s: %w", entity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs.set(at, entity, graph)
	return nil
}

func (s *cacheSink) Carry(entity rdf.IRI, from, to time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.refs.get(from, entity); ok {
		s.refs.set(to, entity, g)
	}
}

func (s *cacheSink) Has(at time.Time, entity rdf.IRI) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.refs.get(at, entity)
	return ok
}

func (s *cacheSink) Instants() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs.instants()
}

func (s *cacheSink) Entities(at time.Time) []rdf.IRI {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs.entities(at)
}

// graphs returns the distinct cache graphs in force at at.
func (s *cacheSink) graphs(at time.Time) []rdf.IRI {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[rdf.IRI]bool{}
	var out []rdf.IRI
	for _, e := range s.refs.entities(at) {
		g, _ := s.refs.get(at, e)
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}

func (s *cacheSink) Match(ctx context.Context, at time.Time, p rdf.Triple) ([]sparql.Binding, error) {
	return s.Select(ctx, at, sparql.NewSelect(p.Variables(), p))
}

func (s *cacheSink) Select(ctx context.Context, at time.Time, q *sparql.Query) ([]sparql.Binding, error) {
	graphs := s.graphs(at)
	// An unscoped Select would see the whole cache.
	if len(graphs) == 0 {
		return nil, nil
	}
	return s.cache.Select(ctx, q, graphs...)
}
