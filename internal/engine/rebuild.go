package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/opencitations/time-agnostic-library-sub000/internal/history"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/triplestore"
)

// rebuild reconstructs the histories of every IRI in iris not yet in
// RelevantEntities and stores their states in the sink. It returns the
// number of entities rebuilt.
//
// Batches above the worker threshold are fanned out to a bounded pool.
// Workers only reconstruct; the states are merged here in entity order.
func (s *session) rebuild(ctx context.Context, iris []rdf.IRI) (int, error) {
	batch := s.claim(iris)
	if len(batch) == 0 {
		return 0, nil
	}

	var histories []*history.History
	var err error
	if s.o.workerThreshold > 0 && len(batch) > s.o.workerThreshold {
		s.logger.Debug("rebuilding entities in parallel", "count", len(batch), "workers", s.o.maxWorkers)
		histories, err = s.rebuildParallel(ctx, batch)
	} else {
		histories, err = s.rebuildSequential(ctx, batch)
	}
	if err != nil {
		if triplestore.IsUpstream(err) {
			s.o.metrics.UpstreamFailures.WithLabelValues("rebuild").Inc()
		}
		return 0, err
	}

	sort.Slice(histories, func(i, j int) bool { return histories[i].Entity < histories[j].Entity })
	for _, h := range histories {
		s.histories[h.Entity] = h
		for _, st := range h.States {
			if err := s.sink.Put(ctx, h.Entity, st.At, st.Graph); err != nil {
				return 0, err
			}
		}
	}

	s.o.metrics.EntitiesRebuilt.Add(float64(len(batch)))
	s.logger.Debug("entities rebuilt", "count", len(batch))
	return len(batch), nil
}

// claim adds the new IRIs of iris to RelevantEntities and returns them
// sorted. An entity is claimed once per session, so rebuilding is
// idempotent.
func (s *session) claim(iris []rdf.IRI) []rdf.IRI {
	var out []rdf.IRI
	for _, iri := range iris {
		if !s.relevant[iri] {
			s.relevant[iri] = true
			out = append(out, iri)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *session) rebuildSequential(ctx context.Context, batch []rdf.IRI) ([]*history.History, error) {
	out := make([]*history.History, 0, len(batch))
	for _, iri := range batch {
		h, err := s.o.history.History(ctx, iri)
		if err != nil {
			return nil, fmt.Errorf("rebuild %s: %w", iri, err)
		}
		out = append(out, h)
	}
	return out, nil
}

func (s *session) rebuildParallel(ctx context.Context, batch []rdf.IRI) ([]*history.History, error) {
	p := pool.NewWithResults[*history.History]().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(s.o.maxWorkers)

	for _, iri := range batch {
		p.Go(func(ctx context.Context) (*history.History, error) {
			h, err := s.o.history.History(ctx, iri)
			if err != nil {
				return nil, fmt.Errorf("rebuild %s: %w", iri, err)
			}
			return h, nil
		})
	}
	return p.Wait()
}

// align carries states forward so that every instant is fully
// materialized: each relevant entity gets, at every instant, the state in
// force at that instant. An entity that records a change at an instant
// already has its own state there and is left alone. Running align twice
// changes nothing.
func (s *session) align() {
	instants := s.sink.Instants()
	entities := s.sortedRelevant()
	carried := 0
	for _, at := range instants {
		for _, entity := range entities {
			if s.sink.Has(at, entity) {
				continue
			}
			h := s.histories[entity]
			if h == nil || h.ChangedAt(at) {
				continue
			}
			if st, ok := h.At(at); ok {
				s.sink.Carry(entity, st.At, at)
				carried++
			}
		}
	}
	s.logger.Debug("snapshots aligned", "instants", len(instants), "carried", carried)
}

func (s *session) sortedRelevant() []rdf.IRI {
	out := make([]rdf.IRI, 0, len(s.relevant))
	for iri := range s.relevant {
		out = append(out, iri)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

