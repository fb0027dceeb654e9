package engine

import (
	"context"
	"sort"
	"time"

	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
)

// pendingSet is PendingPatternsByTime for one instant: patterns waiting to
// be matched plus those already matched since the last reseed.
type pendingSet struct {
	pending map[string]rdf.Triple
	done    map[string]bool
}

func newPendingSet() *pendingSet {
	return &pendingSet{pending: map[string]rdf.Triple{}, done: map[string]bool{}}
}

// add queues t unless it is ground or already known. It reports whether
// the set changed.
func (ps *pendingSet) add(t rdf.Triple) bool {
	if len(t.Variables()) == 0 {
		return false
	}
	key := t.String()
	if ps.done[key] {
		return false
	}
	if _, ok := ps.pending[key]; ok {
		return false
	}
	ps.pending[key] = t
	return true
}

// next removes and returns a resolvable pattern, lowest key first.
func (ps *pendingSet) next() (rdf.Triple, bool) {
	keys := make([]string, 0, len(ps.pending))
	for k, t := range ps.pending {
		if resolvable(t) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return rdf.Triple{}, false
	}
	sort.Strings(keys)
	t := ps.pending[keys[0]]
	delete(ps.pending, keys[0])
	ps.done[keys[0]] = true
	return t, true
}

// resolvable reports whether t can be matched on its own: it has a bound
// IRI subject or exactly one variable.
func resolvable(t rdf.Triple) bool {
	if _, ok := t.S.(rdf.IRI); ok {
		return true
	}
	return len(t.Variables()) == 1
}

// seed re-queues the query's variable patterns at every instant and
// forgets what was matched, so patterns are matched again against states
// that appeared since.
func (s *session) seed() {
	for _, at := range s.sink.Instants() {
		key := at.Unix()
		ps := s.pending[key]
		if ps == nil {
			ps = newPendingSet()
			s.pending[key] = ps
		}
		ps.done = map[string]bool{}
		for _, t := range s.analysis.Triples {
			ps.add(t)
		}
	}
}

// resolve runs the binding resolver to a fixed point. Each round matches
// every resolvable pending pattern at every instant, substitutes each
// match into the co-referencing patterns, and rebuilds the entities the
// matches name. A round that rebuilt nothing ends the loop; otherwise the
// snapshots are re-aligned and re-seeded.
func (s *session) resolve(ctx context.Context) error {
	s.seed()
	for {
		s.rounds++
		s.o.metrics.ResolverRounds.Inc()

		discovered := map[rdf.IRI]bool{}
		for _, at := range s.sink.Instants() {
			if err := s.resolveAt(ctx, at, discovered); err != nil {
				return err
			}
		}

		iris := make([]rdf.IRI, 0, len(discovered))
		for iri := range discovered {
			iris = append(iris, iri)
		}
		n, err := s.rebuild(ctx, iris)
		if err != nil {
			return err
		}
		s.logger.Debug("resolver round finished", "round", s.rounds, "rebuilt", n)
		if n == 0 {
			return nil
		}

		s.align()
		s.seed()
	}
}

// resolveAt drains the resolvable patterns pending at one instant.
// Dead ends (patterns without matches) are dropped. IRIs bound to a
// variable that some pattern uses as subject are collected in discovered;
// objects that are never walked from are not worth a history.
func (s *session) resolveAt(ctx context.Context, at time.Time, discovered map[rdf.IRI]bool) error {
	ps := s.pending[at.Unix()]
	if ps == nil {
		return nil
	}

	for {
		p, ok := ps.next()
		if !ok {
			return nil
		}
		rows, err := s.sink.Match(ctx, at, p)
		if err != nil {
			s.upstreamFailure("resolve", err)
			return err
		}

		if iri, ok := p.S.(rdf.IRI); ok && !s.relevant[iri] {
			discovered[iri] = true
		}
		subjects, err := s.discoverSubjects(ctx, p)
		if err != nil {
			return err
		}
		for _, iri := range subjects {
			if !s.relevant[iri] {
				discovered[iri] = true
			}
		}
		for _, row := range rows {
			for v, term := range row {
				if iri, ok := term.(rdf.IRI); ok && s.subjectVars[v] && !s.relevant[iri] {
					discovered[iri] = true
				}
			}
			s.join(ps, p, row)
		}
	}
}

// join substitutes row into every pending pattern sharing a variable with
// the matched pattern p.
func (s *session) join(ps *pendingSet, p rdf.Triple, row sparql.Binding) {
	shared := p.Variables()
	var queued []rdf.Triple
	for _, t := range ps.pending {
		if sharesVariable(t, shared) {
			queued = append(queued, t.Substitute(row))
		}
	}
	for _, t := range s.analysis.Triples {
		if sharesVariable(t, shared) {
			queued = append(queued, t.Substitute(row))
		}
	}
	for _, t := range queued {
		ps.add(t)
	}
}

func sharesVariable(t rdf.Triple, vars []rdf.Variable) bool {
	for _, v := range t.Variables() {
		for _, w := range vars {
			if v == w {
				return true
			}
		}
	}
	return false
}
