package engine

import (
	"context"
	"fmt"

	"github.com/opencitations/time-agnostic-library-sub000/internal/pattern"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
	"github.com/opencitations/time-agnostic-library-sub000/internal/triplestore"
)

// discover seeds RelevantEntities. Anchored patterns contribute their
// bound subjects; hooks are resolved against the present dataset and the
// recorded update statements.
func (s *session) discover(ctx context.Context) error {
	var found []rdf.IRI
	for _, t := range s.analysis.Anchored {
		if iri, ok := t.S.(rdf.IRI); ok {
			found = append(found, iri)
		}
	}

	for _, hook := range s.analysis.Hooks {
		s.hooked[hook.String()] = true
		iris, err := s.discoverViaHook(ctx, hook)
		if err != nil {
			return err
		}
		found = append(found, iris...)
	}

	n, err := s.rebuild(ctx, found)
	if err != nil {
		return err
	}
	s.logger.Info("entities discovered", "hooks", len(s.analysis.Hooks), "entities", n)
	return nil
}

// discoverViaHook finds the entities a hook pattern may refer to at any
// time. Present matches give the IRIs bound to the subject. Update
// statements mentioning every bound IRI and literal of the hook give the
// other IRIs of each updated triple containing them, which covers entities
// deleted or renamed before the present.
func (s *session) discoverViaHook(ctx context.Context, hook rdf.Triple) ([]rdf.IRI, error) {
	var out []rdf.IRI

	rows, err := s.o.deps.Dataset.Select(ctx, sparql.NewSelect(hook.Variables(), hook))
	if err != nil {
		s.upstreamFailure("discover", err)
		return nil, fmt.Errorf("discover %s: %w", hook, err)
	}
	for _, row := range rows {
		if iri, ok := hook.Substitute(row).S.(rdf.IRI); ok {
			out = append(out, iri)
		}
	}

	bound := pattern.BoundTerms(hook)
	if len(bound) == 0 {
		return out, nil
	}
	records, err := s.o.deps.Provenance.MineUpdates(ctx, s.o.deps.Dialect, bound)
	if err != nil {
		s.upstreamFailure("mine", err)
		return nil, fmt.Errorf("mine updates for %s: %w", hook, err)
	}

	for _, rec := range records {
		u, err := sparql.ParseUpdate(rec.Update)
		if err != nil {
			s.o.metrics.MalformedUpdates.Inc()
			s.logger.Warn("skipping malformed update statement",
				"snapshot", string(rec.Snapshot),
				"error", err)
			continue
		}
		for _, q := range u.Quads() {
			if !mentionsAll(q.Triple, bound) {
				continue
			}
			out = append(out, otherIRIs(q.Triple, bound)...)
		}
	}
	return out, nil
}

// discoverSubjects looks up a pattern whose subject is an unclosed
// variable once its other terms are bound, such as ?b p <o> reached
// through a shared object. Such subjects are not linked from any relevant
// entity, so they are found like hooks. Each pattern is looked up once per
// session.
func (s *session) discoverSubjects(ctx context.Context, p rdf.Triple) ([]rdf.IRI, error) {
	v, ok := p.S.(rdf.Variable)
	if !ok || s.closed[v] {
		return nil, nil
	}
	key := p.String()
	if s.hooked[key] {
		return nil, nil
	}
	s.hooked[key] = true
	return s.discoverViaHook(ctx, p)
}

func (s *session) upstreamFailure(phase string, err error) {
	if triplestore.IsUpstream(err) {
		s.o.metrics.UpstreamFailures.WithLabelValues(phase).Inc()
	}
}

func mentionsAll(t rdf.Triple, bound []rdf.Term) bool {
	for _, b := range bound {
		found := false
		for _, term := range t.Terms() {
			if rdf.Equal(term, b) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// otherIRIs returns the subject and object IRIs of t not in exclude.
// Predicates name properties, not entities, and are skipped.
func otherIRIs(t rdf.Triple, exclude []rdf.Term) []rdf.IRI {
	var out []rdf.IRI
	for _, term := range []rdf.Term{t.S, t.O} {
		iri, ok := term.(rdf.IRI)
		if !ok {
			continue
		}
		skip := false
		for _, e := range exclude {
			if rdf.Equal(iri, e) {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, iri)
		}
	}
	return out
}
