package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
	"github.com/opencitations/time-agnostic-library-sub000/internal/triplestore"
)

// Reconstructor rebuilds resource histories from a dataset and its
// provenance. It holds no mutable state and is safe for concurrent use.
type Reconstructor struct {
	dataset    triplestore.Gateway
	provenance triplestore.Gateway
	logger     *slog.Logger
}

// Option configures a Reconstructor.
type Option func(*Reconstructor)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconstructor) {
		r.logger = l
	}
}

// New creates a Reconstructor reading present states from dataset and
// snapshot entities from prov.
func New(dataset, prov triplestore.Gateway, opts ...Option) *Reconstructor {
	r := &Reconstructor{
		dataset:    dataset,
		provenance: prov,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// History returns every recorded state of iri. A resource without
// provenance yields an empty History.
func (r *Reconstructor) History(ctx context.Context, iri rdf.IRI) (*History, error) {
	present, err := r.dataset.Quads(ctx, iri)
	if err != nil {
		return nil, fmt.Errorf("present state of %s: %w", iri, err)
	}

	rows, err := r.provenance.Select(ctx, provenance.SnapshotQuery(iri))
	if err != nil {
		return nil, fmt.Errorf("provenance of %s: %w", iri, err)
	}
	snapshots, err := provenance.FromBindings(iri, rows)
	if err != nil {
		return nil, fmt.Errorf("provenance of %s: %w", iri, err)
	}

	return r.replay(iri, present, snapshots), nil
}

// StateAt returns the state of iri in force at t. The boolean is false
// when t precedes the first recorded instant.
func (r *Reconstructor) StateAt(ctx context.Context, iri rdf.IRI, t time.Time) (State, bool, error) {
	h, err := r.History(ctx, iri)
	if err != nil {
		return State{}, false, err
	}
	s, ok := h.At(t)
	return s, ok, nil
}

// replay walks snapshots from the newest to the oldest, undoing each
// update to obtain the state before it.
func (r *Reconstructor) replay(iri rdf.IRI, present []rdf.Quad, snapshots []provenance.SnapshotEntity) *History {
	current := rdf.NewGraph()
	for _, q := range present {
		if rdf.Equal(q.S, iri) {
			current.Add(rdf.Quad{Triple: q.Triple})
		}
	}

	states := make([]State, len(snapshots))
	for i := len(snapshots) - 1; i >= 0; i-- {
		se := snapshots[i]
		state := current.Clone()
		if se.IsDeletion() {
			state = rdf.NewGraph()
		}
		states[i] = State{At: provenance.Normalize(se.GeneratedAt), Snapshot: se, Graph: state}

		if se.UpdateQuery == "" {
			continue
		}
		u, err := sparql.ParseUpdate(se.UpdateQuery)
		if err != nil {
			r.logger.Warn("skipping malformed update statement",
				"entity", string(iri),
				"snapshot", string(se.IRI),
				"error", err)
			continue
		}
		undo(current, iri, u)
	}

	return &History{Entity: iri, States: r.collapse(iri, states)}
}

// undo reverts u on g, restricted to triples about iri.
func undo(g *rdf.Graph, iri rdf.IRI, u *sparql.Update) {
	for i := len(u.Ops) - 1; i >= 0; i-- {
		op := u.Ops[i]
		for _, q := range op.Quads {
			if !rdf.Equal(q.S, iri) {
				continue
			}
			t := rdf.Quad{Triple: q.Triple}
			switch op.Kind {
			case sparql.UpdateInsert:
				g.Remove(t)
			case sparql.UpdateDelete:
				g.Add(t)
			}
		}
	}
}

// collapse keeps one state per instant. When several snapshots share an
// instant the later one wins; a creation and a deletion at the same
// instant is logged for review.
func (r *Reconstructor) collapse(iri rdf.IRI, states []State) []State {
	var out []State
	for _, s := range states {
		n := len(out)
		if n > 0 && out[n-1].At.Equal(s.At) {
			prev := out[n-1]
			if prev.Deleted() != s.Deleted() {
				r.logger.Warn("creation and deletion at the same instant",
					"entity", string(iri),
					"at", provenance.FormatInstant(s.At),
					"kept", string(s.Snapshot.IRI),
					"dropped", string(prev.Snapshot.IRI))
			}
			out[n-1] = s
			continue
		}
		out = append(out, s)
	}
	return out
}
