package history

import (
	"sort"
	"time"

	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
)

// State is a resource at one recorded instant.
type State struct {
	// At is the generation instant of Snapshot, normalized to UTC seconds.
	At time.Time

	Snapshot provenance.SnapshotEntity

	// Graph holds the resource's triples in force from At on. It is empty,
	// never nil, when the resource did not exist.
	Graph *rdf.Graph
}

// Deleted reports whether the resource was removed at At.
func (s State) Deleted() bool {
	return s.Snapshot.IsDeletion()
}

// History is the ordered sequence of states of one resource.
type History struct {
	Entity rdf.IRI

	// States are sorted by At with one state per instant.
	States []State
}

// Empty reports whether the resource has no recorded provenance.
func (h *History) Empty() bool {
	return len(h.States) == 0
}

// Instants returns the instants of every state in order.
func (h *History) Instants() []time.Time {
	out := make([]time.Time, len(h.States))
	for i, s := range h.States {
		out[i] = s.At
	}
	return out
}

// At returns the state in force at t: the state with the greatest instant
// not after t.
func (h *History) At(t time.Time) (State, bool) {
	t = provenance.Normalize(t)
	i := sort.Search(len(h.States), func(i int) bool {
		return h.States[i].At.After(t)
	})
	if i == 0 {
		return State{}, false
	}
	return h.States[i-1], true
}

// ChangedAt reports whether a state was recorded exactly at t.
func (h *History) ChangedAt(t time.Time) bool {
	t = provenance.Normalize(t)
	i := sort.Search(len(h.States), func(i int) bool {
		return !h.States[i].At.Before(t)
	})
	return i < len(h.States) && h.States[i].At.Equal(t)
}
