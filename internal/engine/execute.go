package engine

import (
	"context"
	"sort"
	"time"

	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
)

// Tuple is one solution in projection order. Unbound OPTIONAL variables
// are nil.
type Tuple []rdf.Term

// snapshotResult is the outcome of executing the query at one instant.
// A failed instant keeps its place in the timeline so that on_time never
// falls back to an earlier snapshot in its stead.
type snapshotResult struct {
	at     time.Time
	rows   []sparql.Binding
	failed bool
}

// execute runs the query against every aligned snapshot. Instants whose
// execution fails are logged and marked failed.
func (s *session) execute(ctx context.Context) []snapshotResult {
	vars := s.analysis.Variables
	var out []snapshotResult
	for _, at := range s.sink.Instants() {
		rows, err := s.sink.Select(ctx, at, s.analysis.Query)
		if err != nil {
			s.upstreamFailure("execute", err)
			s.o.metrics.OmittedInstants.Inc()
			s.logger.Warn("omitting instant after execution failure",
				"at", provenance.FormatInstant(at),
				"error", err)
			out = append(out, snapshotResult{at: at, failed: true})
			continue
		}
		out = append(out, snapshotResult{at: at, rows: sparql.Dedupe(rows, vars)})
	}
	return out
}

// succeeded drops the failed instants of results.
func succeeded(results []snapshotResult) []snapshotResult {
	out := make([]snapshotResult, 0, len(results))
	for _, r := range results {
		if !r.failed {
			out = append(out, r)
		}
	}
	return out
}

func tuples(rows []sparql.Binding, vars []rdf.Variable) []Tuple {
	out := make([]Tuple, len(rows))
	for i, row := range rows {
		out[i] = Tuple(row.Tuple(vars))
	}
	return out
}

// ParseTarget parses an on_time argument: RFC 3339 with or without zone,
// or a date.
func ParseTarget(s string) (time.Time, error) {
	t, err := provenance.ParseInstant(s)
	if err != nil {
		return time.Time{}, &InstantError{Value: s, Err: err}
	}
	return provenance.Normalize(t), nil
}

// onTime keeps the snapshot with the greatest instant not after target,
// failed or not.
func onTime(results []snapshotResult, target time.Time) ([]snapshotResult, error) {
	i := sort.Search(len(results), func(i int) bool {
		return results[i].at.After(target)
	})
	if i == 0 {
		e := &NoSnapshotError{Target: target}
		if len(results) > 0 {
			e.Earliest = results[0].at
		}
		return nil, e
	}
	return results[i-1 : i], nil
}

// Window bounds an on_time range. A zero bound is open.
type Window struct {
	Start time.Time
	End   time.Time
}

// ParseWindow parses start and end instants; empty strings leave the
// bound open.
func ParseWindow(start, end string) (Window, error) {
	var w Window
	var err error
	if start != "" {
		if w.Start, err = ParseTarget(start); err != nil {
			return Window{}, err
		}
	}
	if end != "" {
		if w.End, err = ParseTarget(end); err != nil {
			return Window{}, err
		}
	}
	return w, nil
}

// within splits results into the snapshots relevant to w (the one in
// force at Start plus every later one up to End) and the excluded ones.
func within(results []snapshotResult, w Window) (kept, excluded []snapshotResult) {
	first := 0
	if !w.Start.IsZero() {
		i := sort.Search(len(results), func(i int) bool {
			return results[i].at.After(w.Start)
		})
		first = i
		if i > 0 {
			first = i - 1
		}
	}
	for i, r := range results {
		switch {
		case i < first:
			excluded = append(excluded, r)
		case !w.End.IsZero() && r.at.After(w.End):
			excluded = append(excluded, r)
		default:
			kept = append(kept, r)
		}
	}
	return kept, excluded
}
