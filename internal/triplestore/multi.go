package triplestore

import (
	"context"
	"errors"
	"sort"

	"github.com/opencitations/time-agnostic-library-sub000/internal/dialect"
	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
)

// Multi is the union of several gateways. Reads query every member in
// order and merge the results; writes go to every member.
type Multi struct {
	members []Gateway
}

// NewMulti combines gateways. With a single member it returns that member.
func NewMulti(gateways ...Gateway) Gateway {
	if len(gateways) == 1 {
		return gateways[0]
	}
	return &Multi{members: gateways}
}

func (m *Multi) Select(ctx context.Context, q *sparql.Query, graphs ...rdf.IRI) ([]sparql.Binding, error) {
	var all []sparql.Binding
	for _, g := range m.members {
		rows, err := g.Select(ctx, q, graphs...)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return sparql.Dedupe(all, bindingVars(q, all)), nil
}

func (m *Multi) Quads(ctx context.Context, subject rdf.IRI) ([]rdf.Quad, error) {
	merged := rdf.NewGraph()
	for _, g := range m.members {
		quads, err := g.Quads(ctx, subject)
		if err != nil {
			return nil, err
		}
		for _, q := range quads {
			merged.Add(q)
		}
	}
	return merged.Quads(), nil
}

func (m *Multi) MineUpdates(ctx context.Context, d dialect.FullTextDialect, terms []rdf.Term) ([]provenance.UpdateRecord, error) {
	var all []provenance.UpdateRecord
	for _, g := range m.members {
		recs, err := g.MineUpdates(ctx, d, terms)
		if err != nil {
			return nil, err
		}
		all = append(all, recs...)
	}
	return SortRecords(all), nil
}

func (m *Multi) ReplaceGraph(ctx context.Context, graph rdf.IRI, quads []rdf.Quad) error {
	for _, g := range m.members {
		if err := g.ReplaceGraph(ctx, graph, quads); err != nil {
			return err
		}
	}
	return nil
}

func (m *Multi) Close() error {
	var errs []error
	for _, g := range m.members {
		if err := g.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// bindingVars returns the variables to de-duplicate on: the query's output
// variables, extended with any extra variable a backend returned.
func bindingVars(q *sparql.Query, rows []sparql.Binding) []rdf.Variable {
	vars := q.Variables()
	known := map[rdf.Variable]bool{}
	for _, v := range vars {
		known[v] = true
	}
	var extra []rdf.Variable
	for _, row := range rows {
		for v := range row {
			if !known[v] {
				known[v] = true
				extra = append(extra, v)
			}
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(vars, extra...)
}
