package pattern

import (
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
)

// Analysis is the result of analyzing a query.
type Analysis struct {
	// Query is the parsed query.
	Query *sparql.Query

	// Triples are the normalized patterns of the query (required and
	// optional) in document order.
	Triples []rdf.Triple

	// Hooks are the isolated patterns. Each carries at least one bound
	// term and is an entry point for entity discovery.
	Hooks []rdf.Triple

	// Anchored are the patterns linked to a bound subject IRI.
	Anchored []rdf.Triple

	// Variables are the output variables in projection order.
	Variables []rdf.Variable
}

// Analyze parses text and analyzes the resulting query.
func Analyze(text string) (*Analysis, error) {
	q, err := sparql.ParseQuery(text)
	if err != nil {
		return nil, &QueryShapeError{Message: "query is not a single SELECT graph pattern", Err: err}
	}
	return AnalyzeQuery(q)
}

// AnalyzeQuery decomposes q and classifies every pattern.
func AnalyzeQuery(q *sparql.Query) (*Analysis, error) {
	triples, err := Decompose(q)
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Query:     q,
		Triples:   triples,
		Variables: q.Variables(),
	}
	for i, t := range triples {
		if isIsolatedAt(i, triples) {
			a.Hooks = append(a.Hooks, t)
		} else {
			a.Anchored = append(a.Anchored, t)
		}
	}
	return a, nil
}

// Decompose returns the normalized triple patterns of q.
//
// It fails with a QueryShapeError when the query has no patterns, when a
// pattern has variables in all three positions, or when no pattern carries
// a bound IRI or literal.
func Decompose(q *sparql.Query) ([]rdf.Triple, error) {
	if q == nil || q.Where == nil {
		return nil, &QueryShapeError{Message: "query has no WHERE clause"}
	}

	var triples []rdf.Triple
	sparql.Walk(q, func(n sparql.Node) bool {
		if bgp, ok := n.(*sparql.BGP); ok {
			for _, t := range bgp.Triples {
				triples = append(triples, t.Normalize())
			}
		}
		return true
	})

	if len(triples) == 0 {
		return nil, &QueryShapeError{Message: "query has no triple patterns"}
	}

	hasHook := false
	for i := range triples {
		t := triples[i]
		if len(t.Variables()) > 0 && allVariables(t) {
			return nil, &QueryShapeError{Message: "pattern has variables in every position", Pattern: &t}
		}
		if hasBoundTerm(t) {
			hasHook = true
		}
	}
	if !hasHook {
		return nil, &QueryShapeError{Message: "no pattern contains a bound IRI or literal"}
	}

	return triples, nil
}

// IsIsolated reports whether p is isolated among all. When p is one of
// all it is excluded (once) when searching for links.
//
// A pattern with a bound subject IRI is anchored. Otherwise the pattern is
// isolated unless at least one of its variables is closed: some other
// pattern holds the variable in object position and that pattern's subject
// is a bound IRI or, recursively, a closed variable.
func IsIsolated(p rdf.Triple, all []rdf.Triple) bool {
	for i, t := range all {
		if sameTriple(t, p) {
			return isIsolatedAt(i, all)
		}
	}
	return isIsolatedAt(len(all), append(all[:len(all):len(all)], p))
}

func isIsolatedAt(idx int, all []rdf.Triple) bool {
	p := all[idx]
	if _, ok := p.S.(rdf.IRI); ok {
		return false
	}

	vars := p.Variables()
	if len(vars) == 0 {
		return false
	}

	others := without(all, idx)
	for _, v := range vars {
		if isClosed(v, others) {
			return false
		}
	}
	return true
}

// IsClosed reports whether v is reachable in object position through a
// chain of patterns in all starting at a bound subject IRI.
func IsClosed(v rdf.Variable, all []rdf.Triple) bool {
	return isClosed(v, all)
}

// isClosed searches triples for a chain ending at a bound subject IRI that
// reaches v in object position. Each pattern is used at most once per
// chain, which also guarantees termination on cyclic queries.
func isClosed(v rdf.Variable, triples []rdf.Triple) bool {
	for i, t := range triples {
		if !rdf.Equal(t.O, v) {
			continue
		}
		switch subj := t.S.(type) {
		case rdf.IRI:
			return true
		case rdf.Variable:
			if subj != v && isClosed(subj, without(triples, i)) {
				return true
			}
		}
	}
	return false
}

func without(triples []rdf.Triple, idx int) []rdf.Triple {
	out := make([]rdf.Triple, 0, len(triples))
	for i, t := range triples {
		if i != idx {
			out = append(out, t)
		}
	}
	return out
}

func allVariables(t rdf.Triple) bool {
	return rdf.IsVariable(t.S) && rdf.IsVariable(t.P) && rdf.IsVariable(t.O)
}

func hasBoundTerm(t rdf.Triple) bool {
	for _, term := range t.Terms() {
		switch term.(type) {
		case rdf.IRI, rdf.Literal:
			return true
		}
	}
	return false
}

func sameTriple(a, b rdf.Triple) bool {
	return rdf.Equal(a.S, b.S) && rdf.Equal(a.P, b.P) && rdf.Equal(a.O, b.O)
}

// BoundTerms returns the distinct IRIs and literals of p in position
// order.
func BoundTerms(p rdf.Triple) []rdf.Term {
	var out []rdf.Term
	seen := map[string]bool{}
	for _, term := range p.Terms() {
		switch term.(type) {
		case rdf.IRI, rdf.Literal:
			if key := rdf.Encode(term); !seen[key] {
				seen[key] = true
				out = append(out, term)
			}
		}
	}
	return out
}
