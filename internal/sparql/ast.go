package sparql

import "github.com/opencitations/time-agnostic-library-sub000/internal/rdf"

// Node is a sealed interface over AST nodes.
//
// Node types:
//   - *Query: the whole SELECT query
//   - *Group: a { ... } block holding one BGP and its OPTIONAL blocks
//   - *BGP: a basic graph pattern (conjunction of triple patterns)
//   - *Optional: an OPTIONAL { ... } block wrapping a nested Group
type Node interface {
	sparqlNode() // Marker method - seals interface to this package
}

// Query is a parsed SELECT query.
type Query struct {
	// Prefixes maps declared prefix labels to namespace IRIs.
	Prefixes map[string]string

	// Distinct is set for SELECT DISTINCT.
	Distinct bool

	// Projection lists the selected variables in declared order.
	// Empty means SELECT *.
	Projection []rdf.Variable

	// Where is the group graph pattern.
	Where *Group
}

func (*Query) sparqlNode() {}

// Group is a group graph pattern.
type Group struct {
	BGP       *BGP
	Optionals []*Optional
}

func (*Group) sparqlNode() {}

// BGP is a basic graph pattern.
type BGP struct {
	Triples []rdf.Triple
}

func (*BGP) sparqlNode() {}

// Optional is an OPTIONAL block.
type Optional struct {
	Group *Group
}

func (*Optional) sparqlNode() {}

// Variables returns the output variables in declared order. For SELECT *
// it returns every variable of the WHERE clause in order of first
// appearance.
func (q *Query) Variables() []rdf.Variable {
	if len(q.Projection) > 0 {
		out := make([]rdf.Variable, len(q.Projection))
		copy(out, q.Projection)
		return out
	}

	var vars []rdf.Variable
	seen := map[rdf.Variable]bool{}
	for _, t := range Triples(q) {
		for _, v := range t.Variables() {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	return vars
}

// Triples returns every triple pattern under n, required and optional,
// in document order.
func Triples(n Node) []rdf.Triple {
	var out []rdf.Triple
	Walk(n, func(node Node) bool {
		if bgp, ok := node.(*BGP); ok {
			out = append(out, bgp.Triples...)
		}
		return true
	})
	return out
}

// NewSelect builds a query selecting vars over a single BGP.
// An empty vars selects every variable.
func NewSelect(vars []rdf.Variable, triples ...rdf.Triple) *Query {
	return &Query{
		Projection: vars,
		Where:      &Group{BGP: &BGP{Triples: triples}},
	}
}

// WithOptional appends an OPTIONAL block holding triples to the top-level
// group and returns q for chaining.
func (q *Query) WithOptional(triples ...rdf.Triple) *Query {
	q.Where.Optionals = append(q.Where.Optionals, &Optional{
		Group: &Group{BGP: &BGP{Triples: triples}},
	})
	return q
}
