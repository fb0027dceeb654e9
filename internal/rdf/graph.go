package rdf

import (
	"sort"
	"strings"
)

// Triple is a (subject, predicate, object) statement. When any position
// holds a Variable the triple is a pattern; Graph.Match treats variables as
// wildcards.
type Triple struct {
	S Term
	P Term
	O Term
}

// Terms returns the three positions in order.
func (t Triple) Terms() [3]Term {
	return [3]Term{t.S, t.P, t.O}
}

// Variables returns the distinct variables of t in position order.
func (t Triple) Variables() []Variable {
	var vars []Variable
	seen := map[Variable]bool{}
	for _, term := range t.Terms() {
		if v, ok := term.(Variable); ok && !seen[v] {
			seen[v] = true
			vars = append(vars, v)
		}
	}
	return vars
}

// IsGround reports whether every position holds a concrete term.
func (t Triple) IsGround() bool {
	return IsGround(t.S) && IsGround(t.P) && IsGround(t.O)
}

// Normalize rewrites an inverse-path predicate (s ^p o) into (o p s).
func (t Triple) Normalize() Triple {
	if inv, ok := t.P.(InversePath); ok {
		return Triple{S: t.O, P: inv.IRI, O: t.S}
	}
	return t
}

// Substitute replaces variables bound in b. Unbound variables are kept.
func (t Triple) Substitute(b map[Variable]Term) Triple {
	sub := func(term Term) Term {
		if v, ok := term.(Variable); ok {
			if bound, ok := b[v]; ok && bound != nil {
				return bound
			}
		}
		return term
	}
	return Triple{S: sub(t.S), P: sub(t.P), O: sub(t.O)}
}

// String renders the triple as an N-Triples line without the final dot.
func (t Triple) String() string {
	return Encode(t.S) + " " + Encode(t.P) + " " + Encode(t.O)
}

// Quad is a triple inside a named graph. An empty G is the default graph.
type Quad struct {
	Triple
	G IRI
}

// Key returns the canonical identity of the quad.
func (q Quad) Key() string {
	if q.G == "" {
		return q.Triple.String()
	}
	return q.Triple.String() + " " + Encode(q.G)
}

// Graph is a set of quads indexed by subject. The zero value is not usable;
// create graphs with NewGraph.
type Graph struct {
	quads     map[string]Quad
	bySubject map[string]map[string]struct{}
}

// NewGraph creates a graph holding the given quads.
func NewGraph(quads ...Quad) *Graph {
	g := &Graph{
		quads:     make(map[string]Quad),
		bySubject: make(map[string]map[string]struct{}),
	}
	for _, q := range quads {
		g.Add(q)
	}
	return g
}

// Add inserts a quad. Adding an existing quad is a no-op.
func (g *Graph) Add(q Quad) {
	key := q.Key()
	if _, ok := g.quads[key]; ok {
		return
	}
	g.quads[key] = q
	subj := Encode(q.S)
	idx, ok := g.bySubject[subj]
	if !ok {
		idx = make(map[string]struct{})
		g.bySubject[subj] = idx
	}
	idx[key] = struct{}{}
}

// Remove deletes a quad if present.
func (g *Graph) Remove(q Quad) {
	key := q.Key()
	if _, ok := g.quads[key]; !ok {
		return
	}
	delete(g.quads, key)
	subj := Encode(q.S)
	if idx, ok := g.bySubject[subj]; ok {
		delete(idx, key)
		if len(idx) == 0 {
			delete(g.bySubject, subj)
		}
	}
}

// Has reports whether the quad is in the graph.
func (g *Graph) Has(q Quad) bool {
	_, ok := g.quads[q.Key()]
	return ok
}

// Len returns the number of quads.
func (g *Graph) Len() int {
	return len(g.quads)
}

// Quads returns all quads sorted by canonical key.
func (g *Graph) Quads() []Quad {
	keys := make([]string, 0, len(g.quads))
	for k := range g.quads {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Quad, len(keys))
	for i, k := range keys {
		out[i] = g.quads[k]
	}
	return out
}

// Clone returns an independent copy.
func (g *Graph) Clone() *Graph {
	c := NewGraph()
	for _, q := range g.quads {
		c.Add(q)
	}
	return c
}

// AddAll inserts every quad of other.
func (g *Graph) AddAll(other *Graph) {
	if other == nil {
		return
	}
	for _, q := range other.quads {
		g.Add(q)
	}
}

// Equal reports whether both graphs hold the same quads.
func (g *Graph) Equal(other *Graph) bool {
	if g.Len() != other.Len() {
		return false
	}
	for k := range g.quads {
		if _, ok := other.quads[k]; !ok {
			return false
		}
	}
	return true
}

// Match returns the quads matching pattern p in any graph, sorted by key.
// Variables match anything, but a variable repeated across positions must
// bind the same term each time. Inverse paths are normalized first.
func (g *Graph) Match(p Triple) []Quad {
	p = p.Normalize()

	var candidates map[string]struct{}
	if IsGround(p.S) {
		candidates = g.bySubject[Encode(p.S)]
		if len(candidates) == 0 {
			return nil
		}
	}

	var out []Quad
	check := func(q Quad) {
		if matchTriple(p, q.Triple) {
			out = append(out, q)
		}
	}
	if candidates != nil {
		for k := range candidates {
			check(g.quads[k])
		}
	} else {
		for _, q := range g.quads {
			check(q)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// String renders the graph as sorted N-Quads, one statement per line.
func (g *Graph) String() string {
	var b strings.Builder
	for _, q := range g.Quads() {
		b.WriteString(q.Key())
		b.WriteString(" .\n")
	}
	return b.String()
}

func matchTriple(p, t Triple) bool {
	bound := map[Variable]Term{}
	pt, tt := p.Terms(), t.Terms()
	for i := range pt {
		switch v := pt[i].(type) {
		case Variable:
			if prev, ok := bound[v]; ok {
				if !Equal(prev, tt[i]) {
					return false
				}
				continue
			}
			bound[v] = tt[i]
		default:
			if !Equal(pt[i], tt[i]) {
				return false
			}
		}
	}
	return true
}

// BindingsFor returns the variable bindings that make pattern p equal to
// triple t. It assumes t matches p.
func BindingsFor(p, t Triple) map[Variable]Term {
	p = p.Normalize()
	out := map[Variable]Term{}
	pt, tt := p.Terms(), t.Terms()
	for i := range pt {
		if v, ok := pt[i].(Variable); ok {
			out[v] = tt[i]
		}
	}
	return out
}

// Subgraph returns the quads of g that live in one of graphs.
func (g *Graph) Subgraph(graphs ...IRI) *Graph {
	keep := make(map[IRI]bool, len(graphs))
	for _, name := range graphs {
		keep[name] = true
	}
	out := NewGraph()
	for _, q := range g.quads {
		if keep[q.G] {
			out.Add(q)
		}
	}
	return out
}

// RemoveGraph deletes every quad in the named graph.
func (g *Graph) RemoveGraph(name IRI) {
	for _, q := range g.quads {
		if q.G == name {
			g.Remove(q)
		}
	}
}
