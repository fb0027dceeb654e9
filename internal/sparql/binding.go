package sparql

import (
	"sort"
	"strings"

	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
)

// Binding maps variables to the terms a solution assigns them.
// Variables left unbound by an OPTIONAL block are absent.
type Binding map[rdf.Variable]rdf.Term

// Clone returns an independent copy.
func (b Binding) Clone() Binding {
	c := make(Binding, len(b))
	for k, v := range b {
		c[k] = v
	}
	return c
}

// Compatible reports whether b and other agree on every shared variable.
func (b Binding) Compatible(other Binding) bool {
	for k, v := range other {
		if mine, ok := b[k]; ok && !rdf.Equal(mine, v) {
			return false
		}
	}
	return true
}

// Merge returns the union of b and other. Callers check Compatible first.
func (b Binding) Merge(other Binding) Binding {
	out := b.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Tuple projects b onto vars. Unbound positions are nil.
func (b Binding) Tuple(vars []rdf.Variable) []rdf.Term {
	out := make([]rdf.Term, len(vars))
	for i, v := range vars {
		out[i] = b[v]
	}
	return out
}

// Key is a canonical identity of b restricted to vars.
func (b Binding) Key(vars []rdf.Variable) string {
	return TupleKey(b.Tuple(vars))
}

// TupleKey is the canonical identity of a tuple; nil positions encode as
// an empty field.
func TupleKey(t []rdf.Term) string {
	parts := make([]string, len(t))
	for i, term := range t {
		parts[i] = rdf.Encode(term)
	}
	return strings.Join(parts, "\x1f")
}

// Dedupe removes bindings that are identical over vars and sorts the rest
// by canonical key, giving deterministic output.
func Dedupe(bindings []Binding, vars []rdf.Variable) []Binding {
	seen := map[string]Binding{}
	for _, b := range bindings {
		k := b.Key(vars)
		if _, ok := seen[k]; !ok {
			seen[k] = b
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Binding, len(keys))
	for i, k := range keys {
		out[i] = seen[k]
	}
	return out
}
