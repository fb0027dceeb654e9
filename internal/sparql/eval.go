package sparql

import "github.com/opencitations/time-agnostic-library-sub000/internal/rdf"

// Evaluate runs q against g and returns its solutions projected onto
// q.Variables(). Results are de-duplicated and sorted; the engine treats
// query answers as sets.
func Evaluate(q *Query, g *rdf.Graph) []Binding {
	sols := evalGroup(q.Where, g, []Binding{{}})
	vars := q.Variables()

	projected := make([]Binding, 0, len(sols))
	for _, s := range sols {
		p := Binding{}
		for _, v := range vars {
			if t, ok := s[v]; ok {
				p[v] = t
			}
		}
		projected = append(projected, p)
	}
	return Dedupe(projected, vars)
}

// MatchPattern returns the bindings of the variables of a single pattern
// against g.
func MatchPattern(p rdf.Triple, g *rdf.Graph) []Binding {
	return Evaluate(NewSelect(nil, p), g)
}

func evalGroup(group *Group, g *rdf.Graph, input []Binding) []Binding {
	if group == nil {
		return input
	}

	sols := input
	if group.BGP != nil {
		for _, pattern := range group.BGP.Triples {
			sols = joinPattern(sols, pattern, g)
			if len(sols) == 0 {
				return nil
			}
		}
	}

	for _, opt := range group.Optionals {
		var next []Binding
		for _, s := range sols {
			ext := evalGroup(opt.Group, g, []Binding{s})
			if len(ext) == 0 {
				next = append(next, s)
				continue
			}
			next = append(next, ext...)
		}
		sols = next
	}
	return sols
}

func joinPattern(sols []Binding, pattern rdf.Triple, g *rdf.Graph) []Binding {
	pattern = pattern.Normalize()
	var out []Binding
	for _, s := range sols {
		bound := pattern.Substitute(s)
		for _, quad := range g.Match(bound) {
			ext := Binding(rdf.BindingsFor(bound, quad.Triple))
			if !s.Compatible(ext) {
				continue
			}
			out = append(out, s.Merge(ext))
		}
	}
	return out
}
