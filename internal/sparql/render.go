package sparql

import (
	"strings"

	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
)

// Render serializes q as SPARQL text. Each graph in from adds a FROM
// clause, which scopes the default graph to the union of those graphs.
// Prefixes are not emitted; every IRI is written in full.
func Render(q *Query, from ...rdf.IRI) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	if len(q.Projection) == 0 {
		b.WriteString("*")
	} else {
		for i, v := range q.Projection {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(rdf.Encode(v))
		}
	}
	b.WriteByte('\n')
	for _, g := range from {
		b.WriteString("FROM ")
		b.WriteString(rdf.Encode(g))
		b.WriteByte('\n')
	}
	b.WriteString("WHERE ")
	renderGroup(&b, q.Where, 0)
	return b.String()
}

func renderGroup(b *strings.Builder, g *Group, depth int) {
	indent := strings.Repeat("  ", depth+1)
	b.WriteString("{\n")
	if g != nil {
		if g.BGP != nil {
			for _, t := range g.BGP.Triples {
				b.WriteString(indent)
				b.WriteString(t.String())
				b.WriteString(" .\n")
			}
		}
		for _, opt := range g.Optionals {
			b.WriteString(indent)
			b.WriteString("OPTIONAL ")
			renderGroup(b, opt.Group, depth+1)
			b.WriteByte('\n')
		}
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString("}")
}
