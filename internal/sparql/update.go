package sparql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
)

// UpdateKind distinguishes the two data operations of an update statement.
type UpdateKind int

const (
	UpdateInsert UpdateKind = iota
	UpdateDelete
)

// String returns the SPARQL keyword of the operation.
func (k UpdateKind) String() string {
	switch k {
	case UpdateInsert:
		return "INSERT"
	case UpdateDelete:
		return "DELETE"
	default:
		return "unknown"
	}
}

// UpdateOp is one INSERT DATA or DELETE DATA operation.
type UpdateOp struct {
	Kind  UpdateKind
	Quads []rdf.Quad
}

// Update is a parsed update statement: a sequence of data operations
// applied in order.
type Update struct {
	Ops []UpdateOp
}

// Quads returns the quads of every operation in order.
func (u *Update) Quads() []rdf.Quad {
	var out []rdf.Quad
	for _, op := range u.Ops {
		out = append(out, op.Quads...)
	}
	return out
}

// MalformedUpdateError reports provenance update text that could not be
// parsed. During update mining these are logged and skipped.
type MalformedUpdateError struct {
	Text string
	Err  error
}

func (e *MalformedUpdateError) Error() string {
	text := e.Text
	if len(text) > 80 {
		text = text[:80] + "..."
	}
	return fmt.Sprintf("malformed update statement %q: %v", text, e.Err)
}

func (e *MalformedUpdateError) Unwrap() error {
	return e.Err
}

// IsMalformedUpdate returns true if err is a MalformedUpdateError.
// Uses errors.As to handle wrapped errors.
func IsMalformedUpdate(err error) bool {
	var mu *MalformedUpdateError
	return errors.As(err, &mu)
}

// ParseUpdate parses a sequence of DELETE DATA / INSERT DATA operations.
// An empty (or whitespace-only) statement yields an empty Update.
func ParseUpdate(input string) (*Update, error) {
	if strings.TrimSpace(input) == "" {
		return &Update{}, nil
	}

	toks, err := lex(input)
	if err != nil {
		return nil, &MalformedUpdateError{Text: input, Err: err}
	}
	p := &parser{toks: toks, prefixes: map[string]string{}}

	u := &Update{}
	for {
		if err := p.prologue(); err != nil {
			return nil, &MalformedUpdateError{Text: input, Err: err}
		}
		if p.peek().kind == tokEOF {
			break
		}

		op, err := p.updateOp()
		if err != nil {
			return nil, &MalformedUpdateError{Text: input, Err: err}
		}
		u.Ops = append(u.Ops, op)

		if !p.acceptPunct(";") {
			break
		}
	}

	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &MalformedUpdateError{Text: input, Err: p.errorf("unexpected %s", tok)}
	}
	return u, nil
}

func (p *parser) updateOp() (UpdateOp, error) {
	var op UpdateOp
	switch {
	case p.acceptKeyword("INSERT"):
		op.Kind = UpdateInsert
	case p.acceptKeyword("DELETE"):
		op.Kind = UpdateDelete
	default:
		return op, p.errorf("expected INSERT DATA or DELETE DATA, found %s", p.peek())
	}
	if !p.acceptKeyword("DATA") {
		return op, p.errorf("only DATA operations are supported, found %s", p.peek())
	}
	if err := p.expectPunct("{"); err != nil {
		return op, err
	}

	for {
		switch {
		case p.acceptPunct("}"):
			return op, nil
		case p.acceptPunct("."):
		case p.acceptKeyword("GRAPH"):
			g, err := p.term(false)
			if err != nil {
				return op, err
			}
			graph, ok := g.(rdf.IRI)
			if !ok {
				return op, p.errorf("graph name must be an IRI")
			}
			quads, err := p.quadBlock(graph)
			if err != nil {
				return op, err
			}
			op.Quads = append(op.Quads, quads...)
		case p.peek().kind == tokEOF:
			return op, p.errorf("unterminated data block")
		default:
			triples, err := p.triplesSameSubject(false)
			if err != nil {
				return op, err
			}
			for _, t := range triples {
				op.Quads = append(op.Quads, rdf.Quad{Triple: t})
			}
		}
	}
}

func (p *parser) quadBlock(graph rdf.IRI) ([]rdf.Quad, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var out []rdf.Quad
	for {
		switch {
		case p.acceptPunct("}"):
			return out, nil
		case p.acceptPunct("."):
		case p.peek().kind == tokEOF:
			return nil, p.errorf("unterminated GRAPH block")
		default:
			triples, err := p.triplesSameSubject(false)
			if err != nil {
				return nil, err
			}
			for _, t := range triples {
				if inv, ok := t.P.(rdf.InversePath); ok {
					t = rdf.Triple{S: t.O, P: inv.IRI, O: t.S}
				}
				out = append(out, rdf.Quad{Triple: t, G: graph})
			}
		}
	}
}

// RenderUpdate serializes ops as update text that ParseUpdate accepts.
// Quads in a named graph are wrapped in GRAPH blocks.
func RenderUpdate(u *Update) string {
	var parts []string
	for _, op := range u.Ops {
		if len(op.Quads) == 0 {
			continue
		}
		var b strings.Builder
		b.WriteString(op.Kind.String())
		b.WriteString(" DATA { ")

		byGraph := map[rdf.IRI][]rdf.Quad{}
		var order []rdf.IRI
		for _, q := range op.Quads {
			if _, ok := byGraph[q.G]; !ok {
				order = append(order, q.G)
			}
			byGraph[q.G] = append(byGraph[q.G], q)
		}
		for _, g := range order {
			if g != "" {
				b.WriteString("GRAPH ")
				b.WriteString(rdf.Encode(g))
				b.WriteString(" { ")
			}
			for _, q := range byGraph[g] {
				b.WriteString(q.Triple.String())
				b.WriteString(" . ")
			}
			if g != "" {
				b.WriteString("} ")
			}
		}
		b.WriteString("}")
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "; ")
}
