package sparql

import (
	"fmt"
	"strings"

	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
)

const (
	xsdInteger = rdf.NSXSD + "integer"
	xsdDecimal = rdf.NSXSD + "decimal"
	xsdBoolean = rdf.NSXSD + "boolean"
)

// ParseQuery parses a SELECT query in the supported fragment.
func ParseQuery(input string) (*Query, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, prefixes: map[string]string{}}

	if err := p.prologue(); err != nil {
		return nil, err
	}

	q := &Query{Prefixes: p.prefixes}
	if !p.acceptKeyword("SELECT") {
		return nil, p.errorf("expected SELECT, found %s", p.peek())
	}
	if p.acceptKeyword("DISTINCT") || p.acceptKeyword("REDUCED") {
		q.Distinct = true
	}

	if p.acceptPunct("*") {
		// SELECT * leaves Projection empty
	} else {
		for p.peek().kind == tokVar {
			q.Projection = append(q.Projection, rdf.Variable(p.next().text))
		}
		if len(q.Projection) == 0 {
			return nil, p.errorf("expected projection variables or *, found %s", p.peek())
		}
	}

	p.acceptKeyword("WHERE")
	group, err := p.group()
	if err != nil {
		return nil, err
	}
	q.Where = group

	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf("unsupported trailing clause %s", tok)
	}
	return q, nil
}

// MustParseQuery is like ParseQuery but panics on error.
// Use only in tests or with queries known to be valid.
func MustParseQuery(input string) *Query {
	q, err := ParseQuery(input)
	if err != nil {
		panic(err)
	}
	return q
}

type parser struct {
	toks     []token
	pos      int
	prefixes map[string]string
	base     string
	blanks   int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Pos: p.peek().pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) isKeyword(word string) bool {
	t := p.peek()
	return t.kind == tokKeyword && strings.EqualFold(t.text, word)
}

func (p *parser) acceptKeyword(word string) bool {
	if p.isKeyword(word) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) acceptPunct(s string) bool {
	t := p.peek()
	if t.kind == tokPunct && t.text == s {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectPunct(s string) error {
	if !p.acceptPunct(s) {
		return p.errorf("expected %q, found %s", s, p.peek())
	}
	return nil
}

// prologue consumes PREFIX and BASE declarations.
func (p *parser) prologue() error {
	for {
		switch {
		case p.acceptKeyword("PREFIX"):
			name := p.next()
			if name.kind != tokPName || !strings.HasSuffix(name.text, ":") {
				return p.errorf("expected prefix label, found %s", name)
			}
			iri := p.next()
			if iri.kind != tokIRI {
				return p.errorf("expected namespace IRI, found %s", iri)
			}
			p.prefixes[strings.TrimSuffix(name.text, ":")] = p.resolve(iri.text)
		case p.acceptKeyword("BASE"):
			iri := p.next()
			if iri.kind != tokIRI {
				return p.errorf("expected base IRI, found %s", iri)
			}
			p.base = iri.text
		default:
			return nil
		}
	}
}

func (p *parser) resolve(iri string) string {
	if p.base != "" && !strings.Contains(iri, ":") {
		return p.base + iri
	}
	return iri
}

// group parses { ... } into a Group.
func (p *parser) group() (*Group, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	g := &Group{BGP: &BGP{}}
	for {
		switch {
		case p.acceptPunct("}"):
			return g, nil
		case p.acceptPunct("."):
			// Stray separators are allowed between blocks
		case p.acceptKeyword("OPTIONAL"):
			inner, err := p.group()
			if err != nil {
				return nil, err
			}
			g.Optionals = append(g.Optionals, &Optional{Group: inner})
		case p.peek().kind == tokEOF:
			return nil, p.errorf("unterminated group")
		case p.peek().kind == tokKeyword && !p.isKeyword("a") && !p.isKeyword("true") && !p.isKeyword("false"):
			return nil, p.errorf("unsupported keyword %s", p.peek())
		case p.peek().kind == tokPunct && p.peek().text == "{":
			return nil, p.errorf("nested groups are not supported")
		default:
			triples, err := p.triplesSameSubject(true)
			if err != nil {
				return nil, err
			}
			g.BGP.Triples = append(g.BGP.Triples, triples...)
		}
	}
}

// triplesSameSubject parses "s p o (, o)* (; p o)*".
func (p *parser) triplesSameSubject(allowVars bool) ([]rdf.Triple, error) {
	subj, err := p.term(allowVars)
	if err != nil {
		return nil, err
	}
	if _, isLit := subj.(rdf.Literal); isLit {
		return nil, p.errorf("literal in subject position")
	}

	var out []rdf.Triple
	for {
		verb, err := p.verb(allowVars)
		if err != nil {
			return nil, err
		}
		for {
			obj, err := p.term(allowVars)
			if err != nil {
				return nil, err
			}
			out = append(out, rdf.Triple{S: subj, P: verb, O: obj})
			if !p.acceptPunct(",") {
				break
			}
		}
		if !p.acceptPunct(";") {
			break
		}
		// A dangling ';' before '.' or '}' is legal.
		if t := p.peek(); t.kind == tokPunct && (t.text == "." || t.text == "}") {
			break
		}
	}
	return out, nil
}

func (p *parser) verb(allowVars bool) (rdf.Term, error) {
	if p.acceptKeyword("a") {
		return rdf.RDFType, nil
	}
	if p.acceptPunct("^") {
		t, err := p.term(false)
		if err != nil {
			return nil, err
		}
		iri, ok := t.(rdf.IRI)
		if !ok {
			return nil, p.errorf("inverse path requires an IRI")
		}
		return rdf.InversePath{IRI: iri}, nil
	}
	t, err := p.term(allowVars)
	if err != nil {
		return nil, err
	}
	switch t.(type) {
	case rdf.IRI, rdf.Variable:
		return t, nil
	default:
		return nil, p.errorf("predicate must be an IRI or variable")
	}
}

// term parses a single RDF term or variable.
func (p *parser) term(allowVars bool) (rdf.Term, error) {
	tok := p.next()
	switch tok.kind {
	case tokIRI:
		return rdf.IRI(p.resolve(tok.text)), nil
	case tokPName:
		return p.expandPName(tok)
	case tokVar:
		if !allowVars {
			return nil, &SyntaxError{Pos: tok.pos, Message: "variables are not allowed here"}
		}
		return rdf.Variable(tok.text), nil
	case tokBlank:
		if tok.text == "" {
			p.blanks++
			return rdf.BlankNode(fmt.Sprintf("b%d", p.blanks)), nil
		}
		return rdf.BlankNode(tok.text), nil
	case tokNumber:
		if strings.Contains(tok.text, ".") {
			return rdf.NewLiteral(tok.text, xsdDecimal), nil
		}
		return rdf.NewLiteral(tok.text, xsdInteger), nil
	case tokString:
		if lang := p.peek(); lang.kind == tokLangTag {
			p.pos++
			return rdf.NewLangLiteral(tok.text, lang.text), nil
		}
		if p.acceptPunct("^^") {
			dt, err := p.term(false)
			if err != nil {
				return nil, err
			}
			iri, ok := dt.(rdf.IRI)
			if !ok {
				return nil, p.errorf("datatype must be an IRI")
			}
			return rdf.NewLiteral(tok.text, iri), nil
		}
		return rdf.Literal{Value: tok.text}, nil
	case tokKeyword:
		switch strings.ToLower(tok.text) {
		case "true", "false":
			return rdf.NewLiteral(strings.ToLower(tok.text), xsdBoolean), nil
		}
	}
	return nil, &SyntaxError{Pos: tok.pos, Message: fmt.Sprintf("expected term, found %s", tok)}
}

func (p *parser) expandPName(tok token) (rdf.Term, error) {
	idx := strings.IndexByte(tok.text, ':')
	prefix, local := tok.text[:idx], tok.text[idx+1:]
	ns, ok := p.prefixes[prefix]
	if !ok {
		return nil, &SyntaxError{Pos: tok.pos, Message: fmt.Sprintf("undeclared prefix %q", prefix)}
	}
	return rdf.IRI(ns + local), nil
}
