package rdf

import "strings"

// Term is a sealed interface over RDF terms and query variables.
// Only IRI, Literal, BlankNode, Variable and InversePath implement it.
type Term interface {
	rdfTerm()

	// String returns the canonical encoding (see Encode).
	String() string
}

// IRI is an absolute IRI without angle brackets.
type IRI string

func (IRI) rdfTerm() {}

func (i IRI) String() string { return Encode(i) }

// Literal is an RDF literal. Datatype and Lang are mutually exclusive;
// a literal with neither is an xsd:string.
type Literal struct {
	Value    string
	Datatype IRI
	Lang     string
}

func (Literal) rdfTerm() {}

func (l Literal) String() string { return Encode(l) }

// BlankNode is a blank node label without the "_:" prefix.
type BlankNode string

func (BlankNode) rdfTerm() {}

func (b BlankNode) String() string { return Encode(b) }

// Variable is a query variable name without the leading "?".
type Variable string

func (Variable) rdfTerm() {}

func (v Variable) String() string { return Encode(v) }

// InversePath wraps a predicate IRI traversed from object to subject (^p).
// It only appears in predicate position of a pattern and is removed by
// Triple.Normalize.
type InversePath struct {
	IRI IRI
}

func (InversePath) rdfTerm() {}

func (p InversePath) String() string { return Encode(p) }

// NewLiteral creates a literal, dropping an explicit xsd:string datatype so
// that "x" and "x"^^xsd:string share one identity.
func NewLiteral(value string, datatype IRI) Literal {
	if datatype == XSDString {
		datatype = ""
	}
	return Literal{Value: value, Datatype: datatype}
}

// NewLangLiteral creates a language-tagged literal. Tags are lowercased.
func NewLangLiteral(value, lang string) Literal {
	return Literal{Value: value, Lang: strings.ToLower(lang)}
}

// IsVariable reports whether t is a query variable.
func IsVariable(t Term) bool {
	_, ok := t.(Variable)
	return ok
}

// IsGround reports whether t is a concrete RDF term (IRI, literal or blank node).
func IsGround(t Term) bool {
	switch t.(type) {
	case IRI, Literal, BlankNode:
		return true
	default:
		return false
	}
}

// Equal compares two terms by canonical encoding. Nil terms are equal only
// to each other.
func Equal(a, b Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Encode(a) == Encode(b)
}
