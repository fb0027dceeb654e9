package rdf

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Encode returns the canonical encoding of a term.
//
//	IRI          <http://example.org/a>
//	Literal      "lex"  "lex"@en  "lex"^^<datatype>
//	BlankNode    _:b0
//	Variable     ?name
//	InversePath  ^<http://example.org/p>
//
// Literal lexical forms are NFC normalized at this boundary, so terms that
// differ only in Unicode composition encode identically.
func Encode(t Term) string {
	switch v := t.(type) {
	case IRI:
		return "<" + string(v) + ">"
	case Literal:
		var b strings.Builder
		b.WriteByte('"')
		b.WriteString(escapeLiteral(norm.NFC.String(v.Value)))
		b.WriteByte('"')
		switch {
		case v.Lang != "":
			b.WriteByte('@')
			b.WriteString(strings.ToLower(v.Lang))
		case v.Datatype != "" && v.Datatype != XSDString:
			b.WriteString("^^<")
			b.WriteString(string(v.Datatype))
			b.WriteByte('>')
		}
		return b.String()
	case BlankNode:
		return "_:" + string(v)
	case Variable:
		return "?" + string(v)
	case InversePath:
		return "^<" + string(v.IRI) + ">"
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ParseTerm decodes a canonical term encoding produced by Encode.
// Variables and inverse paths are accepted so that patterns round-trip.
func ParseTerm(s string) (Term, error) {
	if s == "" {
		return nil, fmt.Errorf("parse term: empty input")
	}

	switch {
	case strings.HasPrefix(s, "<"):
		if !strings.HasSuffix(s, ">") || len(s) < 2 {
			return nil, fmt.Errorf("parse term: unterminated IRI %q", s)
		}
		return IRI(s[1 : len(s)-1]), nil
	case strings.HasPrefix(s, "^<"):
		inner, err := ParseTerm(s[1:])
		if err != nil {
			return nil, err
		}
		return InversePath{IRI: inner.(IRI)}, nil
	case strings.HasPrefix(s, "_:"):
		return BlankNode(s[2:]), nil
	case strings.HasPrefix(s, "?"):
		return Variable(s[1:]), nil
	case strings.HasPrefix(s, `"`):
		return parseLiteral(s)
	default:
		return nil, fmt.Errorf("parse term: unrecognized encoding %q", s)
	}
}

// MustParseTerm is like ParseTerm but panics on error.
// Use only in tests or with encodings known to be valid.
func MustParseTerm(s string) Term {
	t, err := ParseTerm(s)
	if err != nil {
		panic(err)
	}
	return t
}

func parseLiteral(s string) (Term, error) {
	// Find the closing quote, skipping escaped characters.
	end := -1
	for i := 1; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == '"' {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, fmt.Errorf("parse term: unterminated literal %q", s)
	}

	value, err := unescapeLiteral(s[1:end])
	if err != nil {
		return nil, fmt.Errorf("parse term: %w", err)
	}

	rest := s[end+1:]
	switch {
	case rest == "":
		return Literal{Value: value}, nil
	case strings.HasPrefix(rest, "@"):
		return NewLangLiteral(value, rest[1:]), nil
	case strings.HasPrefix(rest, "^^<") && strings.HasSuffix(rest, ">"):
		return NewLiteral(value, IRI(rest[3:len(rest)-1])), nil
	default:
		return nil, fmt.Errorf("parse term: bad literal suffix %q", rest)
	}
}

func escapeLiteral(s string) string {
	if !strings.ContainsAny(s, "\\\"\n\r\t") {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func unescapeLiteral(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			return "", fmt.Errorf("dangling escape in %q", s)
		}
		i++
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case '\'':
			b.WriteByte('\'')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			return "", fmt.Errorf("unknown escape \\%c", s[i])
		}
	}
	return b.String(), nil
}
