package sparqlhttp

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
)

// decodeResults parses a SPARQL JSON result set. Variables absent from a
// row stay unbound.
func decodeResults(body []byte) ([]sparql.Binding, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON result set")
	}
	res := gjson.ParseBytes(body)
	bindings := res.Get("results.bindings")
	if !bindings.IsArray() {
		return nil, fmt.Errorf("result set has no results.bindings array")
	}

	var out []sparql.Binding
	var decodeErr error
	bindings.ForEach(func(_, row gjson.Result) bool {
		b := sparql.Binding{}
		row.ForEach(func(name, value gjson.Result) bool {
			term, err := decodeTerm(value)
			if err != nil {
				decodeErr = fmt.Errorf("variable %s: %w", name.String(), err)
				return false
			}
			b[rdf.Variable(name.String())] = term
			return true
		})
		if decodeErr != nil {
			return false
		}
		out = append(out, b)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return out, nil
}

func decodeTerm(v gjson.Result) (rdf.Term, error) {
	value := v.Get("value").String()
	switch v.Get("type").String() {
	case "uri":
		return rdf.IRI(value), nil
	case "bnode":
		return rdf.BlankNode(value), nil
	case "literal", "typed-literal":
		if lang := v.Get("xml:lang"); lang.Exists() {
			return rdf.NewLangLiteral(value, lang.String()), nil
		}
		return rdf.NewLiteral(value, rdf.IRI(v.Get("datatype").String())), nil
	default:
		return nil, fmt.Errorf("unknown term type %q", v.Get("type").String())
	}
}
