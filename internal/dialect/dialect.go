// Package dialect builds the full-text search fragment used when mining
// provenance update statements for IRIs.
//
// A dialect is chosen once from configuration and injected into the
// gateways. Only the search fragment differs between triplestores; the
// surrounding mining query is shared (see MiningQuery).
package dialect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opencitations/time-agnostic-library-sub000/internal/config"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
)

// FullTextDialect renders the graph pattern that restricts updateVar (the
// update statement literal of snapshot seVar) to statements mentioning
// every term.
type FullTextDialect interface {
	Name() string
	SearchFragment(seVar, updateVar rdf.Variable, terms []string) string
}

// Substring matches with FILTER CONTAINS. It works everywhere but scans
// every update statement.
type Substring struct{}

func (Substring) Name() string { return "substring" }

func (Substring) SearchFragment(_, updateVar rdf.Variable, terms []string) string {
	var b strings.Builder
	for _, t := range terms {
		fmt.Fprintf(&b, "FILTER CONTAINS(STR(%s), %s)\n", rdf.Encode(updateVar), quote(t))
	}
	return b.String()
}

// Blazegraph uses the bds:search magic predicate with matchAllTerms.
type Blazegraph struct{}

func (Blazegraph) Name() string { return "blazegraph" }

func (Blazegraph) SearchFragment(_, updateVar rdf.Variable, terms []string) string {
	v := rdf.Encode(updateVar)
	return fmt.Sprintf("%s <http://www.bigdata.com/rdf/search#search> %s .\n%s <http://www.bigdata.com/rdf/search#matchAllTerms> \"true\" .\n",
		v, quote(strings.Join(terms, " ")), v)
}

// Fuseki uses the jena-text text:query property function on the update
// predicate.
type Fuseki struct{}

func (Fuseki) Name() string { return "fuseki" }

func (Fuseki) SearchFragment(seVar, _ rdf.Variable, terms []string) string {
	return fmt.Sprintf("%s <http://jena.apache.org/text#query> (%s %s) .\n",
		rdf.Encode(seVar), rdf.Encode(rdf.OCOHasUpdateQuery), quote(luceneAll(terms)))
}

// Virtuoso uses bif:contains.
type Virtuoso struct{}

func (Virtuoso) Name() string { return "virtuoso" }

func (Virtuoso) SearchFragment(_, updateVar rdf.Variable, terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = "'" + strings.ReplaceAll(t, "'", "") + "'"
	}
	return fmt.Sprintf("%s <bif:contains> %s .\n", rdf.Encode(updateVar), quote(strings.Join(quoted, " AND ")))
}

// GraphDB queries a Lucene connector instance by name.
type GraphDB struct {
	Connector string
}

func (GraphDB) Name() string { return "graphdb" }

func (d GraphDB) SearchFragment(seVar, _ rdf.Variable, terms []string) string {
	return fmt.Sprintf("[] a <http://www.ontotext.com/connectors/lucene/instance#%s> ;\n"+
		"   <http://www.ontotext.com/connectors/lucene#query> %s ;\n"+
		"   <http://www.ontotext.com/connectors/lucene#entities> %s .\n",
		d.Connector, quote(luceneAll(terms)), rdf.Encode(seVar))
}

// FromConfig selects the dialect enabled in cfg. At most one full-text flag
// may be "yes"; with none the Substring dialect is used.
func FromConfig(cfg *config.Config) (FullTextDialect, error) {
	flags := cfg.FullTextFlags()
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)

	var enabled []string
	for _, name := range names {
		field := name + "_full_text_search"
		switch flags[name] {
		case "yes":
			enabled = append(enabled, name)
		case "no", "":
		default:
			return nil, &config.ConfigError{Field: field, Message: fmt.Sprintf("expected \"yes\" or \"no\", got %q", flags[name])}
		}
	}

	switch len(enabled) {
	case 0:
		return Substring{}, nil
	case 1:
	default:
		return nil, &config.ConfigError{
			Message: fmt.Sprintf("only one full-text search backend may be enabled, got %s", strings.Join(enabled, ", ")),
		}
	}

	switch enabled[0] {
	case "blazegraph":
		return Blazegraph{}, nil
	case "fuseki":
		return Fuseki{}, nil
	case "virtuoso":
		return Virtuoso{}, nil
	default:
		if cfg.ConnectorName == "" {
			return nil, &config.ConfigError{Field: "connector_name", Message: "required when graphdb_full_text_search is enabled"}
		}
		return GraphDB{Connector: cfg.ConnectorName}, nil
	}
}

// Mining query variables.
const (
	VarSnapshot rdf.Variable = "se"
	VarEntity   rdf.Variable = "entity"
	VarUpdate   rdf.Variable = "updateQuery"
)

// SearchTerms returns the lexical forms searched for in update
// statements: the IRI text without brackets and the literal value.
// Variables and blank nodes are skipped.
func SearchTerms(terms []rdf.Term) []string {
	var out []string
	for _, t := range terms {
		switch v := t.(type) {
		case rdf.IRI:
			out = append(out, string(v))
		case rdf.Literal:
			out = append(out, v.Value)
		}
	}
	return out
}

// MiningQuery returns a SELECT over provenance finding the update
// statements that mention every term in terms.
func MiningQuery(d FullTextDialect, terms []rdf.Term) string {
	search := SearchTerms(terms)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT DISTINCT %s %s %s WHERE {\n", rdf.Encode(VarSnapshot), rdf.Encode(VarEntity), rdf.Encode(VarUpdate))
	fmt.Fprintf(&b, "%s %s %s ;\n", rdf.Encode(VarSnapshot), rdf.Encode(rdf.OCOHasUpdateQuery), rdf.Encode(VarUpdate))
	fmt.Fprintf(&b, "   %s %s .\n", rdf.Encode(rdf.ProvSpecializationOf), rdf.Encode(VarEntity))
	b.WriteString(d.SearchFragment(VarSnapshot, VarUpdate, search))
	b.WriteString("}")
	return b.String()
}

func quote(s string) string {
	return rdf.Encode(rdf.Literal{Value: s})
}

func luceneAll(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `\"`) + `"`
	}
	return strings.Join(quoted, " AND ")
}
