package dialect

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencitations/time-agnostic-library-sub000/internal/config"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
)

func cfgWith(mut func(*config.Config)) *config.Config {
	cfg := config.Default()
	mut(cfg)
	return cfg
}

func TestFromConfig(t *testing.T) {
	testCases := []struct {
		name string
		cfg  *config.Config
		want string
	}{
		{"none enabled", cfgWith(func(*config.Config) {}), "substring"},
		{"blazegraph", cfgWith(func(c *config.Config) { c.BlazegraphFullTextSearch = "yes" }), "blazegraph"},
		{"fuseki", cfgWith(func(c *config.Config) { c.FusekiFullTextSearch = "yes" }), "fuseki"},
		{"virtuoso", cfgWith(func(c *config.Config) { c.VirtuosoFullTextSearch = "yes" }), "virtuoso"},
		{"graphdb", cfgWith(func(c *config.Config) {
			c.GraphDBFullTextSearch = "yes"
			c.ConnectorName = "fts"
		}), "graphdb"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := FromConfig(tc.cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, d.Name())
		})
	}
}

func TestFromConfig_Errors(t *testing.T) {
	testCases := []struct {
		name string
		cfg  *config.Config
	}{
		{"two enabled", cfgWith(func(c *config.Config) {
			c.BlazegraphFullTextSearch = "yes"
			c.VirtuosoFullTextSearch = "yes"
		})},
		{"unrecognized value", cfgWith(func(c *config.Config) { c.FusekiFullTextSearch = "true" })},
		{"graphdb without connector", cfgWith(func(c *config.Config) { c.GraphDBFullTextSearch = "yes" })},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromConfig(tc.cfg)
			require.Error(t, err)
			assert.True(t, config.IsConfigError(err))
		})
	}
}

func TestSearchFragments(t *testing.T) {
	terms := []string{"http://x/ra/4", "http://x/p"}
	se, upd := rdf.Variable("se"), rdf.Variable("u")

	assert.Equal(t,
		"FILTER CONTAINS(STR(?u), \"http://x/ra/4\")\nFILTER CONTAINS(STR(?u), \"http://x/p\")\n",
		Substring{}.SearchFragment(se, upd, terms))

	bg := Blazegraph{}.SearchFragment(se, upd, terms)
	assert.Contains(t, bg, `?u <http://www.bigdata.com/rdf/search#search> "http://x/ra/4 http://x/p"`)
	assert.Contains(t, bg, `<http://www.bigdata.com/rdf/search#matchAllTerms> "true"`)

	fu := Fuseki{}.SearchFragment(se, upd, terms)
	assert.Contains(t, fu, `?se <http://jena.apache.org/text#query> (<https://w3id.org/oc/ontology/hasUpdateQuery>`)
	assert.Contains(t, fu, `AND`)

	assert.Contains(t, Virtuoso{}.SearchFragment(se, upd, terms), `?u <bif:contains> "'http://x/ra/4' AND 'http://x/p'"`)

	gd := GraphDB{Connector: "fts"}.SearchFragment(se, upd, terms)
	assert.Contains(t, gd, "lucene/instance#fts>")
	assert.Contains(t, gd, "lucene#entities> ?se")
}

func TestMiningQuery(t *testing.T) {
	q := MiningQuery(Substring{}, []rdf.Term{rdf.IRI("http://x/ra/4")})
	assert.Contains(t, q, "SELECT DISTINCT ?se ?entity ?updateQuery WHERE {")
	assert.Contains(t, q, "?se <https://w3id.org/oc/ontology/hasUpdateQuery> ?updateQuery")
	assert.Contains(t, q, "<http://www.w3.org/ns/prov#specializationOf> ?entity")
	assert.Contains(t, q, `FILTER CONTAINS(STR(?updateQuery), "http://x/ra/4")`)
}

var iriRef = regexp.MustCompile(`<[^<>"\s]+>`)

func TestMiningQuery_WellFormedIRIs(t *testing.T) {
	terms := []rdf.Term{rdf.IRI("http://x/ra/4"), rdf.Literal{Value: "Old"}}
	dialects := []FullTextDialect{Substring{}, Blazegraph{}, Fuseki{}, Virtuoso{}, GraphDB{Connector: "fts"}}

	for _, d := range dialects {
		t.Run(d.Name(), func(t *testing.T) {
			q := MiningQuery(d, terms)
			assert.NotContains(t, q, "<<")
			rest := iriRef.ReplaceAllString(q, "")
			assert.NotContains(t, rest, "<", "every IRI reference is bracketed once: %s", q)
			assert.NotContains(t, rest, ">", "every IRI reference is bracketed once: %s", q)
		})
	}
}

func TestMiningQuery_Parses(t *testing.T) {
	q, err := sparql.ParseQuery(MiningQuery(Blazegraph{}, []rdf.Term{rdf.IRI("http://x/ra/4")}))
	require.NoError(t, err)
	assert.Equal(t, []rdf.Variable{VarSnapshot, VarEntity, VarUpdate}, q.Variables())
}

func TestSearchTerms(t *testing.T) {
	got := SearchTerms([]rdf.Term{
		rdf.IRI("http://x/ra/4"),
		rdf.NewLangLiteral("Old", "en"),
		rdf.Variable("a"),
		rdf.BlankNode("b0"),
	})
	assert.Equal(t, []string{"http://x/ra/4", "Old"}, got)
}
