package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rolesBase = "https://github.com/arcangelo7/time_agnostic/"

func rolesScenario(name string) *Scenario {
	return &Scenario{
		Name:        name,
		Description: "test",
		Fixture:     filepath.Join("testdata", "fixtures", "roles.yaml"),
		Query: "PREFIX pro: <http://purl.org/spar/pro/>\n" +
			"SELECT ?ra WHERE { <" + rolesBase + "ar/1> pro:isHeldBy ?ra }",
		Assertions: []Assertion{{Type: AssertInstants, Instants: []string{
			"2021-05-07T09:59:15+00:00",
			"2021-06-01T10:00:00+00:00",
		}}},
	}
}

func TestRun_StoresAgree(t *testing.T) {
	var outputs []*Output
	for _, variant := range []struct{ store, cache string }{
		{"", ""},
		{"sqlite", ""},
		{"", "sqlite"},
		{"sqlite", "sqlite"},
	} {
		s := rolesScenario("stores")
		s.Store, s.Cache = variant.store, variant.cache

		result, err := Run(s)
		require.NoError(t, err)
		assert.True(t, result.Pass, "store=%q cache=%q: %v", variant.store, variant.cache, result.Errors)
		outputs = append(outputs, result.Output)
	}
	for _, out := range outputs[1:] {
		assert.Equal(t, outputs[0], out)
	}
}

func TestRun_FailingAssertionFailsResult(t *testing.T) {
	s := rolesScenario("failing")
	s.Assertions = []Assertion{
		{Type: AssertRows, At: "2021-05-07T09:59:15+00:00", Rows: [][]string{{"<ra/2>"}}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertion 0 (rows)")
}

func TestRun_ClassifiedErrorIsOutput(t *testing.T) {
	s := rolesScenario("bad_instant")
	s.At = "not a date"
	s.Assertions = []Assertion{{Type: AssertError, Kind: ErrorInvalidInstant}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "%v", result.Errors)
	assert.Equal(t, ErrorInvalidInstant, result.Output.Error)
	assert.Contains(t, result.Output.Message, "not a date")
}

func TestRun_FixedSessionID(t *testing.T) {
	s := rolesScenario("session")
	s.SessionID = "scenario-session"

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, "scenario-session", result.Output.SessionID)
}

func TestRun_ParallelRebuildMatchesSequential(t *testing.T) {
	seq := rolesScenario("workers")
	par := rolesScenario("workers")
	par.Workers = 1

	a, err := Run(seq)
	require.NoError(t, err)
	b, err := Run(par)
	require.NoError(t, err)
	assert.Equal(t, a.Output, b.Output)
}

func TestRun_MissingFixture(t *testing.T) {
	s := rolesScenario("missing")
	s.Fixture = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read fixture file")
}
