package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenariosGolden runs every scenario under testdata/scenarios and
// compares its output with testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -run TestScenariosGolden -update
func TestScenariosGolden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err, file)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion errors: %v", result.Errors)
		})
	}
}

func TestMarshalOutput_KeepsAngleBrackets(t *testing.T) {
	data, err := MarshalOutput(&Output{
		Scenario:  "s",
		SessionID: "id",
		Instants:  []string{"2021-05-07T09:59:15+00:00"},
		Rows: map[string][][]string{
			"2021-05-07T09:59:15+00:00": {{"<https://example.org/a>", ""}},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, string(data), `"<https://example.org/a>"`)
	assert.NotContains(t, string(data), `\u003c`)
	assert.Contains(t, string(data), "\n  \"instants\": [\n")
	assert.NotContains(t, string(data), "excluded", "empty fields are omitted")
}

func TestMarshalOutput_Deterministic(t *testing.T) {
	out := &Output{
		Scenario: "s",
		Instants: []string{"b", "a"},
		Rows: map[string][][]string{
			"b": {{"<x>"}},
			"a": {{"<y>"}},
			"c": {},
		},
	}
	first, err := MarshalOutput(out)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalOutput(out)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
