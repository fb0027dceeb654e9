package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Output   *Output
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Output != nil && len(e.Output.Instants) > 0 {
		fmt.Fprintf(&buf, "\nInstants:\n")
		for _, at := range e.Output.Instants {
			fmt.Fprintf(&buf, "  %s (%d rows)\n", at, len(e.Output.Rows[at]))
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against out and returns the
// failure messages. Relative IRIs in expected rows resolve against base.
func EvaluateAssertions(out *Output, assertions []Assertion, base string) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(out, a, base); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluate(out *Output, a Assertion, base string) error {
	// Only an error assertion may hold on a failed run
	if out.Error != "" && a.Type != AssertError {
		return &AssertionError{
			Type:     a.Type,
			Expected: "successful run",
			Actual:   fmt.Sprintf("%s error: %s", out.Error, out.Message),
			Output:   out,
		}
	}

	switch a.Type {
	case AssertInstants:
		return assertInstants(out, a)
	case AssertRows:
		return assertRows(out, a, base)
	case AssertRowCount:
		return assertRowCount(out, a)
	case AssertError:
		return assertError(out, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertInstants checks the exact instant list.
func assertInstants(out *Output, a Assertion) error {
	expected := make([]string, len(a.Instants))
	for i, s := range a.Instants {
		expected[i] = instantKey(s)
	}
	if strings.Join(expected, ",") == strings.Join(out.Instants, ",") {
		return nil
	}
	return &AssertionError{
		Type:     AssertInstants,
		Expected: fmt.Sprintf("%v", expected),
		Actual:   fmt.Sprintf("%v", out.Instants),
		Output:   out,
	}
}

// assertRows checks the tuples of one instant as a multiset.
func assertRows(out *Output, a Assertion, base string) error {
	key := instantKey(a.At)
	actual, ok := out.Rows[key]
	if !ok {
		return &AssertionError{
			Type:     AssertRows,
			Expected: fmt.Sprintf("instant %s", key),
			Actual:   "instant not in output",
			Output:   out,
		}
	}

	expected := make([]string, len(a.Rows))
	for i, row := range a.Rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = resolveCell(cell, base)
		}
		expected[i] = rowKey(cells)
	}
	got := make([]string, len(actual))
	for i, row := range actual {
		got[i] = rowKey(row)
	}
	sort.Strings(expected)
	sort.Strings(got)

	if strings.Join(expected, "\n") == strings.Join(got, "\n") {
		return nil
	}
	return &AssertionError{
		Type:     AssertRows,
		Expected: fmt.Sprintf("at %s: %v", key, expected),
		Actual:   fmt.Sprintf("%v", got),
		Output:   out,
	}
}

// assertRowCount checks the number of tuples of one instant.
func assertRowCount(out *Output, a Assertion) error {
	key := instantKey(a.At)
	actual, ok := out.Rows[key]
	if !ok {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("instant %s", key),
			Actual:   "instant not in output",
			Output:   out,
		}
	}
	if len(actual) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertRowCount,
		Expected: fmt.Sprintf("%d rows at %s", a.Count, key),
		Actual:   fmt.Sprintf("%d rows", len(actual)),
		Output:   out,
	}
}

// assertError checks the run failed with the expected kind.
func assertError(out *Output, a Assertion) error {
	if out.Error == a.Kind {
		return nil
	}
	actual := "successful run"
	if out.Error != "" {
		actual = fmt.Sprintf("%s error: %s", out.Error, out.Message)
	}
	return &AssertionError{
		Type:     AssertError,
		Expected: fmt.Sprintf("%s error", a.Kind),
		Actual:   actual,
		Output:   out,
	}
}

// instantKey renders s the way Output keys instants. Values are
// validated when the scenario is loaded.
func instantKey(s string) string {
	t, err := provenance.ParseInstant(s)
	if err != nil {
		return s
	}
	return provenance.FormatInstant(t)
}

// resolveCell expands a relative IRI cell against base.
func resolveCell(cell, base string) string {
	if base == "" || len(cell) < 2 || cell[0] != '<' || cell[len(cell)-1] != '>' {
		return cell
	}
	inner := cell[1 : len(cell)-1]
	if strings.Contains(inner, ":") {
		return cell
	}
	return "<" + base + inner + ">"
}

func rowKey(cells []string) string {
	return strings.Join(cells, " | ")
}
