package provenance

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the canonical rendering of an instant.
const Layout = "2006-01-02T15:04:05+00:00"

// compactLayout is used where an instant becomes part of an IRI.
const compactLayout = "20060102T150405Z"

var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseInstant parses s and returns it normalized to UTC, second precision.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Normalize(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid instant %q", s)
}

// MustParseInstant is like ParseInstant but panics on error.
// Use only in tests.
func MustParseInstant(s string) time.Time {
	t, err := ParseInstant(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Normalize converts t to UTC and truncates it to the second.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// FormatInstant renders t with Layout.
func FormatInstant(t time.Time) string {
	return Normalize(t).Format(Layout)
}

// CompactInstant renders t in a form safe inside an IRI path segment.
func CompactInstant(t time.Time) string {
	return Normalize(t).Format(compactLayout)
}
