package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
)

// NoSnapshotError reports that no snapshot exists at or before the
// requested instant.
type NoSnapshotError struct {
	// Target is the requested instant.
	Target time.Time

	// Earliest is the first recorded instant, zero when the query matched
	// no entity at all.
	Earliest time.Time
}

// Error implements the error interface.
func (e *NoSnapshotError) Error() string {
	if e.Earliest.IsZero() {
		return fmt.Sprintf("no snapshot at or before %s: no recorded instants", provenance.FormatInstant(e.Target))
	}
	return fmt.Sprintf("no snapshot at or before %s (earliest is %s)",
		provenance.FormatInstant(e.Target), provenance.FormatInstant(e.Earliest))
}

// IsNoSnapshot returns true if err is a NoSnapshotError.
// Uses errors.As to handle wrapped errors.
func IsNoSnapshot(err error) bool {
	var ns *NoSnapshotError
	return errors.As(err, &ns)
}

// InstantError reports an on_time argument that is not a valid instant.
type InstantError struct {
	Value string
	Err   error
}

func (e *InstantError) Error() string {
	return fmt.Sprintf("invalid instant %q: %v", e.Value, e.Err)
}

func (e *InstantError) Unwrap() error {
	return e.Err
}
