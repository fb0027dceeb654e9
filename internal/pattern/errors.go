package pattern

import (
	"errors"
	"fmt"

	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
)

// QueryShapeError reports a query outside the supported shape: not a single
// SELECT over basic graph patterns and OPTIONAL blocks, a pattern with
// variables in all three positions, or no bound term at all.
type QueryShapeError struct {
	// Message is a human-readable description.
	Message string

	// Pattern is the offending triple pattern, if any.
	Pattern *rdf.Triple

	// Err is the underlying parse error, if any.
	Err error
}

func (e *QueryShapeError) Error() string {
	switch {
	case e.Pattern != nil:
		return fmt.Sprintf("unsupported query shape: %s (pattern %s)", e.Message, e.Pattern)
	case e.Err != nil:
		return fmt.Sprintf("unsupported query shape: %s: %v", e.Message, e.Err)
	default:
		return "unsupported query shape: " + e.Message
	}
}

func (e *QueryShapeError) Unwrap() error {
	return e.Err
}

// IsQueryShapeError returns true if err is a QueryShapeError.
// Uses errors.As to handle wrapped errors.
func IsQueryShapeError(err error) bool {
	var qe *QueryShapeError
	return errors.As(err, &qe)
}
