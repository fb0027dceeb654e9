package triplestore

import (
	"errors"
	"fmt"
)

// UpstreamError reports a failed backend call.
type UpstreamError struct {
	// Backend names the failing store (a URL or file path).
	Backend string

	// Op is the gateway operation, such as "select" or "quads".
	Op string

	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstream returns true if err is an UpstreamError.
// Uses errors.As to handle wrapped errors.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
