package config

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
)

// ConfigError reports an invalid or ambiguous configuration.
type ConfigError struct {
	// Field is the dotted path of the offending key, if known.
	Field string

	Message string

	// Line is the 1-based line in the source document, if known.
	Line int

	Err error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Field != "" && e.Line > 0:
		return fmt.Sprintf("config: line %d: %s: %s", e.Line, e.Field, e.Message)
	case e.Field != "":
		return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
	default:
		return fmt.Sprintf("config: %s", e.Message)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError returns true if err is a ConfigError.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// fromCUE converts the first CUE error into a ConfigError with position
// information.
func fromCUE(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ConfigError{Message: err.Error(), Err: err}
	}

	first := errs[0]
	ce := &ConfigError{Err: err}
	format, args := first.Msg()
	ce.Message = fmt.Sprintf(format, args...)
	if path := first.Path(); len(path) > 0 {
		ce.Field = joinPath(path)
	}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Line = positions[0].Line()
	}
	return ce
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}
