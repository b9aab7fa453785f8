package parking

import (
	"errors"
	"strings"
)

// Sentinel errors for parking operations.
var (
	// ErrInvalidConfiguration indicates a spot or rule is malformed.
	ErrInvalidConfiguration = errors.New("invalid parking configuration")
	// ErrInvalidQuery indicates a cost or ranking query is malformed.
	ErrInvalidQuery = errors.New("invalid parking query")
)

// ConfigError describes one malformed field of a spot or rule.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfiguration }

// ConfigErrors collects every problem found while validating a spot.
type ConfigErrors []*ConfigError

func (e ConfigErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ce := range e {
		msgs[i] = ce.Error()
	}
	return "invalid parking configuration: " + strings.Join(msgs, "; ")
}

func (e ConfigErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, ce := range e {
		errs[i] = ce
	}
	return errs
}

// QueryError describes a malformed query parameter.
type QueryError struct {
	Field   string
	Message string
}

func (e *QueryError) Error() string {
	return "invalid parking query: " + e.Field + ": " + e.Message
}

func (e *QueryError) Unwrap() error { return ErrInvalidQuery }
