package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter marks a malformed or out-of-range filter value.
	// Requests failing validation never reach a record source.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrSourceUnavailable marks a record source that cannot be reached.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// ParamError describes which parameter was rejected and why.
type ParamError struct {
	Param  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Reason)
}

func (e *ParamError) Unwrap() error { return ErrInvalidParameter }

// InvalidParameter builds a ParamError for param.
func InvalidParameter(param, format string, args ...interface{}) error {
	return &ParamError{Param: param, Reason: fmt.Sprintf(format, args...)}
}

// SourceUnavailable wraps err so callers can match ErrSourceUnavailable.
func SourceUnavailable(what string, err error) error {
	return fmt.Errorf("%s: %w: %w", what, ErrSourceUnavailable, err)
}
