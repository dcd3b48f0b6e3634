package transform

import (
	"errors"
	"fmt"
)

// Rejection kinds. A *ValidationError always unwraps to exactly one of these.
var (
	ErrInvalidTool       = errors.New("invalid tool")
	ErrCardinality       = errors.New("wrong number of files")
	ErrTypeMismatch      = errors.New("file type not accepted")
	ErrMissingParameter  = errors.New("missing parameter")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrOrderMismatch     = errors.New("merge order names no uploaded file")
)

// ValidationError is a client input problem. Message is safe to show to the caller.
type ValidationError struct {
	Kind    error
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Kind }

func invalid(kind error, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a client input rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
