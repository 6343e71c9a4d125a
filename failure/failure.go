// Package failure defines the tagged error surface shared by every stage of
// the analysis pipeline.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies why a pipeline run failed.
type Kind string

const (
	UnsupportedFormat  Kind = "unsupported_format"
	DependencyNotReady Kind = "dependency_not_ready"
	ExtractionFailed   Kind = "extraction_failed"
	DecodeFailed       Kind = "decode_failed"
	InsufficientText   Kind = "insufficient_text"
	MissingCredential  Kind = "missing_credential"
	ServiceError       Kind = "service_error"
)

// Error is a pipeline failure. Message is meant for end users and is
// surfaced unchanged; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error without an underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with fmt formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and message to cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
