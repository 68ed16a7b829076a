// Package errdefs defines the closed set of failure kinds the pipeline reports.
// Every error tablescan surfaces is classified as exactly one of these kinds so
// callers can decide between aborting a run, skipping a file, or downgrading a
// page to an error-annotated record.
package errdefs

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindConfig covers missing or placeholder credentials and other
	// invalid configuration. Fatal, raised before any processing.
	KindConfig Kind = "config"

	// KindConversion covers malformed or unreadable PDF input and page
	// render failures. Fatal for the affected file.
	KindConversion Kind = "conversion"

	// KindInference covers network and API failures while calling the
	// model. Recovered per page as an error-annotated record.
	KindInference Kind = "inference"

	// KindParse covers model responses that cannot be decoded as JSON.
	// Recovered per page as an error-annotated record.
	KindParse Kind = "parse"

	// KindIO covers input listing and output write failures. Fatal for
	// the affected file or run.
	KindIO Kind = "io"

	// KindUnknown is reported by KindOf for errors that carry no kind.
	KindUnknown Kind = "unknown"
)

// Error attaches a Kind to an underlying failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a kinded error from a format string.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and context to an existing error.
// Returns nil when err is nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the kind of err, walking wrapped errors.
// Errors without a kind report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool { return IsKind(err, KindConfig) }

// IsConversion reports whether err is a PDF conversion error.
func IsConversion(err error) bool { return IsKind(err, KindConversion) }

// IsInference reports whether err is a model call error.
func IsInference(err error) bool { return IsKind(err, KindInference) }

// IsParse reports whether err is a response parse error.
func IsParse(err error) bool { return IsKind(err, KindParse) }

// IsIO reports whether err is a filesystem error.
func IsIO(err error) bool { return IsKind(err, KindIO) }
