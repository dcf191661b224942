package utils

import (
	"errors"
	"fmt"
)

// Kind partitions failures into the categories the batch caller reacts to.
type Kind string

const (
	// KindInputMalformed marks fatal load-time problems: an unrecognized
	// column layout or no resolvable timestamp/value column. The whole batch
	// aborts with no partial results.
	KindInputMalformed Kind = "input_malformed"
	// KindPrecondition marks a stage invoked out of order. A sequencing bug
	// in the caller, not a data problem.
	KindPrecondition Kind = "precondition"
	// KindInternal covers everything else.
	KindInternal Kind = "internal"
)

// AppError wraps an operation, failure kind, human-facing message, and
// underlying error.
type AppError struct {
	Op   string
	Kind Kind
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError of kind KindInternal.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Kind: KindInternal, Msg: msg, Err: err}
}

// InputError constructs a fatal input-malformation error.
func InputError(op, msg string, err error) error {
	return &AppError{Op: op, Kind: KindInputMalformed, Msg: msg, Err: err}
}

// PreconditionError constructs a stage-sequencing error.
func PreconditionError(op, msg string) error {
	return &AppError{Op: op, Kind: KindPrecondition, Msg: msg}
}

// KindOf extracts the Kind of an error, defaulting to KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsPrecondition reports whether err is a stage-sequencing error.
func IsPrecondition(err error) bool {
	return err != nil && KindOf(err) == KindPrecondition
}
