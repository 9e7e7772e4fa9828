package services

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/baharkarakas/flightsplit-backend/internal/validate"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrSelfAccept       = errors.New("cannot accept your own offer")
	ErrOfferUnavailable = errors.New("offer is no longer available")
	ErrInvalidState     = errors.New("offer is not in a state that allows this operation")
	ErrCannotCancel     = errors.New("offer can no longer be cancelled")
	ErrForbidden        = errors.New("not allowed for this user")
	// ErrOutcomeUnknown means a write may or may not have been applied before
	// the deadline hit. Retrying the same operation is safe.
	ErrOutcomeUnknown = errors.New("outcome unknown")
	ErrInternal       = errors.New("internal error")
)

// ValidationError lists every rejected input field.
type ValidationError struct {
	Fields validate.Errs
}

func (e *ValidationError) Error() string { return "validation failed: " + e.Fields.Error() }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(errs validate.Errs) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: errs}
}

func invalidField(field, msg string) error {
	return &ValidationError{Fields: validate.Errs{{Field: field, Msg: msg}}}
}

// storageErr hides datastore failures behind ErrInternal, or ErrOutcomeUnknown
// when the operation deadline expired, while keeping the cause for logs.
func storageErr(err error, op string) error {
	wrapped := errors.Wrap(err, op)
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Mark(wrapped, ErrOutcomeUnknown)
	}
	return errors.Mark(wrapped, ErrInternal)
}
