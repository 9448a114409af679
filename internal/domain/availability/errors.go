package availability

import (
	"errors"
	"fmt"

	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

var (
	ErrInvalidInterval   = errors.New("availability: invalid interval")
	ErrOverlap           = errors.New("availability: range overlaps an active interval")
	ErrIntervalNotFound  = errors.New("availability: interval not found")
	ErrPropertyNotFound  = errors.New("availability: property not found")
	ErrInvalidTransition = errors.New("availability: invalid status transition")
	ErrConcurrentUpdate  = errors.New("availability: interval changed concurrently")
)

// ValidationError describes a malformed candidate. It matches ErrInvalidInterval.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("availability: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInterval }

// ConflictError names the active interval a candidate collides with and the
// nights they share. It matches ErrOverlap.
type ConflictError struct {
	PropertyID      PropertyID
	ConflictingID   IntervalID
	ConflictingKind Kind
	Overlap         daterange.DateRange
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("availability: range overlaps %s %s on property %s during %s",
		e.ConflictingKind, e.ConflictingID, e.PropertyID, e.Overlap)
}

func (e *ConflictError) Unwrap() error { return ErrOverlap }

func (e *ConflictError) Conflicting() Ref {
	return Ref{Kind: e.ConflictingKind, ID: e.ConflictingID}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// AsConflict extracts a ConflictError from err.
func AsConflict(err error) (*ConflictError, bool) {
	var target *ConflictError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
