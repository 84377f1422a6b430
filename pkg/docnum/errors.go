package docnum

import (
	"errors"
	"fmt"
)

var (
	// ErrScopeResolution is returned when the entity a scope derives from
	// cannot be found or does not carry a usable scope attribute.
	ErrScopeResolution = errors.New("scope could not be resolved")

	// ErrMalformedIdentifier is returned when a stored identifier matching the
	// scope prefix has no parseable trailing serial.
	ErrMalformedIdentifier = errors.New("malformed existing identifier")

	// ErrUniquenessConflict is returned when every issue attempt collided with
	// a concurrently committed identifier. Safe to retry later.
	ErrUniquenessConflict = errors.New("identifier uniqueness conflict")
)

// MalformedIdentifierError reports the stored value that could not be parsed.
type MalformedIdentifierError struct {
	Identifier string
	Prefix     string
	Err        error
}

func (e *MalformedIdentifierError) Error() string {
	msg := fmt.Sprintf("identifier %q in scope %q has no valid serial", e.Identifier, e.Prefix)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrMalformedIdentifier) match.
func (e *MalformedIdentifierError) Is(target error) bool {
	return target == ErrMalformedIdentifier
}

func (e *MalformedIdentifierError) Unwrap() error {
	return e.Err
}

// ConflictError is returned by Issuer once its attempts are exhausted.
type ConflictError struct {
	Prefix   string
	Attempts int
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("scope %q: gave up after %d attempts: %v", e.Prefix, e.Attempts, e.Err)
}

// Is makes errors.Is(err, ErrUniquenessConflict) match.
func (e *ConflictError) Is(target error) bool {
	return target == ErrUniquenessConflict
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

type unrelatedError struct {
	err error
}

func (e *unrelatedError) Error() string { return e.err.Error() }

func (e *unrelatedError) Unwrap() error { return e.err }

// Unrelated marks an InsertFunc failure that is not about the issued
// identifier, such as a uniqueness violation on another row written in the
// same transaction. Issuer returns it on the first attempt without retrying.
func Unrelated(err error) error {
	if err == nil {
		return nil
	}
	return &unrelatedError{err: err}
}

// IsUnrelated reports whether err was marked with Unrelated.
func IsUnrelated(err error) bool {
	var u *unrelatedError
	return errors.As(err, &u)
}
