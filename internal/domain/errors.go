package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// DuplicateError represents an envelope that was already processed.
type DuplicateError struct {
	Digest string
}

func (e DuplicateError) Error() string {
	if e.Digest == "" {
		return "duplicate envelope"
	}
	return fmt.Sprintf("duplicate envelope %s", e.Digest)
}

// Is enables errors.Is matching on DuplicateError.
func (e DuplicateError) Is(target error) bool {
	_, ok := target.(DuplicateError)
	if ok {
		return true
	}
	_, ok = target.(*DuplicateError)
	return ok
}

// ErrDuplicate is the sentinel error for already-processed envelopes.
var ErrDuplicate = DuplicateError{}
