package federation

import (
	"fmt"
	"strings"
)

// ValidationError aggregates every rule violated by a candidate field map.
// An entity is never constructed when validation fails.
type ValidationError struct {
	EntityType string
	Violations []string
}

func (e ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("%s validation failed", e.EntityType)
	}
	return fmt.Sprintf("%s validation failed: %s", e.EntityType, strings.Join(e.Violations, "; "))
}

// Is enables errors.Is matching on ValidationError.
func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

// ErrValidation is the sentinel error for failed entity validation.
var ErrValidation = ValidationError{}

// UnknownEntityTypeError reports a lookup of a type that was never registered.
type UnknownEntityTypeError struct {
	TypeName string
}

func (e UnknownEntityTypeError) Error() string {
	if e.TypeName == "" {
		return "unknown entity type"
	}
	return fmt.Sprintf("unknown entity type %q", e.TypeName)
}

func (e UnknownEntityTypeError) Is(target error) bool {
	_, ok := target.(UnknownEntityTypeError)
	if ok {
		return true
	}
	_, ok = target.(*UnknownEntityTypeError)
	return ok
}

// ErrUnknownEntityType is the sentinel error for unregistered entity types.
var ErrUnknownEntityType = UnknownEntityTypeError{}

// NoSuchPropertyError reports access to a property the schema does not declare.
type NoSuchPropertyError struct {
	EntityType string
	Property   string
}

func (e NoSuchPropertyError) Error() string {
	if e.EntityType == "" {
		return "no such property"
	}
	return fmt.Sprintf("%s has no property %q", e.EntityType, e.Property)
}

func (e NoSuchPropertyError) Is(target error) bool {
	_, ok := target.(NoSuchPropertyError)
	if ok {
		return true
	}
	_, ok = target.(*NoSuchPropertyError)
	return ok
}

// ErrNoSuchProperty is the sentinel error for misnamed property access.
var ErrNoSuchProperty = NoSuchPropertyError{}

// MalformedPayloadError reports wire input that cannot be mapped onto a
// registered entity type at all, as opposed to input that maps but fails
// validation.
type MalformedPayloadError struct {
	Reason string
}

func (e MalformedPayloadError) Error() string {
	if e.Reason == "" {
		return "malformed payload"
	}
	return fmt.Sprintf("malformed payload: %s", e.Reason)
}

func (e MalformedPayloadError) Is(target error) bool {
	_, ok := target.(MalformedPayloadError)
	if ok {
		return true
	}
	_, ok = target.(*MalformedPayloadError)
	return ok
}

// ErrMalformedPayload is the sentinel error for structurally unparsable payloads.
var ErrMalformedPayload = MalformedPayloadError{}
