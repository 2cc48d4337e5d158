// Package validators provides grammar validation for file extensions and media types.
package validators

import (
	"errors"
	"fmt"
)

var (
	// ErrWrongType is returned when an argument is not of the expected type
	ErrWrongType = errors.New("wrong argument type")

	// ErrMalformed is returned when an argument does not match the expected grammar
	ErrMalformed = errors.New("malformed argument")
)

// ValidationError describes a rejected argument.
// Use errors.Is with ErrWrongType or ErrMalformed to check the kind.
type ValidationError struct {
	// Kind is either ErrWrongType or ErrMalformed
	Kind error

	// Field names the rejected argument (e.g. "extension", "mediaType", "path")
	Field string

	// Value is the rejected value
	Value any

	// Reason is a human readable explanation
	Reason string
}

// Error returns the error message
func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s %#v", e.Kind, e.Field, e.Value)
	}
	return fmt.Sprintf("%s: %s %#v: %s", e.Kind, e.Field, e.Value, e.Reason)
}

// Unwrap returns the error kind
func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func malformed(field string, value any, reason string) error {
	return &ValidationError{Kind: ErrMalformed, Field: field, Value: value, Reason: reason}
}

// StringArg asserts that a dynamically typed argument is a string.
// It returns an ErrWrongType validation error otherwise.
func StringArg(field string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", &ValidationError{
			Kind:   ErrWrongType,
			Field:  field,
			Value:  value,
			Reason: fmt.Sprintf("expected string, got %T", value),
		}
	}
	return s, nil
}

// ValidatePair validates an extension and a media type together.
// When both are invalid both violations are returned joined.
func ValidatePair(extension, mediaType string) (string, MediaType, error) {
	ext, extErr := ValidateExtension(extension)
	mt, mtErr := ParseMediaType(mediaType)
	if err := errors.Join(extErr, mtErr); err != nil {
		return "", MediaType{}, err
	}
	return ext, mt, nil
}
