// Package apperr defines the error taxonomy shared by services and HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
)

// ErrHierarchyCycle reports a parent graph that loops back on itself.
var ErrHierarchyCycle = errors.New("folder hierarchy contains a cycle")

type AuthenticationError struct{}

func (AuthenticationError) Error() string { return "authentication required" }

type PermissionError struct{}

func (PermissionError) Error() string { return "permission denied" }

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// ValidationError carries an overall message plus optional per-field detail.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

func Validation(message string) error {
	return &ValidationError{Message: message}
}

func FieldValidation(field, message string) error {
	return &ValidationError{
		Message: "validation failed",
		Fields:  map[string][]string{field: {message}},
	}
}

func Conflict(message string) error {
	return &ConflictError{Message: message}
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
