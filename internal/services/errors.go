package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")

	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserNotValidated   = errors.New("user not validated")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrInvalidCode        = errors.New("invalid code")
	ErrMaxAttemptsReached = errors.New("max validation attempts reached")

	ErrFileMissing   = errors.New("no file uploaded")
	ErrFileTooLarge  = errors.New("file too large")
	ErrInvalidImage  = errors.New("file must be a PNG, JPEG or GIF image")
	ErrAIUnavailable = errors.New("ai service not configured")
)

// NotFoundError reports an entity that is missing or not reachable through the
// caller's ownership chain. The two cases are deliberately indistinguishable.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id '%s' not found for this user", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports a uniqueness or state conflict.
type ConflictError struct {
	Message string
	// ExistingID names the conflicting row when the caller may already know it.
	ExistingID string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ValidationError carries field level messages for input rejected by a service.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

const (
	entityClient       = "Client"
	entityProject      = "Project"
	entityDeliveryNote = "Delivery note"
)
