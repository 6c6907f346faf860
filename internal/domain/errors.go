package domain

import (
	"errors"
	"fmt"
)

var (
	ErrLicenseNotFound    = errors.New("license not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateKey       = errors.New("duplicate license key")
	ErrEventInFlight      = errors.New("billing event in flight")
)

type ValidationKind string

const (
	MissingField ValidationKind = "missing_field"
	TypeMismatch ValidationKind = "type_mismatch"
	OutOfRange   ValidationKind = "out_of_range"
)

// ValidationError tags a rejected request field with the kind of problem.
type ValidationError struct {
	Field string
	Kind  ValidationKind
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Kind)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
