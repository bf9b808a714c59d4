package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for consistent error handling across the API.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUploadEmpty indicates the request carried no file.
type ErrUploadEmpty struct{}

func (e *ErrUploadEmpty) Error() string {
	return "No file uploaded."
}

// ValidationFailedMessage heads the row error list of a rejected upload.
const ValidationFailedMessage = "File validation failed. Please correct the following errors:"

// ErrValidationFailed carries every row error of a rejected upload.
type ErrValidationFailed struct {
	Kind   RecordKind
	Errors []string
}

func (e *ErrValidationFailed) Error() string {
	return fmt.Sprintf("%s %s", ValidationFailedMessage, strings.Join(e.Errors, " | "))
}

// ErrNoValidRows indicates every row was dropped during coercion.
type ErrNoValidRows struct {
	Kind RecordKind
}

func (e *ErrNoValidRows) Error() string {
	if e.Kind == KindAnticipateds {
		return "No valid anticipated data found in the file."
	}
	return "No valid actuals data found in the file to process."
}

// ErrPersistence wraps a storage read or write fault.
type ErrPersistence struct {
	Op  string
	Err error
}

func (e *ErrPersistence) Error() string {
	return fmt.Sprintf("persistence failure [%s]: %v", e.Op, e.Err)
}

func (e *ErrPersistence) Unwrap() error {
	return e.Err
}

// ErrInvalidSpreadsheet indicates the upload could not be decoded as a workbook.
type ErrInvalidSpreadsheet struct {
	Err error
}

func (e *ErrInvalidSpreadsheet) Error() string {
	return fmt.Sprintf("Failed to process file: %v", e.Err)
}

func (e *ErrInvalidSpreadsheet) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrDuplicate indicates a uniqueness violation, e.g. a version number
// already taken for a kind.
type ErrDuplicate struct {
	Key string
}

func (e *ErrDuplicate) Error() string {
	return fmt.Sprintf("duplicate: %s", e.Key)
}

// AsPersistence wraps err in *ErrPersistence unless it already carries a
// domain meaning the handlers map on their own.
func AsPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var notFound *ErrNotFound
	var duplicate *ErrDuplicate
	var validation *ErrValidation
	var open *ErrCircuitOpen
	var persistence *ErrPersistence
	if errors.As(err, &notFound) || errors.As(err, &duplicate) || errors.As(err, &validation) ||
		errors.As(err, &open) || errors.As(err, &persistence) {
		return err
	}
	return &ErrPersistence{Op: op, Err: err}
}
