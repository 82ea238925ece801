// Package errs provides the error types used to classify failures in the
// blockchain packages.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError is used to pass a transaction that was rejected by the
// business rules. The chain is not affected.
type ValidationError struct {
	Err error
}

// NewValidation wraps a provided error as a validation failure.
func NewValidation(err error) error {
	return &ValidationError{err}
}

// NewValidationf constructs a validation failure from a format string.
func NewValidationf(format string, args ...any) error {
	return &ValidationError{fmt.Errorf(format, args...)}
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	return ve.Err.Error()
}

// Unwrap provides access to the wrapped error for errors.Is.
func (ve *ValidationError) Unwrap() error {
	return ve.Err
}

// IsValidation checks if an error of type ValidationError exists.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// =============================================================================

// IntegrityError is used when a block or chain fails the hash linkage,
// merkle root or proof of work checks.
type IntegrityError struct {
	Number uint64
	Err    error
}

// NewIntegrity wraps a provided error with the number of the offending block.
func NewIntegrity(number uint64, err error) error {
	return &IntegrityError{Number: number, Err: err}
}

// Error implements the error interface.
func (ie *IntegrityError) Error() string {
	return fmt.Sprintf("chain invalid at block %d: %s", ie.Number, ie.Err)
}

// Unwrap provides access to the wrapped error for errors.Is.
func (ie *IntegrityError) Unwrap() error {
	return ie.Err
}

// IsIntegrity checks if an error of type IntegrityError exists.
func IsIntegrity(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// GetIntegrity returns a copy of the IntegrityError pointer.
func GetIntegrity(err error) *IntegrityError {
	var ie *IntegrityError
	if !errors.As(err, &ie) {
		return nil
	}
	return ie
}

// =============================================================================

// ConfigError is returned at the call site when a parameter can never be
// valid, before any state is touched.
type ConfigError struct {
	Field string
	Err   error
}

// NewConfig wraps a provided error with the name of the offending field.
func NewConfig(field string, err error) error {
	return &ConfigError{Field: field, Err: err}
}

// Error implements the error interface.
func (ce *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", ce.Field, ce.Err)
}

// Unwrap provides access to the wrapped error for errors.Is.
func (ce *ConfigError) Unwrap() error {
	return ce.Err
}

// IsConfig checks if an error of type ConfigError exists.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
