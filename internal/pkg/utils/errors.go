package utils

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates unknown transcript ID
	ErrNotFound = errors.New("transcript not found")
	// ErrConflict indicates a concurrent modification of the same record
	ErrConflict = errors.New("conflict")
)

// ValidationError indicates a client correctable input error
type ValidationError struct {
	msg string
}

// NewValidationError creates new error
func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.msg
}

// ConfigurationError indicates an operator correctable setup error.
// The message must never contain secret values
type ConfigurationError struct {
	msg string
}

// NewConfigurationError creates new error
func NewConfigurationError(msg string) error {
	return &ConfigurationError{msg: msg}
}

func (e *ConfigurationError) Error() string {
	return e.msg
}

// ServiceError indicates a failed or unusable external inference call
type ServiceError struct {
	err       error
	Transient bool
}

// NewServiceError creates new error
func NewServiceError(err error, transient bool) error {
	return &ServiceError{err: err, Transient: transient}
}

func (e *ServiceError) Error() string {
	return e.err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// ParseError indicates model output that is not the expected structure
type ParseError struct {
	err error
	Raw string
}

// NewParseError creates new error
func NewParseError(err error, raw string) error {
	return &ParseError{err: err, Raw: raw}
}

func (e *ParseError) Error() string {
	return "can't parse response: " + e.err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.err
}

// IsTransient returns true if err is a service error worth retrying
func IsTransient(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Transient
}
