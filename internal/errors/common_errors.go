package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeParsing          ErrorType = "PARSING"
	ErrTypeStorage          ErrorType = "STORAGE"
	ErrTypeConfig           ErrorType = "CONFIG"
	ErrTypeInvariant        ErrorType = "INVARIANT"
	ErrTypeMissingCrosswalk ErrorType = "MISSING_CROSSWALK"
	ErrTypeAmbiguity        ErrorType = "IDENTITY_AMBIGUITY"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// IsType reports whether any error in err's chain is an AppError of errType
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	for err != nil {
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Type == errType {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// Helper functions for common error types

// NewParsingError creates an error for malformed input files
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a file I/O error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewMissingKeyError creates a configuration error naming the absent key
func NewMissingKeyError(key string) *AppError {
	return NewConfigError(fmt.Sprintf("required configuration key %q is not set", key), nil).
		WithContext("key", key)
}

// NewInvariantError creates an error for a violated structural check.
// Invariant errors halt the run before any output is written.
func NewInvariantError(message string) *AppError {
	return NewAppError(ErrTypeInvariant, message, nil)
}

// NewMissingCrosswalk describes a join that found no match. It is logged
// and counted, never returned.
func NewMissingCrosswalk(crosswalk string, key interface{}) *AppError {
	return NewAppError(ErrTypeMissingCrosswalk, fmt.Sprintf("no %s entry for %v", crosswalk, key), nil).
		WithContext("crosswalk", crosswalk).
		WithContext("key", key)
}

// NewAmbiguityError describes an alias claimed by more than one canonical name
func NewAmbiguityError(domain, alias, previous, winner string) *AppError {
	return NewAppError(ErrTypeAmbiguity,
		fmt.Sprintf("alias %q in %s maps to both %q and %q; keeping %q", alias, domain, previous, winner, winner), nil).
		WithContext("domain", domain).
		WithContext("alias", alias)
}
