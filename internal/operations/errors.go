package operations

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of a step error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeDependency   ErrorType = "dependency"
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypeCancellation ErrorType = "cancellation"
)

// StepError attributes a failure to the step that raised it
type StepError struct {
	Type    ErrorType `json:"type"`
	Step    string    `json:"step,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *StepError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.Step != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Type, e.Step, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *StepError) Unwrap() error {
	return e.Cause
}

// NewValidationError reports state a step needs but does not have
func NewValidationError(step, message string) *StepError {
	return &StepError{Type: ErrorTypeValidation, Step: step, Message: message}
}

// NewDependencyError reports a dependency that did not complete
func NewDependencyError(step, dependsOn string) *StepError {
	return &StepError{
		Type:    ErrorTypeDependency,
		Step:    step,
		Message: fmt.Sprintf("dependency %s not completed", dependsOn),
	}
}

// NewCancellationError reports a run cancelled before step started
func NewCancellationError(step string, cause error) *StepError {
	return &StepError{Type: ErrorTypeCancellation, Step: step, Message: "run was cancelled", Cause: cause}
}

// WrapError wraps an execution failure with its step. Step errors pass
// through unchanged.
func WrapError(err error, step string) error {
	if err == nil {
		return nil
	}
	var se *StepError
	if errors.As(err, &se) {
		return err
	}
	return &StepError{Type: ErrorTypeExecution, Step: step, Message: "step execution failed", Cause: err}
}

// GetErrorType returns the type of a step error, or execution for other errors
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var se *StepError
	if errors.As(err, &se) {
		return se.Type
	}
	return ErrorTypeExecution
}
