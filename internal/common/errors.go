package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Pipeline error taxonomy
var (
	// ErrRecognition: the recognition engine was unavailable or produced nothing usable.
	ErrRecognition = errors.New("recognition failure")
	// ErrModelOutput: the language model answered with something other than the expected object.
	// Recovered locally by the extractor and never returned from a pipeline run.
	ErrModelOutput = errors.New("model output error")
	// ErrTransport: timeout or non-success response from an external service.
	ErrTransport = errors.New("stage transport error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func InvalidInputf(format string, args ...any) error {
	return NewAppError("INVALID_INPUT", fmt.Sprintf(format, args...), ErrInvalidInput)
}

func NotFoundf(format string, args ...any) error {
	return NewAppError("NOT_FOUND", fmt.Sprintf(format, args...), ErrNotFound)
}

// TransportError marks err as a failed call to an external service.
func TransportError(service string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransport) {
		return err
	}
	return NewAppError("TRANSPORT", service, fmt.Errorf("%w: %w", ErrTransport, err))
}

// RecognitionError marks err as a recognition failure for the current run.
func RecognitionError(message string, err error) error {
	if err == nil {
		return NewAppError("RECOGNITION", message, ErrRecognition)
	}
	return NewAppError("RECOGNITION", message, fmt.Errorf("%w: %w", ErrRecognition, err))
}
