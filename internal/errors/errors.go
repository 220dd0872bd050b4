// Package errors provides custom error types for the nova assistant core.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotTrusted      = errors.New("accessibility permission not granted")
	ErrMicDenied       = errors.New("microphone permission not granted")
	ErrEmptyInput      = errors.New("input is empty")
	ErrTurnInFlight    = errors.New("a turn is already streaming")
	ErrInvalidResponse = errors.New("invalid response format")
	ErrNoContent       = errors.New("no content in response")
)

// PermissionError represents a denied OS-level capability
// (accessibility trust or microphone authorization).
type PermissionError struct {
	Capability string
	Message    string
}

func (e *PermissionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s permission denied", e.Capability)
	}
	return fmt.Sprintf("%s permission denied: %s", e.Capability, e.Message)
}

// Is allows comparison with sentinel errors
func (e *PermissionError) Is(target error) bool {
	if target == ErrNotTrusted && e.Capability == "accessibility" {
		return true
	}
	if target == ErrMicDenied && e.Capability == "microphone" {
		return true
	}
	_, ok := target.(*PermissionError)
	return ok
}

// NewPermissionError creates a new PermissionError
func NewPermissionError(capability, message string) *PermissionError {
	return &PermissionError{Capability: capability, Message: message}
}

// TransportError represents a failed backend request: a connection failure or
// a status outside the 2xx range.
type TransportError struct {
	StatusCode int
	Endpoint   string
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("backend error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("backend error at %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("backend error at %s: %s", e.Endpoint, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches any other TransportError (for error wrapping/unwrapping)
func (e *TransportError) Is(target error) bool {
	_, ok := target.(*TransportError)
	return ok
}

// NewTransportError creates a TransportError for a non-2xx status
func NewTransportError(statusCode int, endpoint, message string) *TransportError {
	return &TransportError{StatusCode: statusCode, Endpoint: endpoint, Message: message}
}

// NewConnectionError wraps a connection-level failure
func NewConnectionError(endpoint string, err error) *TransportError {
	return &TransportError{Endpoint: endpoint, Err: err}
}

// DecodeError represents a malformed or undecodable response payload.
type DecodeError struct {
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("decode error: %s", e.Message)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is allows comparison with the ErrInvalidResponse sentinel
func (e *DecodeError) Is(target error) bool {
	if target == ErrInvalidResponse {
		return true
	}
	_, ok := target.(*DecodeError)
	return ok
}

// NewDecodeError creates a new DecodeError
func NewDecodeError(message string, err error) *DecodeError {
	return &DecodeError{Message: message, Err: err}
}

// RecognitionError represents a speech engine failure that was not caused by
// an intentional stop.
type RecognitionError struct {
	Message string
	Err     error
}

func (e *RecognitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("speech recognition failed: %v", e.Err)
	}
	return fmt.Sprintf("speech recognition failed: %s", e.Message)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// Is matches any other RecognitionError
func (e *RecognitionError) Is(target error) bool {
	_, ok := target.(*RecognitionError)
	return ok
}

// NewRecognitionError creates a new RecognitionError
func NewRecognitionError(message string, err error) *RecognitionError {
	return &RecognitionError{Message: message, Err: err}
}

// ValidationError represents locally rejected input: empty text or a submit
// while a turn is already in flight.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Message)
}

// Is matches any other ValidationError
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a new ValidationError
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// IsPermissionError checks whether err is a PermissionError
func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsTransportError checks whether err is a TransportError
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsDecodeError checks whether err is a DecodeError
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// IsValidationError checks whether err is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
