package ai

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass is the failure taxonomy driving fallback strategy selection.
type ErrorClass string

const (
	// ErrorClassRateLimit covers 429s and quota messages
	ErrorClassRateLimit ErrorClass = "rate_limit"
	// ErrorClassTimeout covers deadline expiry and slow responses
	ErrorClassTimeout ErrorClass = "timeout"
	// ErrorClassModelError covers provider-side model failures
	ErrorClassModelError ErrorClass = "model_error"
	// ErrorClassNetwork covers connection-level failures
	ErrorClassNetwork ErrorClass = "network"
	// ErrorClassValidation covers bad request shapes; never retried
	ErrorClassValidation ErrorClass = "validation"
	// ErrorClassGeneric is everything else
	ErrorClassGeneric ErrorClass = "generic"
)

var (
	// ErrObservationNotFound is surfaced to callers with no retry.
	ErrObservationNotFound = errors.New("observation not found")
	// ErrAttachmentNotFound is surfaced to callers with no retry.
	ErrAttachmentNotFound = errors.New("attachment not found")
	// ErrUnknownRequestType is returned for request types absent from the
	// decision tree.
	ErrUnknownRequestType = errors.New("unknown request type")
)

// ProviderError wraps a model-call failure with its classification and an
// optional non-retryable marker.
type ProviderError struct {
	Message      string
	Class        ErrorClass
	StatusCode   int
	NonRetryable bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%s): %s", e.Class, e.Message)
}

// NewProviderError builds a ProviderError, classifying the message.
func NewProviderError(message string, statusCode int) *ProviderError {
	return &ProviderError{
		Message:    message,
		Class:      classifyMessage(message, statusCode),
		StatusCode: statusCode,
	}
}

// Classify maps an error to its fallback class using case-insensitive
// message/code substring matching. A nil error is generic.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorClassGeneric
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Class
	}

	return classifyMessage(err.Error(), 0)
}

func classifyMessage(message string, statusCode int) ErrorClass {
	msg := strings.ToLower(message)

	switch {
	case statusCode == 429,
		strings.Contains(msg, "429"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "quota"):
		return ErrorClassRateLimit
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "deadline exceeded"):
		return ErrorClassTimeout
	case strings.Contains(msg, "model"),
		strings.Contains(msg, "completion"),
		strings.Contains(msg, "no choices"):
		return ErrorClassModelError
	case strings.Contains(msg, "network"),
		strings.Contains(msg, "connection"),
		strings.Contains(msg, "econnrefused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "broken pipe"):
		return ErrorClassNetwork
	case strings.Contains(msg, "validation"),
		strings.Contains(msg, "invalid request"),
		strings.Contains(msg, "invalid input"),
		statusCode == 400:
		return ErrorClassValidation
	default:
		return ErrorClassGeneric
	}
}

// IsNonRetryable reports whether the error was explicitly marked as not
// safe to retry, independent of its class.
func IsNonRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.NonRetryable
	}
	return false
}
