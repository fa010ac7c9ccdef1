package suggest

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure categories of the suggestion service. Match them with errors.Is.
var (
	ErrRateLimited        = errors.New("rate limit exceeded, please try again in a moment")
	ErrQuotaExhausted     = errors.New("AI credits exhausted, please add credits to continue")
	ErrServiceUnavailable = errors.New("suggestion service unavailable")
	ErrMalformedResponse  = errors.New("suggestion service returned a malformed response")
)

// ServiceError describes a failed suggestion request.
type ServiceError struct {
	Kind    error // one of the Err* categories above
	Status  int   // HTTP status when the failure came from a response
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	msg := e.Kind.Error()
	if e.Message != "" && e.Message != msg {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the category and the underlying cause.
func (e *ServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// HTTPStatus is the status the suggestion endpoint answers with for e.
func (e *ServiceError) HTTPStatus() int {
	switch e.Kind {
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrQuotaExhausted:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the message shown to users.
func (e *ServiceError) Public() string {
	switch e.Kind {
	case ErrRateLimited:
		return "Rate limit exceeded. Please try again in a moment."
	case ErrQuotaExhausted:
		return "AI credits exhausted. Please add credits to continue."
	}
	if e.Message != "" {
		return e.Message
	}
	return "Failed to get chart suggestions"
}

// classifyStatus maps an HTTP status from the service to a failure category.
func classifyStatus(status int) error {
	switch status {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusPaymentRequired:
		return ErrQuotaExhausted
	default:
		return ErrServiceUnavailable
	}
}

func statusError(status int, message string) *ServiceError {
	return &ServiceError{Kind: classifyStatus(status), Status: status, Message: message}
}

func malformed(format string, args ...any) *ServiceError {
	return &ServiceError{Kind: ErrMalformedResponse, Message: fmt.Sprintf(format, args...)}
}
