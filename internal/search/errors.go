package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Classified search API errors. AuthError aborts the whole run; RateLimited
// and TransientNetworkError are retried with backoff; MalformedResponse fails
// the call but the run continues.
var (
	ErrAuth              = errors.New("authentication failed")
	ErrRateLimited       = errors.New("rate limited")
	ErrTransient         = errors.New("transient network error")
	ErrMalformedResponse = errors.New("malformed response")
)

// Argument validation errors.
var (
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
	ErrInvalidOffset   = errors.New("offset must be at least 1")
)

// StatusError describes a failed API call with provider diagnostics attached.
type StatusError struct {
	Kind    error
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%v (status %d, code %s): %s", e.Kind, e.Status, e.Code, e.Message)
	}

	if e.Status != 0 {
		return fmt.Sprintf("%v (status %d): %s", e.Kind, e.Status, e.Message)
	}

	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

// Unwrap exposes the classification sentinel to errors.Is.
func (e *StatusError) Unwrap() error {
	return e.Kind
}

// IsRetryable reports whether the error is worth another attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}

// IsAuth reports whether the error is a fatal credential failure.
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsMalformed reports whether the error is a call-local response failure.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// errorBody is the provider's error response shape.
type errorBody struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorCode    string `json:"errorCode"`
}

// wrapStatus classifies a non-200 response into the error taxonomy, keeping
// the provider's error code and message for diagnostics.
func wrapStatus(status int, body []byte) error {
	var eb errorBody
	// Best effort; the body may not be JSON at all.
	_ = json.Unmarshal(body, &eb)

	msg := eb.ErrorMessage
	if msg == "" {
		msg = http.StatusText(status)
	}

	return &StatusError{
		Kind:    classifyStatus(status),
		Status:  status,
		Code:    eb.ErrorCode,
		Message: msg,
	}
}

// classifyStatus maps an HTTP status to a taxonomy sentinel. Parameter
// rejections (plain 4xx) are call-local, so they fold into the malformed
// class rather than aborting or retrying.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuth
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusRequestTimeout || status >= 500:
		return ErrTransient
	default:
		return ErrMalformedResponse
	}
}
