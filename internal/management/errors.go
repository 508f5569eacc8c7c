package management

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// StatusClass groups management API failures by how callers should react.
type StatusClass int

const (
	ClassUnknown StatusClass = iota
	ClassBadRequest
	ClassUnauthorized
	ClassForbidden
	ClassNotFound
	ClassConflict
	ClassUnprocessable
	ClassRateLimited
	ClassServerError
)

func (c StatusClass) String() string {
	switch c {
	case ClassBadRequest:
		return "bad_request"
	case ClassUnauthorized:
		return "unauthorized"
	case ClassForbidden:
		return "forbidden"
	case ClassNotFound:
		return "not_found"
	case ClassConflict:
		return "conflict"
	case ClassUnprocessable:
		return "unprocessable"
	case ClassRateLimited:
		return "rate_limited"
	case ClassServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// ClassifyStatus maps an HTTP status code to its StatusClass.
func ClassifyStatus(status int) StatusClass {
	switch {
	case status == http.StatusBadRequest:
		return ClassBadRequest
	case status == http.StatusUnauthorized:
		return ClassUnauthorized
	case status == http.StatusForbidden:
		return ClassForbidden
	case status == http.StatusNotFound:
		return ClassNotFound
	case status == http.StatusConflict:
		return ClassConflict
	case status == http.StatusUnprocessableEntity:
		return ClassUnprocessable
	case status == http.StatusTooManyRequests:
		return ClassRateLimited
	case status >= 500:
		return ClassServerError
	default:
		return ClassUnknown
	}
}

// APIError is a non-2xx response from the management API.
type APIError struct {
	StatusCode int
	// Message is the upstream "message" field, or the status text.
	Message string
	// ErrorCode is the upstream "errorCode" field, if any.
	ErrorCode string
	// RetryAfter is parsed from the Retry-After header on 429 responses.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("management API returned %d (%s): %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("management API returned %d: %s", e.StatusCode, e.Message)
}

// StatusClass classifies the error's status code.
func (e *APIError) StatusClass() StatusClass {
	return ClassifyStatus(e.StatusCode)
}

// AsAPIError unwraps err to an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// TransportError is a failure to reach the management API at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// parseRetryAfter accepts both delta-seconds and HTTP-date forms.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
