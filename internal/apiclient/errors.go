package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for transport-level API failures.
var (
	ErrUnreachable     = errors.New("api unreachable")
	ErrTimeout         = errors.New("api request timeout")
	ErrInvalidResponse = errors.New("invalid api response")
)

// terminalMessages are shown to the user instead of raw server errors. These
// statuses are never retried.
var terminalMessages = map[int]string{
	http.StatusForbidden:             "access denied: the API key lacks permission or the upload link expired",
	http.StatusNotFound:              "not found: the document or resource no longer exists",
	http.StatusConflict:              "conflict: the file already exists or the request was out of order",
	http.StatusRequestEntityTooLarge: "payload too large: the file or text exceeds the server limit",
	http.StatusTooManyRequests:       "too many requests: rate limit reached, try again later",
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if msg, ok := terminalMessages[e.StatusCode]; ok {
		if e.Message != "" {
			return fmt.Sprintf("%s (%s)", msg, e.Message)
		}
		return msg
	}
	if e.Message != "" {
		return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// Terminal reports whether the status maps to a fixed user-facing message.
func (e *APIError) Terminal() bool {
	_, ok := terminalMessages[e.StatusCode]
	return ok
}

// IsTerminal reports whether err is an APIError with a terminal status.
func IsTerminal(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Terminal()
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// IsRetryable reports whether a request that failed with err may succeed if
// sent again: timeouts, connection failures and 5xx responses.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnreachable) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return false
}
