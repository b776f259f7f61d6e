package shared

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Configuration errors
	ErrConfig             = fmt.Errorf("configuration error")
	ErrMissingConfig      = fmt.Errorf("%w: configuration not found", ErrConfig)
	ErrInvalidConfig      = fmt.Errorf("%w: invalid configuration", ErrConfig)
	ErrMissingCredentials = fmt.Errorf("%w: missing credentials", ErrConfig)

	// Authentication errors
	ErrAuth             = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Remote API errors
	ErrNetwork = fmt.Errorf("network error")
	ErrAPI     = fmt.Errorf("API request failed")
	ErrParse   = fmt.Errorf("malformed response")

	// Input validation errors
	ErrValidation      = fmt.Errorf("validation failed")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// APIError is a non-success response from the remote playlist system.
//
// It unwraps to [ErrAPI] so callers can match the category with [errors.Is]
// and still recover the status code with [errors.As].
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%v: %s %s returned status %d: %s", ErrAPI, e.Method, e.Endpoint, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return ErrAPI
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an [APIError].
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is an [APIError] with status 401.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}
