package bugsplat

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid bugsplat configuration")
	// ErrAuthentication indicates the login handshake failed
	ErrAuthentication = errors.New("bugsplat authentication failed")
	// ErrMalformedPage indicates a listing response without the expected shape
	ErrMalformedPage = errors.New("malformed bugsplat response")
	// ErrRejected indicates BugSplat did not acknowledge a user change
	ErrRejected = errors.New("bugsplat rejected the request")
	// ErrNoArchive indicates a crash has no downloadable archive
	ErrNoArchive = errors.New("crash has no archive url")
)

// APIError represents a BugSplat HTTP error
type APIError struct {
	StatusCode int
	Message    string
	URL        string
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("bugsplat API error: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// RejectedError is returned when a user change is answered with anything but "1"
type RejectedError struct {
	Action   string
	Database string
	Body     string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s on %s rejected, bugsplat returned: %q", e.Action, e.Database, e.Body)
}

// Is lets errors.Is match ErrRejected
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}
