package videos

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested video is absent from an otherwise
	// successful listing.
	ErrNotFound = errors.New("video not found")
	// ErrInvalidCredentials indicates a login attempt with missing or rejected credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMalformedResponse indicates the backend answered with a shape the client cannot use.
	ErrMalformedResponse = errors.New("malformed backend response")
)

// ValidationError reports a locally violated precondition. No request has
// been sent when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("validation failed: %s is required", e.Field)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// NetworkError reports a transport failure or a non-2xx response. Status is
// zero when the request never produced a response.
type NetworkError struct {
	Status int
	Body   string
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api request failed: %v", e.Err)
	}
	return fmt.Sprintf("api error: %d - %s", e.Status, e.Body)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func missing(field string) error {
	return &ValidationError{Field: field}
}
