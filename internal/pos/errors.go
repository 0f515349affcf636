package pos

import "fmt"

// AuthError signals that the POS login call failed. Detail carries the
// upstream message when one was available.
type AuthError struct {
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("pos authentication failed: %s", e.Detail)
	}
	return "pos authentication failed"
}

func (e *AuthError) Unwrap() error { return e.Err }

// RequestError signals that a report-fetch call failed (timeout, non-2xx,
// malformed body). Status is the HTTP status code when the server responded.
type RequestError struct {
	Status int
	Detail string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("pos request failed (status %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("pos request failed: %s", e.Detail)
}

func (e *RequestError) Unwrap() error { return e.Err }
