package graph

import "fmt"

// ValidationError reports malformed caller input detected before any
// network call is made. It is never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid graph request: " + e.Reason
}

// StatusError is a terminal HTTP failure: a permanent 4xx response, or a
// transient status that survived the retry budget.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graph request to %s failed with status %d: %s",
		e.URL, e.StatusCode, e.Body)
}

// DecodeError reports a response body that was not valid JSON where JSON
// was expected. Retrying will not fix a malformed payload, so it is
// treated as terminal.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid JSON in response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
