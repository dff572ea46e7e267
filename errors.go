package main

import (
	"fmt"
	"time"
)

// usageError reports a malformed invocation. The usage text is printed after
// the message and the process exits with status 2.
type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }

// validationError reports a well-formed invocation carrying a bad value.
type validationError struct {
	msg string
}

func (e validationError) Error() string { return e.msg }

// HTTPError is returned when the endpoint answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP Error: %s\n%s", e.Status, e.Body)
}

// TimeoutError is returned when the request outlives its configured timeout.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Request timed out after %dms", e.Timeout.Milliseconds())
}
