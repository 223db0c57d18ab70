package rest

import (
	"errors"
	"fmt"
)

// ErrEndOfResults signals normal exhaustion of a paginated sequence. Like
// io.EOF it is not a failure; test with errors.Is.
var ErrEndOfResults = errors.New("smsgate/rest: end of results")

// StatusError is a non-200 response from the gateway.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("smsgate/rest: gateway returned status %d: %s", e.Code, e.Body)
}

// APIError is a well-formed gateway response with success=false.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("smsgate/rest: api error: %s", e.Message)
}

// TypeMismatchError is a modem response whose type tag does not match the
// requested query.
type TypeMismatchError struct {
	Expected string
	Actual   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("smsgate/rest: modem response type %q, want %q", e.Actual, e.Expected)
}
