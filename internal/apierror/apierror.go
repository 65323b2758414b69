// Package apierror describes failed calls to the upstream HTTP services.
package apierror

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a failed call to Timing or Notion. StatusCode is zero when the
// request never got a response.
type Error struct {
	Service    string
	Op         string
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Service, e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": unexpected status %d", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, ": %s", e.Body)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Details renders the request context for error reports.
func (e *Error) Details() string {
	status := "N/A"
	if e.StatusCode != 0 {
		status = fmt.Sprint(e.StatusCode)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "API URL: %s %s\nStatus Code: %s", e.Method, e.URL, status)
	if e.Body != "" {
		fmt.Fprintf(&b, "\nResponse: %s", e.Body)
	}
	return b.String()
}

// Describe returns the Details of the first *Error in err's chain, or the
// plain error text when there is none.
func Describe(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Details()
	}
	return "Error: " + err.Error()
}
