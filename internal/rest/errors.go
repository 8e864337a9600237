package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// APIError is a non-2xx response from the remote service. It carries enough
// context to reproduce the failing call.
type APIError struct {
	// Code is the remote error code, for example "NotFound".
	Code string
	// Message is the remote human-readable message.
	Message string
	// Meta is optional remote metadata.
	Meta map[string]any
	// StatusCode is the HTTP status.
	StatusCode int
	// Method and Path identify the route.
	Method string
	Path   string
	// URL is the full request URL including query.
	URL string
	// RequestBody is the JSON body that was sent, if any.
	RequestBody []byte
	// RetryAfter is the server-suggested delay on rate-limit responses.
	RetryAfter time.Duration
}

// Error returns one operator-readable failure summary.
func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}

	fields := make([]string, 0, 4)
	fields = append(fields, fmt.Sprintf("status=%d", e.StatusCode))
	if code := strings.TrimSpace(e.Code); code != "" {
		fields = append(fields, "code="+code)
	}
	if e.RetryAfter > 0 {
		fields = append(fields, "retry_after="+e.RetryAfter.String())
	}
	message := strings.TrimSpace(e.Message)
	if message == "" {
		message = http.StatusText(e.StatusCode)
	}

	return fmt.Sprintf("rest: %s %s: %s (%s)", e.Method, e.Path, message, strings.Join(fields, " "))
}

// IsRateLimited reports whether the error is an HTTP 429.
func (e *APIError) IsRateLimited() bool {
	return e != nil && e.StatusCode == http.StatusTooManyRequests
}

// AsAPIError unwraps err into an APIError.
func AsAPIError(err error) (*APIError, bool) {
	var target *APIError
	if !errors.As(err, &target) {
		return nil, false
	}

	return target, true
}

// IsAPIError reports whether err carries the remote error code.
func IsAPIError(err error, code string) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Code == code
}

// IsStatus reports whether err carries the HTTP status.
func IsStatus(err error, status int) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.StatusCode == status
}
