package atlassian

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrRemoteUnavailable covers network failures, timeouts, auth rejections,
	// rate limiting and 5xx responses.
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrNotFound is returned for 404 responses and empty lookups.
	ErrNotFound = errors.New("not found")
)

// ValidationError means the remote rejected the request payload (400, 413, 422).
type ValidationError struct {
	Service string
	Status  int
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s API rejected request (%d): %s", e.Service, e.Status, e.Message)
}

// statusError maps a non-success response to one of the package errors.
// The body is included in the message, truncated.
func statusError(service string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(data))

	switch code := resp.StatusCode; {
	case code == http.StatusNotFound:
		return fmt.Errorf("%s API returned %d: %s: %w", service, code, msg, ErrNotFound)
	case code == http.StatusBadRequest, code == http.StatusRequestEntityTooLarge,
		code == http.StatusUnprocessableEntity:
		return &ValidationError{Service: service, Status: code, Message: msg}
	case code == http.StatusUnauthorized, code == http.StatusForbidden,
		code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("%s API returned %d: %s: %w", service, code, msg, ErrRemoteUnavailable)
	default:
		return fmt.Errorf("%s API returned %d: %s", service, code, msg)
	}
}
