// Package apierr defines the error kinds shared by the vendor adapters and
// the HTTP handlers, and how each kind maps to a response status.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mdobak/go-xerrors"
)

// maxBodyInMessage bounds how much of an upstream body is echoed back.
const maxBodyInMessage = 200

// ConfigError reports required configuration that is missing. It always
// points at a deployment problem.
type ConfigError struct {
	Keys []string
}

func (e *ConfigError) Error() string {
	return "missing configuration: " + strings.Join(e.Keys, ", ")
}

// UpstreamError reports a third-party service that rejected a request or
// could not be reached. Status is the upstream HTTP status, 0 when none was
// received.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
	Err     error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s responded with %d: %s", e.Service, e.Status, truncate(e.Body))
	default:
		return fmt.Sprintf("%s rejected the request: %s", e.Service, truncate(e.Body))
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ValidationError reports bad client input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Config returns a ConfigError naming the missing keys.
func Config(keys ...string) error {
	return xerrors.WithStackTrace(&ConfigError{Keys: keys}, 1)
}

// Upstream returns an UpstreamError. cause is nil when the service answered
// but refused.
func Upstream(service string, status int, body string, cause error) error {
	return xerrors.WithStackTrace(&UpstreamError{
		Service: service,
		Status:  status,
		Body:    strings.TrimSpace(body),
		Err:     cause,
	}, 1)
}

// Validation returns a ValidationError with a formatted message.
func Validation(format string, args ...any) error {
	return xerrors.WithStackTrace(&ValidationError{Msg: fmt.Sprintf(format, args...)}, 1)
}

// HTTPStatus maps err to the status a handler should answer with.
func HTTPStatus(err error) int {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// UpstreamStatus returns the status code carried by an UpstreamError in
// err's chain.
func UpstreamStatus(err error) (int, bool) {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) && upstreamErr.Status != 0 {
		return upstreamErr.Status, true
	}
	return 0, false
}

func truncate(s string) string {
	if len(s) <= maxBodyInMessage {
		return s
	}
	return s[:maxBodyInMessage] + "..."
}
