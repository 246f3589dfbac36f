package yahoo

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a non-2xx response from the provider.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, http.StatusText(e.Code))
}

// Error is returned once every attempt of one upstream call has
// failed. Transient marks rate limiting and transport failures, the
// classes that were retried with backoff.
type Error struct {
	Attempts  int
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err exhausted retries on a transient
// failure class (HTTP 429 or a network error).
func IsTransient(err error) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.Transient
}
