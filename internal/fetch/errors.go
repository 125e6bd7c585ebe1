package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is returned when a request could not be completed within its attempt budget
// or was answered with a non-retryable error status.
type Error struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d %s after %d attempt(s)", e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Attempts)
	}
	return fmt.Sprintf("fetch %s: failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsForbidden reports whether err carries a 403 response.
func IsForbidden(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.StatusCode == http.StatusForbidden
}

// StatusCode extracts the HTTP status from err, or 0 when there is none.
func StatusCode(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}
