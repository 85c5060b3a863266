package transport

import (
	"fmt"
	"net/http"
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code %d from %s", e.Code, e.URL)
	}
	return fmt.Sprintf("unexpected status code %d from %s: %s", e.Code, e.URL, e.Body)
}

// Temporary reports whether retrying the request may succeed
func (e *StatusError) Temporary() bool {
	switch {
	case e.Code == http.StatusRequestTimeout, e.Code == http.StatusTooManyRequests:
		return true
	case e.Code >= 500:
		return true
	default:
		return false
	}
}
