// Package lookup provides HTTP clients for the external collaborators:
// citation lookup, quote lookup, glossary terms and translation. Every
// failure here is non-fatal and localized to the one UI element that
// requested it; callers fall back rather than propagate.
package lookup

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a citation refId resolves to nothing.
var ErrNotFound = errors.New("lookup: not found")

// ServiceError wraps errors with service context.
type ServiceError struct {
	Service   string // e.g. "citations"
	Operation string // e.g. "resolve"
	Err       error
	Retryable bool
}

func (e *ServiceError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("lookup %q %s failed: %v", e.Service, e.Operation, e.Err)
	}
	return fmt.Sprintf("lookup %q: %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// HTTPError represents a non-2xx response.
type HTTPError struct {
	Service    string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("lookup %q: HTTP %s", e.Service, e.Status)
}

// IsRetryable reports whether the status is worth retrying: server
// errors and 429, not client errors.
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
