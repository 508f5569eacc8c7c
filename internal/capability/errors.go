package capability

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("capability not found")

// NotFoundError is returned for a name that is not in the catalog.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PolicyError is returned for a catalog entry excluded by the allow-list or
// read-only mode.
type PolicyError struct {
	Name   string
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("tool %q is not available: %s", e.Name, e.Reason)
}

// ScopeError is returned when the caller's grant lacks required scopes.
type ScopeError struct {
	Name    string
	Missing []string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("tool %q requires scopes not granted to this credential: %s",
		e.Name, strings.Join(e.Missing, " "))
}

// ArgumentError is returned when arguments do not satisfy the input schema.
type ArgumentError struct {
	Name string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %q: %v", e.Name, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}
