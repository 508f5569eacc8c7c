package config

import (
	"fmt"
	"strings"
)

// MissingError lists every required environment variable that has no value.
type MissingError struct {
	Names []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Names, ", "))
}

// InvalidError wraps a format validation failure of an otherwise present value.
type InvalidError struct {
	Err error
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *InvalidError) Unwrap() error {
	return e.Err
}
