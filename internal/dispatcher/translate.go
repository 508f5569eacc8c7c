package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"identity-mcp/internal/capability"
	"identity-mcp/internal/credential"
	"identity-mcp/internal/management"
	"identity-mcp/internal/metrics"
)

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.value)
}

// resolveMessage describes why name could not be resolved in the view.
func resolveMessage(name string, err error) string {
	var (
		policyErr *capability.PolicyError
		scopeErr  *capability.ScopeError
	)
	switch {
	case errors.As(err, &policyErr):
		return fmt.Sprintf("Tool %q is not available: %s.", name, policyErr.Reason)
	case errors.As(err, &scopeErr):
		return fmt.Sprintf("Tool %q requires scopes this credential was not granted: %s. Re-authenticate with those scopes.",
			name, strings.Join(scopeErr.Missing, " "))
	default:
		return fmt.Sprintf("Unknown tool %q. List the available tools and try again.", name)
	}
}

func credentialMessage(name string, err error) string {
	switch credential.ReasonOf(err) {
	case credential.ReasonExpiredToken:
		return fmt.Sprintf("%s: the access token has expired. Re-authenticate to continue.", name)
	case credential.ReasonMissingDomain:
		return fmt.Sprintf("%s: the credential has no tenant domain. Set TENANT_DOMAIN and re-authenticate.", name)
	default:
		return fmt.Sprintf("%s: no credential is available. Re-authenticate (run `identity-mcp login` in local mode).", name)
	}
}

// translateError turns a failed call into a one-line message with a
// remedial hint where one is known.
func translateError(name string, err error, timeout time.Duration) string {
	var (
		argErr       *capability.ArgumentError
		transportErr *management.TransportError
		pe           *panicError
	)

	if apiErr, ok := management.AsAPIError(err); ok {
		return fmt.Sprintf("%s: %s", name, apiMessage(apiErr))
	}

	switch {
	case errors.As(err, &argErr):
		return fmt.Sprintf("%s: invalid arguments: %v. Check the tool's input schema.", name, argErr.Err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%s: the operation timed out after %s. Try again or narrow the request.", name, timeout)
	case errors.Is(err, context.Canceled):
		return fmt.Sprintf("%s: the operation was cancelled.", name)
	case errors.Is(err, management.ErrNoCredential):
		return fmt.Sprintf("%s: no usable credential. Re-authenticate.", name)
	case errors.As(err, &transportErr):
		return fmt.Sprintf("%s: could not reach the management API: %v. Check network connectivity and try again.", name, transportErr.Err)
	case errors.As(err, &pe):
		return fmt.Sprintf("%s: internal error while running the tool.", name)
	default:
		return fmt.Sprintf("%s: %v", name, err)
	}
}

func apiMessage(e *management.APIError) string {
	msg := strings.TrimSuffix(e.Message, ".")
	switch e.StatusClass() {
	case management.ClassBadRequest:
		return fmt.Sprintf("Bad request (%d): %s. Check the arguments and try again.", e.StatusCode, msg)
	case management.ClassUnauthorized:
		return fmt.Sprintf("Authentication failed (%d): %s. Re-authenticate and try again.", e.StatusCode, msg)
	case management.ClassForbidden:
		return fmt.Sprintf("Permission denied (%d): %s. Check that the credential has the scopes this tool requires.", e.StatusCode, msg)
	case management.ClassNotFound:
		return fmt.Sprintf("Not found (%d): %s. Check the identifier.", e.StatusCode, msg)
	case management.ClassConflict:
		return fmt.Sprintf("Conflict (%d): %s. The resource already exists or was changed concurrently.", e.StatusCode, msg)
	case management.ClassUnprocessable:
		return fmt.Sprintf("Validation failed (%d): %s. Check the field values.", e.StatusCode, msg)
	case management.ClassRateLimited:
		if e.RetryAfter > 0 {
			secs := int(math.Ceil(e.RetryAfter.Seconds()))
			return fmt.Sprintf("Rate limited (%d): %s. Wait %d seconds and retry.", e.StatusCode, msg, secs)
		}
		return fmt.Sprintf("Rate limited (%d): %s. Wait a moment and retry.", e.StatusCode, msg)
	case management.ClassServerError:
		return fmt.Sprintf("Management API error (%d): %s. Try again later.", e.StatusCode, msg)
	default:
		return fmt.Sprintf("Management API returned %d: %s.", e.StatusCode, msg)
	}
}

func outcomeOf(err error) string {
	var pe *panicError
	switch {
	case errors.As(err, &pe):
		return metrics.OutcomeInternal
	case errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeTimeout
	case errors.Is(err, management.ErrNoCredential):
		return metrics.OutcomeUnauthorized
	default:
		return metrics.OutcomeUpstream
	}
}

// singleLine collapses all whitespace runs, newlines included, to one space.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
