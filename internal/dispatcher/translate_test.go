package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"identity-mcp/internal/capability"
	"identity-mcp/internal/management"

	"github.com/stretchr/testify/assert"
)

func TestTranslateError_StatusClasses(t *testing.T) {
	tests := []struct {
		status int
		want   []string
	}{
		{400, []string{"Bad request (400)", "Check the arguments"}},
		{401, []string{"Authentication failed (401)", "Re-authenticate"}},
		{403, []string{"Permission denied (403)", "scopes"}},
		{404, []string{"Not found (404)"}},
		{409, []string{"Conflict (409)"}},
		{422, []string{"Validation failed (422)"}},
		{429, []string{"Rate limited (429)", "Wait a moment"}},
		{500, []string{"Management API error (500)", "Try again later"}},
		{503, []string{"Management API error (503)"}},
		{418, []string{"Management API returned 418"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := &management.APIError{StatusCode: tt.status, Message: "upstream said no"}
			msg := translateError("auth0_get_application", err, time.Second)
			assert.Contains(t, msg, "auth0_get_application")
			assert.Contains(t, msg, "upstream said no")
			for _, want := range tt.want {
				assert.Contains(t, msg, want)
			}
		})
	}
}

func TestTranslateError_Other(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "retry after",
			err:  &management.APIError{StatusCode: 429, Message: "slow down", RetryAfter: 1500 * time.Millisecond},
			want: "Wait 2 seconds and retry",
		},
		{
			name: "wrapped api error",
			err:  fmt.Errorf("call: %w", &management.APIError{StatusCode: 404, Message: "gone"}),
			want: "Not found (404): gone",
		},
		{
			name: "arguments",
			err:  &capability.ArgumentError{Name: "x", Err: errors.New("/page: must be >= 0")},
			want: "invalid arguments: /page: must be >= 0",
		},
		{
			name: "deadline through transport",
			err:  &management.TransportError{Op: "GET /clients", Err: context.DeadlineExceeded},
			want: "timed out after 1s",
		},
		{
			name: "transport",
			err:  &management.TransportError{Op: "GET /clients", Err: errors.New("connection refused")},
			want: "could not reach the management API: connection refused",
		},
		{
			name: "panic",
			err:  &panicError{value: "boom"},
			want: "internal error",
		},
		{
			name: "plain",
			err:  errors.New("something odd"),
			want: "something odd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, translateError("tool", tt.err, time.Second), tt.want)
		})
	}
}

func TestErrorResult_IsSingleLine(t *testing.T) {
	err := &management.APIError{StatusCode: 400, Message: "line one\nline two"}
	res := errorResult(translateError("tool", err, time.Second))
	assert.True(t, res.IsError)
	assert.NotContains(t, resultText(t, res), "\n")
	assert.Contains(t, resultText(t, res), "line one line two")
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, "internal_error", outcomeOf(&panicError{}))
	assert.Equal(t, "timeout", outcomeOf(context.DeadlineExceeded))
	assert.Equal(t, "unauthorized", outcomeOf(management.ErrNoCredential))
	assert.Equal(t, "upstream_error", outcomeOf(&management.APIError{StatusCode: 500}))
}
