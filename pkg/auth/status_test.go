package auth

import (
	"testing"
	"time"
)

func TestStatusResponse_ExpiresIn(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status StatusResponse
		want   time.Duration
	}{
		{name: "no expiry", status: StatusResponse{}, want: 0},
		{name: "expired", status: StatusResponse{ExpiresAt: now.Add(-time.Minute)}, want: 0},
		{name: "valid", status: StatusResponse{ExpiresAt: now.Add(90 * time.Second)}, want: 90 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.ExpiresIn(now); got != tt.want {
				t.Errorf("ExpiresIn() = %v, want %v", got, tt.want)
			}
		})
	}
}
