package main

import (
	"testing"

	"identity-mcp/cmd"
)

func TestVersion(t *testing.T) {
	// Test default version
	if version != "dev" {
		t.Errorf("Expected default version to be 'dev', got %s", version)
	}
}

func TestSetVersionPropagates(t *testing.T) {
	cmd.SetVersion(version)
	if got := cmd.GetVersion(); got != version {
		t.Errorf("Expected command version %q, got %q", version, got)
	}
}
