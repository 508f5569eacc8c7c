package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapability_ValidateArguments(t *testing.T) {
	r, err := NewRegistry([]Capability{{
		Name:    "list_items",
		Handler: noopHandler,
		InputSchema: []byte(`{
			"type": "object",
			"required": ["kind"],
			"properties": {
				"kind": {"type": "string", "enum": ["a", "b"]},
				"page": {"type": "integer", "minimum": 0}
			},
			"additionalProperties": false
		}`),
	}})
	require.NoError(t, err)
	c, err := r.Resolve("list_items")
	require.NoError(t, err)

	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
	}{
		{name: "valid", args: map[string]any{"kind": "a", "page": float64(0)}},
		{name: "missing required", args: map[string]any{"page": float64(1)}, wantErr: "kind"},
		{name: "nil args missing required", args: nil, wantErr: "kind"},
		{name: "wrong type", args: map[string]any{"kind": "a", "page": "first"}, wantErr: "/page"},
		{name: "below minimum", args: map[string]any{"kind": "a", "page": float64(-1)}, wantErr: "/page"},
		{name: "not an integer", args: map[string]any{"kind": "a", "page": 1.5}, wantErr: "/page"},
		{name: "enum", args: map[string]any{"kind": "c"}, wantErr: "/kind"},
		{name: "unknown property", args: map[string]any{"kind": "a", "extra": true}, wantErr: "extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.ValidateArguments(tt.args)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var argErr *ArgumentError
			require.ErrorAs(t, err, &argErr)
			assert.Equal(t, "list_items", argErr.Name)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.NotContains(t, err.Error(), "\n", "schema errors should be single-line")
		})
	}
}

func TestCapability_DefaultSchemaAcceptsEmptyArguments(t *testing.T) {
	r, err := NewRegistry([]Capability{{Name: "ping", Handler: noopHandler}})
	require.NoError(t, err)
	c, err := r.Resolve("ping")
	require.NoError(t, err)

	assert.NoError(t, c.ValidateArguments(nil))
	assert.JSONEq(t, `{"type":"object","properties":{}}`, string(c.InputSchema))
}
