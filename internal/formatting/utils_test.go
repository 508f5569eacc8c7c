package formatting

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrettyJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{
			name:     "simple object",
			input:    map[string]any{"name": "test", "value": 42},
			expected: "{\n  \"name\": \"test\",\n  \"value\": 42\n}",
		},
		{
			name:     "array",
			input:    []string{"a", "b", "c"},
			expected: "[\n  \"a\",\n  \"b\",\n  \"c\"\n]",
		},
		{
			name:     "string",
			input:    "hello world",
			expected: "\"hello world\"",
		},
		{
			name:     "nil",
			input:    nil,
			expected: "null",
		},
		{
			name:     "raw schema",
			input:    json.RawMessage(`{"type":"object","properties":{}}`),
			expected: "{\n  \"type\": \"object\",\n  \"properties\": {}\n}",
		},
		{
			name:     "invalid raw",
			input:    json.RawMessage(`{oops`),
			expected: "{oops",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PrettyJSON(tt.input))
		})
	}
}

func TestPrettyJSONWithInvalidData(t *testing.T) {
	ch := make(chan int)
	assert.NotEmpty(t, PrettyJSON(ch))
}
