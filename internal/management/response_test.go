package management

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantKind  Kind
		wantItems int
		wantTotal *int
	}{
		{name: "empty body", body: "", wantKind: KindEmpty},
		{name: "whitespace body", body: "  \n", wantKind: KindEmpty},
		{name: "bare array", body: `[{"id":1},{"id":2},{"id":3}]`, wantKind: KindList, wantItems: 3},
		{name: "empty array", body: `[]`, wantKind: KindList, wantItems: 0},
		{
			name:      "paginated wrapper",
			body:      `{"clients":[{"client_id":"a"}],"start":0,"limit":50,"total":1}`,
			wantKind:  KindList,
			wantItems: 1,
			wantTotal: intPtr(1),
		},
		{
			name:      "checkpoint wrapper",
			body:      `{"logs":[{"log_id":"1"},{"log_id":"2"}],"next":"abc"}`,
			wantKind:  KindList,
			wantItems: 2,
		},
		{name: "plain object", body: `{"client_id":"a","callbacks":["https://x"]}`, wantKind: KindObject},
		{name: "object with array but no paging", body: `{"id":"a","supported_triggers":[]}`, wantKind: KindObject},
		{name: "scalar", body: `"ok"`, wantKind: KindObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Normalize([]byte(tt.body))
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantKind, resp.Kind)
			assert.Len(t, resp.Items, tt.wantItems)
			assert.Equal(t, tt.wantTotal, resp.Total)
			if tt.wantKind != KindEmpty {
				assert.Equal(t, tt.body, resp.Text(), "payload must pass through unchanged")
			}
		})
	}
}

func intPtr(i int) *int {
	return &i
}
