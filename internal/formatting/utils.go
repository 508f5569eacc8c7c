package formatting

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PrettyJSON formats any value as indented JSON. Raw JSON input is
// re-indented as-is. Values that cannot be marshalled fall back to %v.
func PrettyJSON(v any) string {
	if raw, ok := v.(json.RawMessage); ok {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err == nil {
			return buf.String()
		}
		return string(raw)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
