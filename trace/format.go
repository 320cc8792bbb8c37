package trace

import (
	"encoding/json"
	"fmt"
)

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func compactJSON(v any) string {
	if v == nil {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// countItems handles both freshly emitted payloads and payloads decoded
// from a checkpoint.
func countItems(v any) int {
	switch items := v.(type) {
	case []any:
		return len(items)
	case []map[string]any:
		return len(items)
	case []string:
		return len(items)
	default:
		return 0
	}
}
