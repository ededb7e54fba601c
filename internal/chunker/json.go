package chunker

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

const maxJSONDepth = 10

// extractJSON recursively concatenates string/number/boolean leaves of a
// JSON document, depth-limited to 10, per spec.md §4.2.
func extractJSON(src []byte) string {
	var doc interface{}
	if err := json.Unmarshal(src, &doc); err != nil {
		return string(src)
	}
	var sb strings.Builder
	walkJSON(doc, 0, &sb)
	return sb.String()
}

func walkJSON(v interface{}, depth int, sb *strings.Builder) {
	if depth > maxJSONDepth {
		return
	}
	switch t := v.(type) {
	case string:
		sb.WriteString(t)
		sb.WriteString("\n")
	case float64:
		sb.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
		sb.WriteString("\n")
	case bool:
		sb.WriteString(strconv.FormatBool(t))
		sb.WriteString("\n")
	case nil:
		// omit
	case []interface{}:
		for _, item := range t {
			walkJSON(item, depth+1, sb)
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkJSON(t[k], depth+1, sb)
		}
	}
}
