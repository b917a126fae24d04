package nodeexec

import (
	"fmt"
	"strings"
)

// expandPlaceholders replaces every "{{key}}" occurrence in s with the
// string form of values[key]. A key with no entry in values is left
// untouched, matching the dotted-path addressing rule that a missing
// reference is absence rather than an error.
func expandPlaceholders(s string, values map[string]interface{}) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "{{")
		if start == -1 {
			b.WriteString(s)
			break
		}
		end := strings.Index(s[start:], "}}")
		if end == -1 {
			b.WriteString(s)
			break
		}
		end += start
		key := strings.TrimSpace(s[start+2 : end])
		b.WriteString(s[:start])
		if v, ok := values[key]; ok {
			b.WriteString(fmt.Sprintf("%v", v))
		} else {
			b.WriteString(s[start : end+2])
		}
		s = s[end+2:]
	}
	return b.String()
}
