// filter.go implements the content filter gate. Input patterns are
// checked before any model call; output patterns after it, before the
// reply is sent or logged.
package agent

import "strings"

// Fixed gate texts. The unfiltered model output behind a redaction is
// never persisted or transmitted.
const (
	RefusalText   = "I can't talk about that."
	RedactionText = "[filtered]"
)

// FilterBlocked reports whether any pattern is a case-insensitive
// substring of the text. Empty patterns are ignored.
func FilterBlocked(text string, patterns []string) bool {
	lowered := strings.ToLower(text)
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
