// context.go assembles the exact prompt payload for the model call:
// personality + long-term memories + recent turns + optional web
// context. Pure read-and-compose; never mutates history or facts.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/eliahq/elia/pkg/elia/store"
)

// lookupTokens are the words that make an input worth a web lookup.
var lookupTokens = map[string]struct{}{
	"latest":  {},
	"news":    {},
	"today":   {},
	"current": {},
	"weather": {},
	"price":   {},
}

// wantsLookup reports whether the input looks like a question about
// current information. Cheap heuristic: an interrogative mark or a
// recency-class token.
func wantsLookup(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!;:\"'")
		if _, ok := lookupTokens[word]; ok {
			return true
		}
	}
	return false
}

// assembleContext builds the system-role instruction string for one
// message. The personality is required; memories, history, and web
// context are best-effort enrichments.
func (a *Agent) assembleContext(ctx context.Context, channelID, userID, input string) (string, error) {
	personality, err := a.store.GetConfig(ctx, store.KeyPersonality)
	if err != nil {
		return "", fmt.Errorf("%w: personality: %v", ErrConfiguration, err)
	}
	if personality == "" {
		return "", fmt.Errorf("%w: personality is empty", ErrConfiguration)
	}

	var b strings.Builder
	b.WriteString(personality)

	// Long-term memory: absence is fine, a read failure only costs the
	// enrichment.
	facts, err := a.store.Facts(ctx, userID)
	if err != nil {
		a.logger.Warn("memory fetch failed, continuing without", "user_id", userID, "error", err)
		facts = nil
	}
	if len(facts) > 0 {
		b.WriteString("\nMemories of user: ")
		b.WriteString(strings.Join(facts, " | "))
	}

	if hist := a.history.Joined(channelID); hist != "" {
		b.WriteString("\nRecent conversation:\n")
		b.WriteString(hist)
	}

	if a.lookup != nil && a.cfg.Lookup.Enabled && wantsLookup(input) {
		lctx, cancel := context.WithTimeout(ctx, a.cfg.Lookup.Timeout())
		defer cancel()

		result, err := a.lookup.Search(lctx, input)
		if err != nil {
			// Lookup faults are recovered silently into empty context.
			a.logger.Debug("web lookup failed, continuing without",
				"error", fmt.Errorf("%w: %v", ErrLookup, err))
		} else if result != "" {
			b.WriteString("\nContext from the web:\n")
			b.WriteString(result)
		}
	}

	return b.String(), nil
}
