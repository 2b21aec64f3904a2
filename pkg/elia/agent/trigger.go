// trigger.go decides whether a message gets a reply at all.
package agent

import (
	"fmt"
	"strconv"
)

// ShouldReply applies the trigger rule: respond when the agent is
// explicitly mentioned, or when a fresh uniform draw in [0,1) lands
// below the configured reply chance. No state is kept between calls.
//
// A mention short-circuits before the chance is consulted, so a broken
// reply_chance value never mutes direct addresses. For ambient
// messages, an unparsable or out-of-range chance is a configuration
// fault that aborts this one evaluation only.
func ShouldReply(mentioned bool, replyChance string, draw func() float64) (bool, error) {
	if mentioned {
		return true, nil
	}

	p, err := strconv.ParseFloat(replyChance, 64)
	if err != nil {
		return false, fmt.Errorf("%w: reply_chance %q is not a number", ErrConfiguration, replyChance)
	}
	if p < 0 || p > 1 {
		return false, fmt.Errorf("%w: reply_chance %v outside [0,1]", ErrConfiguration, p)
	}

	return draw() < p, nil
}
