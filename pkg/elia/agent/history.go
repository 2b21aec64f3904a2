// history.go implements the per-channel rolling conversation window.
// Short-term cache only: never persisted, lost on restart by design.
package agent

import (
	"strings"
	"sync"
)

// channelHistory is the bounded turn window for one channel. Each
// channel carries its own lock so unrelated channels never contend.
type channelHistory struct {
	mu    sync.Mutex
	turns []string
}

// History maps channel ids to independently-locked turn windows.
// The outer lock only guards the map itself, never a window's contents.
type History struct {
	mu       sync.Mutex
	window   int
	channels map[string]*channelHistory
}

// NewHistory creates a history cache keeping the last `window` turns
// per channel.
func NewHistory(window int) *History {
	if window <= 0 {
		window = 5
	}
	return &History{
		window:   window,
		channels: make(map[string]*channelHistory),
	}
}

func (h *History) channel(channelID string) *channelHistory {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.channels[channelID]
	if !ok {
		ch = &channelHistory{}
		h.channels[channelID] = ch
	}
	return ch
}

// Append adds turns to a channel's window in finalization order,
// evicting the oldest once the window is full. Both turns of an
// exchange are appended under one lock acquisition, so two concurrent
// completions for the same channel cannot interleave their pairs.
func (h *History) Append(channelID string, turns ...string) {
	ch := h.channel(channelID)
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.turns = append(ch.turns, turns...)
	if over := len(ch.turns) - h.window; over > 0 {
		ch.turns = append(ch.turns[:0], ch.turns[over:]...)
	}
}

// Recent returns a copy of the channel's turns, oldest first.
func (h *History) Recent(channelID string) []string {
	ch := h.channel(channelID)
	ch.mu.Lock()
	defer ch.mu.Unlock()

	out := make([]string, len(ch.turns))
	copy(out, ch.turns)
	return out
}

// Joined returns the channel's turns as a single newline-joined string
// for prompt assembly. Empty string when the channel has no history.
func (h *History) Joined(channelID string) string {
	return strings.Join(h.Recent(channelID), "\n")
}

// Wipe empties one channel's window, leaving every other channel
// untouched.
func (h *History) Wipe(channelID string) {
	ch := h.channel(channelID)
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.turns = nil
}

// Channels returns the number of channels seen so far.
func (h *History) Channels() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels)
}
