package session

import (
	"fmt"
	"strings"
	"sync"
)

// Role identifies the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultMaxEntries caps history at 10 turns (a turn is a user entry plus
// an assistant entry).
const DefaultMaxEntries = 20

// Turn is one utterance in the conversation.
type Turn struct {
	Role Role
	Text string
}

// History is the bounded per-session turn memory. Oldest entries are dropped
// first once the cap is reached.
type History struct {
	mu      sync.Mutex
	turns   []Turn
	maxSize int
}

// NewHistory creates a History retaining at most maxEntries entries.
func NewHistory(maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &History{
		turns:   make([]Turn, 0, maxEntries),
		maxSize: maxEntries,
	}
}

// Append records a turn, trimming the oldest entries past the cap.
func (h *History) Append(role Role, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, Turn{Role: role, Text: text})
	if len(h.turns) > h.maxSize {
		h.turns = h.turns[len(h.turns)-h.maxSize:]
	}
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Turns returns a copy of the retained entries, oldest first.
func (h *History) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Render joins the retained turns as "Speaker: content" lines, most recent
// last. Assistant turns are labelled with the persona's display name.
func (h *History) Render(assistantName string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.turns) == 0 {
		return ""
	}
	if assistantName == "" {
		assistantName = "Assistant"
	}

	var sb strings.Builder
	for _, t := range h.turns {
		label := "User"
		if t.Role == RoleAssistant {
			label = assistantName
		}
		fmt.Fprintf(&sb, "%s: %s\n", label, t.Text)
	}
	return strings.TrimRight(sb.String(), "\n")
}
