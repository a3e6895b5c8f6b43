package chat

import "github.com/mvidal-dev/schoolscout/internal/llm"

// History is the durable message history of one conversation. It keeps
// at most one system message, always at index 0.
type History struct {
	messages []llm.Message
}

// NewHistory creates a History seeded with systemPrompt.
func NewHistory(systemPrompt string) *History {
	h := &History{}
	if systemPrompt != "" {
		h.messages = append(h.messages, llm.System(systemPrompt))
	}
	return h
}

// Resume rebuilds a History from persisted messages.
func Resume(messages []llm.Message) *History {
	h := &History{}
	h.messages = append(h.messages, messages...)
	return h
}

// Append adds a message to the history.
func (h *History) Append(m llm.Message) {
	h.messages = append(h.messages, m)
}

// Messages returns a copy of the history.
func (h *History) Messages() []llm.Message {
	out := make([]llm.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of messages.
func (h *History) Len() int { return len(h.messages) }

// withSystem returns a copy of the history with the system prompt
// replaced. Decision calls run against the copy so the substitution
// never reaches the durable history.
func (h *History) withSystem(prompt string) []llm.Message {
	out := make([]llm.Message, 0, len(h.messages)+1)
	out = append(out, llm.System(prompt))
	rest := h.messages
	if len(rest) > 0 && rest[0].Role == llm.RoleSystem {
		rest = rest[1:]
	}
	return append(out, rest...)
}
