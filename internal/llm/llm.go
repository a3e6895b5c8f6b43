// Package llm defines the completion collaborator: the chat-completion
// capability the orchestrator talks to, and an OpenAI-backed adapter.
//
// The streaming contract is the raw chat-completions delta shape: each
// event optionally carries content and tool-call fragments keyed by
// call index. Accumulating those fragments into whole calls is the
// caller's job (see the chat package), not the client's.
package llm

import "context"

// Role of a chat message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System builds a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant builds an assistant message.
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Tool describes one function the model may call. Parameters is a JSON
// Schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCallDelta is a streamed fragment of a tool call. Name arrives on
// the first fragment for an index; Arguments accumulate across
// fragments with the same index.
type ToolCallDelta struct {
	Index     int
	Name      string
	Arguments string
}

// Chunk is one streamed delta event.
type Chunk struct {
	Content   string
	ToolCalls []ToolCallDelta
}

// Client is the completion collaborator.
type Client interface {
	// Complete runs a non-streaming completion and returns the final
	// text. Used for side-channel decision calls.
	Complete(ctx context.Context, messages []Message) (string, error)

	// Stream runs a streaming completion, invoking fn for every delta
	// event in order. A non-nil error from fn aborts the stream.
	Stream(ctx context.Context, messages []Message, tools []Tool, fn func(Chunk) error) error
}
