package chat

import "github.com/mvidal-dev/schoolscout/internal/llm"

// ToolCall is one complete function call assembled from streamed
// deltas.
type ToolCall struct {
	Index     int
	Name      string
	Arguments string
}

// toolCallAccumulator assembles streamed tool-call fragments into
// whole calls. Fragments for the same index concatenate; a fragment
// with a new index flushes the in-progress call.
type toolCallAccumulator struct {
	current *ToolCall
	done    []ToolCall
}

func (a *toolCallAccumulator) Add(d llm.ToolCallDelta) {
	if a.current != nil && a.current.Index != d.Index {
		a.flush()
	}
	if a.current == nil {
		a.current = &ToolCall{Index: d.Index}
	}
	a.current.Name += d.Name
	a.current.Arguments += d.Arguments
}

func (a *toolCallAccumulator) flush() {
	if a.current != nil {
		a.done = append(a.done, *a.current)
		a.current = nil
	}
}

// Finish flushes any trailing in-progress call and returns the
// completed calls in arrival order.
func (a *toolCallAccumulator) Finish() []ToolCall {
	a.flush()
	return a.done
}
