// Package chat runs the conversation loop: each user turn passes
// through a memory check, a retrieval check, and a streamed generation
// pass that may loop through tool dispatch before settling on a final
// reply.
//
// The two decision calls run against throwaway copies of the history
// with their own system prompts; only retrieval context, tool results,
// and the final reply reach the durable history. Malformed model JSON
// never aborts a turn.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mvidal-dev/schoolscout/internal/llm"
	"github.com/mvidal-dev/schoolscout/internal/log"
	"github.com/mvidal-dev/schoolscout/internal/retrieval"
)

// DefaultMaxToolRounds bounds the generate/dispatch loop of one turn.
const DefaultMaxToolRounds = 5

// Retriever answers scoped document queries.
type Retriever interface {
	Query(ctx context.Context, text, school string) ([]retrieval.Fragment, error)
}

// MemoryKeeper stores long-lived user facts.
type MemoryKeeper interface {
	Formatted() string
	Save(memories []string) error
}

// Dispatcher executes model-issued function calls and returns the
// result text.
type Dispatcher interface {
	Dispatch(ctx context.Context, name, arguments string) string
}

// Config contains the parameters for an Orchestrator.
type Config struct {
	LLM      llm.Client   // required
	Logger   log.Logger   // required
	Retrieve Retriever    // optional, disables the retrieval check when nil
	Memory   MemoryKeeper // optional, disables the memory check when nil
	Tools    Dispatcher   // optional, disables tool dispatch when nil

	// ToolDefs are the function schemas offered on generation calls.
	// Ignored when Tools is nil.
	ToolDefs []llm.Tool

	// Schools are the known school names listed in the retrieval
	// decision prompt.
	Schools []string

	// History resumes an existing conversation. Nil starts fresh with
	// the base prompt for Area.
	History *History
	Area    string

	MaxToolRounds int // zero = DefaultMaxToolRounds
}

func (c *Config) validate() error {
	if c.LLM == nil {
		return errors.New("llm client is required")
	}
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Orchestrator drives one conversation.
type Orchestrator struct {
	llm           llm.Client
	retrieve      Retriever
	memory        MemoryKeeper
	tools         Dispatcher
	toolDefs      []llm.Tool
	schools       []string
	history       *History
	maxToolRounds int
	logger        log.Logger
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	history := cfg.History
	if history == nil {
		history = NewHistory(BasePrompt(cfg.Area))
	}
	rounds := cfg.MaxToolRounds
	if rounds == 0 {
		rounds = DefaultMaxToolRounds
	}
	toolDefs := cfg.ToolDefs
	if cfg.Tools == nil {
		toolDefs = nil
	}

	return &Orchestrator{
		llm:           cfg.LLM,
		retrieve:      cfg.Retrieve,
		memory:        cfg.Memory,
		tools:         cfg.Tools,
		toolDefs:      toolDefs,
		schools:       cfg.Schools,
		history:       history,
		maxToolRounds: rounds,
		logger:        cfg.Logger,
	}, nil
}

// History returns a copy of the durable message history.
func (o *Orchestrator) History() []llm.Message {
	return o.history.Messages()
}

// Turn processes one user message to completion and returns the final
// reply. onToken, when non-nil, receives streamed reply tokens as they
// arrive.
func (o *Orchestrator) Turn(ctx context.Context, userText string, onToken func(string) error) (string, error) {
	o.history.Append(llm.User(userText))

	o.checkMemory(ctx)
	o.checkRetrieval(ctx)

	reply, err := o.generate(ctx, onToken)
	if err != nil {
		return "", err
	}
	o.history.Append(llm.Assistant(reply))
	return reply, nil
}

// checkMemory runs the memory decision call. Every failure is
// non-fatal: the turn proceeds as if no update was needed.
func (o *Orchestrator) checkMemory(ctx context.Context) {
	if o.memory == nil {
		return
	}

	raw, err := o.llm.Complete(ctx, o.history.withSystem(memoryPrompt(o.memory.Formatted())))
	if err != nil {
		o.logger.Warn("memory decision call failed", "error", err)
		return
	}
	decision, err := parseMemoryDecision(raw)
	if err != nil {
		o.logger.Debug("unparseable memory decision, skipping update", "error", err)
		return
	}
	if !decision.UpdateNeeded {
		return
	}
	if err := o.memory.Save(decision.Memories); err != nil {
		o.logger.Warn("saving memories", "error", err)
	}
}

// checkRetrieval runs the retrieval decision call and, when documents
// are needed, appends their context to the durable history. Every
// failure is non-fatal.
func (o *Orchestrator) checkRetrieval(ctx context.Context) {
	if o.retrieve == nil {
		return
	}

	raw, err := o.llm.Complete(ctx, o.history.withSystem(ragPrompt(o.schools)))
	if err != nil {
		o.logger.Warn("retrieval decision call failed", "error", err)
		return
	}
	decision, err := parseRagDecision(raw)
	if err != nil {
		o.logger.Debug("unparseable retrieval decision, skipping fetch", "error", err)
		return
	}
	if !decision.FetchSchoolData {
		return
	}

	for _, q := range decision.RagMessages {
		fragments, err := o.retrieve.Query(ctx, q.Question, q.School)
		if err != nil {
			o.logger.Warn("retrieval failed", "school", q.School, "error", err)
			continue
		}
		sources := retrieval.TopSources(fragments)
		if len(sources) == 0 {
			o.logger.Debug("no sources for question", "school", q.School, "question", q.Question)
			continue
		}
		o.history.Append(llm.System(formatContext(q, sources)))
	}
}

// formatContext renders retrieved sources as a context message for the
// generation pass.
func formatContext(q RagQuestion, sources []retrieval.Fragment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Context for the question %q about %s:\n", q.Question, q.School)
	for _, s := range sources {
		b.WriteString("\n")
		b.WriteString(s.Content)
		if src := s.Metadata["source"]; src != "" {
			fmt.Fprintf(&b, "\n(source: %s)", src)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// generate streams generation passes until one produces no tool calls,
// dispatching completed calls between passes.
func (o *Orchestrator) generate(ctx context.Context, onToken func(string) error) (string, error) {
	for round := 0; ; round++ {
		var (
			text strings.Builder
			acc  toolCallAccumulator
		)
		err := o.llm.Stream(ctx, o.history.Messages(), o.toolDefs, func(c llm.Chunk) error {
			for _, d := range c.ToolCalls {
				acc.Add(d)
			}
			if c.Content == "" {
				return nil
			}
			text.WriteString(c.Content)
			if onToken != nil {
				return onToken(c.Content)
			}
			return nil
		})
		if err != nil {
			return "", err
		}

		calls := acc.Finish()
		if len(calls) == 0 || o.tools == nil {
			return text.String(), nil
		}
		if round >= o.maxToolRounds {
			o.logger.Warn("tool round limit reached", "rounds", round)
			return text.String(), nil
		}

		for _, call := range calls {
			result := o.tools.Dispatch(ctx, call.Name, call.Arguments)
			o.logger.Info("dispatched tool call", "function", call.Name, "result", result)
			o.history.Append(llm.System(fmt.Sprintf(
				"Function %s was called with arguments %s and returned: %s",
				call.Name, call.Arguments, result,
			)))
		}
	}
}
