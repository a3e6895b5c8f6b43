package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mvidal-dev/schoolscout/internal/log"
)

// Generation defaults.
const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 2000
)

// OpenAI is a Client backed by the OpenAI chat-completions API (or any
// compatible endpoint via BaseURL).
type OpenAI struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
	logger      log.Logger
}

// OpenAIConfig contains the parameters for an OpenAI client.
type OpenAIConfig struct {
	APIKey      string  // required
	BaseURL     string  // optional compatible endpoint
	Model       string  // required, e.g. "gpt-4o-mini"
	Temperature float64 // zero = DefaultTemperature
	MaxTokens   int64   // zero = DefaultMaxTokens
	Logger      log.Logger
}

// NewOpenAI creates an OpenAI client.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	return &OpenAI{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      cfg.Logger,
	}, nil
}

// Complete implements Client.
func (o *OpenAI) Complete(ctx context.Context, messages []Message) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, o.params(messages, nil))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream implements Client.
func (o *OpenAI) Stream(ctx context.Context, messages []Message, tools []Tool, fn func(Chunk) error) error {
	stream := o.client.Chat.Completions.NewStreaming(ctx, o.params(messages, tools))
	defer func() { _ = stream.Close() }()

	for stream.Next() {
		event := stream.Current()
		if len(event.Choices) == 0 {
			continue
		}
		delta := event.Choices[0].Delta

		chunk := Chunk{Content: delta.Content}
		for _, tc := range delta.ToolCalls {
			chunk.ToolCalls = append(chunk.ToolCalls, ToolCallDelta{
				Index:     int(tc.Index),
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("chat completion stream: %w", err)
	}
	return nil
}

func (o *OpenAI) params(messages []Message, tools []Tool) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, m := range messages {
		switch m.Role {
		case RoleSystem:
			msgs[i] = openai.SystemMessage(m.Content)
		case RoleAssistant:
			msgs[i] = openai.AssistantMessage(m.Content)
		default:
			msgs[i] = openai.UserMessage(m.Content)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       o.model,
		Messages:    msgs,
		Temperature: openai.Float(o.temperature),
		MaxTokens:   openai.Int(o.maxTokens),
	}

	for _, t := range tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Parameters),
			},
		})
	}
	return params
}
