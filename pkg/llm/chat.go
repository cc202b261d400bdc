package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	ProviderConfig
	Temperature     float64
	MaxTokens       int
	ContextTemplate string
}

type generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// ChatEngine sends an instruction plus assembled context to a language model.
type ChatEngine struct {
	config ChatConfig
	llm    generator
}

// NewWithConfig creates a new ChatEngine for the configured provider.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	config, err := chatDefaults(config)
	if err != nil {
		return nil, err
	}

	llm, err := newClient(config.ProviderConfig, "")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{config: config, llm: llm}, nil
}

// NewWithModel wraps an already constructed langchaingo model.
func NewWithModel(config ChatConfig, model llms.Model) (*ChatEngine, error) {
	config, err := chatDefaults(config)
	if err != nil {
		return nil, err
	}
	return &ChatEngine{config: config, llm: model}, nil
}

func chatDefaults(config ChatConfig) (ChatConfig, error) {
	if config.Model == "" {
		config.Model = "mistral"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return config, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.Temperature == 0 {
		config.Temperature = 0.3
	}
	if config.MaxTokens < 0 {
		return config, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.ContextTemplate == "" {
		config.ContextTemplate = "Context from research articles:\n%s"
	}
	return config, nil
}

func (ce *ChatEngine) messages(contextBlock, instruction string) []llms.MessageContent {
	return []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, instruction),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(ce.config.ContextTemplate, contextBlock)),
	}
}

func (ce *ChatEngine) options(extra ...llms.CallOption) []llms.CallOption {
	return append([]llms.CallOption{
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	}, extra...)
}

// Complete returns the model's answer to instruction given contextBlock.
func (ce *ChatEngine) Complete(ctx context.Context, contextBlock, instruction string) (string, error) {
	resp, err := ce.llm.GenerateContent(ctx, ce.messages(contextBlock, instruction), ce.options()...)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	return firstChoice(resp)
}

// StreamChunk is one piece of a streamed answer. A chunk with Err set is
// always the last one on the channel.
type StreamChunk struct {
	Text string
	Err  error
}

// ChatStream streams the answer piece by piece. The channel is closed when
// generation ends.
func (ce *ChatEngine) ChatStream(ctx context.Context, contextBlock, instruction string) <-chan StreamChunk {
	out := make(chan StreamChunk)

	go func() {
		defer close(out)

		send := func(c StreamChunk) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		streamed := false
		stream := llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			streamed = true
			if !send(StreamChunk{Text: string(chunk)}) {
				return ctx.Err()
			}
			return nil
		})

		resp, err := ce.llm.GenerateContent(ctx, ce.messages(contextBlock, instruction), ce.options(stream)...)
		if err != nil {
			send(StreamChunk{Err: err})
			return
		}
		if streamed {
			return
		}

		// Backends that ignore the streaming callback still return the
		// whole answer.
		text, err := firstChoice(resp)
		if err != nil {
			send(StreamChunk{Err: err})
			return
		}
		send(StreamChunk{Text: text})
	}()

	return out
}

func firstChoice(resp *llms.ContentResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", errors.New("no response from LLM")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
