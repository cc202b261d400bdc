package llm

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	// ProviderHash selects the offline feature-hashing embedder.
	ProviderHash = "hash"
)

const defaultOllamaURL = "http://localhost:11434"

// ProviderConfig selects and configures the model backend.
type ProviderConfig struct {
	Provider   string
	BaseURL    string
	Model      string
	APIKey     string
	APIVersion string
}

// client is what both langchaingo backends provide: chat generation and
// embedding creation.
type client interface {
	embeddingClient
	generator
}

func newClient(cfg ProviderConfig, embeddingModel string) (client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		model := cfg.Model
		if embeddingModel != "" {
			model = embeddingModel
		}
		llm, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(baseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama: %w", err)
		}
		return llm, nil

	case ProviderOpenAI, ProviderAzure:
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if embeddingModel != "" {
			opts = append(opts, openai.WithEmbeddingModel(embeddingModel))
		}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if strings.EqualFold(cfg.Provider, ProviderAzure) {
			opts = append(opts, openai.WithAPIType(openai.APITypeAzure))
			if cfg.APIVersion != "" {
				opts = append(opts, openai.WithAPIVersion(cfg.APIVersion))
			}
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize %s: %w", cfg.Provider, err)
		}
		return llm, nil
	}

	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}
