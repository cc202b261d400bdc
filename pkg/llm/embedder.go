package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/xhad/litkb/internal/types"
)

// EmbedderConfig configures the embedding backend.
type EmbedderConfig struct {
	ProviderConfig
	BatchSize int
	// Dimension is only used by the hash provider.
	Dimension int
}

type embeddingClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// NewEmbedder returns an embedder for the configured provider. Remote
// providers go through langchaingo's embeddings package; "hash" needs no
// server.
func NewEmbedder(config EmbedderConfig) (types.Embedder, error) {
	if strings.EqualFold(config.Provider, ProviderHash) {
		return NewHashEmbedder(config.Dimension), nil
	}

	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}

	client, err := newClient(config.ProviderConfig, config.Model)
	if err != nil {
		return nil, err
	}
	return wrapEmbeddingClient(client, config.BatchSize)
}

func wrapEmbeddingClient(client embeddingClient, batchSize int) (types.Embedder, error) {
	emb, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(batchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return emb, nil
}
