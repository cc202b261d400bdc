package types

import (
	"context"

	"github.com/xhad/litkb/internal/models"
)

// Collaborator contracts. Concrete implementations live in pkg/llm,
// pkg/crossref and pkg/store; tests provide fakes.

// Embedder turns text into vectors. langchaingo's embeddings.Embedder
// satisfies it.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Completer is the language-model service used as a black box.
type Completer interface {
	Complete(ctx context.Context, contextBlock, instruction string) (string, error)
}

// ArticleSource supplies article records for a search query.
type ArticleSource interface {
	Search(ctx context.Context, query string) ([]models.Article, error)
}

// Analyzer extracts structured analysis fields from an abstract.
type Analyzer interface {
	Analyze(ctx context.Context, abstract string) (models.Analysis, error)
}

// Chunker turns articles into chunk lists.
type Chunker interface {
	ChunkAll(articles []models.Article) ([][]models.Chunk, []error)
}
