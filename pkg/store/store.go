package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/xhad/litkb/internal/models"
	"github.com/xhad/litkb/internal/types"
	"github.com/xhad/litkb/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// ErrIndexUnavailable wraps failures to reach the embedding or index backend.
var ErrIndexUnavailable = errors.New("vector index unavailable")

// DefaultSearchLimit is used when Search is called with k <= 0.
const DefaultSearchLimit = 5

// Entry is a chunk after embedding.
type Entry struct {
	Chunk     models.Chunk
	Embedding []float32
}

// Backend is the persistent nearest-neighbor index behind an Index.
type Backend interface {
	Add(ctx context.Context, entries []Entry) error
	Query(ctx context.Context, vector []float32, k int, filters map[string]any) ([]models.SearchResult, error)
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Close()
}

// IndexStats summarizes one Index call.
type IndexStats struct {
	ArticlesSubmitted   int `json:"articles_submitted"`
	ArticlesWithContent int `json:"articles_with_content"`
	ChunksIndexed       int `json:"chunks_indexed"`
}

// CollectionStats is advisory; Error is set instead of failing.
type CollectionStats struct {
	TotalDocuments int    `json:"total_documents"`
	CollectionName string `json:"collection_name,omitempty"`
	Error          string `json:"error,omitempty"`
}

type Options struct {
	Collection string
	BatchSize  int
	// Parallelism bounds concurrent embedding batches.
	Parallelism int
	Logger      *log.Logger
}

// Index embeds chunks and serves filtered similarity queries over a Backend.
type Index struct {
	embedder types.Embedder
	backend  Backend
	opts     Options
	logger   *log.Logger
}

func New(embedder types.Embedder, backend Backend, opts Options) *Index {
	if opts.Collection == "" {
		opts.Collection = "articles"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}

	return &Index{
		embedder: embedder,
		backend:  backend,
		opts:     opts,
		logger:   logging.OrDiscard(opts.Logger),
	}
}

// Index embeds and stores the chunk list of every submitted article. Empty
// lists are skipped without error.
func (ix *Index) Index(ctx context.Context, articles [][]models.Chunk) (IndexStats, error) {
	stats := IndexStats{ArticlesSubmitted: len(articles)}

	var chunks []models.Chunk
	for _, list := range articles {
		if len(list) == 0 {
			continue
		}
		stats.ArticlesWithContent++
		chunks = append(chunks, list...)
	}

	if len(chunks) == 0 {
		return stats, nil
	}

	entries, err := ix.embed(ctx, chunks)
	if err != nil {
		return stats, err
	}

	if err := ix.backend.Add(ctx, entries); err != nil {
		return stats, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	stats.ChunksIndexed = len(entries)
	ix.logger.Info("indexed articles",
		"collection", ix.opts.Collection,
		"articles", stats.ArticlesWithContent,
		"chunks", stats.ChunksIndexed)

	return stats, nil
}

// IndexArticles chunks the articles and indexes the result. Articles that
// cannot be chunked are logged and skipped.
func (ix *Index) IndexArticles(ctx context.Context, chunker types.Chunker, articles []models.Article) (IndexStats, error) {
	lists, errs := chunker.ChunkAll(articles)
	for _, err := range errs {
		ix.logger.Debug("skipping article", "err", err)
	}
	return ix.Index(ctx, lists)
}

func (ix *Index) embed(ctx context.Context, chunks []models.Chunk) ([]Entry, error) {
	entries := make([]Entry, len(chunks))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(ix.opts.Parallelism)

	for start := 0; start < len(chunks); start += ix.opts.BatchSize {
		end := min(start+ix.opts.BatchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, c := range chunks[start:end] {
				texts = append(texts, sanitizeUTF8(c.Content))
			}

			vectors, err := ix.embedder.EmbedDocuments(gCtx, texts)
			if err != nil {
				return fmt.Errorf("%w: failed to create embeddings: %v", ErrIndexUnavailable, err)
			}
			if len(vectors) != len(texts) {
				return fmt.Errorf("%w: embedder returned %d vectors for %d texts",
					ErrIndexUnavailable, len(vectors), len(texts))
			}

			for i, v := range vectors {
				entries[start+i] = Entry{Chunk: chunks[start+i], Embedding: v}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Search returns up to k chunks most similar to query whose metadata equals
// every non-nil filter value exactly.
func (ix *Index) Search(ctx context.Context, query string, k int, filters map[string]any) ([]models.SearchResult, error) {
	if k <= 0 {
		k = DefaultSearchLimit
	}

	vector, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create query embedding: %v", ErrIndexUnavailable, err)
	}

	results, err := ix.backend.Query(ctx, vector, k, compactFilters(filters))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	return results, nil
}

// Stats never fails; backend errors are reported in the Error field.
func (ix *Index) Stats(ctx context.Context) CollectionStats {
	n, err := ix.backend.Count(ctx)
	if err != nil {
		ix.logger.Warn("collection stats unavailable", "err", err)
		return CollectionStats{Error: err.Error()}
	}
	return CollectionStats{TotalDocuments: n, CollectionName: ix.opts.Collection}
}

// Reset irreversibly deletes every entry.
func (ix *Index) Reset(ctx context.Context) error {
	if err := ix.backend.DeleteAll(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	ix.logger.Warn("collection reset", "collection", ix.opts.Collection)
	return nil
}

// Close releases the backend.
func (ix *Index) Close() {
	ix.backend.Close()
}

// compactFilters drops nil values so callers can pass optional filters
// without building the map conditionally.
func compactFilters(filters map[string]any) map[string]any {
	if len(filters) == 0 {
		return nil
	}
	out := make(map[string]any, len(filters))
	for k, v := range filters {
		if v != nil {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
