package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/litkb/internal/models"
	"github.com/xhad/litkb/pkg/llm"
	"github.com/xhad/litkb/pkg/processor"
	"github.com/xhad/litkb/pkg/store"
)

func chunksFor(doc string, year any, riskType string, contents ...string) []models.Chunk {
	out := make([]models.Chunk, len(contents))
	for i, c := range contents {
		out[i] = models.Chunk{
			ID:       fmt.Sprintf("%s_%d", doc, i),
			Content:  c,
			Position: i,
			Total:    len(contents),
			Metadata: models.Metadata{
				models.MetaTitle:       doc,
				models.MetaYear:        year,
				models.MetaRiskType:    riskType,
				models.MetaDocumentID:  doc,
				models.MetaChunkID:     i,
				models.MetaTotalChunks: len(contents),
			},
		}
	}
	return out
}

func newIndex(t *testing.T) (*store.Index, *store.Memory) {
	t.Helper()
	backend := store.NewMemory()
	return store.New(llm.NewHashEmbedder(128), backend, store.Options{Collection: "test_articles", BatchSize: 2}), backend
}

func seed(t *testing.T, ix *store.Index) {
	t.Helper()
	stats, err := ix.Index(context.Background(), [][]models.Chunk{
		chunksFor("Credit 2020", 2020, "Credit", "credit default swaps and bank capital", "loan loss provisions"),
		nil,
		chunksFor("Credit 2021", 2021, "Credit", "credit default risk for small firms"),
		chunksFor("Ops 2020", 2020, "Operational", "operational failures in payment systems", "credit card fraud losses"),
	})
	require.NoError(t, err)
	assert.Equal(t, store.IndexStats{ArticlesSubmitted: 4, ArticlesWithContent: 3, ChunksIndexed: 5}, stats)
}

func TestIndexAndStats(t *testing.T) {
	ix, _ := newIndex(t)
	seed(t, ix)

	stats := ix.Stats(context.Background())
	assert.Equal(t, 5, stats.TotalDocuments)
	assert.Equal(t, "test_articles", stats.CollectionName)
	assert.Empty(t, stats.Error)
}

func TestIndexEmpty(t *testing.T) {
	ix, _ := newIndex(t)

	stats, err := ix.Index(context.Background(), [][]models.Chunk{nil, {}})
	require.NoError(t, err)
	assert.Equal(t, store.IndexStats{ArticlesSubmitted: 2}, stats)
}

func TestSearchOrdersBySimilarity(t *testing.T) {
	ix, _ := newIndex(t)
	seed(t, ix)

	results, err := ix.Search(context.Background(), "credit default swaps and bank capital", 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Credit 2020_0", results[0].ID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearchDefaultK(t *testing.T) {
	ix, backend := newIndex(t)
	var lists [][]models.Chunk
	for i := 0; i < 8; i++ {
		lists = append(lists, chunksFor(fmt.Sprintf("doc%d", i), 2020, "Credit", "market risk text"))
	}
	_, err := ix.Index(context.Background(), lists)
	require.NoError(t, err)

	n, _ := backend.Count(context.Background())
	require.Equal(t, 8, n)

	results, err := ix.Search(context.Background(), "market risk", 0, nil)
	require.NoError(t, err)
	assert.Len(t, results, store.DefaultSearchLimit)
}

func TestSearchFiltersAreExact(t *testing.T) {
	ix, _ := newIndex(t)
	seed(t, ix)

	tests := []struct {
		name    string
		filters map[string]any
		check   func(t *testing.T, r models.SearchResult)
		count   int
	}{
		{
			name:    "year",
			filters: map[string]any{"year": 2020},
			count:   4,
			check: func(t *testing.T, r models.SearchResult) {
				y, ok := r.Metadata.Int(models.MetaYear)
				assert.True(t, ok)
				assert.Equal(t, 2020, y)
			},
		},
		{
			name:    "year and risk type",
			filters: map[string]any{"year": 2020, "risk_type": "Credit"},
			count:   2,
			check: func(t *testing.T, r models.SearchResult) {
				assert.Equal(t, "Credit 2020", r.Metadata.String(models.MetaTitle))
			},
		},
		{
			name:    "string year does not match",
			filters: map[string]any{"year": "2020"},
			count:   0,
		},
		{
			name:    "substring does not match",
			filters: map[string]any{"risk_type": "Cred"},
			count:   0,
		},
		{
			name:    "nil filter ignored",
			filters: map[string]any{"journal": nil},
			count:   5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := ix.Search(context.Background(), "credit", 10, tt.filters)
			require.NoError(t, err)
			assert.Len(t, results, tt.count)
			if tt.check != nil {
				for _, r := range results {
					tt.check(t, r)
				}
			}
		})
	}
}

func TestSearchK3Year2020(t *testing.T) {
	ix, _ := newIndex(t)
	seed(t, ix)

	results, err := ix.Search(context.Background(), "credit card", 3, map[string]any{"year": 2020})
	require.NoError(t, err)
	for _, r := range results {
		y, _ := r.Metadata.Int(models.MetaYear)
		assert.Equal(t, 2020, y)
	}
}

func TestReset(t *testing.T) {
	ix, _ := newIndex(t)
	seed(t, ix)

	require.NoError(t, ix.Reset(context.Background()))
	assert.Equal(t, 0, ix.Stats(context.Background()).TotalDocuments)

	results, err := ix.Search(context.Background(), "credit", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndexArticles(t *testing.T) {
	ix, _ := newIndex(t)
	p := processor.NewWithConfig(processor.ProcessorConfig{})

	abstract := "This study examines how enterprise risk management programs change insurer solvency across two decades of filings."
	stats, err := ix.IndexArticles(context.Background(), p, []models.Article{
		{Title: "ERM and Solvency", Abstract: abstract, Year: models.IntPtr(2022)},
		{Title: "No abstract"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ArticlesSubmitted)
	assert.Equal(t, 1, stats.ArticlesWithContent)
	assert.Equal(t, 1, stats.ChunksIndexed)

	results, err := ix.Search(context.Background(), "insurer solvency", 1, map[string]any{"title": "ERM and Solvency"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "Title: ERM and Solvency")
}

type failingEmbedder struct{}

func (failingEmbedder) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("connection refused")
}

func (failingEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, errors.New("connection refused")
}

type brokenBackend struct{ store.Memory }

func (*brokenBackend) Count(context.Context) (int, error) { return 0, errors.New("no route to host") }

func (*brokenBackend) Add(context.Context, []store.Entry) error {
	return errors.New("no route to host")
}

func TestUnavailable(t *testing.T) {
	ctx := context.Background()

	ix := store.New(failingEmbedder{}, store.NewMemory(), store.Options{})
	_, err := ix.Index(ctx, [][]models.Chunk{chunksFor("a", 2020, "Credit", "text")})
	assert.ErrorIs(t, err, store.ErrIndexUnavailable)

	_, err = ix.Search(ctx, "q", 3, nil)
	assert.ErrorIs(t, err, store.ErrIndexUnavailable)

	broken := store.New(llm.NewHashEmbedder(8), &brokenBackend{}, store.Options{})
	_, err = broken.Index(ctx, [][]models.Chunk{chunksFor("a", 2020, "Credit", "text")})
	assert.ErrorIs(t, err, store.ErrIndexUnavailable)

	stats := broken.Stats(ctx)
	assert.Equal(t, 0, stats.TotalDocuments)
	assert.Contains(t, stats.Error, "no route to host")
}
