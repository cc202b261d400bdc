package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/litkb/internal/models"
)

func TestMatchesFilters(t *testing.T) {
	meta := models.Metadata{
		"title": "A",
		"year":  float64(2020),
		"none":  nil,
	}

	tests := []struct {
		name    string
		filters map[string]any
		want    bool
	}{
		{"no filters", nil, true},
		{"int matches float", map[string]any{"year": 2020}, true},
		{"int64 matches float", map[string]any{"year": int64(2020)}, true},
		{"other year", map[string]any{"year": 2021}, false},
		{"string vs number", map[string]any{"year": "2020"}, false},
		{"exact title", map[string]any{"title": "A"}, true},
		{"case differs", map[string]any{"title": "a"}, false},
		{"missing key", map[string]any{"journal": "J"}, false},
		{"nil value vs string", map[string]any{"none": "x"}, false},
		{"all must match", map[string]any{"title": "A", "year": 2021}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesFilters(meta, tt.filters))
		})
	}
}

func TestBuildQuery(t *testing.T) {
	vs := &PGVector{config: VectorStoreConfig{TableName: "articles"}}

	query, args, err := vs.buildQuery([]float32{1, 0}, 3, nil)
	require.NoError(t, err)
	assert.NotContains(t, query, "WHERE")
	assert.Len(t, args, 2)
	assert.Equal(t, 3, args[1])

	query, args, err = vs.buildQuery([]float32{1, 0}, 3, map[string]any{"year": 2020})
	require.NoError(t, err)
	assert.True(t, strings.Contains(query, "WHERE metadata @> $3::jsonb"))
	require.Len(t, args, 3)
	assert.Equal(t, `{"year":2020}`, args[2])
	assert.Contains(t, query, "ORDER BY embedding <=> $1 LIMIT $2")
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "abc", sanitizeUTF8("abc"))
	assert.Equal(t, "ab", sanitizeUTF8("a\xffb"))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.Equal(t, float32(0), cosine([]float32{0, 0}, []float32{1, 1}))
}
