package models

// Metadata keys shared by every chunk of one article.
const (
	MetaTitle           = "title"
	MetaAuthors         = "authors"
	MetaYear            = "year"
	MetaJournal         = "journal"
	MetaRiskType        = "risk_type"
	MetaLevelOfAnalysis = "level_of_analysis"
	MetaSource          = "source"
	MetaDocumentID      = "document_id"
	MetaChunkID         = "chunk_id"
	MetaTotalChunks     = "total_chunks"
)

// Metadata is the denormalized envelope stored alongside each chunk.
type Metadata map[string]any

// String returns the value under key as a string, or "" when absent.
func (m Metadata) String(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Int returns the value under key as an int. Numbers decoded from JSON arrive
// as float64 and are converted.
func (m Metadata) Int(key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	}
	return 0, false
}

// Clone returns a shallow copy of m.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Chunk is a bounded piece of an article's composed text.
type Chunk struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Position int      `json:"position"`
	Total    int      `json:"total"`
	Metadata Metadata `json:"metadata"`
}

// SearchResult is a chunk returned from a similarity query.
type SearchResult struct {
	Chunk
	Score float32 `json:"score"`
}
