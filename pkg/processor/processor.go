package processor

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/xhad/litkb/internal/models"
)

// ErrInsufficientContent is returned for articles without usable text.
var ErrInsufficientContent = errors.New("insufficient content")

// DefaultSeparators are tried in order: paragraphs, lines, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

type ProcessorConfig struct {
	ChunkSize        int
	ChunkOverlap     int
	MinContentLength int
	Source           string
}

type Processor struct {
	config   ProcessorConfig
	splitter textsplitter.RecursiveCharacter
	newID    func() string
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}
	if config.MinContentLength == 0 {
		config.MinContentLength = 100
	}
	if config.Source == "" {
		config.Source = "crossref"
	}

	// The splitter measures length in runes.
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(config.ChunkSize),
		textsplitter.WithChunkOverlap(config.ChunkOverlap),
		textsplitter.WithSeparators(DefaultSeparators),
	)

	return Processor{
		config:   config,
		splitter: splitter,
		newID:    func() string { return uuid.NewString() },
	}
}

// Config returns the effective configuration after defaults.
func (p Processor) Config() ProcessorConfig {
	return p.config
}

// Chunk splits one article into ordered chunks sharing a single document_id.
func (p Processor) Chunk(article models.Article) ([]models.Chunk, error) {
	body := usableText(article)
	if body == "" {
		return nil, fmt.Errorf("%w: %q has no abstract or full text", ErrInsufficientContent, article.Title)
	}
	if n := utf8.RuneCountInString(body); n < p.config.MinContentLength {
		return nil, fmt.Errorf("%w: %q has %d characters, need %d",
			ErrInsufficientContent, article.Title, n, p.config.MinContentLength)
	}

	pieces, err := p.splitter.SplitText(ComposeText(article))
	if err != nil {
		return nil, fmt.Errorf("failed to split %q: %w", article.Title, err)
	}

	var contents []string
	for _, piece := range pieces {
		if strings.TrimSpace(piece) != "" {
			contents = append(contents, piece)
		}
	}

	base := p.metadata(article)
	chunks := make([]models.Chunk, len(contents))
	for i, content := range contents {
		meta := base.Clone()
		meta[models.MetaChunkID] = i
		meta[models.MetaTotalChunks] = len(contents)

		chunks[i] = models.Chunk{
			ID:       fmt.Sprintf("%s_%d", base.String(models.MetaDocumentID), i),
			Content:  content,
			Position: i,
			Total:    len(contents),
			Metadata: meta,
		}
	}

	return chunks, nil
}

// ChunkAll chunks every article. The result has one entry per input article,
// empty for articles that could not be chunked; their errors are returned
// alongside.
func (p Processor) ChunkAll(articles []models.Article) ([][]models.Chunk, []error) {
	out := make([][]models.Chunk, len(articles))
	var errs []error

	for i, article := range articles {
		chunks, err := p.Chunk(article)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[i] = chunks
	}

	return out, errs
}

func (p Processor) metadata(article models.Article) models.Metadata {
	var year any
	if article.Year != nil {
		year = *article.Year
	}

	return models.Metadata{
		models.MetaTitle:           article.Title,
		models.MetaAuthors:         strings.Join(article.Authors, ", "),
		models.MetaYear:            year,
		models.MetaJournal:         article.Journal,
		models.MetaRiskType:        article.RiskType,
		models.MetaLevelOfAnalysis: article.LevelOfAnalysis,
		models.MetaSource:          p.config.Source,
		models.MetaDocumentID:      p.newID(),
	}
}

// usableText is the abstract, or the full text when no abstract exists.
func usableText(article models.Article) string {
	if s := strings.TrimSpace(article.Abstract); s != "" {
		return s
	}
	return strings.TrimSpace(article.FullText)
}
