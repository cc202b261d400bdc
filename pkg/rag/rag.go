// Package rag composes vector index queries into question answering,
// multi-article synthesis and research gap analysis.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/xhad/litkb/internal/models"
	"github.com/xhad/litkb/internal/types"
	"github.com/xhad/litkb/pkg/logging"
	"github.com/xhad/litkb/pkg/store"
)

const (
	DefaultK             = 5
	DefaultSummaryK      = 10
	DefaultDomainK       = 20
	DefaultPreviewLength = 200
	DefaultDomain        = "risk management"

	methodPreviewLength = 300
	unknown             = "Unknown"

	noTitlesFound   = "No articles found with the specified titles."
	noArticlesFound = "No articles found in the knowledge base for analysis."
)

// Searcher is the read path of the vector index.
type Searcher interface {
	Search(ctx context.Context, query string, k int, filters map[string]any) ([]models.SearchResult, error)
	Stats(ctx context.Context) store.CollectionStats
}

type Options struct {
	DefaultK      int
	SummaryK      int
	DomainK       int
	PreviewLength int
	Logger        *log.Logger
}

type Service struct {
	searcher  Searcher
	completer types.Completer
	opts      Options
	logger    *log.Logger
}

// Source describes one retrieved chunk.
type Source struct {
	Title     string `json:"title"`
	Authors   string `json:"authors"`
	Year      *int   `json:"year"`
	Journal   string `json:"journal"`
	RiskType  string `json:"risk_type,omitempty"`
	Preview   string `json:"chunk_content"`
	Truncated bool   `json:"truncated"`
}

type Answer struct {
	Answer       string   `json:"answer"`
	Question     string   `json:"question"`
	Sources      []Source `json:"sources"`
	TotalSources int      `json:"total_sources"`
}

type ArticleRef struct {
	Title   string `json:"title"`
	Authors string `json:"authors"`
	Year    *int   `json:"year"`
	Journal string `json:"journal"`
}

type Summary struct {
	Summary             string       `json:"summary"`
	ArticlesAnalyzed    []ArticleRef `json:"articles_analyzed"`
	ArticlesFound       int          `json:"articles_found"`
	FocusQuestion       string       `json:"focus_question,omitempty"`
	TotalChunksAnalyzed int          `json:"total_chunks_analyzed"`
}

type GapAnalysis struct {
	GapAnalysis      string   `json:"gap_analysis,omitempty"`
	Gaps             []string `json:"gaps,omitempty"`
	Domain           string   `json:"domain"`
	ArticlesAnalyzed int      `json:"articles_analyzed"`
	CoverageAreas    []string `json:"coverage_areas"`
}

func New(searcher Searcher, completer types.Completer, opts Options) *Service {
	if opts.DefaultK <= 0 {
		opts.DefaultK = DefaultK
	}
	if opts.SummaryK <= 0 {
		opts.SummaryK = DefaultSummaryK
	}
	if opts.DomainK <= 0 {
		opts.DomainK = DefaultDomainK
	}
	if opts.PreviewLength <= 0 {
		opts.PreviewLength = DefaultPreviewLength
	}
	return &Service{
		searcher:  searcher,
		completer: completer,
		opts:      opts,
		logger:    logging.OrDiscard(opts.Logger),
	}
}

// Prompt is a retrieved context block plus the instruction that goes with
// it, ready for a model call.
type Prompt struct {
	Context     string
	Instruction string
	Sources     []Source
}

// Prepare retrieves up to k chunks for question and assembles the QA prompt
// without calling the model.
func (s *Service) Prepare(ctx context.Context, question string, k int, filters map[string]any) (Prompt, error) {
	if k <= 0 {
		k = s.opts.DefaultK
	}

	results, err := s.searcher.Search(ctx, question, k, filters)
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to retrieve context: %w", err)
	}

	contents := make([]string, len(results))
	sources := make([]Source, len(results))
	for i, r := range results {
		contents[i] = r.Content
		sources[i] = s.source(r)
	}

	return Prompt{
		Context:     strings.Join(contents, "\n\n"),
		Instruction: qaPrompt(question),
		Sources:     sources,
	}, nil
}

// Answer retrieves up to k chunks for question and asks the model to answer
// from them. Sources keep retrieval order.
func (s *Service) Answer(ctx context.Context, question string, k int, filters map[string]any) (Answer, error) {
	prompt, err := s.Prepare(ctx, question, k, filters)
	if err != nil {
		return Answer{}, err
	}

	answer, err := s.completer.Complete(ctx, prompt.Context, prompt.Instruction)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to generate answer: %w", err)
	}

	s.logger.Debug("answered question", "sources", len(prompt.Sources))

	return Answer{
		Answer:       answer,
		Question:     question,
		Sources:      prompt.Sources,
		TotalSources: len(prompt.Sources),
	}, nil
}

func (s *Service) source(r models.SearchResult) Source {
	preview, truncated := truncateRunes(r.Content, s.opts.PreviewLength)
	return Source{
		Title:     stringOr(r.Metadata, models.MetaTitle, unknown),
		Authors:   stringOr(r.Metadata, models.MetaAuthors, unknown),
		Year:      year(r.Metadata),
		Journal:   stringOr(r.Metadata, models.MetaJournal, unknown),
		RiskType:  r.Metadata.String(models.MetaRiskType),
		Preview:   preview,
		Truncated: truncated,
	}
}

// SummarizeAcross synthesizes the chunks of the named articles. Titles are
// searched concurrently and their chunks concatenated in title order.
func (s *Service) SummarizeAcross(ctx context.Context, titles []string, focus string) (Summary, error) {
	perTitle := make([][]models.SearchResult, len(titles))

	g, gCtx := errgroup.WithContext(ctx)
	for i, title := range titles {
		g.Go(func() error {
			results, err := s.searcher.Search(gCtx, title, s.opts.SummaryK, map[string]any{models.MetaTitle: title})
			if err != nil {
				return fmt.Errorf("failed to retrieve %q: %w", title, err)
			}
			perTitle[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	var chunks []models.SearchResult
	for _, results := range perTitle {
		chunks = append(chunks, results...)
	}

	if len(chunks) == 0 {
		return Summary{Summary: noTitlesFound, FocusQuestion: focus}, nil
	}

	var (
		refs   []ArticleRef
		seen   = make(map[string]struct{})
		blocks = make([]string, len(chunks))
	)
	for i, c := range chunks {
		title := stringOr(c.Metadata, models.MetaTitle, unknown)
		blocks[i] = "Article: " + title + "\n" + c.Content

		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}
		refs = append(refs, ArticleRef{
			Title:   title,
			Authors: stringOr(c.Metadata, models.MetaAuthors, unknown),
			Year:    year(c.Metadata),
			Journal: stringOr(c.Metadata, models.MetaJournal, unknown),
		})
	}

	synthesis, err := s.completer.Complete(ctx, strings.Join(blocks, "\n\n"), synthesisPrompt(len(refs), focus))
	if err != nil {
		return Summary{}, fmt.Errorf("failed to generate synthesis: %w", err)
	}

	return Summary{
		Summary:             synthesis,
		ArticlesAnalyzed:    refs,
		ArticlesFound:       len(refs),
		FocusQuestion:       focus,
		TotalChunksAnalyzed: len(chunks),
	}, nil
}

// SampleDomain samples k chunks about domain and asks the model for research
// gaps. An empty domain means DefaultDomain.
func (s *Service) SampleDomain(ctx context.Context, domain string, k int) (GapAnalysis, error) {
	if strings.TrimSpace(domain) == "" {
		domain = DefaultDomain
	}
	if k <= 0 {
		k = s.opts.DomainK
	}

	results, err := s.searcher.Search(ctx, domain+" research methodology findings", k, nil)
	if err != nil {
		return GapAnalysis{}, fmt.Errorf("failed to retrieve domain sample: %w", err)
	}

	if len(results) == 0 {
		return GapAnalysis{
			Gaps:          []string{noArticlesFound},
			Domain:        domain,
			CoverageAreas: []string{},
		}, nil
	}

	var (
		blocks   = make([]string, len(results))
		titles   = make(map[string]struct{})
		coverage = []string{}
		covered  = make(map[string]struct{})
	)
	for i, r := range results {
		title := stringOr(r.Metadata, models.MetaTitle, unknown)
		focus := stringOr(r.Metadata, models.MetaRiskType, "General")
		method, _ := truncateRunes(r.Content, methodPreviewLength)
		blocks[i] = fmt.Sprintf("Study: %s\nFocus: %s\nMethod: %s...", title, focus, method)

		titles[title] = struct{}{}
		if risk := r.Metadata.String(models.MetaRiskType); risk != "" {
			if _, ok := covered[risk]; !ok {
				covered[risk] = struct{}{}
				coverage = append(coverage, risk)
			}
		}
	}

	analysis, err := s.completer.Complete(ctx, strings.Join(blocks, "\n\n"), gapPrompt(domain))
	if err != nil {
		return GapAnalysis{}, fmt.Errorf("failed to generate gap analysis: %w", err)
	}

	return GapAnalysis{
		GapAnalysis:      analysis,
		Domain:           domain,
		ArticlesAnalyzed: len(titles),
		CoverageAreas:    coverage,
	}, nil
}

// Stats reports the underlying collection statistics.
func (s *Service) Stats(ctx context.Context) store.CollectionStats {
	return s.searcher.Stats(ctx)
}

func truncateRunes(s string, n int) (string, bool) {
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]), true
}

func stringOr(m models.Metadata, key, fallback string) string {
	if v := m.String(key); v != "" {
		return v
	}
	return fallback
}

func year(m models.Metadata) *int {
	if y, ok := m.Int(models.MetaYear); ok {
		return &y
	}
	return nil
}
