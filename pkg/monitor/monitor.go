// Package monitor runs the periodic article monitoring workflow: search a
// source per topic, keep new and recent articles, analyze them, index them
// and remember what was processed.
package monitor

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/xhad/litkb/internal/models"
	"github.com/xhad/litkb/internal/types"
	"github.com/xhad/litkb/pkg/logging"
	"github.com/xhad/litkb/pkg/store"
)

// ErrCycleInProgress is returned when a cycle starts while another runs.
var ErrCycleInProgress = errors.New("monitoring cycle already in progress")

const (
	StatusCompleted = "completed"
	StatusDisabled  = "disabled"
)

var DefaultTopics = []string{
	"financial risk management",
	"operational risk",
	"credit risk assessment",
	"market risk analysis",
	"enterprise risk management",
}

// Config is passed to every cycle; nothing is held between cycles except the
// persisted processed set.
type Config struct {
	Enabled                 bool          `json:"enabled"`
	Topics                  []string      `json:"topics"`
	MaxArticlesPerTopic     int           `json:"max_articles_per_topic"`
	MinDaysSincePublication int           `json:"min_days_since_publication"`
	MaxDaysSincePublication int           `json:"max_days_since_publication"`
	TopicDelay              time.Duration `json:"topic_delay"`
	StatePath               string        `json:"state_path"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:                 true,
		Topics:                  slices.Clone(DefaultTopics),
		MaxArticlesPerTopic:     5,
		MinDaysSincePublication: 1,
		MaxDaysSincePublication: 30,
		TopicDelay:              2 * time.Second,
		StatePath:               DefaultStatePath,
	}
}

// AddTopic returns c with topic appended unless it is already present.
func (c Config) AddTopic(topic string) Config {
	topic = strings.TrimSpace(topic)
	if topic == "" || slices.Contains(c.Topics, topic) {
		return c
	}
	c.Topics = append(slices.Clone(c.Topics), topic)
	return c
}

// RemoveTopic returns c without topic and whether it was present.
func (c Config) RemoveTopic(topic string) (Config, bool) {
	i := slices.Index(c.Topics, topic)
	if i < 0 {
		return c, false
	}
	c.Topics = slices.Delete(slices.Clone(c.Topics), i, i+1)
	return c, true
}

// Indexer is the write path of the vector index.
type Indexer interface {
	IndexArticles(ctx context.Context, chunker types.Chunker, articles []models.Article) (store.IndexStats, error)
}

type CycleSummary struct {
	Status                 string           `json:"status"`
	StartTime              time.Time        `json:"start_time"`
	EndTime                time.Time        `json:"end_time"`
	DurationSeconds        float64          `json:"duration_seconds"`
	TotalArticlesProcessed int              `json:"total_articles_processed"`
	TopicsProcessed        int              `json:"topics_processed"`
	TopicResults           map[string]int   `json:"topic_results"`
	Index                  store.IndexStats `json:"index"`
	Articles               []models.Article `json:"articles"`
}

type Status struct {
	Enabled                bool     `json:"enabled"`
	Topics                 []string `json:"topics"`
	Config                 Config   `json:"config"`
	ProcessedArticlesCount int      `json:"processed_articles_count"`
}

type Monitor struct {
	source   types.ArticleSource
	analyzer types.Analyzer
	indexer  Indexer
	chunker  types.Chunker
	logger   *log.Logger
	now      func() time.Time

	mu sync.Mutex
}

func New(source types.ArticleSource, analyzer types.Analyzer, indexer Indexer, chunker types.Chunker, logger *log.Logger) *Monitor {
	return &Monitor{
		source:   source,
		analyzer: analyzer,
		indexer:  indexer,
		chunker:  chunker,
		logger:   logging.OrDiscard(logger),
		now:      time.Now,
	}
}

func (m *Monitor) newTracker(cfg Config) *Tracker {
	t := NewTracker(cfg.StatePath, m.logger)
	t.now = m.now
	return t
}

// RunCycle runs one monitoring pass over every configured topic. Only one
// pass may be in flight per Monitor.
func (m *Monitor) RunCycle(ctx context.Context, cfg Config) (CycleSummary, error) {
	if !m.mu.TryLock() {
		return CycleSummary{}, ErrCycleInProgress
	}
	defer m.mu.Unlock()

	if !cfg.Enabled {
		m.logger.Info("article monitoring is disabled")
		return CycleSummary{Status: StatusDisabled, TopicResults: map[string]int{}}, nil
	}

	start := m.now()
	m.logger.Info("starting article monitoring cycle", "topics", len(cfg.Topics))

	tracker := m.newTracker(cfg)
	tracker.Load()

	var all []models.Article
	results := make(map[string]int, len(cfg.Topics))

	for i, topic := range cfg.Topics {
		if i > 0 {
			if err := sleep(ctx, cfg.TopicDelay); err != nil {
				return CycleSummary{}, err
			}
		}

		articles := m.processTopic(ctx, cfg, tracker, topic)
		results[topic] = len(articles)
		all = append(all, articles...)
	}

	if err := ctx.Err(); err != nil {
		return CycleSummary{}, err
	}

	var indexStats store.IndexStats
	if len(all) > 0 {
		stats, err := m.indexer.IndexArticles(ctx, m.chunker, all)
		if err != nil {
			m.logger.Error("error storing articles", "err", err)
		} else {
			indexStats = stats
			m.logger.Info("added chunks to vector store", "chunks", stats.ChunksIndexed)
		}
	}

	if err := tracker.Save(); err != nil {
		m.logger.Error("error saving processed titles", "err", err)
	}

	end := m.now()
	summary := CycleSummary{
		Status:                 StatusCompleted,
		StartTime:              start,
		EndTime:                end,
		DurationSeconds:        end.Sub(start).Seconds(),
		TotalArticlesProcessed: len(all),
		TopicsProcessed:        len(cfg.Topics),
		TopicResults:           results,
		Index:                  indexStats,
		Articles:               all,
	}

	m.logger.Info("monitoring cycle completed",
		"articles", len(all),
		"duration", end.Sub(start).Round(time.Millisecond))

	return summary, nil
}

func (m *Monitor) processTopic(ctx context.Context, cfg Config, tracker *Tracker, topic string) []models.Article {
	m.logger.Info("searching for new articles", "topic", topic)

	found, err := m.source.Search(ctx, topic)
	if err != nil {
		m.logger.Error("error searching for articles", "topic", topic, "err", err)
		return nil
	}

	if cfg.MaxArticlesPerTopic > 0 && len(found) > cfg.MaxArticlesPerTopic {
		found = found[:cfg.MaxArticlesPerTopic]
	}

	var candidates []models.Article
	for _, article := range found {
		if !tracker.IsNew(article.Title) {
			continue
		}
		if !tracker.IsRecent(article, cfg.MaxDaysSincePublication) {
			continue
		}
		if strings.TrimSpace(article.Abstract) == "" {
			continue
		}
		candidates = append(candidates, article)
	}

	if len(candidates) == 0 {
		m.logger.Info("no new articles found", "topic", topic)
		return nil
	}

	var analyzed []models.Article
	for _, article := range candidates {
		analysis, err := m.analyzer.Analyze(ctx, article.Abstract)
		if err != nil {
			m.logger.Error("error analyzing article", "title", article.Title, "err", err)
			continue
		}

		article.Analysis.Merge(analysis)
		article.ProcessedDate = m.now().Format(time.RFC3339)
		article.MonitoringTopic = topic
		analyzed = append(analyzed, article)

		tracker.MarkProcessed(article.Title)
		m.logger.Debug("analyzed article", "title", article.Title)
	}

	return analyzed
}

// Status reports cfg together with the persisted processed count.
func (m *Monitor) Status(cfg Config) Status {
	tracker := m.newTracker(cfg)
	tracker.Load()
	return Status{
		Enabled:                cfg.Enabled,
		Topics:                 cfg.Topics,
		Config:                 cfg,
		ProcessedArticlesCount: tracker.Len(),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
