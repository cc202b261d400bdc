package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/litkb/internal/models"
	"github.com/xhad/litkb/internal/types"
	"github.com/xhad/litkb/pkg/llm"
	"github.com/xhad/litkb/pkg/processor"
	"github.com/xhad/litkb/pkg/store"
)

type fakeSource struct {
	mu       sync.Mutex
	byTopic  map[string][]models.Article
	failing  map[string]bool
	searched []string
	block    chan struct{}
}

func (f *fakeSource) Search(ctx context.Context, query string) ([]models.Article, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searched = append(f.searched, query)
	if f.failing[query] {
		return nil, errors.New("search unavailable")
	}
	return f.byTopic[query], nil
}

type fakeAnalyzer struct {
	failOn string
}

func (f fakeAnalyzer) Analyze(_ context.Context, abstract string) (models.Analysis, error) {
	if f.failOn != "" && strings.Contains(abstract, f.failOn) {
		return models.Analysis{}, errors.New("model returned garbage")
	}
	return models.Analysis{
		Objective: "Assess exposure",
		RiskType:  "Credit",
	}, nil
}

type failingIndexer struct{}

func (failingIndexer) IndexArticles(context.Context, types.Chunker, []models.Article) (store.IndexStats, error) {
	return store.IndexStats{}, store.ErrIndexUnavailable
}

func abstract(topic string) string {
	return "This study of " + topic + " examines how institutions measure and manage exposure across portfolios and business lines over several reporting periods."
}

func article(title string, year int, topic string) models.Article {
	return models.Article{
		Title:    title,
		Authors:  []string{"Jane Doe"},
		Year:     models.IntPtr(year),
		Journal:  "Journal of Risk",
		Abstract: abstract(topic),
	}
}

func newTestMonitor(t *testing.T, source types.ArticleSource, analyzer types.Analyzer) (*Monitor, *store.Index) {
	t.Helper()
	ix := store.New(llm.NewHashEmbedder(64), store.NewMemory(), store.Options{})
	m := New(source, analyzer, ix, processor.NewWithConfig(processor.ProcessorConfig{}), nil)
	m.now = fixedNow
	return m, ix
}

func testConfig(t *testing.T, topics ...string) Config {
	cfg := DefaultConfig()
	cfg.Topics = topics
	cfg.TopicDelay = 0
	cfg.StatePath = filepath.Join(t.TempDir(), "processed.json")
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Enabled)
	assert.Len(t, cfg.Topics, 5)
	assert.Equal(t, 5, cfg.MaxArticlesPerTopic)
	assert.Equal(t, 1, cfg.MinDaysSincePublication)
	assert.Equal(t, 30, cfg.MaxDaysSincePublication)
	assert.Equal(t, 2*time.Second, cfg.TopicDelay)
	assert.Equal(t, DefaultStatePath, cfg.StatePath)
}

func TestConfig_Topics(t *testing.T) {
	base := Config{Topics: []string{"credit risk"}}

	added := base.AddTopic("market risk")
	assert.Equal(t, []string{"credit risk", "market risk"}, added.Topics)
	assert.Equal(t, []string{"credit risk"}, base.Topics)

	assert.Equal(t, added.Topics, added.AddTopic("market risk").Topics)
	assert.Equal(t, added.Topics, added.AddTopic("  ").Topics)

	removed, ok := added.RemoveTopic("credit risk")
	assert.True(t, ok)
	assert.Equal(t, []string{"market risk"}, removed.Topics)
	assert.Equal(t, []string{"credit risk", "market risk"}, added.Topics)

	_, ok = removed.RemoveTopic("liquidity risk")
	assert.False(t, ok)
}

func TestRunCycle_Disabled(t *testing.T) {
	source := &fakeSource{}
	m, _ := newTestMonitor(t, source, fakeAnalyzer{})

	cfg := testConfig(t, "credit risk")
	cfg.Enabled = false

	summary, err := m.RunCycle(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, summary.Status)
	assert.Empty(t, source.searched)
}

func TestRunCycle_FiltersAndIndexes(t *testing.T) {
	noAbstract := article("No Abstract", 2024, "credit")
	noAbstract.Abstract = ""
	noYear := article("No Year", 2024, "credit")
	noYear.Year = nil

	source := &fakeSource{
		byTopic: map[string][]models.Article{
			"credit risk": {
				article("Fresh Credit", 2024, "credit"),
				article("Old Credit", 2019, "credit"),
				noAbstract,
				noYear,
			},
			"market risk": {
				article("Fresh Market", 2024, "market"),
				article("Fresh Credit", 2024, "credit"),
			},
		},
	}
	m, ix := newTestMonitor(t, source, fakeAnalyzer{})
	cfg := testConfig(t, "credit risk", "market risk")

	summary, err := m.RunCycle(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, summary.Status)
	assert.Equal(t, 2, summary.TopicsProcessed)
	assert.Equal(t, 2, summary.TotalArticlesProcessed)
	assert.Equal(t, map[string]int{"credit risk": 1, "market risk": 1}, summary.TopicResults)
	assert.Equal(t, []string{"credit risk", "market risk"}, source.searched)

	require.Len(t, summary.Articles, 2)
	first := summary.Articles[0]
	assert.Equal(t, "Fresh Credit", first.Title)
	assert.Equal(t, "credit risk", first.MonitoringTopic)
	assert.Equal(t, "2024-06-01T12:00:00Z", first.ProcessedDate)
	assert.Equal(t, "Credit", first.RiskType)
	assert.Equal(t, "Assess exposure", first.Objective)

	assert.Equal(t, 2, summary.Index.ArticlesWithContent)
	assert.Positive(t, summary.Index.ChunksIndexed)
	assert.Equal(t, summary.Index.ChunksIndexed, ix.Stats(context.Background()).TotalDocuments)

	status := m.Status(cfg)
	assert.Equal(t, 2, status.ProcessedArticlesCount)
	assert.Equal(t, cfg.Topics, status.Topics)

	again, err := m.RunCycle(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, again.TotalArticlesProcessed)
}

func TestRunCycle_MaxArticlesPerTopic(t *testing.T) {
	source := &fakeSource{
		byTopic: map[string][]models.Article{
			"credit risk": {
				article("One", 2024, "credit"),
				article("Two", 2024, "credit"),
				article("Three", 2024, "credit"),
			},
		},
	}
	m, _ := newTestMonitor(t, source, fakeAnalyzer{})
	cfg := testConfig(t, "credit risk")
	cfg.MaxArticlesPerTopic = 2

	summary, err := m.RunCycle(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalArticlesProcessed)
}

func TestRunCycle_ToleratesFailures(t *testing.T) {
	source := &fakeSource{
		byTopic: map[string][]models.Article{
			"market risk": {
				article("Good", 2024, "market"),
				article("Bad", 2024, "operational"),
			},
		},
		failing: map[string]bool{"credit risk": true},
	}
	m, _ := newTestMonitor(t, source, fakeAnalyzer{failOn: "operational"})
	cfg := testConfig(t, "credit risk", "market risk")

	summary, err := m.RunCycle(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TopicResults["credit risk"])
	assert.Equal(t, 1, summary.TopicResults["market risk"])

	tr := NewTracker(cfg.StatePath, nil)
	tr.Load()
	assert.False(t, tr.IsNew("Good"))
	assert.True(t, tr.IsNew("Bad"))
}

func TestRunCycle_IndexFailureDoesNotFail(t *testing.T) {
	source := &fakeSource{
		byTopic: map[string][]models.Article{
			"credit risk": {article("Fresh", 2024, "credit")},
		},
	}
	m := New(source, fakeAnalyzer{}, failingIndexer{}, processor.NewWithConfig(processor.ProcessorConfig{}), nil)
	m.now = fixedNow
	cfg := testConfig(t, "credit risk")

	summary, err := m.RunCycle(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalArticlesProcessed)
	assert.Zero(t, summary.Index.ChunksIndexed)
	assert.Equal(t, 1, m.Status(cfg).ProcessedArticlesCount)
}

func TestRunCycle_RejectsConcurrentCycle(t *testing.T) {
	source := &fakeSource{block: make(chan struct{})}
	m, _ := newTestMonitor(t, source, fakeAnalyzer{})
	cfg := testConfig(t, "credit risk")

	done := make(chan error, 1)
	go func() {
		_, err := m.RunCycle(context.Background(), cfg)
		done <- err
	}()

	require.Eventually(t, func() bool {
		if m.mu.TryLock() {
			m.mu.Unlock()
			return false
		}
		return true
	}, time.Second, 5*time.Millisecond)

	_, err := m.RunCycle(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrCycleInProgress)

	close(source.block)
	require.NoError(t, <-done)
}

func TestRunCycle_Cancelled(t *testing.T) {
	source := &fakeSource{}
	m, _ := newTestMonitor(t, source, fakeAnalyzer{})
	cfg := testConfig(t, "credit risk", "market risk")
	cfg.TopicDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.RunCycle(ctx, cfg)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSchedule_RunsImmediately(t *testing.T) {
	source := &fakeSource{
		byTopic: map[string][]models.Article{
			"credit risk": {article("Fresh", 2024, "credit")},
		},
	}
	m, _ := newTestMonitor(t, source, fakeAnalyzer{})
	cfg := testConfig(t, "credit risk")

	ctx, cancel := context.WithCancel(context.Background())
	summaries := make(chan CycleSummary, 1)

	errc := make(chan error, 1)
	go func() {
		errc <- m.Schedule(ctx, time.Hour, func() Config { return cfg }, func(s CycleSummary) {
			summaries <- s
		})
	}()

	select {
	case s := <-summaries:
		assert.Equal(t, 1, s.TotalArticlesProcessed)
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle did not run")
	}

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}
