package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/xhad/litkb/internal/models"
	"github.com/xhad/litkb/pkg/logging"
)

// DefaultStatePath is where the processed set is kept when none is configured.
const DefaultStatePath = "processed_articles.json"

type trackerFile struct {
	ProcessedTitles []string  `json:"processed_titles"`
	LastUpdated     time.Time `json:"last_updated"`
}

// Tracker remembers which article titles the monitoring workflow has already
// handled. Titles are only ever added. A Tracker is owned by one monitoring
// cycle at a time and is not safe for concurrent use.
type Tracker struct {
	path   string
	titles map[string]struct{}
	now    func() time.Time
	logger *log.Logger
}

func NewTracker(path string, logger *log.Logger) *Tracker {
	if path == "" {
		path = DefaultStatePath
	}
	return &Tracker{
		path:   path,
		titles: make(map[string]struct{}),
		now:    time.Now,
		logger: logging.OrDiscard(logger),
	}
}

// Load replaces the in-memory set with the persisted one. A missing or
// unreadable file leaves the set empty so every article looks new.
func (t *Tracker) Load() {
	t.titles = make(map[string]struct{})

	data, err := os.ReadFile(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		t.logger.Info("no processed articles file found, starting fresh", "path", t.path)
		return
	}
	if err != nil {
		t.logger.Error("error loading processed titles", "path", t.path, "err", err)
		return
	}

	var f trackerFile
	if err := json.Unmarshal(data, &f); err != nil {
		t.logger.Error("error parsing processed titles", "path", t.path, "err", err)
		return
	}

	for _, title := range f.ProcessedTitles {
		t.titles[title] = struct{}{}
	}
	t.logger.Info("loaded processed article titles", "count", len(t.titles))
}

// Save writes the set atomically via a temp file and rename.
func (t *Tracker) Save() error {
	data, err := json.MarshalIndent(trackerFile{
		ProcessedTitles: t.Titles(),
		LastUpdated:     t.now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode processed titles: %w", err)
	}

	if dir := filepath.Dir(t.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write processed titles: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("failed to replace processed titles: %w", err)
	}

	t.logger.Info("saved processed article titles", "count", len(t.titles))
	return nil
}

func (t *Tracker) IsNew(title string) bool {
	_, seen := t.titles[title]
	return !seen
}

func (t *Tracker) MarkProcessed(title string) {
	t.titles[title] = struct{}{}
}

func (t *Tracker) Len() int {
	return len(t.titles)
}

// Titles returns the processed titles sorted.
func (t *Tracker) Titles() []string {
	out := make([]string, 0, len(t.titles))
	for title := range t.titles {
		out = append(out, title)
	}
	sort.Strings(out)
	return out
}

// IsRecent approximates publication recency from the year alone. Articles
// without a year are never recent.
func (t *Tracker) IsRecent(article models.Article, maxAgeDays int) bool {
	if article.Year == nil {
		return false
	}
	return *article.Year >= MinAcceptableYear(t.now().Year(), maxAgeDays)
}

// MinAcceptableYear is the oldest publication year still considered recent.
func MinAcceptableYear(currentYear, maxAgeDays int) int {
	return currentYear - maxAgeDays/365
}
