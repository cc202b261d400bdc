package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/litkb/internal/models"
)

func fixedNow() time.Time {
	return time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func TestTracker_LoadMissingFile(t *testing.T) {
	tr := NewTracker(filepath.Join(t.TempDir(), "missing.json"), nil)
	tr.Load()

	assert.Equal(t, 0, tr.Len())
	assert.True(t, tr.IsNew("Anything"))
}

func TestTracker_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	tr := NewTracker(path, nil)
	tr.MarkProcessed("stale")
	tr.Load()

	assert.Equal(t, 0, tr.Len())
	assert.True(t, tr.IsNew("stale"))
}

func TestTracker_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	tr := NewTracker(path, nil)
	tr.now = fixedNow
	tr.MarkProcessed("B Title")
	tr.MarkProcessed("A Title")
	tr.MarkProcessed("A Title")
	require.NoError(t, tr.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []any{"A Title", "B Title"}, raw["processed_titles"])
	assert.Equal(t, "2024-06-01T12:00:00Z", raw["last_updated"])

	reloaded := NewTracker(path, nil)
	reloaded.Load()
	assert.Equal(t, 2, reloaded.Len())
	assert.False(t, reloaded.IsNew("A Title"))
	assert.True(t, reloaded.IsNew("C Title"))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestTracker_IsRecent(t *testing.T) {
	tr := NewTracker("", nil)
	tr.now = fixedNow

	tests := []struct {
		name       string
		year       *int
		maxAgeDays int
		want       bool
	}{
		{"current year within 30 days", models.IntPtr(2024), 30, true},
		{"last year within 30 days", models.IntPtr(2023), 30, false},
		{"last year within 400 days", models.IntPtr(2023), 400, true},
		{"future year", models.IntPtr(2025), 30, true},
		{"missing year", nil, 3650, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tr.IsRecent(models.Article{Title: "x", Year: tt.year}, tt.maxAgeDays)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMinAcceptableYear(t *testing.T) {
	assert.Equal(t, 2024, MinAcceptableYear(2024, 30))
	assert.Equal(t, 2024, MinAcceptableYear(2024, 364))
	assert.Equal(t, 2023, MinAcceptableYear(2024, 365))
	assert.Equal(t, 2022, MinAcceptableYear(2024, 800))
}

func TestNewTracker_DefaultPath(t *testing.T) {
	tr := NewTracker("", nil)
	assert.Equal(t, DefaultStatePath, tr.path)
}
