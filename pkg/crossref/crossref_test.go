package crossref

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const worksBody = `{
  "status": "ok",
  "message": {
    "items": [
      {
        "title": ["Credit Risk   Contagion"],
        "author": [{"given": "Ann", "family": "Lee"}, {"family": "Chen"}, {}],
        "published-print": {"date-parts": [[2023, 4, 1]]},
        "container-title": ["Journal of Banking"],
        "abstract": "<jats:title>Abstract</jats:title><jats:p>Contagion spreads\n  through <jats:italic>interbank</jats:italic> exposures.</jats:p><jats:p>We model it.</jats:p>"
      },
      {
        "title": ["No Print Date"],
        "published-print": {},
        "abstract": ""
      },
      {
        "title": [],
        "abstract": "orphan"
      }
    ]
  }
}`

func TestSearch(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(worksBody))
	}))
	defer server.Close()

	c := NewWithConfig(Config{BaseURL: server.URL + "/", Rows: 3, Mailto: "ops@example.com", RateLimit: 100})

	articles, err := c.Search(context.Background(), "credit risk")
	require.NoError(t, err)
	require.Len(t, articles, 2)

	require.NotNil(t, got)
	assert.Equal(t, "/works", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "credit risk", q.Get("query"))
	assert.Equal(t, "3", q.Get("rows"))
	assert.Equal(t, selectFields, q.Get("select"))
	assert.Equal(t, "ops@example.com", q.Get("mailto"))
	assert.Equal(t, "litkb/1.0", got.Header.Get("User-Agent"))

	a := articles[0]
	assert.Equal(t, "Credit Risk Contagion", a.Title)
	assert.Equal(t, []string{"Ann Lee", "Chen"}, a.Authors)
	require.NotNil(t, a.Year)
	assert.Equal(t, 2023, *a.Year)
	assert.Equal(t, "Journal of Banking", a.Journal)
	assert.Equal(t, "Contagion spreads through interbank exposures. We model it.", a.Abstract)

	b := articles[1]
	assert.Equal(t, "No Print Date", b.Title)
	assert.Nil(t, b.Year)
	assert.Empty(t, b.Authors)
	assert.Empty(t, b.Abstract)
}

func TestSearch_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewWithConfig(Config{BaseURL: server.URL}).Search(context.Background(), "x")
	assert.ErrorContains(t, err, "503")
}

func TestSearch_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{"))
	}))
	defer server.Close()

	_, err := NewWithConfig(Config{BaseURL: server.URL}).Search(context.Background(), "x")
	assert.ErrorContains(t, err, "decode")
}

func TestSearch_CancelledContext(t *testing.T) {
	c := NewWithConfig(Config{BaseURL: "http://127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Search(ctx, "x")
	assert.Error(t, err)
}

func TestNewWithConfig_Defaults(t *testing.T) {
	c := New()
	assert.Equal(t, DefaultBaseURL, c.config.BaseURL)
	assert.Equal(t, 10, c.config.Rows)
	assert.Equal(t, 2.0, c.config.RateLimit)
	assert.Equal(t, 30*time.Second, c.client.Timeout)
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  plain   text ", "plain text"},
		{"html", "<p>Hello <b>world</b></p>", "Hello world"},
		{"jats heading", "<jats:title>Abstract</jats:title><jats:p>Body</jats:p>", "Body"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkup(tt.in))
		})
	}
}
