// Package crossref searches the CrossRef works API for article records.
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/xhad/litkb/internal/models"
	"github.com/xhad/litkb/pkg/logging"
)

const (
	DefaultBaseURL = "https://api.crossref.org"
	selectFields   = "title,author,published-print,container-title,abstract"
)

type Config struct {
	BaseURL   string
	Rows      int
	RateLimit float64 // requests per second
	Mailto    string
	UserAgent string
	Timeout   time.Duration
	Logger    *log.Logger
}

type Client struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

func NewWithConfig(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Rows <= 0 {
		config.Rows = 10
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 2
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "litkb/1.0"
	}

	return &Client{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		logger:  logging.OrDiscard(config.Logger),
	}
}

func New() *Client {
	return NewWithConfig(Config{})
}

type worksResponse struct {
	Status  string `json:"status"`
	Message struct {
		Items []work `json:"items"`
	} `json:"message"`
}

type work struct {
	Title          []string `json:"title"`
	Author         []author `json:"author"`
	PublishedPrint struct {
		DateParts [][]*int `json:"date-parts"`
	} `json:"published-print"`
	ContainerTitle []string `json:"container-title"`
	Abstract       string   `json:"abstract"`
}

type author struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

// Search returns up to Rows article records matching query. Items without a
// title are dropped.
func (c *Client) Search(ctx context.Context, query string) ([]models.Article, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.worksURL(query), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crossref request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for query %q", resp.StatusCode, query)
	}

	var body worksResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode crossref response: %w", err)
	}

	articles := make([]models.Article, 0, len(body.Message.Items))
	for _, item := range body.Message.Items {
		article, ok := item.article()
		if !ok {
			c.logger.Debug("skipping untitled work", "query", query)
			continue
		}
		articles = append(articles, article)
	}

	c.logger.Info("crossref search", "query", query, "results", len(articles))
	return articles, nil
}

func (c *Client) worksURL(query string) string {
	params := url.Values{}
	params.Set("query", query)
	params.Set("rows", strconv.Itoa(c.config.Rows))
	params.Set("select", selectFields)
	if c.config.Mailto != "" {
		params.Set("mailto", c.config.Mailto)
	}
	return c.config.BaseURL + "/works?" + params.Encode()
}

func (w work) article() (models.Article, bool) {
	title := cleanText(first(w.Title))
	if title == "" {
		return models.Article{}, false
	}

	authors := make([]string, 0, len(w.Author))
	for _, a := range w.Author {
		if name := strings.TrimSpace(a.Given + " " + a.Family); name != "" {
			authors = append(authors, name)
		}
	}

	article := models.Article{
		Title:    title,
		Authors:  authors,
		Journal:  first(w.ContainerTitle),
		Abstract: StripMarkup(w.Abstract),
	}
	if parts := w.PublishedPrint.DateParts; len(parts) > 0 && len(parts[0]) > 0 && parts[0][0] != nil {
		article.Year = models.IntPtr(*parts[0][0])
	}
	return article, true
}

// StripMarkup removes JATS or HTML tags from an abstract, including a
// leading "Abstract" heading, and collapses whitespace.
func StripMarkup(s string) string {
	if !strings.Contains(s, "<") {
		return cleanText(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return cleanText(s)
	}

	doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
		if goquery.NodeName(sel) == "jats:title" {
			sel.Remove()
		}
	})

	var parts []string
	doc.Find("body").Contents().Each(func(_ int, sel *goquery.Selection) {
		if text := cleanText(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
