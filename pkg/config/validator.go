package config

import (
	"fmt"
	"net/url"
	"slices"
)

var (
	providers          = []string{"ollama", "openai", "azure"}
	embeddingProviders = []string{"ollama", "openai", "azure", "hash"}
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError
	add := func(field, message string) {
		errors = append(errors, ValidationError{Field: field, Message: message})
	}

	// LLM
	if !slices.Contains(providers, c.LLM.Provider) {
		add("llm.provider", fmt.Sprintf("unknown provider %q", c.LLM.Provider))
	}
	if !slices.Contains(embeddingProviders, c.LLM.EmbeddingProvider) {
		add("llm.embedding_provider", fmt.Sprintf("unknown embedding provider %q", c.LLM.EmbeddingProvider))
	}
	if c.LLM.Provider == "ollama" && c.LLM.BaseURL == "" {
		add("llm.base_url", "Ollama base URL is required")
	}
	if c.LLM.BaseURL != "" && !isAbsURL(c.LLM.BaseURL) {
		add("llm.base_url", "invalid base URL")
	}
	if (c.LLM.Provider == "openai" || c.LLM.Provider == "azure") && c.LLM.APIKey == "" {
		add("llm.api_key", "api_key is required for "+c.LLM.Provider)
	}
	if c.LLM.Provider == "azure" && c.LLM.BaseURL == "" {
		add("llm.base_url", "azure endpoint is required")
	}
	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		add("llm.max_tokens", "max_tokens must be between 1 and 4096")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		add("llm.temperature", "temperature must be between 0 and 2")
	}

	// Database
	if c.Database.URL != "" {
		if u, err := url.Parse(c.Database.URL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			add("database.url", "invalid database URL")
		}
	}
	if c.Database.VectorDim < 1 {
		add("database.vector_dim", "vector_dim must be positive")
	}
	if c.Database.BatchSize < 1 {
		add("database.batch_size", "batch_size must be positive")
	}

	// Processor
	if c.Processor.ChunkSize < 1 {
		add("processor.chunk_size", "chunk_size must be positive")
	}
	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		add("processor.chunk_overlap", "chunk_overlap must be non-negative and less than chunk_size")
	}
	if c.Processor.MinContentLength < 0 {
		add("processor.min_content_length", "min_content_length cannot be negative")
	}

	// Retrieval
	if c.Retrieval.DefaultK < 1 || c.Retrieval.SummaryK < 1 || c.Retrieval.DomainK < 1 {
		add("retrieval", "k values must be positive")
	}
	if c.Retrieval.PreviewLength < 1 {
		add("retrieval.preview_length", "preview_length must be positive")
	}

	// Graph
	if c.Graph.SimilarityThreshold < 0 || c.Graph.SimilarityThreshold > 1 {
		add("graph.similarity_threshold", "similarity_threshold must be between 0 and 1")
	}

	// Monitor
	if c.Monitor.MaxArticlesPerTopic < 1 {
		add("monitor.max_articles_per_topic", "max_articles_per_topic must be positive")
	}
	if c.Monitor.MaxDaysSincePublication < c.Monitor.MinDaysSincePublication {
		add("monitor.max_days_since_publication", "max_days_since_publication must not be below min_days_since_publication")
	}
	if c.Monitor.IntervalHours < 1 {
		add("monitor.interval_hours", "interval_hours must be positive")
	}
	if c.Monitor.TopicDelaySeconds < 0 {
		add("monitor.topic_delay_seconds", "topic_delay_seconds cannot be negative")
	}

	// CrossRef
	if !isAbsURL(c.CrossRef.BaseURL) {
		add("crossref.base_url", "invalid CrossRef base URL")
	}
	if c.CrossRef.RateLimit <= 0 {
		add("crossref.rate_limit", "rate_limit must be positive")
	}

	return errors
}

func isAbsURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}
