package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Database  DatabaseConfig  `yaml:"database"`
	Processor ProcessorConfig `yaml:"processor"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Graph     GraphConfig     `yaml:"graph"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	CrossRef  CrossRefConfig  `yaml:"crossref"`
	Server    ServerConfig    `yaml:"server"`
	UI        UIConfig        `yaml:"ui"`
	Log       LogConfig       `yaml:"log"`
}

// LLMConfig configures the chat model. EmbeddingProvider defaults to
// Provider; "hash" selects the offline embedder.
type LLMConfig struct {
	Provider          string  `yaml:"provider"`
	EmbeddingProvider string  `yaml:"embedding_provider"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	EmbeddingModel    string  `yaml:"embedding_model"`
	MaxTokens         int     `yaml:"max_tokens"`
	Temperature       float64 `yaml:"temperature"`
	APIKey            string  `yaml:"api_key"`
	APIVersion        string  `yaml:"api_version"`
}

// DatabaseConfig selects the vector backend. An empty URL keeps the index in
// memory.
type DatabaseConfig struct {
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
	VectorDim int    `yaml:"vector_dim"`
	BatchSize int    `yaml:"batch_size"`
}

type ProcessorConfig struct {
	ChunkSize        int `yaml:"chunk_size"`
	ChunkOverlap     int `yaml:"chunk_overlap"`
	MinContentLength int `yaml:"min_content_length"`
}

type RetrievalConfig struct {
	DefaultK      int `yaml:"default_k"`
	SummaryK      int `yaml:"summary_k"`
	DomainK       int `yaml:"domain_k"`
	PreviewLength int `yaml:"preview_length"`
}

type GraphConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

type MonitorConfig struct {
	Enabled                 *bool    `yaml:"enabled"`
	Topics                  []string `yaml:"topics"`
	MaxArticlesPerTopic     int      `yaml:"max_articles_per_topic"`
	MinDaysSincePublication int      `yaml:"min_days_since_publication"`
	MaxDaysSincePublication int      `yaml:"max_days_since_publication"`
	IntervalHours           int      `yaml:"interval_hours"`
	TopicDelaySeconds       float64  `yaml:"topic_delay_seconds"`
	StatePath               string   `yaml:"state_path"`
}

// IsEnabled reports whether monitoring is on; unset means on.
func (m MonitorConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

type CrossRefConfig struct {
	BaseURL        string  `yaml:"base_url"`
	Rows           int     `yaml:"rows"`
	RateLimit      float64 `yaml:"rate_limit"`
	Mailto         string  `yaml:"mailto"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type UIConfig struct {
	Streaming bool   `yaml:"streaming"`
	Theme     string `yaml:"theme"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

var defaultTopics = []string{
	"financial risk management",
	"operational risk",
	"credit risk assessment",
	"market risk analysis",
	"enterprise risk management",
}

func LoadConfig(path string) (*Config, error) {
	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/litkb/config.yaml"),
			"/etc/litkb/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "ollama"
	}
	if config.LLM.EmbeddingProvider == "" {
		config.LLM.EmbeddingProvider = config.LLM.Provider
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.EmbeddingModel == "" {
		config.LLM.EmbeddingModel = "nomic-embed-text"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.3
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "articles"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1000
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 200
	}
	if config.Processor.MinContentLength == 0 {
		config.Processor.MinContentLength = 100
	}

	if config.Retrieval.DefaultK == 0 {
		config.Retrieval.DefaultK = 5
	}
	if config.Retrieval.SummaryK == 0 {
		config.Retrieval.SummaryK = 10
	}
	if config.Retrieval.DomainK == 0 {
		config.Retrieval.DomainK = 20
	}
	if config.Retrieval.PreviewLength == 0 {
		config.Retrieval.PreviewLength = 200
	}

	if config.Graph.SimilarityThreshold == 0 {
		config.Graph.SimilarityThreshold = 0.7
	}

	if len(config.Monitor.Topics) == 0 {
		config.Monitor.Topics = append([]string(nil), defaultTopics...)
	}
	if config.Monitor.MaxArticlesPerTopic == 0 {
		config.Monitor.MaxArticlesPerTopic = 5
	}
	if config.Monitor.MinDaysSincePublication == 0 {
		config.Monitor.MinDaysSincePublication = 1
	}
	if config.Monitor.MaxDaysSincePublication == 0 {
		config.Monitor.MaxDaysSincePublication = 30
	}
	if config.Monitor.IntervalHours == 0 {
		config.Monitor.IntervalHours = 24
	}
	if config.Monitor.TopicDelaySeconds == 0 {
		config.Monitor.TopicDelaySeconds = 2
	}
	if config.Monitor.StatePath == "" {
		config.Monitor.StatePath = "processed_articles.json"
	}

	if config.CrossRef.BaseURL == "" {
		config.CrossRef.BaseURL = "https://api.crossref.org"
	}
	if config.CrossRef.Rows == 0 {
		config.CrossRef.Rows = 10
	}
	if config.CrossRef.RateLimit == 0 {
		config.CrossRef.RateLimit = 2.0
	}
	if config.CrossRef.TimeoutSeconds == 0 {
		config.CrossRef.TimeoutSeconds = 30
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}

	if config.UI.Theme == "" {
		config.UI.Theme = "default"
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

func mergeWithEnv(config *Config) {
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = provider
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if statePath := os.Getenv("LITKB_STATE_PATH"); statePath != "" {
		config.Monitor.StatePath = statePath
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
	if port := os.Getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			config.Server.Addr = ":" + port
		}
	}
}
