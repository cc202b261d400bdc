package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	cfgPkg "github.com/xhad/litkb/pkg/config"
	"github.com/xhad/litkb/pkg/crossref"
	"github.com/xhad/litkb/pkg/llm"
	"github.com/xhad/litkb/pkg/logging"
	"github.com/xhad/litkb/pkg/monitor"
	"github.com/xhad/litkb/pkg/processor"
	"github.com/xhad/litkb/pkg/rag"
	"github.com/xhad/litkb/pkg/store"
)

// app holds the components every subcommand is built from.
type app struct {
	config     *cfgPkg.Config
	logger     *log.Logger
	chatEngine *llm.ChatEngine
	processor  processor.Processor
	index      *store.Index
	rag        *rag.Service
}

func newApp(ctx context.Context, config *cfgPkg.Config) (*app, error) {
	logger := logging.New(logging.Options{Level: config.Log.Level, Prefix: "litkb"})

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		ProviderConfig: llm.ProviderConfig{
			Provider:   config.LLM.Provider,
			BaseURL:    config.LLM.BaseURL,
			Model:      config.LLM.Model,
			APIKey:     config.LLM.APIKey,
			APIVersion: config.LLM.APIVersion,
		},
		MaxTokens:   config.LLM.MaxTokens,
		Temperature: config.LLM.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	embedder, err := llm.NewEmbedder(llm.EmbedderConfig{
		ProviderConfig: llm.ProviderConfig{
			Provider:   config.LLM.EmbeddingProvider,
			BaseURL:    config.LLM.BaseURL,
			Model:      config.LLM.EmbeddingModel,
			APIKey:     config.LLM.APIKey,
			APIVersion: config.LLM.APIVersion,
		},
		BatchSize: config.Database.BatchSize,
		Dimension: config.Database.VectorDim,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	var backend store.Backend
	if config.Database.URL != "" {
		backend, err = store.NewPGVector(ctx, store.VectorStoreConfig{
			ConnString: config.Database.URL,
			TableName:  config.Database.TableName,
			VectorDim:  config.Database.VectorDim,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vector store: %w", err)
		}
	} else {
		logger.Warn("no database url configured, using an in-memory index")
		backend = store.NewMemory()
	}

	index := store.New(embedder, backend, store.Options{
		Collection: config.Database.TableName,
		BatchSize:  config.Database.BatchSize,
		Logger:     logger.WithPrefix("index"),
	})

	proc := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:        config.Processor.ChunkSize,
		ChunkOverlap:     config.Processor.ChunkOverlap,
		MinContentLength: config.Processor.MinContentLength,
	})

	return &app{
		config:     config,
		logger:     logger,
		chatEngine: chatEngine,
		processor:  proc,
		index:      index,
		rag: rag.New(index, chatEngine, rag.Options{
			DefaultK:      config.Retrieval.DefaultK,
			SummaryK:      config.Retrieval.SummaryK,
			DomainK:       config.Retrieval.DomainK,
			PreviewLength: config.Retrieval.PreviewLength,
			Logger:        logger.WithPrefix("rag"),
		}),
	}, nil
}

func (a *app) Close() {
	a.index.Close()
}

func (a *app) crossref() *crossref.Client {
	return crossref.NewWithConfig(crossref.Config{
		BaseURL:   a.config.CrossRef.BaseURL,
		Rows:      a.config.CrossRef.Rows,
		RateLimit: a.config.CrossRef.RateLimit,
		Mailto:    a.config.CrossRef.Mailto,
		Timeout:   time.Duration(a.config.CrossRef.TimeoutSeconds) * time.Second,
		Logger:    a.logger.WithPrefix("crossref"),
	})
}

func (a *app) monitor() *monitor.Monitor {
	return monitor.New(
		a.crossref(),
		llm.NewAnalyzer(a.chatEngine),
		a.index,
		a.processor,
		a.logger.WithPrefix("monitor"),
	)
}

// monitorConfig maps the file configuration onto one cycle's settings.
func monitorConfig(c cfgPkg.MonitorConfig) monitor.Config {
	return monitor.Config{
		Enabled:                 c.IsEnabled(),
		Topics:                  c.Topics,
		MaxArticlesPerTopic:     c.MaxArticlesPerTopic,
		MinDaysSincePublication: c.MinDaysSincePublication,
		MaxDaysSincePublication: c.MaxDaysSincePublication,
		TopicDelay:              time.Duration(c.TopicDelaySeconds * float64(time.Second)),
		StatePath:               c.StatePath,
	}
}
