// Package server exposes the knowledge base over a websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/xhad/litkb/internal/models"
	"github.com/xhad/litkb/internal/types"
	"github.com/xhad/litkb/pkg/graph"
	"github.com/xhad/litkb/pkg/logging"
	"github.com/xhad/litkb/pkg/rag"
	"github.com/xhad/litkb/pkg/store"
)

const (
	TypeAsk       = "ask"
	TypeSummarize = "summarize"
	TypeGaps      = "gaps"
	TypeStats     = "stats"
	TypeIndex     = "index"
	TypeGraph     = "graph"

	TypeResponse = "response"
	TypeError    = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type    string          `json:"type"`
	Content string          `json:"content"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type reply struct {
	Type    string `json:"type"`
	Request string `json:"request,omitempty"`
	Content string `json:"content,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Retriever is the read side the server needs from the RAG service.
type Retriever interface {
	Answer(ctx context.Context, question string, k int, filters map[string]any) (rag.Answer, error)
	SummarizeAcross(ctx context.Context, titles []string, focus string) (rag.Summary, error)
	SampleDomain(ctx context.Context, domain string, k int) (rag.GapAnalysis, error)
	Stats(ctx context.Context) store.CollectionStats
}

type Indexer interface {
	IndexArticles(ctx context.Context, chunker types.Chunker, articles []models.Article) (store.IndexStats, error)
}

type Deps struct {
	RAG                 Retriever
	Index               Indexer
	Processor           types.Chunker
	SimilarityThreshold float64
	Logger              *log.Logger
}

type WSServer struct {
	deps   Deps
	logger *log.Logger
}

func New(deps Deps) *WSServer {
	return &WSServer{deps: deps, logger: logging.OrDiscard(deps.Logger)}
}

// Handler serves /ws and /health.
func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// conn serializes writes; gorilla connections allow one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(r reply) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(r)
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "err", err)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &conn{ws: ws}
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("error reading message", "err", err)
			}
			cancel()
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("error unmarshaling message", "err", err)
			s.write(c, reply{Type: TypeError, Content: "invalid message: " + err.Error()})
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.write(c, s.handleMessage(ctx, msg))
		}()
	}
}

func (s *WSServer) write(c *conn, r reply) {
	if err := c.send(r); err != nil {
		s.logger.Debug("error sending message", "err", err)
	}
}

func (s *WSServer) handleMessage(ctx context.Context, msg Message) reply {
	data, err := s.dispatch(ctx, msg)
	if err != nil {
		s.logger.Warn("request failed", "type", msg.Type, "err", err)
		return reply{Type: TypeError, Request: msg.Type, Content: err.Error()}
	}
	return reply{Type: TypeResponse, Request: msg.Type, Data: data}
}

type askData struct {
	K       int            `json:"k"`
	Filters map[string]any `json:"filters"`
}

type summarizeData struct {
	Titles []string `json:"titles"`
	Focus  string   `json:"focus"`
}

type gapsData struct {
	K int `json:"k"`
}

type graphData struct {
	Kind      string           `json:"kind"`
	Articles  []models.Article `json:"articles"`
	Threshold float64          `json:"threshold"`
}

var errEmptyQuestion = errors.New("question is required")

func (s *WSServer) dispatch(ctx context.Context, msg Message) (any, error) {
	switch msg.Type {
	case TypeAsk:
		var d askData
		if err := decode(msg.Data, &d); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.Content) == "" {
			return nil, errEmptyQuestion
		}
		return s.deps.RAG.Answer(ctx, msg.Content, d.K, d.Filters)

	case TypeSummarize:
		var d summarizeData
		if err := decode(msg.Data, &d); err != nil {
			return nil, err
		}
		if len(d.Titles) == 0 {
			return nil, errors.New("at least one title is required")
		}
		return s.deps.RAG.SummarizeAcross(ctx, d.Titles, d.Focus)

	case TypeGaps:
		var d gapsData
		if err := decode(msg.Data, &d); err != nil {
			return nil, err
		}
		return s.deps.RAG.SampleDomain(ctx, msg.Content, d.K)

	case TypeStats:
		return s.deps.RAG.Stats(ctx), nil

	case TypeIndex:
		var articles []models.Article
		if err := decode(msg.Data, &articles); err != nil {
			return nil, err
		}
		return s.deps.Index.IndexArticles(ctx, s.deps.Processor, articles)

	case TypeGraph:
		var d graphData
		if err := decode(msg.Data, &d); err != nil {
			return nil, err
		}
		kind, err := graph.ParseKind(d.Kind)
		if err != nil {
			return nil, err
		}
		threshold := d.Threshold
		if threshold <= 0 {
			threshold = s.deps.SimilarityThreshold
		}
		return graph.Build(kind, d.Articles, threshold)
	}

	return nil, fmt.Errorf("unknown message type %q", msg.Type)
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid data: %w", err)
	}
	return nil
}

// ListenAndServe serves Handler on addr until ctx is done.
func (s *WSServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting websocket server", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if err := srv.Shutdown(context.Background()); err != nil {
			return err
		}
		return ctx.Err()
	}
}
