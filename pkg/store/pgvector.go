package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/litkb/internal/models"
)

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// PGVector is a Backend on PostgreSQL with the pgvector extension. Metadata
// lives in a JSONB column and filters use containment, which is exact and
// type-sensitive for scalar values.
type PGVector struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func NewPGVector(ctx context.Context, config VectorStoreConfig) (*PGVector, error) {
	if config.TableName == "" {
		config.TableName = "articles"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if !tableNamePattern.MatchString(config.TableName) {
		return nil, fmt.Errorf("invalid table name %q", config.TableName)
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &PGVector{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *PGVector) initialize(ctx context.Context) error {
	if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			content TEXT,
			chunk_index INTEGER,
			embedding vector(%d),
			metadata JSONB
		)`, vs.config.TableName, vs.config.VectorDim)
	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)
	if _, err := vs.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	createMetaIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_metadata_idx ON %s USING gin (metadata)`,
		vs.config.TableName, vs.config.TableName)
	if _, err := vs.pool.Exec(ctx, createMetaIndex); err != nil {
		return fmt.Errorf("failed to create metadata index: %w", err)
	}

	return nil
}

func (vs *PGVector) Add(ctx context.Context, entries []Entry) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, content, chunk_index, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		vs.config.TableName)

	batch := &pgx.Batch{}
	for _, e := range entries {
		meta, err := json.Marshal(e.Chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", e.Chunk.ID, err)
		}
		batch.Queue(stmt,
			e.Chunk.ID,
			e.Chunk.Metadata.String(models.MetaDocumentID),
			sanitizeUTF8(e.Chunk.Content),
			e.Chunk.Position,
			pgvector.NewVector(e.Embedding),
			meta,
		)
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (vs *PGVector) Query(ctx context.Context, vector []float32, k int, filters map[string]any) ([]models.SearchResult, error) {
	query, args, err := vs.buildQuery(vector, k, filters)
	if err != nil {
		return nil, err
	}

	rows, err := vs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var (
			r    models.SearchResult
			meta []byte
		)
		if err := rows.Scan(&r.ID, &r.Content, &r.Position, &meta, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(meta, &r.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", r.ID, err)
		}
		if total, ok := r.Metadata.Int(models.MetaTotalChunks); ok {
			r.Total = total
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

func (vs *PGVector) buildQuery(vector []float32, k int, filters map[string]any) (string, []any, error) {
	args := []any{pgvector.NewVector(vector), k}

	var where string
	if len(filters) > 0 {
		doc, err := json.Marshal(filters)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode filters: %w", err)
		}
		args = append(args, string(doc))
		where = "WHERE metadata @> $3::jsonb"
	}

	query := strings.Join(strings.Fields(fmt.Sprintf(`
		SELECT id, content, chunk_index, metadata, (1 - (embedding <=> $1))::real AS score
		FROM %s
		%s
		ORDER BY embedding <=> $1
		LIMIT $2`, vs.config.TableName, where)), " ")

	return query, args, nil
}

func (vs *PGVector) DeleteAll(ctx context.Context) error {
	if _, err := vs.pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s", vs.config.TableName)); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", vs.config.TableName, err)
	}
	return nil
}

func (vs *PGVector) Count(ctx context.Context) (int, error) {
	var n int
	row := vs.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", vs.config.TableName))
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}

func (vs *PGVector) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}
