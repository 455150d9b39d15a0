package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the part of pgxpool.Pool (and pgx.Tx) that schema setup and the
// Postgres document store need.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var postgresDocumentSchema = []string{
	`CREATE TABLE IF NOT EXISTS processed_documents (
		document_id UUID PRIMARY KEY,
		original_filename TEXT NOT NULL,
		document_type TEXT NOT NULL,
		file_size BIGINT NOT NULL,
		processed_at TIMESTAMPTZ NOT NULL,
		metadata JSONB NOT NULL,
		content JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS document_chunks (
		chunk_key TEXT PRIMARY KEY,
		document_id UUID NOT NULL REFERENCES processed_documents(document_id) ON DELETE CASCADE,
		chunk_index INT NOT NULL,
		content_type TEXT NOT NULL,
		total_chunks INT NOT NULL,
		content JSONB NOT NULL
	)`,
	"CREATE INDEX IF NOT EXISTS idx_document_chunks_document ON document_chunks(document_id, content_type, chunk_index)",
}

var sqliteDocumentSchema = []string{
	`CREATE TABLE IF NOT EXISTS processed_documents (
		document_id       TEXT PRIMARY KEY,
		original_filename TEXT NOT NULL,
		document_type     TEXT NOT NULL,
		file_size         INTEGER NOT NULL,
		processed_at      DATETIME NOT NULL,
		metadata          TEXT NOT NULL,
		content           TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS document_chunks (
		chunk_key    TEXT PRIMARY KEY,
		document_id  TEXT NOT NULL REFERENCES processed_documents(document_id) ON DELETE CASCADE,
		chunk_index  INTEGER NOT NULL,
		content_type TEXT NOT NULL,
		total_chunks INTEGER NOT NULL,
		content      TEXT NOT NULL
	)`,
	"CREATE INDEX IF NOT EXISTS idx_document_chunks_document ON document_chunks(document_id, content_type, chunk_index)",
}

func EnsureDocumentSchema(ctx context.Context, db Execer) error {
	if db == nil {
		return fmt.Errorf("postgres connection not configured")
	}
	for _, stmt := range postgresDocumentSchema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

// EnsureVectorSchema creates the pgvector extension and the paragraph vector
// table sized for dimension-length embeddings.
func EnsureVectorSchema(ctx context.Context, db Execer, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}
	if db == nil {
		return fmt.Errorf("postgres connection not configured")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_paragraph_vectors (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES processed_documents(document_id) ON DELETE CASCADE,
			paragraph_index INT NOT NULL,
			chunk_key TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(document_id, paragraph_index)
		)`, dimension),
		"CREATE INDEX IF NOT EXISTS idx_paragraph_vectors_document ON document_paragraph_vectors(document_id)",
		"CREATE INDEX IF NOT EXISTS idx_paragraph_vectors_embedding ON document_paragraph_vectors USING ivfflat (embedding vector_l2_ops)",
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

func EnsureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("sqlite connection not configured")
	}
	for _, stmt := range sqliteDocumentSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute sqlite schema statement: %w", err)
		}
	}
	return nil
}
