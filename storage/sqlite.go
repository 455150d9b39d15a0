package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fabfab/docprocessor/ingestion"
)

// SQLite stores records as JSON text. Open the database with database.OpenSQLite.
type SQLite struct {
	db *sql.DB
}

var _ ingestion.Store = (*SQLite)(nil)

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) WriteDocument(ctx context.Context, documentID string, record *ingestion.DocumentRecord) error {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	content, err := json.Marshal(record.Content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}

	meta := record.Metadata
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_documents (document_id, original_filename, document_type, file_size, processed_at, metadata, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (document_id) DO UPDATE
		SET original_filename = excluded.original_filename,
		    document_type = excluded.document_type,
		    file_size = excluded.file_size,
		    processed_at = excluded.processed_at,
		    metadata = excluded.metadata,
		    content = excluded.content
	`, documentID, meta.OriginalFilename, string(meta.DocumentType), meta.FileSize,
		meta.ProcessedAt.UTC().Format(time.RFC3339Nano), string(metadata), string(content)); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (s *SQLite) WriteChunk(ctx context.Context, chunkKey string, chunk *ingestion.ChunkRecord) error {
	content, err := json.Marshal(chunk.Content)
	if err != nil {
		return fmt.Errorf("encode chunk content: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO document_chunks (chunk_key, document_id, chunk_index, content_type, total_chunks, content)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (chunk_key) DO UPDATE
		SET document_id = excluded.document_id,
		    chunk_index = excluded.chunk_index,
		    content_type = excluded.content_type,
		    total_chunks = excluded.total_chunks,
		    content = excluded.content
	`, chunkKey, chunk.DocumentID, chunk.ChunkIndex, string(chunk.Type), chunk.TotalChunks, string(content)); err != nil {
		return fmt.Errorf("upsert chunk: %w", err)
	}
	return nil
}

// Document loads a stored record, returning false when it does not exist.
func (s *SQLite) Document(ctx context.Context, documentID string) (*ingestion.DocumentRecord, bool, error) {
	var metadata, content string
	err := s.db.QueryRowContext(ctx,
		"SELECT metadata, content FROM processed_documents WHERE document_id = ?", documentID,
	).Scan(&metadata, &content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query document: %w", err)
	}

	record := &ingestion.DocumentRecord{DocumentID: documentID}
	if err := json.Unmarshal([]byte(metadata), &record.Metadata); err != nil {
		return nil, false, fmt.Errorf("decode metadata: %w", err)
	}
	if err := json.Unmarshal([]byte(content), &record.Content); err != nil {
		return nil, false, fmt.Errorf("decode content: %w", err)
	}
	return record, true, nil
}

// ChunkKeys lists the stored chunk keys of a document in write order.
func (s *SQLite) ChunkKeys(ctx context.Context, documentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_key FROM document_chunks
		WHERE document_id = ?
		ORDER BY CASE content_type
			WHEN 'pages' THEN 0 WHEN 'paragraphs' THEN 1 WHEN 'headers' THEN 2 ELSE 3 END,
			chunk_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *SQLite) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM document_chunks", "DELETE FROM processed_documents"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear documents: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	return nil
}
