package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fabfab/docprocessor/database"
	"github.com/fabfab/docprocessor/ingestion"
)

// Postgres stores records as JSONB rows. The schema is created by
// database.EnsureDocumentSchema.
type Postgres struct {
	db database.Execer
}

var _ ingestion.Store = (*Postgres)(nil)

func NewPostgres(db database.Execer) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) WriteDocument(ctx context.Context, documentID string, record *ingestion.DocumentRecord) error {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	content, err := json.Marshal(record.Content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}

	meta := record.Metadata
	if _, err := p.db.Exec(ctx, `
		INSERT INTO processed_documents (document_id, original_filename, document_type, file_size, processed_at, metadata, content)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (document_id) DO UPDATE
		SET original_filename = EXCLUDED.original_filename,
		    document_type = EXCLUDED.document_type,
		    file_size = EXCLUDED.file_size,
		    processed_at = EXCLUDED.processed_at,
		    metadata = EXCLUDED.metadata,
		    content = EXCLUDED.content
	`, documentID, meta.OriginalFilename, string(meta.DocumentType), meta.FileSize, meta.ProcessedAt, metadata, content); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (p *Postgres) WriteChunk(ctx context.Context, chunkKey string, chunk *ingestion.ChunkRecord) error {
	content, err := json.Marshal(chunk.Content)
	if err != nil {
		return fmt.Errorf("encode chunk content: %w", err)
	}

	if _, err := p.db.Exec(ctx, `
		INSERT INTO document_chunks (chunk_key, document_id, chunk_index, content_type, total_chunks, content)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (chunk_key) DO UPDATE
		SET document_id = EXCLUDED.document_id,
		    chunk_index = EXCLUDED.chunk_index,
		    content_type = EXCLUDED.content_type,
		    total_chunks = EXCLUDED.total_chunks,
		    content = EXCLUDED.content
	`, chunkKey, chunk.DocumentID, chunk.ChunkIndex, string(chunk.Type), chunk.TotalChunks, content); err != nil {
		return fmt.Errorf("upsert chunk: %w", err)
	}
	return nil
}

// Clear truncates documents along with every table referencing them.
func (p *Postgres) Clear(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, "TRUNCATE TABLE processed_documents CASCADE"); err != nil {
		return fmt.Errorf("truncate documents: %w", err)
	}
	return nil
}
