// Package search indexes paragraph embeddings in pgvector and answers
// similarity queries over them.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/fabfab/docprocessor/embeddings"
	"github.com/fabfab/docprocessor/ingestion"
)

const defaultLimit = 5

// ParagraphResult is one paragraph ranked by similarity to a query.
type ParagraphResult struct {
	DocumentID     string  `json:"document_id"`
	ParagraphIndex int     `json:"paragraph_index"`
	ChunkKey       string  `json:"chunk_key"`
	Content        string  `json:"content"`
	Score          float64 `json:"score"`
}

// Batch holds the paragraphs of one chunk that will be embedded together.
type Batch struct {
	ChunkKey   string
	Paragraphs []ingestion.Paragraph
}

// Texts returns the paragraph texts in order.
func (b Batch) Texts() []string {
	texts := make([]string, len(b.Paragraphs))
	for i, p := range b.Paragraphs {
		texts[i] = p.Text
	}
	return texts
}

// Batches groups the non-empty paragraphs of every paragraphs chunk.
// Chunks of other content types are ignored.
func Batches(chunks []ingestion.ChunkRecord) []Batch {
	batches := make([]Batch, 0)
	for _, chunk := range chunks {
		if chunk.Type != ingestion.ContentParagraphs {
			continue
		}
		paragraphs, ok := chunk.Content.([]ingestion.Paragraph)
		if !ok {
			continue
		}

		batch := Batch{ChunkKey: chunk.ChunkKey}
		for _, p := range paragraphs {
			if p.Text != "" {
				batch.Paragraphs = append(batch.Paragraphs, p)
			}
		}
		if len(batch.Paragraphs) > 0 {
			batches = append(batches, batch)
		}
	}
	return batches
}

// VectorIndexer embeds stored paragraphs and writes them to the vector table.
type VectorIndexer struct {
	pool     *pgxpool.Pool
	embedder embeddings.Embedder
	logger   *slog.Logger
}

var _ ingestion.Indexer = (*VectorIndexer)(nil)

func NewVectorIndexer(pool *pgxpool.Pool, embedder embeddings.Embedder, logger *slog.Logger) *VectorIndexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorIndexer{pool: pool, embedder: embedder, logger: logger}
}

// Index replaces the vectors of record's document in a single transaction.
func (v *VectorIndexer) Index(ctx context.Context, record *ingestion.DocumentRecord, chunks []ingestion.ChunkRecord) (err error) {
	if v.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if v.embedder == nil {
		return fmt.Errorf("embedder not configured")
	}

	batches := Batches(chunks)
	vectors := make([][][]float32, len(batches))
	for i, batch := range batches {
		embedded, err := v.embedder.Embed(ctx, batch.Texts())
		if err != nil {
			return fmt.Errorf("generate embeddings: %w", err)
		}
		if len(embedded) != len(batch.Paragraphs) {
			return fmt.Errorf("embedding count mismatch: have %d paragraphs, %d embeddings", len(batch.Paragraphs), len(embedded))
		}
		vectors[i] = embedded
	}

	tx, err := v.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				v.logger.Warn("rollback failed", "error", rbErr)
			}
		}
	}()

	if _, err = tx.Exec(ctx, "DELETE FROM document_paragraph_vectors WHERE document_id = $1", record.DocumentID); err != nil {
		return fmt.Errorf("clear existing vectors: %w", err)
	}

	inserted := 0
	for i, batch := range batches {
		for j, p := range batch.Paragraphs {
			if _, err = tx.Exec(ctx, `
				INSERT INTO document_paragraph_vectors (id, document_id, paragraph_index, chunk_key, content, embedding)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, uuid.New(), record.DocumentID, p.Index, batch.ChunkKey, p.Text, pgvector.NewVector(vectors[i][j])); err != nil {
				return fmt.Errorf("insert paragraph vector %d: %w", p.Index, err)
			}
			inserted++
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	v.logger.Debug("paragraph vectors indexed", "document_id", record.DocumentID, "vectors", inserted)
	return nil
}

// Searcher answers similarity queries against indexed paragraphs.
type Searcher struct {
	pool     *pgxpool.Pool
	embedder embeddings.Embedder
}

func NewSearcher(pool *pgxpool.Pool, embedder embeddings.Embedder) *Searcher {
	return &Searcher{pool: pool, embedder: embedder}
}

// SimilarParagraphs embeds query and returns up to limit nearest paragraphs,
// scored 1/(1+distance). Non-positive limits use 5.
func (s *Searcher) SimilarParagraphs(ctx context.Context, query string, limit int) ([]ParagraphResult, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	embedded, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embedded) == 0 || len(embedded[0]) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", max(10, limit*10))); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT
			document_id::text,
			paragraph_index,
			chunk_key,
			content,
			(embedding <-> $1::vector) AS distance
		FROM document_paragraph_vectors
		ORDER BY embedding <-> $1::vector
		LIMIT $2
	`, pgvector.NewVector(embedded[0]), limit)
	if err != nil {
		return nil, fmt.Errorf("query similar paragraphs: %w", err)
	}
	defer rows.Close()

	results := make([]ParagraphResult, 0, limit)
	for rows.Next() {
		var item ParagraphResult
		var distance float64
		if err := rows.Scan(&item.DocumentID, &item.ParagraphIndex, &item.ChunkKey, &item.Content, &distance); err != nil {
			return nil, fmt.Errorf("scan similar paragraph: %w", err)
		}
		item.Score = Score(distance)
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similar paragraphs: %w", err)
	}

	return results, nil
}

// Score maps an L2 distance to (0, 1], higher meaning closer.
func Score(distance float64) float64 {
	return 1 / (1 + distance)
}
