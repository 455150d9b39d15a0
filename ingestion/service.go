package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const successMessage = "Document processed successfully"

// Store persists document and chunk records. Both writes are upserts.
type Store interface {
	WriteDocument(ctx context.Context, documentID string, record *DocumentRecord) error
	WriteChunk(ctx context.Context, chunkKey string, chunk *ChunkRecord) error
}

// Archiver keeps a copy of the original upload.
type Archiver interface {
	Archive(ctx context.Context, documentID, filename string, data []byte) error
}

// Indexer receives a document after its record and all chunks were written.
type Indexer interface {
	Index(ctx context.Context, record *DocumentRecord, chunks []ChunkRecord) error
}

// Service runs the read, extract, summarize and persist pipeline. It holds
// only read-only collaborators and is safe for concurrent use.
type Service struct {
	store     Store
	archiver  Archiver
	indexers  []Indexer
	logger    *slog.Logger
	pageChars int
	sizes     ChunkSizes
	now       func() time.Time
	newID     func() string
}

type Option func(*Service)

// WithPageChars sets the simulated DOCX page threshold.
func WithPageChars(chars int) Option {
	return func(s *Service) { s.pageChars = chars }
}

func WithChunkSizes(sizes ChunkSizes) Option {
	return func(s *Service) { s.sizes = sizes }
}

func WithArchiver(archiver Archiver) Option {
	return func(s *Service) { s.archiver = archiver }
}

// WithIndexers appends indexers run after persistence, in order.
func WithIndexers(indexers ...Indexer) Option {
	return func(s *Service) { s.indexers = append(s.indexers, indexers...) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		store:     store,
		logger:    logger,
		pageChars: DefaultPageChars,
		sizes:     DefaultChunkSizes(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process extracts content from data, stores the document record followed by
// its chunks, and returns a summary. The format is derived from the
// extension of filename. Every failure is returned as a *ProcessingError.
func (s *Service) Process(ctx context.Context, data []byte, filename string) (*Result, error) {
	stage := StageReading
	fail := func(err error) (*Result, error) {
		s.logger.Error("document processing failed",
			"filename", filename,
			"stage", stage,
			"state", StageFailed,
			"error", err,
		)
		return nil, &ProcessingError{Stage: stage, Err: err}
	}

	if s.store == nil {
		return fail(fmt.Errorf("%w: store not configured", ErrStorageWrite))
	}

	format, err := ParseFormat(filename)
	if err != nil {
		return fail(err)
	}

	s.logger.Info("processing document", "filename", filename, "format", format, "size", len(data))

	reader, err := NewReader(format)
	if err != nil {
		return fail(err)
	}
	units, err := reader.Read(ctx, data)
	if err != nil {
		return fail(err)
	}

	stage = StageExtracting
	content, err := Extract(units, s.pageChars)
	if err != nil {
		return fail(err)
	}

	stage = StageSummarizing
	summary := Summarize(content)
	preview := Preview(content)

	documentID := s.newID()
	record := &DocumentRecord{
		DocumentID: documentID,
		Metadata: Metadata{
			OriginalFilename: filename,
			ProcessedAt:      s.now().UTC(),
			FileSize:         int64(len(data)),
			DocumentType:     format,
			TotalPages:       summary.PagesCount,
			TotalParagraphs:  summary.ParagraphsCount,
			TotalHeaders:     summary.HeadersCount,
			TotalTables:      summary.TablesCount,
		},
		Content: content,
	}
	chunks := BuildChunks(documentID, content, s.sizes)

	stage = StagePersisting
	if err := s.persist(ctx, record, chunks, data); err != nil {
		return fail(err)
	}

	s.logger.Info("document processed",
		"document_id", documentID,
		"state", StageCompleted,
		"pages", summary.PagesCount,
		"paragraphs", summary.ParagraphsCount,
		"headers", summary.HeadersCount,
		"tables", summary.TablesCount,
		"chunks", len(chunks),
	)

	return &Result{
		Status:         "success",
		Message:        successMessage,
		DocumentID:     documentID,
		Summary:        summary,
		ContentPreview: preview,
	}, nil
}

// persist writes the document record, then each chunk, then runs the archiver
// and indexers. Nothing already written is rolled back on failure.
func (s *Service) persist(ctx context.Context, record *DocumentRecord, chunks []ChunkRecord, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}

	if err := s.store.WriteDocument(ctx, record.DocumentID, record); err != nil {
		return fmt.Errorf("%w: document %s: %w", ErrStorageWrite, record.DocumentID, err)
	}

	for i := range chunks {
		chunk := &chunks[i]
		if err := s.store.WriteChunk(ctx, chunk.ChunkKey, chunk); err != nil {
			return fmt.Errorf("%w: %w: chunk %s (%d of %d chunks written): %w",
				ErrPartialChunkWrite, ErrStorageWrite, chunk.ChunkKey, i, len(chunks), err)
		}
	}

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, record.DocumentID, record.Metadata.OriginalFilename, data); err != nil {
			return fmt.Errorf("%w: archive original: %w", ErrStorageWrite, err)
		}
	}

	for _, indexer := range s.indexers {
		if err := indexer.Index(ctx, record, chunks); err != nil {
			return fmt.Errorf("%w: index document: %w", ErrStorageWrite, err)
		}
	}

	return nil
}
