// Package storage implements ingestion.Store on Postgres, SQLite and memory.
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/fabfab/docprocessor/ingestion"
)

// Memory keeps records in process. It backs dry runs and tests.
type Memory struct {
	mu        sync.RWMutex
	documents map[string]ingestion.DocumentRecord
	chunks    map[string]ingestion.ChunkRecord
}

var _ ingestion.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		documents: make(map[string]ingestion.DocumentRecord),
		chunks:    make(map[string]ingestion.ChunkRecord),
	}
}

func (m *Memory) WriteDocument(ctx context.Context, documentID string, record *ingestion.DocumentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[documentID] = *record
	return nil
}

func (m *Memory) WriteChunk(ctx context.Context, chunkKey string, chunk *ingestion.ChunkRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[chunkKey] = *chunk
	return nil
}

func (m *Memory) Document(documentID string) (ingestion.DocumentRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.documents[documentID]
	return record, ok
}

// Chunks returns the chunks of a document ordered by content type then index.
func (m *Memory) Chunks(documentID string) []ingestion.ChunkRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ingestion.ChunkRecord, 0)
	for _, chunk := range m.chunks {
		if chunk.DocumentID == documentID {
			out = append(out, chunk)
		}
	}

	order := make(map[ingestion.ContentType]int, len(ingestion.ContentTypes))
	for i, ct := range ingestion.ContentTypes {
		order[ct] = i
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return order[out[i].Type] < order[out[j].Type]
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})
	return out
}

// Clear drops every stored record.
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.documents)
	clear(m.chunks)
	return nil
}
