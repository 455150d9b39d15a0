package ingestion

import "fmt"

// ChunkSizes holds the target number of elements per chunk for each content type.
// A non-positive Headers value keeps all headers in one chunk.
type ChunkSizes struct {
	Pages      int
	Paragraphs int
	Headers    int
	Tables     int
}

// DefaultChunkSizes returns pages 50, paragraphs 100, all headers, tables 10.
func DefaultChunkSizes() ChunkSizes {
	return ChunkSizes{Pages: 50, Paragraphs: 100, Headers: 0, Tables: 10}
}

// SizeFor resolves the chunk size for a collection of n elements of type ct.
// The result is never below 1.
func (s ChunkSizes) SizeFor(ct ContentType, n int) int {
	var size int
	switch ct {
	case ContentPages:
		size = s.Pages
	case ContentParagraphs:
		size = s.Paragraphs
	case ContentHeaders:
		size = s.Headers
		if size <= 0 {
			size = n
		}
	case ContentTables:
		size = min(s.Tables, n)
	}
	return max(1, size)
}

// Partition splits items into ordered, contiguous, non-overlapping chunks of at
// most size elements. Non-positive sizes are treated as 1. Empty input yields no chunks.
func Partition[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	size = max(1, size)

	chunks := make([][]T, 0, TotalChunks(len(items), size))
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// TotalChunks returns ceil(n / max(1, size)).
func TotalChunks(n, size int) int {
	if n <= 0 {
		return 0
	}
	size = max(1, size)
	return (n + size - 1) / size
}

// ChunkKey builds the storage key "{document_id}_{content_type}_{chunk_index}".
func ChunkKey(documentID string, ct ContentType, index int) string {
	return fmt.Sprintf("%s_%s_%d", documentID, ct, index)
}

// BuildChunks partitions every non-empty collection of content, in
// ContentTypes order. Empty collections produce no chunks.
func BuildChunks(documentID string, content ExtractedContent, sizes ChunkSizes) []ChunkRecord {
	chunks := make([]ChunkRecord, 0)
	chunks = appendChunks(chunks, documentID, ContentPages, content.Pages, sizes)
	chunks = appendChunks(chunks, documentID, ContentParagraphs, content.Paragraphs, sizes)
	chunks = appendChunks(chunks, documentID, ContentHeaders, content.Headers, sizes)
	chunks = appendChunks(chunks, documentID, ContentTables, content.Tables, sizes)
	return chunks
}

func appendChunks[T any](out []ChunkRecord, documentID string, ct ContentType, items []T, sizes ChunkSizes) []ChunkRecord {
	parts := Partition(items, sizes.SizeFor(ct, len(items)))
	for i, part := range parts {
		out = append(out, ChunkRecord{
			ChunkKey:    ChunkKey(documentID, ct, i),
			DocumentID:  documentID,
			ChunkIndex:  i,
			Type:        ct,
			Content:     part,
			TotalChunks: len(parts),
		})
	}
	return out
}
