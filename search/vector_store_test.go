package search_test

import (
	"context"
	"strings"
	"testing"

	"github.com/fabfab/docprocessor/ingestion"
	"github.com/fabfab/docprocessor/search"
)

type stubEmbedder struct {
	calls [][]string
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls = append(s.calls, texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func TestBatchesUsesParagraphChunksOnly(t *testing.T) {
	paragraphs := []ingestion.Paragraph{
		{Text: "one", Index: 0},
		{Text: "two", Index: 1},
		{Text: "three", Index: 2},
	}
	chunks := ingestion.BuildChunks("doc", ingestion.ExtractedContent{
		Paragraphs: paragraphs,
		Headers:    []ingestion.Header{{Text: "one", Level: 1, Index: 0}},
		Pages:      []ingestion.Page{{PageNumber: 1, Content: "one\ntwo\nthree"}},
	}, ingestion.ChunkSizes{Pages: 50, Paragraphs: 2, Tables: 10})

	batches := search.Batches(chunks)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0].ChunkKey != "doc_paragraphs_0" || strings.Join(batches[0].Texts(), ",") != "one,two" {
		t.Fatalf("unexpected first batch: %+v", batches[0])
	}
	if batches[1].ChunkKey != "doc_paragraphs_1" || batches[1].Paragraphs[0].Index != 2 {
		t.Fatalf("unexpected second batch: %+v", batches[1])
	}
}

func TestBatchesSkipsEmptyText(t *testing.T) {
	chunks := []ingestion.ChunkRecord{{
		ChunkKey: "doc_paragraphs_0",
		Type:     ingestion.ContentParagraphs,
		Content:  []ingestion.Paragraph{{Text: "", Index: 0}},
	}}
	if batches := search.Batches(chunks); len(batches) != 0 {
		t.Fatalf("expected no batches, got %+v", batches)
	}
}

func TestScore(t *testing.T) {
	if search.Score(0) != 1 {
		t.Fatal("expected identical vectors to score 1")
	}
	if search.Score(1) != 0.5 {
		t.Fatalf("expected 0.5, got %f", search.Score(1))
	}
	if search.Score(3) >= search.Score(2) {
		t.Fatal("expected larger distances to score lower")
	}
}

func TestVectorIndexerRequiresPool(t *testing.T) {
	indexer := search.NewVectorIndexer(nil, &stubEmbedder{}, nil)
	err := indexer.Index(context.Background(), &ingestion.DocumentRecord{DocumentID: "doc"}, nil)
	if err == nil {
		t.Fatal("expected error when pool is nil")
	}
}

func TestSearcherRequiresPool(t *testing.T) {
	embedder := &stubEmbedder{}
	if _, err := search.NewSearcher(nil, embedder).SimilarParagraphs(context.Background(), "query", 0); err == nil {
		t.Fatal("expected error when pool is nil")
	}
	if len(embedder.calls) != 0 {
		t.Fatal("expected no embedding calls without a pool")
	}
}
