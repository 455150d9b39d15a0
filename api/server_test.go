package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fabfab/docprocessor/api"
	"github.com/fabfab/docprocessor/config"
	"github.com/fabfab/docprocessor/ingestion"
	"github.com/fabfab/docprocessor/ingestion/ingestiontest"
	"github.com/fabfab/docprocessor/search"
	"github.com/fabfab/docprocessor/storage"
)

func testConfig() config.HTTPConfig {
	return config.HTTPConfig{
		APIPrefix:         "/api",
		MaxUploadSize:     2 << 20,
		AllowedExtensions: []string{".docx", ".pdf"},
		CORSOrigins:       []string{"*"},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubProcessor struct {
	err      error
	filename string
	size     int
}

func (s *stubProcessor) Process(ctx context.Context, data []byte, filename string) (*ingestion.Result, error) {
	s.filename = filename
	s.size = len(data)
	if s.err != nil {
		return nil, s.err
	}
	return &ingestion.Result{Status: "success", DocumentID: "doc-1"}, nil
}

var _ api.Processor = (*stubProcessor)(nil)

type stubSearcher struct {
	query string
	limit int
}

func (s *stubSearcher) SimilarParagraphs(ctx context.Context, query string, limit int) ([]search.ParagraphResult, error) {
	s.query = query
	s.limit = limit
	return []search.ParagraphResult{{DocumentID: "doc-1", ParagraphIndex: 3, Content: "match", Score: 0.8}}, nil
}

var _ api.Searcher = (*stubSearcher)(nil)

var _ http.Handler = (*api.Server)(nil)

func uploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload.Error
}

func TestHealth(t *testing.T) {
	srv := api.New(testConfig(), &stubProcessor{}, quietLogger())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["status"] != "healthy" || payload["service"] != "document-processor" || payload["version"] != config.Version {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestUploadEndToEnd(t *testing.T) {
	store := storage.NewMemory()
	svc := ingestion.NewService(store, quietLogger())
	srv := api.New(testConfig(), svc, quietLogger())

	data := ingestiontest.DOCX(t, []ingestiontest.Paragraph{
		{Text: "Quarterly Report", Style: "Title"},
		{Text: "Summary", Style: "Heading1"},
		{Text: "Revenue grew in every region."},
	})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "report.docx", data))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result ingestion.Result
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != "success" || result.Message != "Document processed successfully" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Summary.ParagraphsCount != 3 || result.Summary.HeadersCount != 1 || result.Summary.TotalWords != 8 {
		t.Fatalf("unexpected summary: %+v", result.Summary)
	}
	if _, ok := store.Document(result.DocumentID); !ok {
		t.Fatal("expected document to be stored")
	}
}

func TestUploadValidation(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int
		want     string
	}{
		{name: "extension", filename: "notes.txt", size: 10, want: "Only .docx, .pdf files are supported"},
		{name: "no extension", filename: "README", size: 10, want: "Only .docx, .pdf files are supported"},
		{name: "too large", filename: "big.docx", size: 2<<20 + 1, want: "File size exceeds maximum allowed size of 2 MB"},
		{name: "far too large", filename: "huge.pdf", size: 4 << 20, want: "File size exceeds maximum allowed size of 2 MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processor := &stubProcessor{}
			srv := api.New(testConfig(), processor, quietLogger())

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, uploadRequest(t, tt.filename, bytes.Repeat([]byte("a"), tt.size)))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if got := decodeError(t, rec); got != tt.want {
				t.Fatalf("error = %q, want %q", got, tt.want)
			}
			if processor.filename != "" {
				t.Fatal("expected processor not to be called")
			}
		})
	}
}

func TestUploadMissingFile(t *testing.T) {
	srv := api.New(testConfig(), &stubProcessor{}, quietLogger())

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("other", "value")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUploadErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		want   string
	}{
		{
			name:   "processing",
			err:    &ingestion.ProcessingError{Stage: ingestion.StageReading, Err: fmt.Errorf("%w: bad zip", ingestion.ErrCorruptDocument)},
			status: http.StatusUnprocessableEntity,
			want:   "failed to process document: corrupt document: bad zip",
		},
		{
			name:   "unexpected",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			want:   "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := api.New(testConfig(), &stubProcessor{err: tt.err}, quietLogger())

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, uploadRequest(t, "file.docx", []byte("data")))

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if got := decodeError(t, rec); got != tt.want {
				t.Fatalf("error = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUploadCorruptDocumentThroughPipeline(t *testing.T) {
	svc := ingestion.NewService(storage.NewMemory(), quietLogger())
	srv := api.New(testConfig(), svc, quietLogger())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "broken.docx", []byte("mock word document content")))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if got := decodeError(t, rec); !strings.HasPrefix(got, "failed to process document: ") {
		t.Fatalf("unexpected error message: %q", got)
	}
}

func TestSearchRouteOnlyWhenConfigured(t *testing.T) {
	srv := api.New(testConfig(), &stubProcessor{}, quietLogger())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/search?q=revenue", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without searcher, got %d", rec.Code)
	}
}

func TestSearch(t *testing.T) {
	searcher := &stubSearcher{}
	srv := api.New(testConfig(), &stubProcessor{}, quietLogger(), api.WithSearcher(searcher))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/search?q=revenue&limit=500", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if searcher.query != "revenue" || searcher.limit != 50 {
		t.Fatalf("unexpected search call: %+v", searcher)
	}

	var payload struct {
		Query   string                   `json:"query"`
		Results []search.ParagraphResult `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Results) != 1 || payload.Results[0].ParagraphIndex != 3 {
		t.Fatalf("unexpected results: %+v", payload.Results)
	}

	for _, target := range []string{"/api/documents/search", "/api/documents/search?q=x&limit=zero"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestEmptyPrefix(t *testing.T) {
	cfg := testConfig()
	cfg.APIPrefix = "/"
	srv := api.New(cfg, &stubProcessor{}, quietLogger())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestServerAsHTTPHandler(t *testing.T) {
	ts := httptest.NewServer(api.New(testConfig(), &stubProcessor{}, quietLogger()))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/documents/upload")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET upload, got %d", resp.StatusCode)
	}
}
