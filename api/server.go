package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fabfab/docprocessor/config"
	"github.com/fabfab/docprocessor/ingestion"
	"github.com/fabfab/docprocessor/logging"
	"github.com/fabfab/docprocessor/search"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 50
	multipartMemory    = 32 << 20
	bodyOverhead       = 1 << 20
)

// Processor runs the extraction pipeline on one uploaded file.
type Processor interface {
	Process(ctx context.Context, data []byte, filename string) (*ingestion.Result, error)
}

// Searcher finds paragraphs similar to a free-text query.
type Searcher interface {
	SimilarParagraphs(ctx context.Context, query string, limit int) ([]search.ParagraphResult, error)
}

// Server exposes the document upload, search and health endpoints.
type Server struct {
	cfg       config.HTTPConfig
	processor Processor
	searcher  Searcher
	logger    *slog.Logger
	handler   http.Handler
}

type Option func(*Server)

// WithSearcher mounts the search endpoint.
func WithSearcher(searcher Searcher) Option {
	return func(s *Server) { s.searcher = searcher }
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type searchResponse struct {
	Query   string                   `json:"query"`
	Results []search.ParagraphResult `json:"results"`
}

func New(cfg config.HTTPConfig, processor Processor, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{cfg: cfg, processor: processor, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: !containsWildcard(s.cfg.CORSOrigins),
	}))

	mount := func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/documents/upload", s.handleUpload)
		if s.searcher != nil {
			r.Get("/documents/search", s.handleSearch)
		}
	}

	if prefix := strings.Trim(s.cfg.APIPrefix, "/"); prefix != "" {
		r.Route("/"+prefix, mount)
	} else {
		mount(r)
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(r.Context(), w, http.StatusOK, healthResponse{
		Status:  "healthy",
		Service: "document-processor",
		Version: config.Version,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize+bodyOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(ctx, w, http.StatusBadRequest, s.sizeMessage())
			return
		}
		s.writeError(ctx, w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(ctx, w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	if !s.allowedExtension(header.Filename) {
		s.writeError(ctx, w, http.StatusBadRequest, "Only "+strings.Join(s.cfg.AllowedExtensions, ", ")+" files are supported")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadSize+1))
	if err != nil {
		s.writeError(ctx, w, http.StatusBadRequest, "read uploaded file: "+err.Error())
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadSize {
		s.writeError(ctx, w, http.StatusBadRequest, s.sizeMessage())
		return
	}

	result, err := s.processor.Process(ctx, data, header.Filename)
	if err != nil {
		var procErr *ingestion.ProcessingError
		if errors.As(err, &procErr) {
			s.writeError(ctx, w, http.StatusUnprocessableEntity, procErr.Error())
			return
		}
		logging.WithRequestID(ctx, s.logger).Error("unexpected processing error", "error", err)
		s.writeError(ctx, w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(ctx, w, http.StatusOK, result)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeError(ctx, w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(ctx, w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxSearchLimit)
	}

	results, err := s.searcher.SimilarParagraphs(ctx, query, limit)
	if err != nil {
		logging.WithRequestID(ctx, s.logger).Error("search failed", "error", err)
		s.writeError(ctx, w, http.StatusInternalServerError, "search failed")
		return
	}

	s.writeJSON(ctx, w, http.StatusOK, searchResponse{Query: query, Results: results})
}

func (s *Server) allowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return false
	}
	for _, allowed := range s.cfg.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (s *Server) sizeMessage() string {
	return fmt.Sprintf("File size exceeds maximum allowed size of %d MB", s.cfg.MaxUploadSize/(1024*1024))
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logging.WithRequestID(r.Context(), s.logger).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.WithRequestID(ctx, s.logger).Warn("encode response", "error", err)
	}
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	logging.WithRequestID(ctx, s.logger).Warn("api error", "status", status, "error", message)
	s.writeJSON(ctx, w, status, errorResponse{Error: message})
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
