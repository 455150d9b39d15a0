package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fabfab/docprocessor/archive"
	"github.com/fabfab/docprocessor/config"
	"github.com/fabfab/docprocessor/database"
	"github.com/fabfab/docprocessor/embeddings"
	"github.com/fabfab/docprocessor/ingestion"
	"github.com/fabfab/docprocessor/knowledge"
	"github.com/fabfab/docprocessor/search"
	"github.com/fabfab/docprocessor/storage"
)

type clearer struct {
	name  string
	clear func(ctx context.Context) error
}

// application holds the collaborators built from config and the functions
// that release them.
type application struct {
	service  *ingestion.Service
	searcher *search.Searcher
	clearers []clearer
	closers  []func()
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp connects the configured backends. A dry run keeps everything in
// memory and skips archive and indexers.
func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger, dryRun bool) (*application, error) {
	app := &application{}
	built := false
	defer func() {
		if !built {
			app.Close()
		}
	}()

	opts := []ingestion.Option{
		ingestion.WithPageChars(cfg.Chunking.PageChars),
		ingestion.WithChunkSizes(ingestion.ChunkSizes{
			Pages:      cfg.Chunking.Pages,
			Paragraphs: cfg.Chunking.Paragraphs,
			Headers:    cfg.Chunking.Headers,
			Tables:     cfg.Chunking.Tables,
		}),
	}

	if dryRun {
		app.service = ingestion.NewService(storage.NewMemory(), logger, opts...)
		built = true
		return app, nil
	}

	var (
		store ingestion.Store
		pool  *pgxpool.Pool
		err   error
	)

	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err = database.NewPostgresPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, pool.Close)
		if err := database.EnsureDocumentSchema(ctx, pool); err != nil {
			return nil, fmt.Errorf("ensure document schema: %w", err)
		}
		pg := storage.NewPostgres(pool)
		store = pg
		app.clearers = append(app.clearers, clearer{name: "postgres", clear: pg.Clear})
	case config.BackendSQLite:
		db, err := database.OpenSQLite(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() { db.Close() })
		lite := storage.NewSQLite(db)
		store = lite
		app.clearers = append(app.clearers, clearer{name: "sqlite", clear: lite.Clear})
	default:
		mem := storage.NewMemory()
		store = mem
		app.clearers = append(app.clearers, clearer{name: "memory", clear: mem.Clear})
	}

	if cfg.Archive.Enabled() {
		archiver, err := archive.NewMinIO(cfg.Archive, logger)
		if err != nil {
			return nil, err
		}
		if err := archiver.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure archive bucket: %w", err)
		}
		opts = append(opts, ingestion.WithArchiver(archiver))
	}

	if cfg.Neo4j.Enabled() {
		driver, err := database.NewNeo4jDriver(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() { _ = driver.Close(context.Background()) })
		graph := knowledge.NewGraphIndexer(driver, logger)
		opts = append(opts, ingestion.WithIndexers(graph))
		app.clearers = append(app.clearers, clearer{name: "neo4j", clear: graph.Purge})
	}

	if cfg.Embeddings.Enabled() && pool != nil {
		embedder, err := embeddings.NewEmbedder(cfg.Embeddings)
		if err != nil {
			return nil, fmt.Errorf("embedder setup: %w", err)
		}
		if err := database.EnsureVectorSchema(ctx, pool, cfg.Embeddings.Dimension); err != nil {
			return nil, fmt.Errorf("ensure vector schema: %w", err)
		}
		opts = append(opts, ingestion.WithIndexers(search.NewVectorIndexer(pool, embedder, logger)))
		app.searcher = search.NewSearcher(pool, embedder)
		logger.Info("paragraph search enabled", "provider", cfg.Embeddings.Provider, "model", cfg.Embeddings.Model)
	}

	app.service = ingestion.NewService(store, logger, opts...)
	built = true
	return app, nil
}
