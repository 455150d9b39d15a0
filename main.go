package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fabfab/docprocessor/api"
	"github.com/fabfab/docprocessor/config"
	"github.com/fabfab/docprocessor/logging"
)

const shutdownTimeout = 15 * time.Second

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "docprocessor",
		Short:         "Extract structure from DOCX and PDF documents",
		Long:          "docprocessor extracts paragraphs, headers, tables and pages from uploaded documents and stores them as chunked records.",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(serveCmd())
	root.AddCommand(extractCmd())
	root.AddCommand(clearCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, logFile := logging.Init(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	return cfg, logger, logFile, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, logFile, err := loadConfig()
			if err != nil {
				return err
			}
			defer logFile.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			app, err := buildApp(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer app.Close()

			var opts []api.Option
			if app.searcher != nil {
				opts = append(opts, api.WithSearcher(app.searcher))
			}

			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           api.New(cfg.HTTP, app.service, logger, opts...),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("http server listening", "addr", cfg.HTTP.Addr, "prefix", cfg.HTTP.APIPrefix, "storage", cfg.Storage.Backend)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down http server")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown http server: %w", err)
			}
			return nil
		},
	}
}

func extractCmd() *cobra.Command {
	var (
		file   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run the pipeline on a local file and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" && len(args) > 0 {
				file = args[0]
			}
			if strings.TrimSpace(file) == "" {
				return fmt.Errorf("--file is required")
			}

			cfg, logger, logFile, err := loadConfig()
			if err != nil {
				return err
			}
			defer logFile.Close()

			data, err := readUpload(file, cfg.HTTP.MaxUploadSize)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			app, err := buildApp(ctx, cfg, logger, dryRun)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.service.Process(ctx, data, filepath.Base(file))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to a .docx or .pdf file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "keep results in memory instead of the configured stores")
	return cmd
}

func readUpload(path string, maxSize int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat input file: %w", err)
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("file size exceeds maximum allowed size of %d MB", maxSize/(1024*1024))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	return data, nil
}

func clearCmd() *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove stored documents, chunks, vectors and graph nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
					"This will permanently delete all processed documents. Continue? [y/N]: ")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "clear aborted")
					return nil
				}
			}

			cfg, logger, logFile, err := loadConfig()
			if err != nil {
				return err
			}
			defer logFile.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			app, err := buildApp(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer app.Close()

			for _, c := range app.clearers {
				if err := c.clear(ctx); err != nil {
					return fmt.Errorf("clear %s: %w", c.name, err)
				}
				logger.Info("cleared", "target", c.name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmed, "confirm", false, "skip confirmation prompt")
	return cmd
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return false, fmt.Errorf("read confirmation: %w", err)
		}
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes", nil
}
