// Package archive keeps the original uploaded bytes in a MinIO bucket.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/fabfab/docprocessor/config"
	"github.com/fabfab/docprocessor/ingestion"
)

var contentTypes = map[ingestion.DocumentFormat]string{
	ingestion.FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	ingestion.FormatPDF:  "application/pdf",
}

// MinIO stores each upload under "{document_id}/{original_filename}".
type MinIO struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

var _ ingestion.Archiver = (*MinIO)(nil)

// Option adjusts the client options before the client is built.
type Option func(*minio.Options)

// WithRegion skips the bucket location lookup.
func WithRegion(region string) Option {
	return func(o *minio.Options) { o.Region = region }
}

func NewMinIO(cfg config.ArchiveConfig, logger *slog.Logger, opts ...Option) (*MinIO, error) {
	if logger == nil {
		logger = slog.Default()
	}

	options := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	}
	for _, opt := range opts {
		opt(options)
	}

	client, err := minio.New(cfg.Endpoint, options)
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIO{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (m *MinIO) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (m *MinIO) Archive(ctx context.Context, documentID, filename string, data []byte) error {
	name := ObjectName(documentID, filename)
	_, err := m.client.PutObject(ctx, m.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: ContentType(filename),
		UserMetadata: map[string]string{
			"document-id": documentID,
		},
	})
	if err != nil {
		return fmt.Errorf("upload original %s: %w", name, err)
	}

	m.logger.Debug("original archived", "document_id", documentID, "bucket", m.bucket, "object", name)
	return nil
}

// ObjectName keeps only the base name of filename so that client supplied
// paths cannot escape the document prefix.
func ObjectName(documentID, filename string) string {
	base := path.Base(path.Clean("/" + filename))
	if base == "/" || base == "." {
		base = "original"
	}
	return documentID + "/" + base
}

func ContentType(filename string) string {
	if ct, ok := contentTypes[ingestion.DetectFormat(filename)]; ok {
		return ct
	}
	return "application/octet-stream"
}
