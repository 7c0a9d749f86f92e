// Package gcs archives raw page snapshots in Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string `mapstructure:"bucket"`
}

// Writer uploads snapshots to a configured GCS bucket.
type Writer struct {
	client *storage.Client
	bucket string
}

// New creates a GCS-backed snapshot writer.
func New(client *storage.Client, cfg Config) (*Writer, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Writer{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads the snapshot and returns a gs:// URI.
func (w *Writer) Put(ctx context.Context, key string, contentType string, r io.Reader) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("key is required")
	}
	obj := w.client.Bucket(w.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		obj.ContentType = contentType
	}
	if _, err := io.Copy(obj, r); err != nil {
		if closeErr := obj.Close(); closeErr != nil {
			return "", fmt.Errorf("copy snapshot: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy snapshot: %w", err)
	}
	if err := obj.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", w.bucket, key), nil
}
