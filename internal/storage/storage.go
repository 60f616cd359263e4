// Package storage abstracts the object store that holds profile images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudacct/accountsvc/config"
)

// ErrObjectNotFound is returned when a key does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore defines the object operations shared by all backends.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Delete removes an object, returning ErrObjectNotFound when the
	// key does not exist.
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// New constructs the object store selected by configuration.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "minio":
		return NewMinioStore(cfg.Minio)
	case "gcs":
		return NewGCSStore(ctx, cfg.GCS)
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
