// Package storage writes uploaded blobs to an object store.
// Swap implementations by changing the provider selected at startup; the
// R2 and MinIO adapters both speak the S3 protocol.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mediagate/service/internal/config"
)

// ErrUploadFailed wraps every backend failure during Put.
var ErrUploadFailed = errors.New("upload failed")

// Storage is the write contract the upload pipeline depends on.
type Storage interface {
	// Put writes data under key in a single attempt and returns the URL the
	// object can be fetched from.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// New creates the Storage implementation selected by cfg.Provider.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Storage, error) {
	switch cfg.Provider {
	case config.ProviderR2, "":
		return NewR2Storage(ctx, R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		})
	case config.ProviderMinio:
		return NewMinioStorage(ctx, MinioConfig{
			Endpoint:   cfg.MinioEndpoint,
			AccessKey:  cfg.MinioAccessKey,
			SecretKey:  cfg.MinioSecretKey,
			BucketName: cfg.MinioBucketName,
			PublicURL:  cfg.MinioPublicURL,
			UseSSL:     cfg.MinioUseSSL,
			PublicRead: cfg.MinioPublicRead,
		}, logger)
	case config.ProviderMemory:
		logger.Warn("using in-memory storage; uploads are lost on restart")
		return NewMemoryStorage("http://localhost/media"), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// joinURL appends key to base, escaping each path segment.
func joinURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}

func uploadError(key string, err error) error {
	return fmt.Errorf("%w: put object %q: %w", ErrUploadFailed, key, err)
}
