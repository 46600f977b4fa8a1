// Package upload validates, re-keys, and stores media uploaded by
// authenticated users.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mediagate/service/internal/auth"
	"github.com/mediagate/service/internal/media"
	"github.com/mediagate/service/internal/metrics"
	"github.com/mediagate/service/internal/storage"
)

// ErrMissingFile is returned when the request carries no file part.
var ErrMissingFile = errors.New("no file provided")

// ErrFileTooLarge is returned when the file exceeds the configured limit.
var ErrFileTooLarge = errors.New("file too large")

// ErrInvalidMultipart is returned when the body is not a readable multipart form.
var ErrInvalidMultipart = errors.New("invalid multipart body")

// ErrInvalidMediaType is returned when the declared mediaType field is not
// "image" or "video".
var ErrInvalidMediaType = errors.New("invalid mediaType")

// File is an incoming file, fully buffered in memory.
type File struct {
	Data         []byte
	ContentType  string
	OriginalName string
}

// Size returns the file size in bytes.
func (f File) Size() int {
	return len(f.Data)
}

// Service runs the classify → key → store pipeline.
type Service struct {
	store   storage.Storage
	keys    *media.KeyDeriver
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService creates a new upload Service. timeout bounds every storage write.
func NewService(store storage.Storage, keys *media.KeyDeriver, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, keys: keys, timeout: timeout, metrics: m, logger: logger}
}

// UploadProfile stores a profile picture. Only images are accepted.
func (s *Service) UploadProfile(ctx context.Context, id *auth.Identity, f File) (string, error) {
	return s.upload(ctx, id, media.Profile(), media.Image, f)
}

// UploadPost stores post media of the declared category.
func (s *Service) UploadPost(ctx context.Context, id *auth.Identity, postID string, category media.Category, f File) (string, error) {
	intent, err := media.Post(postID)
	if err != nil {
		s.metrics.ObserveUpload("post", "rejected", 0)
		return "", err
	}
	return s.upload(ctx, id, intent, category, f)
}

func (s *Service) upload(ctx context.Context, id *auth.Identity, intent media.Intent, category media.Category, f File) (string, error) {
	ext, err := media.Classify(f.ContentType, category)
	if err != nil {
		s.metrics.ObserveUpload(intent.Name(), "rejected", 0)
		return "", err
	}

	key := s.keys.Derive(id.SubjectID, intent, category, ext)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	url, err := s.store.Put(ctx, key, f.Data, f.ContentType)
	if err != nil {
		s.metrics.ObserveUpload(intent.Name(), "failed", 0)
		return "", fmt.Errorf("store %s upload: %w", intent.Name(), err)
	}

	s.metrics.ObserveUpload(intent.Name(), "stored", f.Size())
	s.logger.Info("upload stored",
		"intent", intent.Name(),
		"subject", id.SubjectID,
		"key", key,
		"content_type", f.ContentType,
		"size", f.Size(),
		"original_name", f.OriginalName,
	)
	return url, nil
}
