package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/profiles/u1/a.png", joinURL("https://cdn.example.com/", "profiles/u1/a.png"))
	assert.Equal(t, "https://cdn.example.com/profiles/u%20x/a.png", joinURL("https://cdn.example.com", "profiles/u x/a.png"))
}

func TestMemoryStorage_Put(t *testing.T) {
	s := NewMemoryStorage("https://cdn.example.com")

	url, err := s.Put(context.Background(), "profiles/u1/a.png", []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/profiles/u1/a.png", url)

	obj, ok := s.Get("profiles/u1/a.png")
	require.True(t, ok)
	assert.Equal(t, []byte("png"), obj.Data)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, []string{"profiles/u1/a.png"}, s.Keys())
}

func TestMemoryStorage_FailWith(t *testing.T) {
	s := NewMemoryStorage("https://cdn.example.com")
	s.FailWith(errors.New("quota exceeded"))

	_, err := s.Put(context.Background(), "k", []byte("x"), "image/png")
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Empty(t, s.Keys())
}

func TestR2Storage_URL(t *testing.T) {
	cfg := R2Config{
		AccountID:       "acc123",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		BucketName:      "media",
	}

	direct, err := NewR2Storage(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://media.acc123.r2.cloudflarestorage.com/profiles/u1/a.png", direct.URL("profiles/u1/a.png"))

	cfg.PublicURL = "https://media.example.com/"
	public, err := NewR2Storage(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.com/profiles/u1/a.png", public.URL("profiles/u1/a.png"))
}

func TestNewR2Storage_RequiresCredentials(t *testing.T) {
	_, err := NewR2Storage(context.Background(), R2Config{AccessKeyID: "k", SecretAccessKey: "s", BucketName: "b"})
	assert.Error(t, err)
	_, err = NewR2Storage(context.Background(), R2Config{AccountID: "a", BucketName: "b"})
	assert.Error(t, err)
	_, err = NewR2Storage(context.Background(), R2Config{AccountID: "a", AccessKeyID: "k", SecretAccessKey: "s"})
	assert.Error(t, err)
}

func TestMinioStorage_URL(t *testing.T) {
	s := &MinioStorage{endpoint: "localhost:9000", bucket: "media"}
	assert.Equal(t, "http://localhost:9000/media/posts/u1/uncategorized/images/a.jpg", s.URL("posts/u1/uncategorized/images/a.jpg"))

	s.useSSL = true
	assert.Equal(t, "https://localhost:9000/media/a.jpg", s.URL("a.jpg"))

	s.publicURL = "https://cdn.example.com"
	assert.Equal(t, "https://cdn.example.com/a.jpg", s.URL("a.jpg"))
}

func TestMinioStorage_PutWrapsBackendFailure(t *testing.T) {
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			contentType = r.Header.Get("Content-Type")
		}
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`))
	}))
	defer srv.Close()

	client, err := minio.New(strings.TrimPrefix(srv.URL, "http://"), &minio.Options{
		Creds:  credentials.NewStaticV4("key", "secret", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)

	s := &MinioStorage{client: client, bucket: "media"}
	_, err = s.Put(context.Background(), "profiles/u1/a.png", []byte("png"), "image/png")
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Equal(t, "image/png", contentType)
}
