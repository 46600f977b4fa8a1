package media_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediagate/service/internal/media"
)

func TestClassify_AllowList(t *testing.T) {
	cases := []struct {
		mime     string
		category media.Category
		ext      string
	}{
		{"image/jpeg", media.Image, "jpg"},
		{"image/png", media.Image, "png"},
		{"image/webp", media.Image, "webp"},
		{"image/gif", media.Image, "gif"},
		{"video/mp4", media.Video, "mp4"},
		{"video/webm", media.Video, "webm"},
		{"video/quicktime", media.Video, "mov"},
	}
	for _, tc := range cases {
		t.Run(tc.mime, func(t *testing.T) {
			ext, err := media.Classify(tc.mime, tc.category)
			require.NoError(t, err)
			assert.Equal(t, tc.ext, ext)
		})
	}
}

func TestClassify_Unsupported(t *testing.T) {
	for _, mt := range []string{
		"", "image/svg+xml", "image/bmp", "image/heic", "video/x-msvideo",
		"application/octet-stream", "text/html", "application/pdf", "image", "jpg",
	} {
		t.Run(mt, func(t *testing.T) {
			for _, c := range []media.Category{media.Image, media.Video} {
				_, err := media.Classify(mt, c)
				assert.ErrorIs(t, err, media.ErrUnsupportedType)
			}
		})
	}
}

func TestClassify_CategoryMismatch(t *testing.T) {
	_, err := media.Classify("video/mp4", media.Image)
	assert.ErrorIs(t, err, media.ErrCategoryMismatch)

	_, err = media.Classify("image/png", media.Video)
	assert.ErrorIs(t, err, media.ErrCategoryMismatch)
}

func TestClassify_NormalizesParameters(t *testing.T) {
	ext, err := media.Classify("IMAGE/PNG; charset=binary", media.Image)
	require.NoError(t, err)
	assert.Equal(t, "png", ext)
}

func TestParseCategory(t *testing.T) {
	c, ok := media.ParseCategory("image")
	assert.True(t, ok)
	assert.Equal(t, media.Image, c)

	c, ok = media.ParseCategory("video")
	assert.True(t, ok)
	assert.Equal(t, media.Video, c)

	for _, s := range []string{"", "Image", "audio", "images"} {
		_, ok := media.ParseCategory(s)
		assert.False(t, ok, s)
	}
}

func TestAllowedTypes(t *testing.T) {
	assert.Equal(t, []string{"image/gif", "image/jpeg", "image/png", "image/webp"}, media.AllowedTypes(media.Image))
	assert.Equal(t, []string{"video/mp4", "video/quicktime", "video/webm"}, media.AllowedTypes(media.Video))
}
