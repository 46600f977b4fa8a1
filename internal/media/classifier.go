// Package media classifies uploaded content and derives the storage keys
// uploads are written under.
package media

import (
	"errors"
	"mime"
	"sort"
	"strings"
)

// Category is the broad kind of media an upload is expected to be.
type Category string

// Categories accepted by the classifier.
const (
	Image Category = "image"
	Video Category = "video"
)

// ErrUnsupportedType is returned for MIME types outside the allow-list.
var ErrUnsupportedType = errors.New("unsupported media type")

// ErrCategoryMismatch is returned when an allowed MIME type is not of the
// expected category.
var ErrCategoryMismatch = errors.New("media type does not match expected category")

// extensions is the allow-list of MIME types and their canonical extension.
var extensions = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/webp":      "webp",
	"image/gif":       "gif",
	"video/mp4":       "mp4",
	"video/webm":      "webm",
	"video/quicktime": "mov",
}

// ParseCategory validates a caller-declared category.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case Image, Video:
		return Category(s), true
	}
	return "", false
}

// AllowedTypes lists the accepted MIME types of category c.
func AllowedTypes(c Category) []string {
	var types []string
	for mt := range extensions {
		if strings.HasPrefix(mt, string(c)+"/") {
			types = append(types, mt)
		}
	}
	sort.Strings(types)
	return types
}

// Classify returns the canonical extension for mimeType, checking it belongs
// to expected. The extension is always derived from the MIME type and never
// from a client-supplied filename.
func Classify(mimeType string, expected Category) (string, error) {
	mt := normalize(mimeType)
	ext, ok := extensions[mt]
	if !ok {
		return "", ErrUnsupportedType
	}
	if !strings.HasPrefix(mt, string(expected)+"/") {
		return "", ErrCategoryMismatch
	}
	return ext, nil
}

// normalize lowercases the media type and drops any parameters.
func normalize(mimeType string) string {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
