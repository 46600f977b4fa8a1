// Package auth verifies bearer credentials issued by the identity provider.
package auth

import (
	"context"
	"errors"
	"strings"
)

// ErrMissingOrInvalid is returned when the Authorization header is absent or
// not of the form "Bearer <token>". No verification is attempted.
var ErrMissingOrInvalid = errors.New("missing or invalid authorization header")

// ErrInvalidOrExpired is returned for every failure of the verification
// oracle: bad signature, expired or revoked token, network failure.
var ErrInvalidOrExpired = errors.New("invalid or expired token")

// Identity is the verified caller of a single request.
type Identity struct {
	SubjectID string
	Email     string
}

// Verifier turns an opaque bearer token into a verified identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

const bearerPrefix = "Bearer "

// ExtractBearer returns the token carried by an Authorization header value.
func ExtractBearer(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrMissingOrInvalid
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", ErrMissingOrInvalid
	}
	return token, nil
}
