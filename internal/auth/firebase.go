package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"

	"github.com/mediagate/service/internal/config"
)

const (
	firebaseIssuerPrefix = "https://securetoken.google.com/"
	certsCacheKey        = "signing-certs"
	defaultCertsMaxAge   = time.Hour
	maxSubjectLength     = 128
)

// firebaseClaims is the subset of Firebase ID token claims the service reads.
type firebaseClaims struct {
	Email    string `json:"email,omitempty"`
	AuthTime int64  `json:"auth_time,omitempty"`
	jwt.RegisteredClaims
}

// FirebaseVerifier verifies Firebase ID tokens against Google's published
// signing certificates. Certificates are cached for the max-age announced by
// the certificate endpoint; tokens and identities are never cached.
type FirebaseVerifier struct {
	certsURL string
	client   *http.Client
	certs    *cache.Cache
	parser   *jwt.Parser
}

// NewFirebaseVerifier creates a verifier for the configured Firebase project.
func NewFirebaseVerifier(cfg config.FirebaseConfig) *FirebaseVerifier {
	return &FirebaseVerifier{
		certsURL: cfg.CertsURL,
		client:   &http.Client{Timeout: cfg.CertTimeout},
		certs:    cache.New(defaultCertsMaxAge, 10*time.Minute),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithAudience(cfg.ProjectID),
			jwt.WithIssuer(firebaseIssuerPrefix+cfg.ProjectID),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}
}

// Verify validates the token signature and claims and returns the caller.
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingOrInvalid
	}

	claims := &firebaseClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		keys, err := v.signingKeys(ctx)
		if err != nil {
			return nil, err
		}
		key, ok := keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown signing key %q", kid)
		}
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOrExpired, err)
	}

	if !validSubject(claims.Subject) {
		return nil, fmt.Errorf("%w: invalid subject claim", ErrInvalidOrExpired)
	}
	if claims.AuthTime > time.Now().Unix() {
		return nil, fmt.Errorf("%w: auth_time is in the future", ErrInvalidOrExpired)
	}

	return &Identity{SubjectID: claims.Subject, Email: claims.Email}, nil
}

// signingKeys returns the current kid → public key set, fetching it when the
// cached copy has expired.
func (v *FirebaseVerifier) signingKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	if cached, ok := v.certs.Get(certsCacheKey); ok {
		return cached.(map[string]*rsa.PublicKey), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build certs request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch signing certs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch signing certs: unexpected status %d", resp.StatusCode)
	}

	var pems map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&pems); err != nil {
		return nil, fmt.Errorf("decode signing certs: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(pems))
	for kid, pem := range pems {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, fmt.Errorf("parse signing cert %q: %w", kid, err)
		}
		keys[kid] = key
	}

	v.certs.Set(certsCacheKey, keys, cacheMaxAge(resp.Header.Get("Cache-Control")))
	return keys, nil
}

// cacheMaxAge extracts max-age from a Cache-Control header value.
func cacheMaxAge(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		secs, err := strconv.Atoi(value)
		if err != nil || secs <= 0 {
			break
		}
		return time.Duration(secs) * time.Second
	}
	return defaultCertsMaxAge
}

// validSubject reports whether sub can be used as a single object key
// segment: non-empty, bounded, and free of path separators, dot segments and
// control characters.
func validSubject(sub string) bool {
	if sub == "" || len(sub) > maxSubjectLength || sub == "." || sub == ".." {
		return false
	}
	for _, r := range sub {
		if r == '/' || r == '\\' || r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}
