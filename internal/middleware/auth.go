package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mediagate/service/internal/auth"
	"github.com/mediagate/service/internal/response"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

// IdentityKey is the context key for the verified caller.
const IdentityKey contextKey = "identity"

// RequireAuth returns middleware that verifies the Bearer token with v and
// injects the resulting identity into the request context. The request body
// is never touched before verification succeeds.
func RequireAuth(v auth.Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ExtractBearer(r.Header.Get("Authorization"))
			if err != nil {
				response.Unauthorized(w, "Missing or invalid authorization header")
				return
			}

			identity, err := v.Verify(r.Context(), token)
			if err != nil {
				logger.Debug("token verification failed", "error", err)
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the identity injected by RequireAuth.
func IdentityFrom(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(*auth.Identity)
	return id, ok && id != nil && id.SubjectID != ""
}
