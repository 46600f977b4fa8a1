package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mediagate/service/internal/response"
)

// Recoverer converts panics into the unhandled-error envelope. The panic
// value is only sent to the client when expose is true.
func Recoverer(l *slog.Logger, expose bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err := fmt.Errorf("panic: %v", rec)
				l.Error("unhandled error",
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"error", err,
					"stack", string(debug.Stack()),
				)
				response.InternalError(w, r, "Internal server error", err, expose)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
