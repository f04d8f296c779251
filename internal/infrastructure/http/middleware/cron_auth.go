package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rezkam/hsewatch/internal/infrastructure/http/response"
)

// CronAuth gates trigger endpoints behind a static bearer secret.
type CronAuth struct {
	secret []byte
}

// NewCronAuth creates the middleware. An empty secret leaves the gate open.
func NewCronAuth(secret string) *CronAuth {
	return &CronAuth{secret: []byte(secret)}
}

// Enabled reports whether a secret is configured.
func (a *CronAuth) Enabled() bool {
	return len(a.secret) > 0
}

// Validate is a Chi middleware that checks "Authorization: Bearer <secret>".
func (a *CronAuth) Validate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			slog.WarnContext(r.Context(), "trigger rejected: missing Authorization header",
				"path", r.URL.Path,
				"method", r.Method)
			response.Unauthorized(w, "missing Authorization header")
			return
		}

		token, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			slog.WarnContext(r.Context(), "trigger rejected: invalid Authorization header format",
				"path", r.URL.Path,
				"method", r.Method)
			response.Unauthorized(w, "invalid Authorization header format, expected: Bearer <token>")
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), a.secret) != 1 {
			slog.WarnContext(r.Context(), "trigger rejected: wrong cron secret",
				"path", r.URL.Path,
				"method", r.Method)
			response.Unauthorized(w, "invalid cron secret")
			return
		}

		next.ServeHTTP(w, r)
	})
}
