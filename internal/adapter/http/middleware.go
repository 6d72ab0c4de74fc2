package adapthttp

import (
	"context"
	"net/http"
	"time"

	"chatgate/internal/app"
)

type contextKey string

const userContextKey contextKey = "user"

// sessionMiddleware resolves the caller from the session cookie. Callers
// without a valid token, whose account was removed, or whose token predates
// their last logout act as the public guest.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := app.PublicUser
		if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
			claims, err := s.tokens.Parse(cookie.Value)
			switch {
			case err != nil:
				s.log.Debug(r.Context(), "ignoring session cookie", "error", err)
			case !s.mgr.UserExists(r.Context(), claims.Username):
			case claims.Generation != s.mgr.SessionGeneration(r.Context(), claims.Username):
				s.log.Debug(r.Context(), "ignoring revoked session cookie", "username", claims.Username)
			default:
				username = claims.Username
			}
		}
		ctx := context.WithValue(r.Context(), userContextKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUser(r *http.Request) string {
	if u, ok := r.Context().Value(userContextKey).(string); ok {
		return u
	}
	return app.PublicUser
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
