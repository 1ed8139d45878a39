package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	handlers "postfeed/internal/handler"
	"postfeed/internal/service"
)

type Middleware func(http.Handler) http.Handler

// Authenticator turns an Authorization header into a verification result.
type Authenticator interface {
	Authenticate(header string) service.Verification
}

// RequireAuth rejects every request that is not Authenticated. Missing,
// malformed, tampered and expired tokens get the same response; only the
// log tells them apart.
func RequireAuth(authn Authenticator, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v := authn.Authenticate(r.Header.Get("Authorization"))
			if v.State != service.Authenticated {
				logger.Info("request not authenticated",
					"path", r.URL.Path,
					"state", v.State.String(),
					"reason", v.Reason(),
					"request_id", chimw.GetReqID(r.Context()))
				handlers.WriteError(w, "Требуется авторизация", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(handlers.WithUserID(r.Context(), v.SubjectID)))
		})
	}
}

// OptionalAuth attaches the subject when the token is valid and otherwise
// lets the request through anonymously.
func OptionalAuth(authn Authenticator, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v := authn.Authenticate(r.Header.Get("Authorization"))

			switch v.State {
			case service.Authenticated:
				r = r.WithContext(handlers.WithUserID(r.Context(), v.SubjectID))
			case service.Invalid:
				logger.Debug("ignoring invalid token",
					"path", r.URL.Path,
					"reason", v.Reason(),
					"request_id", chimw.GetReqID(r.Context()))
			}

			next.ServeHTTP(w, r)
		})
	}
}

func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()))
		})
	}
}

// Chain applies middlewares so that the first one listed runs first.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
