package main

import (
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"postfeed/internal/config"
	handlers "postfeed/internal/handler"
	"postfeed/internal/middleware"
)

func newRouter(h *handlers.Handlers, authn middleware.Authenticator, cfg *config.Config, logger *slog.Logger) http.Handler {
	requireAuth := middleware.RequireAuth(authn, logger)
	optionalAuth := middleware.OptionalAuth(authn, logger)

	r := mux.NewRouter()

	r.HandleFunc("/health", handlers.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws", h.Subscribe).Methods(http.MethodGet)

	// auth
	r.HandleFunc("/auth/signup", h.Signup).Methods(http.MethodPut)
	r.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	r.Handle("/auth/status", requireAuth(http.HandlerFunc(h.GetStatus))).Methods(http.MethodGet)
	r.Handle("/auth/status", requireAuth(http.HandlerFunc(h.UpdateStatus))).Methods(http.MethodPatch)

	// feed
	r.Handle("/feed/posts", optionalAuth(http.HandlerFunc(h.GetPosts))).Methods(http.MethodGet)
	r.Handle("/feed/post/{postId}", optionalAuth(http.HandlerFunc(h.GetPost))).Methods(http.MethodGet)
	r.Handle("/feed/post", requireAuth(http.HandlerFunc(h.CreatePost))).Methods(http.MethodPost)
	r.Handle("/feed/post/{postId}", requireAuth(http.HandlerFunc(h.UpdatePost))).Methods(http.MethodPut)
	r.Handle("/feed/post/{postId}", requireAuth(http.HandlerFunc(h.DeletePost))).Methods(http.MethodDelete)
	r.Handle("/post-image", requireAuth(http.HandlerFunc(h.UploadImage))).Methods(http.MethodPut)

	return middleware.Chain(r,
		chimw.RequestID,
		chimw.RealIP,
		middleware.LoggingMiddleware(logger),
		chimw.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         300,
		}),
	)
}
