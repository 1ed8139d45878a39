package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"postfeed/internal/config"
	"postfeed/internal/realtime"
	"postfeed/internal/service"
)

type Handlers struct {
	UserService service.UserService
	AuthService service.AuthService
	PostService service.PostService
	Hub         *realtime.Hub
	Cfg         *config.Config
	Logger      *slog.Logger
	upgrader    websocket.Upgrader
}

func NewHandlers(services *service.Service, hub *realtime.Hub, cfg *config.Config, logger *slog.Logger) *Handlers {
	h := &Handlers{
		UserService: services.User,
		AuthService: services.Auth,
		PostService: services.Post,
		Hub:         hub,
		Cfg:         cfg,
		Logger:      logger,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Subprotocols:    realtime.Subprotocols,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

func (h *Handlers) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range h.Cfg.CORSAllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]string{"status": "ok"}, http.StatusOK)
}
