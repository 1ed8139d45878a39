package service

import (
	"log/slog"
	"time"

	"postfeed/internal/config"
	"postfeed/internal/repository"
	"postfeed/internal/storage"
)

type Service struct {
	User   UserService
	Post   PostService
	Auth   AuthService
	Tokens *TokenAuthenticator
}

func NewService(rep *repository.Repository, cfg *config.Config, store storage.Storage,
	events EventPublisher, limiter LoginLimiter, logger *slog.Logger) *Service {
	validator := NewValidator()
	tokens := NewTokenAuthenticator(cfg.JWTSecretKey, cfg.TokenTTL, time.Now)
	assets := NewAssetService(store, rep.Post, logger, time.Now)

	return &Service{
		User:   NewUserService(rep.User),
		Post:   NewPostService(rep.Post, rep.User, assets, events, validator, cfg.PageSize, logger),
		Auth:   NewAuthService(rep.User, tokens, NewBcryptHasher(cfg.BcryptCost), limiter, validator, logger),
		Tokens: tokens,
	}
}
