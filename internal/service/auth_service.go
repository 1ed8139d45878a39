package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"postfeed/internal/models"
	"postfeed/internal/repository"
)

// bcrypt refuses passwords longer than this many bytes.
const maxPasswordBytes = 72

type SignupInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AuthService interface {
	Signup(ctx context.Context, input SignupInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
}

type authService struct {
	userRepo  repository.UserRepository
	tokens    *TokenAuthenticator
	hasher    PasswordHasher
	limiter   LoginLimiter
	validator *Validator
	logger    *slog.Logger
}

func NewAuthService(userRepo repository.UserRepository, tokens *TokenAuthenticator, hasher PasswordHasher,
	limiter LoginLimiter, validator *Validator, logger *slog.Logger) AuthService {
	if limiter == nil {
		limiter = NewNoopLoginLimiter()
	}

	return &authService{
		userRepo:  userRepo,
		tokens:    tokens,
		hasher:    hasher,
		limiter:   limiter,
		validator: validator,
		logger:    logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)

	var tooLong *ValidationError
	if len(input.Password) > maxPasswordBytes {
		tooLong = fieldError("password", fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}
	if err := mergeValidation(s.validator.Struct(input), tooLong); err != nil {
		return nil, err
	}

	_, err := s.userRepo.GetUserByEmail(ctx, input.Email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("ошибка проверки email: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        input.Email,
		PasswordHash: hash,
		Name:         input.Name,
	}

	// the unique index still catches a concurrent signup with the same email
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", "user_id", user.UserID)
	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	input.Email = normalizeEmail(input.Email)

	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	blocked, err := s.limiter.Blocked(ctx, input.Email)
	if err != nil {
		s.logger.Warn("login limiter unavailable", "error", err)
	}
	if blocked {
		return nil, ErrTooManyAttempts
	}

	user, err := s.userRepo.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.registerFailure(ctx, input.Email)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("ошибка аутентификации: %w", err)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, input.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.registerFailure(ctx, input.Email)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.UserID, user.Email)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Reset(ctx, input.Email); err != nil {
		s.logger.Warn("login limiter reset failed", "error", err)
	}

	return &LoginResult{
		Token:     token,
		UserID:    user.UserID,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *authService) registerFailure(ctx context.Context, email string) {
	if err := s.limiter.RegisterFailure(ctx, email); err != nil {
		s.logger.Warn("login limiter update failed", "error", err)
	}
}
