package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter counts failed logins per email inside a fixed window.
type LoginLimiter interface {
	Blocked(ctx context.Context, email string) (bool, error)
	RegisterFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

type redisLoginLimiter struct {
	rdb         *redis.Client
	maxAttempts int
	window      time.Duration
}

func NewRedisLoginLimiter(rdb *redis.Client, maxAttempts int, window time.Duration) LoginLimiter {
	return &redisLoginLimiter{
		rdb:         rdb,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

func loginAttemptsKey(email string) string {
	return "login:attempts:" + strings.ToLower(email)
}

func (l *redisLoginLimiter) Blocked(ctx context.Context, email string) (bool, error) {
	count, err := l.rdb.Get(ctx, loginAttemptsKey(email)).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ошибка чтения счётчика попыток входа: %w", err)
	}

	return count >= l.maxAttempts, nil
}

func (l *redisLoginLimiter) RegisterFailure(ctx context.Context, email string) error {
	key := loginAttemptsKey(email)

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("ошибка обновления счётчика попыток входа: %w", err)
	}

	// the window starts at the first failure
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("ошибка установки срока счётчика попыток входа: %w", err)
		}
	}

	return nil
}

func (l *redisLoginLimiter) Reset(ctx context.Context, email string) error {
	if err := l.rdb.Del(ctx, loginAttemptsKey(email)).Err(); err != nil {
		return fmt.Errorf("ошибка сброса счётчика попыток входа: %w", err)
	}
	return nil
}

type noopLoginLimiter struct{}

// NewNoopLoginLimiter never blocks; used when Redis is not configured.
func NewNoopLoginLimiter() LoginLimiter {
	return noopLoginLimiter{}
}

func (noopLoginLimiter) Blocked(context.Context, string) (bool, error) { return false, nil }
func (noopLoginLimiter) RegisterFailure(context.Context, string) error  { return nil }
func (noopLoginLimiter) Reset(context.Context, string) error            { return nil }
