package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"postfeed/internal/models"
)

var (
	ErrUserNotFound = errors.New("пользователь не найден")
	ErrPostNotFound = errors.New("пост не найден")
	ErrEmailTaken   = errors.New("пользователь с таким email уже существует")
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateStatus(ctx context.Context, userID, status string) error
}

// PostRepository is the feed store. Create and Delete also maintain the
// owner's set of post references as part of the same write.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, postID string) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, postID, authorID string) error
	ReadPage(ctx context.Context, offset, limit int) ([]models.Post, int, error)
	CountByImage(ctx context.Context, imageURL string) (int, error)
}

type Repository struct {
	User UserRepository
	Post PostRepository
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		User: NewUserRepository(db),
		Post: NewPostRepository(db),
	}
}

const uniqueViolation = "23505"

// isUniqueViolation recognises duplicate-key errors from both supported
// Postgres drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}

	return false
}
