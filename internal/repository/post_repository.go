package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"postfeed/internal/models"
)

type PostRepositoryImpl struct {
	DB *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) *PostRepositoryImpl {
	return &PostRepositoryImpl{DB: db}
}

const postSelect = `
	SELECT p.post_id, p.seq, p.author_id, u.name AS author_name, p.title,
	       p.content, p.image_url, p.created_at, p.updated_at
	FROM posts p
	JOIN users u ON u.user_id = p.author_id
`

func (r *PostRepositoryImpl) Create(ctx context.Context, post *models.Post) error {
	if post.PostID == "" {
		post.PostID = uuid.New().String()
	}

	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка при открытии транзакции: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO posts (post_id, author_id, title, content, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq
	`

	err = tx.QueryRowxContext(ctx, query,
		post.PostID,
		post.AuthorID,
		post.Title,
		post.Content,
		post.ImageURL,
		post.CreatedAt,
		post.UpdatedAt,
	).Scan(&post.Seq)
	if err != nil {
		return fmt.Errorf("ошибка при создании поста: %w", err)
	}

	// add post to the author's posts
	result, err := tx.ExecContext(ctx,
		`UPDATE users SET posts = array_append(posts, $1) WHERE user_id = $2`,
		post.PostID, post.AuthorID)
	if err != nil {
		return fmt.Errorf("ошибка при привязке поста к автору: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при проверке обновленных строк: %w", err)
	}

	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	return nil
}

func (r *PostRepositoryImpl) GetByID(ctx context.Context, postID string) (*models.Post, error) {
	query := postSelect + `WHERE p.post_id = $1`

	var post models.Post
	err := r.DB.GetContext(ctx, &post, query, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("ошибка при получении поста: %w", err)
	}

	return &post, nil
}

func (r *PostRepositoryImpl) Update(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE posts SET
			title = $1,
			content = $2,
			image_url = $3,
			updated_at = $4
		WHERE post_id = $5
	`

	result, err := r.DB.ExecContext(ctx, query,
		post.Title,
		post.Content,
		post.ImageURL,
		post.UpdatedAt,
		post.PostID,
	)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении поста: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при проверке обновленных строк: %w", err)
	}

	if rowsAffected == 0 {
		return ErrPostNotFound
	}

	return nil
}

func (r *PostRepositoryImpl) Delete(ctx context.Context, postID, authorID string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка при открытии транзакции: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE post_id = $1`, postID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении поста: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при проверке удаленных строк: %w", err)
	}

	if rowsAffected == 0 {
		return ErrPostNotFound
	}

	// remove post from the author's posts too
	_, err = tx.ExecContext(ctx,
		`UPDATE users SET posts = array_remove(posts, $1) WHERE user_id = $2`,
		postID, authorID)
	if err != nil {
		return fmt.Errorf("ошибка при отвязке поста от автора: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	return nil
}

// ReadPage reads the total count and one newest-first slice inside a single
// read-only REPEATABLE READ transaction, so both come from one snapshot.
func (r *PostRepositoryImpl) ReadPage(ctx context.Context, offset, limit int) ([]models.Post, int, error) {
	tx, err := r.DB.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка при открытии транзакции: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.GetContext(ctx, &total, `SELECT COUNT(*) FROM posts`); err != nil {
		return nil, 0, fmt.Errorf("ошибка при подсчёте постов: %w", err)
	}

	posts := []models.Post{}
	if offset < total {
		query := postSelect + `ORDER BY p.created_at DESC, p.seq DESC LIMIT $1 OFFSET $2`
		if err := tx.SelectContext(ctx, &posts, query, limit, offset); err != nil {
			return nil, 0, fmt.Errorf("ошибка при получении постов: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	return posts, total, nil
}

func (r *PostRepositoryImpl) CountByImage(ctx context.Context, imageURL string) (int, error) {
	var count int
	err := r.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM posts WHERE image_url = $1`, imageURL)
	if err != nil {
		return 0, fmt.Errorf("ошибка при подсчёте ссылок на изображение: %w", err)
	}

	return count, nil
}
