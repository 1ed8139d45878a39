package models

import (
	"time"

	"github.com/lib/pq"
)

const DefaultStatus = "I am new!"

type User struct {
	UserID       string         `json:"userId" db:"user_id"`
	Email        string         `json:"email" db:"email"`
	PasswordHash string         `json:"-" db:"password_hash"`
	Name         string         `json:"name" db:"name"`
	Status       string         `json:"status" db:"status"`
	Posts        pq.StringArray `json:"posts" db:"posts"`
	CreatedAt    time.Time      `json:"createdAt" db:"created_at"`
}

type Post struct {
	PostID     string    `json:"postId" db:"post_id"`
	Seq        int64     `json:"-" db:"seq"`
	AuthorID   string    `json:"authorId" db:"author_id"`
	AuthorName string    `json:"authorName" db:"author_name"`
	Title      string    `json:"title" db:"title"`
	Content    string    `json:"content" db:"content"`
	ImageURL   string    `json:"imageUrl" db:"image_url"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`

	// Editable is set on feed reads for the viewer who owns the post.
	Editable bool `json:"editable,omitempty" db:"-"`
}

// FeedPage is one page of the feed, newest first. TotalItems is read from
// the same store snapshot as Posts where the backend supports it.
type FeedPage struct {
	Posts      []Post `json:"posts"`
	Page       int    `json:"page"`
	PerPage    int    `json:"perPage"`
	TotalItems int    `json:"totalItems"`
	TotalPages int    `json:"totalPages"`
}
