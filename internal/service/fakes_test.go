package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"postfeed/internal/models"
	"postfeed/internal/realtime"
	"postfeed/internal/repository"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
	jpegBytes = append([]byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), make([]byte, 64)...)
)

func pngUpload() *Upload {
	return &Upload{Filename: "cat.png", Size: int64(len(pngBytes)), File: bytes.NewReader(pngBytes)}
}

func jpegUpload() *Upload {
	return &Upload{Filename: "cat.jpg", Size: int64(len(jpegBytes)), File: bytes.NewReader(jpegBytes)}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*models.User)}
}

func (r *memUserRepo) add(id, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id] = &models.User{UserID: id, Email: id + "@example.com", Name: name, Status: models.DefaultStatus, Posts: []string{}}
}

func (r *memUserRepo) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}

	if user.UserID == "" {
		user.UserID = fmt.Sprintf("u%d", len(r.users)+1)
	}
	if user.Status == "" {
		user.Status = models.DefaultStatus
	}
	user.Posts = []string{}

	stored := *user
	r.users[user.UserID] = &stored
	return nil
}

func (r *memUserRepo) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	user := *u
	user.Posts = append([]string{}, u.Posts...)
	return &user, nil
}

func (r *memUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			user := *u
			return &user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *memUserRepo) UpdateStatus(ctx context.Context, userID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Status = status
	return nil
}

// memPostRepo stamps every post with the same time so ordering falls back
// to the insertion sequence.
type memPostRepo struct {
	mu        sync.Mutex
	users     *memUserRepo
	posts     map[string]*models.Post
	seq       int64
	now       time.Time
	createErr error
	updateErr error
}

func newMemPostRepo(users *memUserRepo) *memPostRepo {
	return &memPostRepo{
		users: users,
		posts: make(map[string]*models.Post),
		now:   time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (r *memPostRepo) Create(ctx context.Context, post *models.Post) error {
	if r.createErr != nil {
		return r.createErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.users.mu.Lock()
	defer r.users.mu.Unlock()

	author, ok := r.users.users[post.AuthorID]
	if !ok {
		return repository.ErrUserNotFound
	}

	r.seq++
	post.Seq = r.seq
	if post.PostID == "" {
		post.PostID = fmt.Sprintf("p%d", r.seq)
	}
	post.AuthorName = author.Name
	post.CreatedAt = r.now
	post.UpdatedAt = r.now

	stored := *post
	r.posts[post.PostID] = &stored
	author.Posts = append(author.Posts, post.PostID)
	return nil
}

func (r *memPostRepo) GetByID(ctx context.Context, postID string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[postID]
	if !ok {
		return nil, repository.ErrPostNotFound
	}
	post := *p
	return &post, nil
}

func (r *memPostRepo) Update(ctx context.Context, post *models.Post) error {
	if r.updateErr != nil {
		return r.updateErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[post.PostID]
	if !ok {
		return repository.ErrPostNotFound
	}
	p.Title = post.Title
	p.Content = post.Content
	p.ImageURL = post.ImageURL
	p.UpdatedAt = r.now
	return nil
}

func (r *memPostRepo) Delete(ctx context.Context, postID, authorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[postID]; !ok {
		return repository.ErrPostNotFound
	}
	delete(r.posts, postID)

	r.users.mu.Lock()
	defer r.users.mu.Unlock()
	if author, ok := r.users.users[authorID]; ok {
		kept := author.Posts[:0]
		for _, id := range author.Posts {
			if id != postID {
				kept = append(kept, id)
			}
		}
		author.Posts = kept
	}
	return nil
}

func (r *memPostRepo) ReadPage(ctx context.Context, offset, limit int) ([]models.Post, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]models.Post, 0, len(r.posts))
	for _, p := range r.posts {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].Seq > all[j].Seq
	})

	page := []models.Post{}
	if offset < len(all) {
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		page = append(page, all[offset:end]...)
	}
	return page, len(all), nil
}

func (r *memPostRepo) CountByImage(ctx context.Context, imageURL string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, p := range r.posts {
		if p.ImageURL == imageURL {
			count++
		}
	}
	return count, nil
}

type memStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	puts      int
	removeErr error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (s *memStorage) Put(ctx context.Context, key string, file io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.puts++
	return nil
}

func (s *memStorage) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removeErr != nil {
		return s.removeErr
	}
	delete(s.objects, key)
	return nil
}

func (s *memStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *memStorage) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(event realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) actions() []realtime.Action {
	p.mu.Lock()
	defer p.mu.Unlock()

	actions := make([]realtime.Action, 0, len(p.events))
	for _, e := range p.events {
		actions = append(actions, e.Action)
	}
	return actions
}

type feedFixture struct {
	users   *memUserRepo
	posts   *memPostRepo
	storage *memStorage
	events  *recordingPublisher
	service PostService
}

func newFeedFixture(events EventPublisher) *feedFixture {
	users := newMemUserRepo()
	users.add("alice", "Alice")
	users.add("bob", "Bob")

	posts := newMemPostRepo(users)
	store := newMemStorage()
	recorder := &recordingPublisher{}
	if events == nil {
		events = recorder
	}

	clock := func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	assets := NewAssetService(store, posts, discardLogger(), clock)

	return &feedFixture{
		users:   users,
		posts:   posts,
		storage: store,
		events:  recorder,
		service: NewPostService(posts, users, assets, events, NewValidator(), 2, discardLogger()),
	}
}

func bytesReader(s string) io.Reader {
	return bytes.NewReader([]byte(s))
}
