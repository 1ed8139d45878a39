package service

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"postfeed/internal/models"
	"postfeed/internal/realtime"
	"postfeed/internal/repository"
)

const defaultPageSize = 2

// PostInput is a create or update request. An update may keep or swap
// the image by ImageURL instead of uploading a new file.
type PostInput struct {
	Title    string  `json:"title" validate:"min=5"`
	Content  string  `json:"content" validate:"min=5"`
	ImageURL string  `json:"imageUrl"`
	Image    *Upload `json:"-"`
}

// EventPublisher receives every committed post mutation.
type EventPublisher interface {
	Publish(event realtime.Event)
}

type PostService interface {
	FetchPage(ctx context.Context, viewerID string, page int) (*models.FeedPage, error)
	GetPost(ctx context.Context, viewerID, postID string) (*models.Post, error)
	CreatePost(ctx context.Context, authorID string, input PostInput) (*models.Post, error)
	UpdatePost(ctx context.Context, authorID, postID string, input PostInput) (*models.Post, error)
	DeletePost(ctx context.Context, authorID, postID string) error
	UploadImage(ctx context.Context, ownerID string, upload *Upload, oldPath string) (string, error)
}

type postService struct {
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
	assets    AssetManager
	events    EventPublisher
	validator *Validator
	pageSize  int
	logger    *slog.Logger
}

func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository, assets AssetManager,
	events EventPublisher, validator *Validator, pageSize int, logger *slog.Logger) PostService {
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	return &postService{
		postRepo:  postRepo,
		userRepo:  userRepo,
		assets:    assets,
		events:    events,
		validator: validator,
		pageSize:  pageSize,
		logger:    logger,
	}
}

func (p *postService) FetchPage(ctx context.Context, viewerID string, page int) (*models.FeedPage, error) {
	if page < 1 {
		page = 1
	}
	if maxPage := math.MaxInt32 / p.pageSize; page > maxPage {
		page = maxPage
	}

	posts, total, err := p.postRepo.ReadPage(ctx, (page-1)*p.pageSize, p.pageSize)
	if err != nil {
		return nil, err
	}

	for i := range posts {
		posts[i].Editable = viewerID != "" && posts[i].AuthorID == viewerID
	}

	return &models.FeedPage{
		Posts:      posts,
		Page:       page,
		PerPage:    p.pageSize,
		TotalItems: total,
		TotalPages: (total + p.pageSize - 1) / p.pageSize,
	}, nil
}

func (p *postService) GetPost(ctx context.Context, viewerID, postID string) (*models.Post, error) {
	post, err := p.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	post.Editable = viewerID != "" && post.AuthorID == viewerID
	return post, nil
}

// validateText trims and checks title and content.
func (p *postService) validateText(input *PostInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Content = strings.TrimSpace(input.Content)
	input.ImageURL = strings.TrimSpace(input.ImageURL)

	return p.validator.Struct(input)
}

// imageRefError checks the image part of input for authorID. keep is the
// reference the post already has, if any.
func (p *postService) imageRefError(authorID, keep string, input PostInput) *ValidationError {
	switch {
	case input.Image != nil:
		return nil
	case input.ImageURL == "":
		return fieldError("image", "image is required")
	case input.ImageURL == keep || p.assets.Owns(authorID, input.ImageURL):
		return nil
	default:
		return fieldError("imageUrl", "imageUrl must reference one of your images")
	}
}

// resolveImage uploads a new file or returns the existing reference. The
// second result reports whether an upload happened.
func (p *postService) resolveImage(ctx context.Context, authorID string, input PostInput) (string, bool, error) {
	if input.Image == nil {
		return input.ImageURL, false, nil
	}

	ref, err := p.assets.Attach(ctx, authorID, input.Image)
	if err != nil {
		return "", false, err
	}

	return ref, true, nil
}

func (p *postService) CreatePost(ctx context.Context, authorID string, input PostInput) (*models.Post, error) {
	err := p.validateText(&input)
	if err = mergeValidation(err, p.imageRefError(authorID, "", input)); err != nil {
		return nil, err
	}

	author, err := p.userRepo.GetUserByID(ctx, authorID)
	if err != nil {
		return nil, err
	}

	ref, uploaded, err := p.resolveImage(ctx, authorID, input)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		AuthorID:   authorID,
		AuthorName: author.Name,
		Title:      input.Title,
		Content:    input.Content,
		ImageURL:   ref,
	}

	if err := p.postRepo.Create(ctx, post); err != nil {
		if uploaded {
			p.assets.Discard(ctx, ref)
		}
		return nil, err
	}

	p.events.Publish(realtime.PostCreated(*post))
	post.Editable = true

	p.logger.Info("post created", "post_id", post.PostID, "author_id", authorID)
	return post, nil
}

func (p *postService) UpdatePost(ctx context.Context, authorID, postID string, input PostInput) (*models.Post, error) {
	if err := p.validateText(&input); err != nil {
		return nil, err
	}

	post, err := p.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	if err := AuthorizeOwner(authorID, post.AuthorID); err != nil {
		return nil, err
	}

	if verr := p.imageRefError(authorID, post.ImageURL, input); verr != nil {
		return nil, verr
	}

	ref, uploaded, err := p.resolveImage(ctx, authorID, input)
	if err != nil {
		return nil, err
	}

	oldRef := post.ImageURL
	post.Title = input.Title
	post.Content = input.Content
	post.ImageURL = ref

	if err := p.postRepo.Update(ctx, post); err != nil {
		if uploaded {
			p.assets.Discard(ctx, ref)
		}
		return nil, err
	}

	p.assets.Replace(ctx, oldRef, ref)

	p.events.Publish(realtime.PostUpdated(*post))
	post.Editable = true

	p.logger.Info("post updated", "post_id", post.PostID, "author_id", authorID)
	return post, nil
}

func (p *postService) DeletePost(ctx context.Context, authorID, postID string) error {
	post, err := p.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}

	if err := AuthorizeOwner(authorID, post.AuthorID); err != nil {
		return err
	}

	if err := p.postRepo.Delete(ctx, post.PostID, post.AuthorID); err != nil {
		return err
	}

	p.assets.Reclaim(ctx, post.ImageURL)
	p.events.Publish(realtime.PostDeleted(post.PostID))

	p.logger.Info("post deleted", "post_id", post.PostID, "author_id", authorID)
	return nil
}

// UploadImage stores an image ahead of a post update. oldPath is reclaimed
// only when it belongs to the caller and no post references it.
func (p *postService) UploadImage(ctx context.Context, ownerID string, upload *Upload, oldPath string) (string, error) {
	ref, err := p.assets.Attach(ctx, ownerID, upload)
	if err != nil {
		return "", err
	}

	oldPath = strings.TrimSpace(oldPath)
	if oldPath != "" && oldPath != ref && p.assets.Owns(ownerID, oldPath) {
		p.assets.Reclaim(ctx, oldPath)
	}

	return ref, nil
}
