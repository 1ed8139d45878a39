package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"postfeed/internal/repository"
	"postfeed/internal/storage"
)

const sniffLen = 512

var allowedImageTypes = []struct {
	mime string
	ext  string
}{
	{"image/png", ".png"},
	{"image/jpeg", ".jpg"},
	{"image/gif", ".gif"},
	{"image/webp", ".webp"},
}

// Upload is an incoming image file.
type Upload struct {
	Filename string
	Size     int64
	File     io.Reader
}

// AssetManager owns post images in storage. Attach is the only call that
// can fail the request; the cleanup calls log their failures.
type AssetManager interface {
	Attach(ctx context.Context, ownerID string, upload *Upload) (string, error)
	Discard(ctx context.Context, ref string)
	Replace(ctx context.Context, oldRef, newRef string)
	Reclaim(ctx context.Context, ref string)
	Owns(ownerID, ref string) bool
}

type assetService struct {
	storage storage.Storage
	posts   repository.PostRepository
	logger  *slog.Logger
	now     func() time.Time
}

func NewAssetService(store storage.Storage, posts repository.PostRepository, logger *slog.Logger, now func() time.Time) AssetManager {
	if now == nil {
		now = time.Now
	}

	return &assetService{
		storage: store,
		posts:   posts,
		logger:  logger,
		now:     now,
	}
}

func ownerPrefix(ownerID string) string {
	return "posts/" + ownerID + "/"
}

func (s *assetService) Owns(ownerID, ref string) bool {
	return ownerID != "" &&
		strings.HasPrefix(ref, ownerPrefix(ownerID)) &&
		!strings.Contains(ref, "..")
}

func (s *assetService) Attach(ctx context.Context, ownerID string, upload *Upload) (string, error) {
	if upload == nil || upload.File == nil {
		return "", fieldError("image", "image is required")
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(upload.File, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("ошибка чтения изображения: %w", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)

	ext := ""
	for _, allowed := range allowedImageTypes {
		if detected.Is(allowed.mime) {
			ext = allowed.ext
			break
		}
	}
	if ext == "" {
		return "", fieldError("image", "image must be a png, jpeg, gif or webp file")
	}

	key := ownerPrefix(ownerID) + s.now().UTC().Format("2006/01") + "/" + uuid.New().String() + ext

	body := io.MultiReader(bytes.NewReader(head), upload.File)
	if err := s.storage.Put(ctx, key, body, upload.Size, detected.String()); err != nil {
		return "", fmt.Errorf("ошибка сохранения изображения: %w", err)
	}

	return key, nil
}

func (s *assetService) Discard(ctx context.Context, ref string) {
	if ref == "" {
		return
	}

	if err := s.storage.Remove(context.WithoutCancel(ctx), ref); err != nil {
		s.logger.Warn("asset cleanup failed", "ref", ref, "op", "discard", "error", err)
	}
}

func (s *assetService) Replace(ctx context.Context, oldRef, newRef string) {
	if oldRef == newRef {
		return
	}
	s.Reclaim(ctx, oldRef)
}

// Reclaim removes ref unless a post still points at it.
func (s *assetService) Reclaim(ctx context.Context, ref string) {
	if ref == "" {
		return
	}

	ctx = context.WithoutCancel(ctx)

	count, err := s.posts.CountByImage(ctx, ref)
	if err != nil {
		s.logger.Warn("asset cleanup failed", "ref", ref, "op", "reclaim", "error", err)
		return
	}
	if count > 0 {
		s.logger.Debug("asset still referenced", "ref", ref, "posts", count)
		return
	}

	if err := s.storage.Remove(ctx, ref); err != nil {
		s.logger.Warn("asset cleanup failed", "ref", ref, "op", "reclaim", "error", err)
	}
}
