package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"postfeed/internal/models"
	"postfeed/internal/service"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Signup(ctx context.Context, input service.SignupInput) (*models.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, input service.LoginInput) (*service.LoginResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetStatus(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockUserService) UpdateStatus(ctx context.Context, userID string, input service.StatusInput) (string, error) {
	args := m.Called(ctx, userID, input)
	return args.String(0), args.Error(1)
}

type MockPostService struct {
	mock.Mock
}

func (m *MockPostService) FetchPage(ctx context.Context, viewerID string, page int) (*models.FeedPage, error) {
	args := m.Called(ctx, viewerID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FeedPage), args.Error(1)
}

func (m *MockPostService) GetPost(ctx context.Context, viewerID, postID string) (*models.Post, error) {
	args := m.Called(ctx, viewerID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) CreatePost(ctx context.Context, authorID string, input service.PostInput) (*models.Post, error) {
	args := m.Called(ctx, authorID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) UpdatePost(ctx context.Context, authorID, postID string, input service.PostInput) (*models.Post, error) {
	args := m.Called(ctx, authorID, postID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) DeletePost(ctx context.Context, authorID, postID string) error {
	args := m.Called(ctx, authorID, postID)
	return args.Error(0)
}

func (m *MockPostService) UploadImage(ctx context.Context, ownerID string, upload *service.Upload, oldPath string) (string, error) {
	args := m.Called(ctx, ownerID, upload, oldPath)
	return args.String(0), args.Error(1)
}
