package service

import (
	"context"

	"postfeed/internal/repository"
)

type StatusInput struct {
	Status string `json:"status"`
}

type UserService interface {
	GetStatus(ctx context.Context, userID string) (string, error)
	UpdateStatus(ctx context.Context, userID string, input StatusInput) (string, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetStatus(ctx context.Context, userID string) (string, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}

	return user.Status, nil
}

// UpdateStatus stores the status as given. Any text is allowed, including
// an empty one.
func (s *userService) UpdateStatus(ctx context.Context, userID string, input StatusInput) (string, error) {
	if err := s.userRepo.UpdateStatus(ctx, userID, input.Status); err != nil {
		return "", err
	}

	return input.Status, nil
}
