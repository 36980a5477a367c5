package service

import (
	"context"
	"strings"

	"github.com/aman-churiwal/eligibility-engine/internal/models"
	"github.com/aman-churiwal/eligibility-engine/internal/repository"
)

type UserService struct {
	repository *repository.UserRepository
}

func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repository: repo}
}

// Creates a user; the email defaults to <id>@example.com
func (s *UserService) Create(ctx context.Context, userID, email string) (*models.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, Validation("userId is required", FieldError{Field: "userId", Message: "is required"})
	}
	email = strings.TrimSpace(email)
	if email == "" {
		email = models.DefaultEmail(userID)
	}

	user := &models.User{
		ID:     userID,
		Email:  email,
		Status: models.UserStatusActive,
	}
	created, err := s.repository.Create(ctx, user)
	if err != nil {
		return nil, Storage("create user", err)
	}
	if !created {
		return nil, ErrUserExists
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, Storage("get user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
