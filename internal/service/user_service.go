package service

import (
	"context"
	"errors"

	"github.com/manngobeh2006/Subscription-Remover/internal/model"
	"github.com/manngobeh2006/Subscription-Remover/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

type UserService interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	UpdateSettings(ctx context.Context, id string, settings model.NotificationSettings, prefs model.UserPreferences) error
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// Create registers a user profile with default notification settings and
// preferences when none are supplied.
func (s *userService) Create(ctx context.Context, u *model.User) (*model.User, error) {
	if u.NotificationSettings == (model.NotificationSettings{}) {
		u.NotificationSettings = model.DefaultNotificationSettings()
	}
	if u.Preferences == (model.UserPreferences{}) {
		u.Preferences = model.DefaultUserPreferences()
	}
	if err := s.userRepo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *userService) UpdateSettings(ctx context.Context, id string, settings model.NotificationSettings, prefs model.UserPreferences) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.userRepo.UpdateSettings(ctx, id, settings, prefs)
}
