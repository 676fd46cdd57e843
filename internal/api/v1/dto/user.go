package dto

import (
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/model"
)

// UserCreateDTO is used for incoming create requests
type UserCreateDTO struct {
	Name      string `json:"name"`
	Email     string `json:"email" validate:"omitempty,email"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

// UserSettingsDTO replaces the user's notification settings and preferences.
type UserSettingsDTO struct {
	NotificationSettings model.NotificationSettings `json:"notification_settings"`
	Preferences          model.UserPreferences      `json:"preferences"`
}

// UserResponseDTO is returned in API responses
type UserResponseDTO struct {
	UserID               string                     `json:"user_id"`
	Name                 string                     `json:"name"`
	Email                string                     `json:"email"`
	AvatarURL            string                     `json:"avatar_url"`
	NotificationSettings model.NotificationSettings `json:"notification_settings"`
	Preferences          model.UserPreferences      `json:"preferences"`
	CreatedAt            time.Time                  `json:"created_at"`
	UpdatedAt            time.Time                  `json:"updated_at"`
}
