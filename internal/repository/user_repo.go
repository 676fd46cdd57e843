package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/manngobeh2006/Subscription-Remover/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository stores the owning user's profile. Notification settings and
// preferences are configuration input for the engine; the engine never
// writes them.
type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateSettings(ctx context.Context, id string, settings model.NotificationSettings, prefs model.UserPreferences) error
}

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

// CreateUser inserts the profile and fills u with the stored row. A replayed
// create leaves the existing profile untouched and returns it instead; the
// no-op DO UPDATE makes RETURNING yield a row on both paths.
func (r *userRepo) CreateUser(ctx context.Context, u *model.User) error {
	settings, err := json.Marshal(u.NotificationSettings)
	if err != nil {
		return fmt.Errorf("encode notification settings: %w", err)
	}
	prefs, err := json.Marshal(u.Preferences)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	const q = `
        INSERT INTO user_profiles (user_id, name, email, avatar_url, notification_settings, preferences)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
        RETURNING name, email, avatar_url, notification_settings, preferences, created_at, updated_at`
	var storedSettings, storedPrefs []byte
	err = r.pool.QueryRow(ctx, q, u.UserID, u.Name, u.Email, u.AvatarURL, settings, prefs).
		Scan(&u.Name, &u.Email, &u.AvatarURL, &storedSettings, &storedPrefs, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.UserID, err)
	}
	if err := json.Unmarshal(storedSettings, &u.NotificationSettings); err != nil {
		return fmt.Errorf("decode notification settings for %s: %w", u.UserID, err)
	}
	if err := json.Unmarshal(storedPrefs, &u.Preferences); err != nil {
		return fmt.Errorf("decode preferences for %s: %w", u.UserID, err)
	}
	return nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var (
		u               model.User
		settings, prefs []byte
	)
	const q = `
        SELECT user_id, name, email, avatar_url, notification_settings, preferences, created_at, updated_at
        FROM user_profiles
        WHERE user_id = $1`
	row := r.pool.QueryRow(ctx, q, id)
	if err := row.Scan(&u.UserID, &u.Name, &u.Email, &u.AvatarURL, &settings, &prefs, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch user %s: %w", id, err)
	}
	if err := json.Unmarshal(settings, &u.NotificationSettings); err != nil {
		return nil, fmt.Errorf("decode notification settings for %s: %w", id, err)
	}
	if err := json.Unmarshal(prefs, &u.Preferences); err != nil {
		return nil, fmt.Errorf("decode preferences for %s: %w", id, err)
	}
	return &u, nil
}

func (r *userRepo) UpdateSettings(ctx context.Context, id string, settings model.NotificationSettings, prefs model.UserPreferences) error {
	rawSettings, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode notification settings: %w", err)
	}
	rawPrefs, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	const q = `
        UPDATE user_profiles
        SET notification_settings = $2, preferences = $3, updated_at = NOW()
        WHERE user_id = $1`
	if _, err := r.pool.Exec(ctx, q, id, rawSettings, rawPrefs); err != nil {
		return fmt.Errorf("update settings for user %s: %w", id, err)
	}
	return nil
}
