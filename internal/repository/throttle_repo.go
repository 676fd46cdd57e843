package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ThrottleRepository persists the last notification time per subscription.
// The throttle state is engine-owned and separate from subscription rows so
// it survives restarts and is shared by concurrent sweeps.
type ThrottleRepository interface {
	GetLastNotified(ctx context.Context, subscriptionID string) (*time.Time, error)
	SetLastNotified(ctx context.Context, subscriptionID string, at time.Time) error
	DeleteFor(ctx context.Context, subscriptionID string) error
}

type throttleRepo struct {
	pool *pgxpool.Pool
}

// NewThrottleRepo creates a new ThrottleRepository.
func NewThrottleRepo(pool *pgxpool.Pool) ThrottleRepository {
	return &throttleRepo{pool: pool}
}

// GetLastNotified returns the last notification time for the subscription,
// or nil when none was ever sent.
func (r *throttleRepo) GetLastNotified(ctx context.Context, subscriptionID string) (*time.Time, error) {
	var at time.Time
	const q = `SELECT last_notified_at FROM notification_throttle WHERE subscription_id = $1`
	if err := r.pool.QueryRow(ctx, q, subscriptionID).Scan(&at); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch throttle state for %s: %w", subscriptionID, err)
	}
	return &at, nil
}

func (r *throttleRepo) SetLastNotified(ctx context.Context, subscriptionID string, at time.Time) error {
	const q = `
        INSERT INTO notification_throttle (subscription_id, last_notified_at)
        VALUES ($1, $2)
        ON CONFLICT (subscription_id) DO UPDATE SET last_notified_at = EXCLUDED.last_notified_at`
	if _, err := r.pool.Exec(ctx, q, subscriptionID, at); err != nil {
		return fmt.Errorf("record throttle state for %s: %w", subscriptionID, err)
	}
	return nil
}

// DeleteFor drops throttle state when a subscription is removed.
func (r *throttleRepo) DeleteFor(ctx context.Context, subscriptionID string) error {
	const q = `DELETE FROM notification_throttle WHERE subscription_id = $1`
	if _, err := r.pool.Exec(ctx, q, subscriptionID); err != nil {
		return fmt.Errorf("delete throttle state for %s: %w", subscriptionID, err)
	}
	return nil
}
