package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AppUsage is one telemetry observation: an application identifier and the
// last time the device saw it active, in epoch milliseconds.
type AppUsage struct {
	PackageName    string
	LastUsedMillis int64
}

// LastUsed converts the observation timestamp to a time.Time.
func (a AppUsage) LastUsed() time.Time {
	return time.UnixMilli(a.LastUsedMillis).UTC()
}

// Source supplies device usage observations for a time window. An empty
// result is not an error; the sweep simply does nothing that cycle.
type Source interface {
	Query(ctx context.Context, windowStart, windowEnd time.Time) ([]AppUsage, error)
}

type pgSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource reads observations from the app_usage_events table,
// which device agents keep current.
func NewPostgresSource(pool *pgxpool.Pool) Source {
	return &pgSource{pool: pool}
}

// Query returns the most recent activity per package within the window.
func (s *pgSource) Query(ctx context.Context, windowStart, windowEnd time.Time) ([]AppUsage, error) {
	const q = `
        SELECT package_name, MAX(last_used_at)
        FROM app_usage_events
        WHERE last_used_at >= $1 AND last_used_at <= $2
        GROUP BY package_name`
	rows, err := s.pool.Query(ctx, q, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("query usage telemetry: %w", err)
	}
	defer rows.Close()

	var out []AppUsage
	for rows.Next() {
		var pkg string
		var lastUsed time.Time
		if err := rows.Scan(&pkg, &lastUsed); err != nil {
			return nil, fmt.Errorf("scan usage telemetry row: %w", err)
		}
		out = append(out, AppUsage{PackageName: pkg, LastUsedMillis: lastUsed.UnixMilli()})
	}
	return out, rows.Err()
}
