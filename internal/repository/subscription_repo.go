package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SubscriptionRepository is the typed query surface over the durable local
// store. The reconciliation service is its only writer.
type SubscriptionRepository interface {
	Get(ctx context.Context, id string) (*model.Subscription, error)
	GetAll(ctx context.Context) ([]model.Subscription, error)
	GetAllActive(ctx context.Context) ([]model.Subscription, error)
	Put(ctx context.Context, sub *model.Subscription) error
	PutBatch(ctx context.Context, subs []model.Subscription) error
	Delete(ctx context.Context, id string) error

	GetByCategory(ctx context.Context, category model.SubscriptionCategory) ([]model.Subscription, error)
	GetByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]model.Subscription, error)
	Search(ctx context.Context, query string) ([]model.Subscription, error)
	GetDueForBilling(ctx context.Context, from, to time.Time) ([]model.Subscription, error)
	GetUnused(ctx context.Context, lastUsedBefore time.Time) ([]model.Subscription, error)
	GetScheduledCancellations(ctx context.Context, asOf time.Time) ([]model.Subscription, error)
	GetTrackable(ctx context.Context) ([]model.Subscription, error)
	RecentlyAdded(ctx context.Context, limit int) ([]model.Subscription, error)

	CountActive(ctx context.Context) (int, error)
	TotalMonthlySpending(ctx context.Context) (decimal.Decimal, error)
	SpendingByCategory(ctx context.Context) (map[model.SubscriptionCategory]decimal.Decimal, error)
	AverageSubscriptionPrice(ctx context.Context) (decimal.Decimal, error)
	CategoryDistribution(ctx context.Context) (map[model.SubscriptionCategory]int, error)

	// Batch updates are best-effort-sequential at the service layer; each
	// method here is a single statement and therefore atomic per call.
	Deactivate(ctx context.Context, ids []string, at time.Time) (int64, error)
	ScheduleCancellations(ctx context.Context, ids []string, cancelAt, at time.Time) (int64, error)
	ClearScheduledCancellations(ctx context.Context, ids []string, at time.Time) (int64, error)

	// UpdateLastUsed is monotonic: a timestamp older than the stored value
	// is a no-op.
	UpdateLastUsed(ctx context.Context, id string, lastUsed, at time.Time) (int64, error)
	UpdateLastUsedByPackage(ctx context.Context, packageName string, lastUsed, at time.Time) (int64, error)

	SetUsageTracking(ctx context.Context, id string, enabled bool, at time.Time) error
	CleanupInactiveOlderThan(ctx context.Context, threshold time.Time) (int64, error)
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

// Money and enum columns cross the boundary as text and are decoded
// explicitly; no name-based reflection on either side.
const subscriptionColumns = `
        id, name, description, category, monthly_price::text, billing_cycle,
        next_billing_date, website_url, cancellation_url, is_active,
        last_used_date, scheduled_cancellation_date, usage_tracking_enabled,
        reminder_frequency, total_spent::text, platform_identifier,
        package_name, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*model.Subscription, error) {
	var (
		s                       model.Subscription
		category, cycle, remind string
		price, spent            string
	)
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Description,
		&category,
		&price,
		&cycle,
		&s.NextBillingDate,
		&s.WebsiteURL,
		&s.CancellationURL,
		&s.IsActive,
		&s.LastUsedDate,
		&s.ScheduledCancelDate,
		&s.UsageTrackingEnabled,
		&remind,
		&spent,
		&s.PlatformIdentifier,
		&s.PackageName,
		&s.Notes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if s.Category, err = model.ParseSubscriptionCategory(category); err != nil {
		return nil, fmt.Errorf("decode subscription %s: %w", s.ID, err)
	}
	if s.BillingCycle, err = model.ParseBillingCycle(cycle); err != nil {
		return nil, fmt.Errorf("decode subscription %s: %w", s.ID, err)
	}
	if s.ReminderFrequency, err = model.ParseReminderFrequency(remind); err != nil {
		return nil, fmt.Errorf("decode subscription %s: %w", s.ID, err)
	}
	if s.MonthlyPrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("decode monthly price for %s: %w", s.ID, err)
	}
	if s.TotalSpent, err = decimal.NewFromString(spent); err != nil {
		return nil, fmt.Errorf("decode total spent for %s: %w", s.ID, err)
	}
	return &s, nil
}

func (r *subscriptionRepo) queryList(ctx context.Context, q string, args ...any) ([]model.Subscription, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

// Get returns the subscription with the given id, or nil when absent.
func (r *subscriptionRepo) Get(ctx context.Context, id string) (*model.Subscription, error) {
	q := `SELECT` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	s, err := scanSubscription(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch subscription %s: %w", id, err)
	}
	return s, nil
}

func (r *subscriptionRepo) GetAll(ctx context.Context) ([]model.Subscription, error) {
	q := `SELECT` + subscriptionColumns + ` FROM subscriptions ORDER BY created_at DESC`
	subs, err := r.queryList(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch all subscriptions: %w", err)
	}
	return subs, nil
}

func (r *subscriptionRepo) GetAllActive(ctx context.Context) ([]model.Subscription, error) {
	q := `SELECT` + subscriptionColumns + ` FROM subscriptions WHERE is_active ORDER BY created_at DESC`
	subs, err := r.queryList(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch active subscriptions: %w", err)
	}
	return subs, nil
}

const upsertSubscriptionQ = `
        INSERT INTO subscriptions (
            id, name, description, category, monthly_price, billing_cycle,
            next_billing_date, website_url, cancellation_url, is_active,
            last_used_date, scheduled_cancellation_date, usage_tracking_enabled,
            reminder_frequency, total_spent, platform_identifier, package_name,
            notes, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            description = EXCLUDED.description,
            category = EXCLUDED.category,
            monthly_price = EXCLUDED.monthly_price,
            billing_cycle = EXCLUDED.billing_cycle,
            next_billing_date = EXCLUDED.next_billing_date,
            website_url = EXCLUDED.website_url,
            cancellation_url = EXCLUDED.cancellation_url,
            is_active = EXCLUDED.is_active,
            last_used_date = EXCLUDED.last_used_date,
            scheduled_cancellation_date = EXCLUDED.scheduled_cancellation_date,
            usage_tracking_enabled = EXCLUDED.usage_tracking_enabled,
            reminder_frequency = EXCLUDED.reminder_frequency,
            total_spent = EXCLUDED.total_spent,
            platform_identifier = EXCLUDED.platform_identifier,
            package_name = EXCLUDED.package_name,
            notes = EXCLUDED.notes,
            updated_at = EXCLUDED.updated_at`

func upsertArgs(s *model.Subscription) []any {
	return []any{
		s.ID,
		s.Name,
		s.Description,
		string(s.Category),
		s.MonthlyPrice.String(),
		string(s.BillingCycle),
		s.NextBillingDate,
		s.WebsiteURL,
		s.CancellationURL,
		s.IsActive,
		s.LastUsedDate,
		s.ScheduledCancelDate,
		s.UsageTrackingEnabled,
		string(s.ReminderFrequency),
		s.TotalSpent.String(),
		s.PlatformIdentifier,
		s.PackageName,
		s.Notes,
		s.CreatedAt,
		s.UpdatedAt,
	}
}

// Put inserts or replaces a subscription row. created_at is only written on
// insert paths by the service; the upsert keeps the stored value authoritative.
func (r *subscriptionRepo) Put(ctx context.Context, sub *model.Subscription) error {
	if _, err := r.pool.Exec(ctx, upsertSubscriptionQ, upsertArgs(sub)...); err != nil {
		return fmt.Errorf("upsert subscription %s: %w", sub.ID, err)
	}
	return nil
}

func (r *subscriptionRepo) PutBatch(ctx context.Context, subs []model.Subscription) error {
	if len(subs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i := range subs {
		batch.Queue(upsertSubscriptionQ, upsertArgs(&subs[i])...)
	}
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range subs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch upsert subscriptions: %w", err)
		}
	}
	return nil
}

func (r *subscriptionRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete subscription %s: %w", id, err)
	}
	return nil
}

func (r *subscriptionRepo) GetByCategory(ctx context.Context, category model.SubscriptionCategory) ([]model.Subscription, error) {
	q := `SELECT` + subscriptionColumns + `
        FROM subscriptions
        WHERE category = $1 AND is_active
        ORDER BY created_at DESC`
	subs, err := r.queryList(ctx, q, string(category))
	if err != nil {
		return nil, fmt.Errorf("fetch subscriptions in category %s: %w", category, err)
	}
	return subs, nil
}

func (r *subscriptionRepo) GetByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]model.Subscription, error) {
	q := `SELECT` + subscriptionColumns + `
        FROM subscriptions
        WHERE is_active AND monthly_price BETWEEN $1::numeric AND $2::numeric
        ORDER BY monthly_price ASC`
	subs, err := r.queryList(ctx, q, min.String(), max.String())
	if err != nil {
		return nil, fmt.Errorf("fetch subscriptions in price range: %w", err)
	}
	return subs, nil
}

// Search matches the query as a substring of name or description,
// name-prefix matches first.
func (r *subscriptionRepo) Search(ctx context.Context, query string) ([]model.Subscription, error) {
	q := `SELECT` + subscriptionColumns + `
        FROM subscriptions
        WHERE is_active AND (name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
        ORDER BY CASE WHEN name ILIKE $1 || '%' THEN 1 ELSE 2 END, created_at DESC`
	subs, err := r.queryList(ctx, q, query)
	if err != nil {
		return nil, fmt.Errorf("search subscriptions for %q: %w", query, err)
	}
	return subs, nil
}

func (r *subscriptionRepo) GetDueForBilling(ctx context.Context, from, to time.Time) ([]model.Subscription, error) {
	q := `SELECT` + subscriptionColumns + `
        FROM subscriptions
        WHERE is_active AND next_billing_date BETWEEN $1 AND $2
        ORDER BY next_billing_date ASC`
	subs, err := r.queryList(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch subscriptions due for billing: %w", err)
	}
	return subs, nil
}

// GetUnused returns active subscriptions last used before the given time,
// or never used at all. The freshness grace period for never-used rows is
// applied by the caller via model.Subscription.IsUnused.
func (r *subscriptionRepo) GetUnused(ctx context.Context, lastUsedBefore time.Time) ([]model.Subscription, error) {
	q := `SELECT` + subscriptionColumns + `
        FROM subscriptions
        WHERE is_active AND (last_used_date IS NULL OR last_used_date < $1)
        ORDER BY created_at DESC`
	subs, err := r.queryList(ctx, q, lastUsedBefore)
	if err != nil {
		return nil, fmt.Errorf("fetch unused subscriptions: %w", err)
	}
	return subs, nil
}

func (r *subscriptionRepo) GetScheduledCancellations(ctx context.Context, asOf time.Time) ([]model.Subscription, error) {
	q := `SELECT` + subscriptionColumns + `
        FROM subscriptions
        WHERE is_active AND scheduled_cancellation_date IS NOT NULL AND scheduled_cancellation_date <= $1`
	subs, err := r.queryList(ctx, q, asOf)
	if err != nil {
		return nil, fmt.Errorf("fetch due cancellations: %w", err)
	}
	return subs, nil
}

func (r *subscriptionRepo) GetTrackable(ctx context.Context) ([]model.Subscription, error) {
	q := `SELECT` + subscriptionColumns + `
        FROM subscriptions
        WHERE is_active AND usage_tracking_enabled AND package_name IS NOT NULL AND package_name <> ''`
	subs, err := r.queryList(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch trackable subscriptions: %w", err)
	}
	return subs, nil
}

func (r *subscriptionRepo) RecentlyAdded(ctx context.Context, limit int) ([]model.Subscription, error) {
	q := `SELECT` + subscriptionColumns + `
        FROM subscriptions
        WHERE is_active
        ORDER BY created_at DESC
        LIMIT $1`
	subs, err := r.queryList(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch recent subscriptions: %w", err)
	}
	return subs, nil
}

func (r *subscriptionRepo) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions WHERE is_active`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active subscriptions: %w", err)
	}
	return count, nil
}

func (r *subscriptionRepo) TotalMonthlySpending(ctx context.Context) (decimal.Decimal, error) {
	var total string
	const q = `SELECT COALESCE(SUM(monthly_price), 0)::text FROM subscriptions WHERE is_active`
	if err := r.pool.QueryRow(ctx, q).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum monthly spending: %w", err)
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode monthly spending: %w", err)
	}
	return d, nil
}

func (r *subscriptionRepo) SpendingByCategory(ctx context.Context) (map[model.SubscriptionCategory]decimal.Decimal, error) {
	const q = `
        SELECT category, SUM(monthly_price)::text AS total
        FROM subscriptions
        WHERE is_active
        GROUP BY category
        ORDER BY SUM(monthly_price) DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sum spending by category: %w", err)
	}
	defer rows.Close()

	out := make(map[model.SubscriptionCategory]decimal.Decimal)
	for rows.Next() {
		var cat, total string
		if err := rows.Scan(&cat, &total); err != nil {
			return nil, fmt.Errorf("scan category spending: %w", err)
		}
		category, err := model.ParseSubscriptionCategory(cat)
		if err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("decode spending for category %s: %w", cat, err)
		}
		out[category] = d
	}
	return out, rows.Err()
}

func (r *subscriptionRepo) AverageSubscriptionPrice(ctx context.Context) (decimal.Decimal, error) {
	var avg string
	const q = `SELECT COALESCE(AVG(monthly_price), 0)::text FROM subscriptions WHERE is_active`
	if err := r.pool.QueryRow(ctx, q).Scan(&avg); err != nil {
		return decimal.Zero, fmt.Errorf("average subscription price: %w", err)
	}
	d, err := decimal.NewFromString(avg)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode average price: %w", err)
	}
	return d, nil
}

func (r *subscriptionRepo) CategoryDistribution(ctx context.Context) (map[model.SubscriptionCategory]int, error) {
	const q = `
        SELECT category, COUNT(*)
        FROM subscriptions
        WHERE is_active
        GROUP BY category
        ORDER BY COUNT(*) DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("category distribution: %w", err)
	}
	defer rows.Close()

	out := make(map[model.SubscriptionCategory]int)
	for rows.Next() {
		var cat string
		var count int
		if err := rows.Scan(&cat, &count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		category, err := model.ParseSubscriptionCategory(cat)
		if err != nil {
			return nil, err
		}
		out[category] = count
	}
	return out, rows.Err()
}

// Deactivate marks the given subscriptions inactive. Already-inactive rows
// are matched again, so the call is idempotent.
func (r *subscriptionRepo) Deactivate(ctx context.Context, ids []string, at time.Time) (int64, error) {
	const q = `UPDATE subscriptions SET is_active = false, updated_at = $2 WHERE id = ANY($1)`
	tag, err := r.pool.Exec(ctx, q, ids, at)
	if err != nil {
		return 0, fmt.Errorf("deactivate subscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ScheduleCancellations records cancellation intent for active rows only;
// the inactive state is terminal.
func (r *subscriptionRepo) ScheduleCancellations(ctx context.Context, ids []string, cancelAt, at time.Time) (int64, error) {
	const q = `
        UPDATE subscriptions
        SET scheduled_cancellation_date = $2, updated_at = $3
        WHERE id = ANY($1) AND is_active`
	tag, err := r.pool.Exec(ctx, q, ids, cancelAt, at)
	if err != nil {
		return 0, fmt.Errorf("schedule cancellations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *subscriptionRepo) ClearScheduledCancellations(ctx context.Context, ids []string, at time.Time) (int64, error) {
	const q = `
        UPDATE subscriptions
        SET scheduled_cancellation_date = NULL, updated_at = $2
        WHERE id = ANY($1) AND is_active AND scheduled_cancellation_date IS NOT NULL`
	tag, err := r.pool.Exec(ctx, q, ids, at)
	if err != nil {
		return 0, fmt.Errorf("clear scheduled cancellations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *subscriptionRepo) UpdateLastUsed(ctx context.Context, id string, lastUsed, at time.Time) (int64, error) {
	const q = `
        UPDATE subscriptions
        SET last_used_date = $2, updated_at = $3
        WHERE id = $1 AND (last_used_date IS NULL OR last_used_date < $2)`
	tag, err := r.pool.Exec(ctx, q, id, lastUsed, at)
	if err != nil {
		return 0, fmt.Errorf("update last used for %s: %w", id, err)
	}
	return tag.RowsAffected(), nil
}

func (r *subscriptionRepo) UpdateLastUsedByPackage(ctx context.Context, packageName string, lastUsed, at time.Time) (int64, error) {
	const q = `
        UPDATE subscriptions
        SET last_used_date = $2, updated_at = $3
        WHERE package_name = $1 AND (last_used_date IS NULL OR last_used_date < $2)`
	tag, err := r.pool.Exec(ctx, q, packageName, lastUsed, at)
	if err != nil {
		return 0, fmt.Errorf("update last used for package %s: %w", packageName, err)
	}
	return tag.RowsAffected(), nil
}

func (r *subscriptionRepo) SetUsageTracking(ctx context.Context, id string, enabled bool, at time.Time) error {
	const q = `UPDATE subscriptions SET usage_tracking_enabled = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, id, enabled, at); err != nil {
		return fmt.Errorf("set usage tracking for %s: %w", id, err)
	}
	return nil
}

// CleanupInactiveOlderThan removes inactive rows not touched since the
// threshold. Housekeeping only; never part of a user-facing path.
func (r *subscriptionRepo) CleanupInactiveOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	const q = `DELETE FROM subscriptions WHERE NOT is_active AND updated_at < $1`
	tag, err := r.pool.Exec(ctx, q, threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup inactive subscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}
