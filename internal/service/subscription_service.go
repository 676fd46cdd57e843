package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/model"
	"github.com/manngobeh2006/Subscription-Remover/internal/pubsub"
	"github.com/manngobeh2006/Subscription-Remover/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrNameRequired         = errors.New("subscription name required")
	ErrNegativePrice        = errors.New("monthly price must not be negative")
	ErrInvalidCategory      = errors.New("unknown subscription category")
	ErrInvalidBillingCycle  = errors.New("unknown billing cycle")
	ErrCancellationInPast   = errors.New("scheduled cancellation must not be in the past")
)

// SubscriptionService owns the subscription lifecycle: it is the sole writer
// of subscription rows, stamps updated_at on every mutation, and mirrors
// each local mutation to the remote store best-effort.
type SubscriptionService interface {
	Create(ctx context.Context, sub *model.Subscription) (*model.Subscription, error)
	Update(ctx context.Context, sub *model.Subscription) (*model.Subscription, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Subscription, error)
	GetAll(ctx context.Context) ([]model.Subscription, error)
	GetAllActive(ctx context.Context) ([]model.Subscription, error)

	GetByCategory(ctx context.Context, category model.SubscriptionCategory) ([]model.Subscription, error)
	GetByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]model.Subscription, error)
	Search(ctx context.Context, query string) ([]model.Subscription, error)
	UpcomingBills(ctx context.Context, days int) ([]model.Subscription, error)
	RecentlyAdded(ctx context.Context) ([]model.Subscription, error)
	Trackable(ctx context.Context) ([]model.Subscription, error)
	Unused(ctx context.Context, lastUsedBefore time.Time) ([]model.Subscription, error)

	CountActive(ctx context.Context) (int, error)
	TotalMonthlySpending(ctx context.Context) (decimal.Decimal, error)
	SpendingByCategory(ctx context.Context) (map[model.SubscriptionCategory]decimal.Decimal, error)
	AverageSubscriptionPrice(ctx context.Context) (decimal.Decimal, error)
	CategoryDistribution(ctx context.Context) (map[model.SubscriptionCategory]int, error)

	// CancelNow deactivates the given subscriptions. Idempotent; inactive is
	// terminal and nothing in this service reactivates a subscription.
	CancelNow(ctx context.Context, ids []string) (int64, error)
	ScheduleCancellation(ctx context.Context, ids []string, at time.Time) (int64, error)
	UnscheduleCancellation(ctx context.Context, ids []string) (int64, error)
	DueCancellations(ctx context.Context, asOf time.Time) ([]model.Subscription, error)

	// RecordUsage moves last_used_date forward only; an older timestamp is a
	// silent no-op.
	RecordUsage(ctx context.Context, id string, lastUsed time.Time) error
	RecordUsageByPackage(ctx context.Context, packageName string, lastUsed time.Time) (int64, error)
	SetUsageTracking(ctx context.Context, id string, enabled bool) error

	Export(ctx context.Context) (string, error)
	Import(ctx context.Context, data string) (int, error)
	SyncWithCloud(ctx context.Context) error
}

// idLocks serializes read-modify-write paths per subscription id. Batch
// operations are single SQL statements and do not need it.
type idLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *idLocks) lock(id string) func() {
	l.mu.Lock()
	lk, ok := l.m[id]
	if !ok {
		lk = &sync.Mutex{}
		l.m[id] = lk
	}
	l.mu.Unlock()
	lk.Lock()
	return lk.Unlock
}

// drop evicts the entry so the map does not grow with every id ever touched.
// A later lock on the same id simply allocates a fresh mutex.
func (l *idLocks) drop(id string) {
	l.mu.Lock()
	delete(l.m, id)
	l.mu.Unlock()
}

type changeEvent struct {
	Type           string    `json:"type"`
	SubscriptionID string    `json:"subscription_id"`
	At             time.Time `json:"at"`
}

type subscriptionService struct {
	repo         repository.SubscriptionRepository
	throttleRepo repository.ThrottleRepository
	remote       RemoteStore
	publisher    pubsub.Publisher
	eventsTopic  string
	locks        idLocks
	logger       zerolog.Logger
}

// NewSubscriptionService creates the reconciliation service. remote and
// publisher may be nil; both paths are fire-and-forget and optional.
func NewSubscriptionService(
	repo repository.SubscriptionRepository,
	throttleRepo repository.ThrottleRepository,
	remote RemoteStore,
	publisher pubsub.Publisher,
	eventsTopic string,
	logger zerolog.Logger,
) SubscriptionService {
	return &subscriptionService{
		repo:         repo,
		throttleRepo: throttleRepo,
		remote:       remote,
		publisher:    publisher,
		eventsTopic:  eventsTopic,
		locks:        idLocks{m: make(map[string]*sync.Mutex)},
		logger:       logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

func validateSubscription(sub *model.Subscription) error {
	if sub.Name == "" {
		return ErrNameRequired
	}
	if sub.MonthlyPrice.IsNegative() || sub.TotalSpent.IsNegative() {
		return ErrNegativePrice
	}
	if !sub.Category.Valid() {
		return ErrInvalidCategory
	}
	if !sub.BillingCycle.Valid() {
		return ErrInvalidBillingCycle
	}
	return nil
}

// Create assigns an id when absent, stamps created_at and updated_at, and
// writes the cache before mirroring. The cache write is authoritative for
// the caller; a remote failure is logged and dropped.
func (s *subscriptionService) Create(ctx context.Context, sub *model.Subscription) (*model.Subscription, error) {
	if err := validateSubscription(sub); err != nil {
		return nil, err
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.ReminderFrequency == "" {
		sub.ReminderFrequency = model.RemindWeekly
	}
	now := time.Now().UTC()
	sub.IsActive = true
	sub.CreatedAt = now
	sub.UpdatedAt = now

	unlock := s.locks.lock(sub.ID)
	defer unlock()

	if err := s.repo.Put(ctx, sub); err != nil {
		s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("Failed to create subscription")
		return nil, err
	}
	s.afterMutation("created", sub)
	return sub, nil
}

// Update replaces the stored row. created_at is immutable and always taken
// from the stored row, never from the caller. The same goes for the
// lifecycle fields: a pending scheduled cancellation and last_used_date are
// owned by their dedicated operations and survive any full-row update.
func (s *subscriptionService) Update(ctx context.Context, sub *model.Subscription) (*model.Subscription, error) {
	if err := validateSubscription(sub); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(sub.ID)
	defer unlock()

	existing, err := s.repo.Get(ctx, sub.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("Failed to load subscription for update")
		return nil, err
	}
	if existing == nil {
		return nil, ErrSubscriptionNotFound
	}
	sub.CreatedAt = existing.CreatedAt
	sub.ScheduledCancelDate = existing.ScheduledCancelDate
	sub.LastUsedDate = existing.LastUsedDate
	sub.UpdatedAt = time.Now().UTC()

	if err := s.repo.Put(ctx, sub); err != nil {
		s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("Failed to update subscription")
		return nil, err
	}
	s.afterMutation("updated", sub)
	return sub, nil
}

func (s *subscriptionService) Delete(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("subscription_id", id).Msg("Failed to delete subscription")
		return err
	}
	if err := s.throttleRepo.DeleteFor(ctx, id); err != nil {
		// Orphaned throttle rows are harmless; don't fail the delete.
		s.logger.Warn().Err(err).Str("subscription_id", id).Msg("Failed to clear throttle state")
	}
	s.publishEvent("deleted", id)
	s.mirrorDelete(id)
	s.locks.drop(id)
	return nil
}

func (s *subscriptionService) Get(ctx context.Context, id string) (*model.Subscription, error) {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *subscriptionService) GetAll(ctx context.Context) ([]model.Subscription, error) {
	return s.repo.GetAll(ctx)
}

func (s *subscriptionService) GetAllActive(ctx context.Context) ([]model.Subscription, error) {
	return s.repo.GetAllActive(ctx)
}

func (s *subscriptionService) GetByCategory(ctx context.Context, category model.SubscriptionCategory) ([]model.Subscription, error) {
	return s.repo.GetByCategory(ctx, category)
}

func (s *subscriptionService) GetByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]model.Subscription, error) {
	return s.repo.GetByPriceRange(ctx, min, max)
}

func (s *subscriptionService) Search(ctx context.Context, query string) ([]model.Subscription, error) {
	return s.repo.Search(ctx, query)
}

func (s *subscriptionService) UpcomingBills(ctx context.Context, days int) ([]model.Subscription, error) {
	now := time.Now().UTC()
	return s.repo.GetDueForBilling(ctx, now, now.AddDate(0, 0, days))
}

func (s *subscriptionService) RecentlyAdded(ctx context.Context) ([]model.Subscription, error) {
	return s.repo.RecentlyAdded(ctx, 10)
}

// Trackable returns active subscriptions eligible for telemetry matching:
// usage tracking enabled and a non-empty package name.
func (s *subscriptionService) Trackable(ctx context.Context) ([]model.Subscription, error) {
	return s.repo.GetTrackable(ctx)
}

// Unused returns active subscriptions last used before the cutoff, including
// those that have never been used at all.
func (s *subscriptionService) Unused(ctx context.Context, lastUsedBefore time.Time) ([]model.Subscription, error) {
	return s.repo.GetUnused(ctx, lastUsedBefore)
}

func (s *subscriptionService) CountActive(ctx context.Context) (int, error) {
	return s.repo.CountActive(ctx)
}

func (s *subscriptionService) TotalMonthlySpending(ctx context.Context) (decimal.Decimal, error) {
	return s.repo.TotalMonthlySpending(ctx)
}

func (s *subscriptionService) SpendingByCategory(ctx context.Context) (map[model.SubscriptionCategory]decimal.Decimal, error) {
	return s.repo.SpendingByCategory(ctx)
}

func (s *subscriptionService) AverageSubscriptionPrice(ctx context.Context) (decimal.Decimal, error) {
	return s.repo.AverageSubscriptionPrice(ctx)
}

func (s *subscriptionService) CategoryDistribution(ctx context.Context) (map[model.SubscriptionCategory]int, error) {
	return s.repo.CategoryDistribution(ctx)
}

// CancelNow deactivates the given ids in one statement and returns the
// affected count. Repeating the call matches the same rows again, so the
// second call succeeds with the rows already inactive.
func (s *subscriptionService) CancelNow(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	count, err := s.repo.Deactivate(ctx, ids, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Int("ids", len(ids)).Msg("Failed to cancel subscriptions")
		return 0, err
	}
	for _, id := range ids {
		s.publishEvent("cancelled", id)
	}
	s.mirrorByIDs(ids)
	return count, nil
}

// ScheduleCancellation records intent to cancel at the given time. The time
// is validated against the write time; a past timestamp fails without
// touching any row.
func (s *subscriptionService) ScheduleCancellation(ctx context.Context, ids []string, at time.Time) (int64, error) {
	now := time.Now().UTC()
	if at.Before(now) {
		return 0, ErrCancellationInPast
	}
	if len(ids) == 0 {
		return 0, nil
	}
	count, err := s.repo.ScheduleCancellations(ctx, ids, at, now)
	if err != nil {
		s.logger.Error().Err(err).Int("ids", len(ids)).Msg("Failed to schedule cancellations")
		return 0, err
	}
	for _, id := range ids {
		s.publishEvent("cancellation_scheduled", id)
	}
	s.mirrorByIDs(ids)
	return count, nil
}

// UnscheduleCancellation clears cancellation intent. Valid only while the
// subscription is still active and pending; a no-op otherwise.
func (s *subscriptionService) UnscheduleCancellation(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	count, err := s.repo.ClearScheduledCancellations(ctx, ids, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Int("ids", len(ids)).Msg("Failed to unschedule cancellations")
		return 0, err
	}
	for _, id := range ids {
		s.publishEvent("cancellation_unscheduled", id)
	}
	s.mirrorByIDs(ids)
	return count, nil
}

// DueCancellations returns subscriptions whose scheduled cancellation time
// has passed. The engine does not auto-transition on read; callers are
// expected to follow up with CancelNow.
func (s *subscriptionService) DueCancellations(ctx context.Context, asOf time.Time) ([]model.Subscription, error) {
	return s.repo.GetScheduledCancellations(ctx, asOf)
}

func (s *subscriptionService) RecordUsage(ctx context.Context, id string, lastUsed time.Time) error {
	unlock := s.locks.lock(id)
	defer unlock()

	count, err := s.repo.UpdateLastUsed(ctx, id, lastUsed, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Str("subscription_id", id).Msg("Failed to record usage")
		return err
	}
	if count > 0 {
		s.publishEvent("usage_recorded", id)
		s.mirrorByIDs([]string{id})
	}
	return nil
}

func (s *subscriptionService) RecordUsageByPackage(ctx context.Context, packageName string, lastUsed time.Time) (int64, error) {
	count, err := s.repo.UpdateLastUsedByPackage(ctx, packageName, lastUsed, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Str("package_name", packageName).Msg("Failed to record usage by package")
		return 0, err
	}
	return count, nil
}

func (s *subscriptionService) SetUsageTracking(ctx context.Context, id string, enabled bool) error {
	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.repo.SetUsageTracking(ctx, id, enabled, time.Now().UTC()); err != nil {
		s.logger.Error().Err(err).Str("subscription_id", id).Msg("Failed to set usage tracking")
		return err
	}
	s.publishEvent("updated", id)
	return nil
}

// Export serializes every subscription, active or not, as indented JSON.
func (s *subscriptionService) Export(ctx context.Context) (string, error) {
	subs, err := s.repo.GetAll(ctx)
	if err != nil {
		return "", err
	}
	raw, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode subscriptions: %w", err)
	}
	return string(raw), nil
}

// Import loads subscriptions from a previous export. Every entry is
// validated before any row is written; ids are assigned where missing.
func (s *subscriptionService) Import(ctx context.Context, data string) (int, error) {
	var subs []model.Subscription
	if err := json.Unmarshal([]byte(data), &subs); err != nil {
		return 0, fmt.Errorf("decode subscriptions: %w", err)
	}
	now := time.Now().UTC()
	for i := range subs {
		if err := validateSubscription(&subs[i]); err != nil {
			return 0, fmt.Errorf("subscription %d: %w", i, err)
		}
	}
	for i := range subs {
		if subs[i].ID == "" {
			subs[i].ID = uuid.NewString()
		}
		if subs[i].CreatedAt.IsZero() {
			subs[i].CreatedAt = now
		}
		subs[i].UpdatedAt = now
	}
	if err := s.repo.PutBatch(ctx, subs); err != nil {
		s.logger.Error().Err(err).Int("count", len(subs)).Msg("Failed to import subscriptions")
		return 0, err
	}
	return len(subs), nil
}

// SyncWithCloud is the manual full-resync remedy for mirror drift. Unlike
// the per-mutation mirror it runs inline, but individual object failures
// are still logged and skipped rather than surfaced.
func (s *subscriptionService) SyncWithCloud(ctx context.Context) error {
	if s.remote == nil {
		return nil
	}
	subs, err := s.repo.GetAll(ctx)
	if err != nil {
		return err
	}
	for i := range subs {
		if err := s.remote.Put(ctx, subs[i].ID, FlattenSubscription(&subs[i])); err != nil {
			s.logger.Warn().Err(err).Str("subscription_id", subs[i].ID).Msg("Cloud resync skipped subscription")
		}
	}
	return nil
}

// afterMutation publishes the change event and mirrors the row. Both paths
// are detached from the caller.
func (s *subscriptionService) afterMutation(eventType string, sub *model.Subscription) {
	s.publishEvent(eventType, sub.ID)
	s.mirrorPut(sub)
}

func (s *subscriptionService) publishEvent(eventType, id string) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(changeEvent{Type: eventType, SubscriptionID: id, At: time.Now().UTC()})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode change event")
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.publisher.Publish(ctx, s.eventsTopic, payload); err != nil {
			s.logger.Warn().Err(err).Str("subscription_id", id).Msg("Failed to publish change event")
		}
	}()
}

func (s *subscriptionService) mirrorPut(sub *model.Subscription) {
	if s.remote == nil {
		return
	}
	fields := FlattenSubscription(sub)
	id := sub.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.remote.Put(ctx, id, fields); err != nil {
			s.logger.Warn().Err(err).Str("subscription_id", id).Msg("Remote mirror write failed")
		}
	}()
}

func (s *subscriptionService) mirrorDelete(id string) {
	if s.remote == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.remote.Delete(ctx, id); err != nil {
			s.logger.Warn().Err(err).Str("subscription_id", id).Msg("Remote mirror delete failed")
		}
	}()
}

// mirrorByIDs refreshes mirrored rows after a batch mutation. Fetch and put
// both run detached; a row gone by the time the goroutine runs is skipped.
func (s *subscriptionService) mirrorByIDs(ids []string) {
	if s.remote == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, id := range ids {
			sub, err := s.repo.Get(ctx, id)
			if err != nil || sub == nil {
				continue
			}
			if err := s.remote.Put(ctx, id, FlattenSubscription(sub)); err != nil {
				s.logger.Warn().Err(err).Str("subscription_id", id).Msg("Remote mirror write failed")
			}
		}
	}()
}
