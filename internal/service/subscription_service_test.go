package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// fakeSubscriptionRepo is an in-memory stand-in for the Postgres repository.
type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[string]model.Subscription
}

func newFakeRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[string]model.Subscription)}
}

func (r *fakeSubscriptionRepo) Get(_ context.Context, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *fakeSubscriptionRepo) GetAll(context.Context) ([]model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSubscriptionRepo) GetAllActive(ctx context.Context) ([]model.Subscription, error) {
	all, _ := r.GetAll(ctx)
	var out []model.Subscription
	for _, s := range all {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) Put(_ context.Context, sub *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.ID] = *sub
	return nil
}

func (r *fakeSubscriptionRepo) PutBatch(ctx context.Context, subs []model.Subscription) error {
	for i := range subs {
		if err := r.Put(ctx, &subs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeSubscriptionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, id)
	return nil
}

func (r *fakeSubscriptionRepo) GetByCategory(ctx context.Context, category model.SubscriptionCategory) ([]model.Subscription, error) {
	active, _ := r.GetAllActive(ctx)
	var out []model.Subscription
	for _, s := range active {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) GetByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]model.Subscription, error) {
	active, _ := r.GetAllActive(ctx)
	var out []model.Subscription
	for _, s := range active {
		if s.MonthlyPrice.GreaterThanOrEqual(min) && s.MonthlyPrice.LessThanOrEqual(max) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) Search(ctx context.Context, query string) ([]model.Subscription, error) {
	active, _ := r.GetAllActive(ctx)
	var out []model.Subscription
	for _, s := range active {
		if strings.Contains(strings.ToLower(s.Name), strings.ToLower(query)) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) GetDueForBilling(ctx context.Context, from, to time.Time) ([]model.Subscription, error) {
	active, _ := r.GetAllActive(ctx)
	var out []model.Subscription
	for _, s := range active {
		if !s.NextBillingDate.Before(from) && !s.NextBillingDate.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) GetUnused(ctx context.Context, lastUsedBefore time.Time) ([]model.Subscription, error) {
	active, _ := r.GetAllActive(ctx)
	var out []model.Subscription
	for _, s := range active {
		if s.LastUsedDate == nil || s.LastUsedDate.Before(lastUsedBefore) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) GetScheduledCancellations(ctx context.Context, asOf time.Time) ([]model.Subscription, error) {
	active, _ := r.GetAllActive(ctx)
	var out []model.Subscription
	for _, s := range active {
		if s.ScheduledCancelDate != nil && !s.ScheduledCancelDate.After(asOf) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) GetTrackable(ctx context.Context) ([]model.Subscription, error) {
	active, _ := r.GetAllActive(ctx)
	var out []model.Subscription
	for _, s := range active {
		if s.UsageTrackingEnabled && s.PackageName != nil && *s.PackageName != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) RecentlyAdded(ctx context.Context, limit int) ([]model.Subscription, error) {
	active, _ := r.GetAllActive(ctx)
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.After(active[j].CreatedAt) })
	if len(active) > limit {
		active = active[:limit]
	}
	return active, nil
}

func (r *fakeSubscriptionRepo) CountActive(ctx context.Context) (int, error) {
	active, _ := r.GetAllActive(ctx)
	return len(active), nil
}

func (r *fakeSubscriptionRepo) TotalMonthlySpending(ctx context.Context) (decimal.Decimal, error) {
	active, _ := r.GetAllActive(ctx)
	total := decimal.Zero
	for _, s := range active {
		total = total.Add(s.MonthlyPrice)
	}
	return total, nil
}

func (r *fakeSubscriptionRepo) SpendingByCategory(ctx context.Context) (map[model.SubscriptionCategory]decimal.Decimal, error) {
	active, _ := r.GetAllActive(ctx)
	out := make(map[model.SubscriptionCategory]decimal.Decimal)
	for _, s := range active {
		out[s.Category] = out[s.Category].Add(s.MonthlyPrice)
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) AverageSubscriptionPrice(ctx context.Context) (decimal.Decimal, error) {
	active, _ := r.GetAllActive(ctx)
	if len(active) == 0 {
		return decimal.Zero, nil
	}
	total, _ := r.TotalMonthlySpending(ctx)
	return total.Div(decimal.NewFromInt(int64(len(active)))), nil
}

func (r *fakeSubscriptionRepo) CategoryDistribution(ctx context.Context) (map[model.SubscriptionCategory]int, error) {
	active, _ := r.GetAllActive(ctx)
	out := make(map[model.SubscriptionCategory]int)
	for _, s := range active {
		out[s.Category]++
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) Deactivate(_ context.Context, ids []string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, id := range ids {
		if s, ok := r.subs[id]; ok {
			s.IsActive = false
			s.UpdatedAt = at
			r.subs[id] = s
			count++
		}
	}
	return count, nil
}

func (r *fakeSubscriptionRepo) ScheduleCancellations(_ context.Context, ids []string, cancelAt, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, id := range ids {
		if s, ok := r.subs[id]; ok && s.IsActive {
			t := cancelAt
			s.ScheduledCancelDate = &t
			s.UpdatedAt = at
			r.subs[id] = s
			count++
		}
	}
	return count, nil
}

func (r *fakeSubscriptionRepo) ClearScheduledCancellations(_ context.Context, ids []string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, id := range ids {
		if s, ok := r.subs[id]; ok && s.IsActive && s.ScheduledCancelDate != nil {
			s.ScheduledCancelDate = nil
			s.UpdatedAt = at
			r.subs[id] = s
			count++
		}
	}
	return count, nil
}

func (r *fakeSubscriptionRepo) UpdateLastUsed(_ context.Context, id string, lastUsed, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return 0, nil
	}
	if s.LastUsedDate != nil && !s.LastUsedDate.Before(lastUsed) {
		return 0, nil
	}
	t := lastUsed
	s.LastUsedDate = &t
	s.UpdatedAt = at
	r.subs[id] = s
	return 1, nil
}

func (r *fakeSubscriptionRepo) UpdateLastUsedByPackage(_ context.Context, packageName string, lastUsed, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for id, s := range r.subs {
		if s.PackageName == nil || *s.PackageName != packageName {
			continue
		}
		if s.LastUsedDate != nil && !s.LastUsedDate.Before(lastUsed) {
			continue
		}
		t := lastUsed
		s.LastUsedDate = &t
		s.UpdatedAt = at
		r.subs[id] = s
		count++
	}
	return count, nil
}

func (r *fakeSubscriptionRepo) SetUsageTracking(_ context.Context, id string, enabled bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.subs[id]; ok {
		s.UsageTrackingEnabled = enabled
		s.UpdatedAt = at
		r.subs[id] = s
	}
	return nil
}

func (r *fakeSubscriptionRepo) CleanupInactiveOlderThan(_ context.Context, threshold time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for id, s := range r.subs {
		if !s.IsActive && s.UpdatedAt.Before(threshold) {
			delete(r.subs, id)
			count++
		}
	}
	return count, nil
}

// fakeThrottleRepo is an in-memory throttle store.
type fakeThrottleRepo struct {
	mu sync.Mutex
	m  map[string]time.Time
}

func newFakeThrottle() *fakeThrottleRepo {
	return &fakeThrottleRepo{m: make(map[string]time.Time)}
}

func (r *fakeThrottleRepo) GetLastNotified(_ context.Context, id string) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.m[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (r *fakeThrottleRepo) SetLastNotified(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[id] = at
	return nil
}

func (r *fakeThrottleRepo) DeleteFor(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	return nil
}

// flakyRemote fails Put for the ids in failFor and records the rest.
type flakyRemote struct {
	mu      sync.Mutex
	failFor map[string]bool
	puts    map[string]map[string]any
}

func (r *flakyRemote) Put(_ context.Context, id string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[id] {
		return errors.New("bucket unreachable")
	}
	if r.puts == nil {
		r.puts = make(map[string]map[string]any)
	}
	r.puts[id] = fields
	return nil
}

func (r *flakyRemote) Delete(context.Context, string) error { return nil }

func newTestService(repo *fakeSubscriptionRepo) SubscriptionService {
	return NewSubscriptionService(repo, newFakeThrottle(), nil, nil, "", zerolog.Nop())
}

func testSub(name string) *model.Subscription {
	return &model.Subscription{
		Name:            name,
		Category:        model.CategoryEntertainment,
		MonthlyPrice:    decimal.RequireFromString("9.99"),
		BillingCycle:    model.CycleMonthly,
		NextBillingDate: time.Now().UTC().AddDate(0, 0, 14),
	}
}

func TestCreateAssignsDefaults(t *testing.T) {
	svc := newTestService(newFakeRepo())

	created, err := svc.Create(context.Background(), testSub("Netflix"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID == "" {
		t.Error("expected an id to be assigned")
	}
	if !created.IsActive {
		t.Error("new subscription should be active")
	}
	if created.ReminderFrequency != model.RemindWeekly {
		t.Errorf("default reminder frequency = %q, want %q", created.ReminderFrequency, model.RemindWeekly)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("timestamps should be stamped on create")
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*model.Subscription)
		wantErr error
	}{
		{"empty name", func(s *model.Subscription) { s.Name = "" }, ErrNameRequired},
		{"negative price", func(s *model.Subscription) { s.MonthlyPrice = decimal.RequireFromString("-1") }, ErrNegativePrice},
		{"bad category", func(s *model.Subscription) { s.Category = "streaming" }, ErrInvalidCategory},
		{"bad cycle", func(s *model.Subscription) { s.BillingCycle = "fortnightly" }, ErrInvalidBillingCycle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := testSub("Spotify")
			tc.mutate(sub)
			if _, err := svc.Create(ctx, sub); !errors.Is(err, tc.wantErr) {
				t.Errorf("Create error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, testSub("Netflix"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	originalCreatedAt := created.CreatedAt

	changed := *created
	changed.Name = "Netflix Premium"
	changed.CreatedAt = time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)

	updated, err := svc.Update(ctx, &changed)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if !updated.CreatedAt.Equal(originalCreatedAt) {
		t.Errorf("CreatedAt = %v, want original %v", updated.CreatedAt, originalCreatedAt)
	}
	if updated.Name != "Netflix Premium" {
		t.Errorf("Name = %q, want %q", updated.Name, "Netflix Premium")
	}
}

func TestUpdateKeepsLifecycleFields(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created, _ := svc.Create(ctx, testSub("Netflix"))
	cancelAt := time.Now().UTC().Add(48 * time.Hour)
	if _, err := svc.ScheduleCancellation(ctx, []string{created.ID}, cancelAt); err != nil {
		t.Fatalf("ScheduleCancellation returned error: %v", err)
	}
	used := time.Now().UTC().Add(-time.Hour)
	if err := svc.RecordUsage(ctx, created.ID, used); err != nil {
		t.Fatalf("RecordUsage returned error: %v", err)
	}

	// An ordinary edit carries neither lifecycle field.
	changed := *created
	changed.Name = "Netflix Premium"
	changed.ScheduledCancelDate = nil
	changed.LastUsedDate = nil

	updated, err := svc.Update(ctx, &changed)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.ScheduledCancelDate == nil || !updated.ScheduledCancelDate.Equal(cancelAt) {
		t.Error("an unrelated update must not clear a pending cancellation")
	}
	if updated.LastUsedDate == nil || !updated.LastUsedDate.Equal(used) {
		t.Error("an unrelated update must not rewind last_used_date")
	}
	if updated.Name != "Netflix Premium" {
		t.Errorf("Name = %q, want %q", updated.Name, "Netflix Premium")
	}
}

func TestUpdateMissingSubscription(t *testing.T) {
	svc := newTestService(newFakeRepo())
	sub := testSub("Ghost")
	sub.ID = "no-such-id"
	if _, err := svc.Update(context.Background(), sub); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("Update error = %v, want ErrSubscriptionNotFound", err)
	}
}

func TestCancelNowIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	a, _ := svc.Create(ctx, testSub("Netflix"))
	b, _ := svc.Create(ctx, testSub("Hulu"))
	ids := []string{a.ID, b.ID}

	affected, err := svc.CancelNow(ctx, ids)
	if err != nil {
		t.Fatalf("CancelNow returned error: %v", err)
	}
	if affected != 2 {
		t.Errorf("first CancelNow affected = %d, want 2", affected)
	}

	// Cancelling again must not fail; inactive is terminal.
	if _, err := svc.CancelNow(ctx, ids); err != nil {
		t.Fatalf("second CancelNow returned error: %v", err)
	}
	got, _ := svc.Get(ctx, a.ID)
	if got.IsActive {
		t.Error("subscription should stay inactive")
	}
}

func TestScheduleCancellationInPast(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created, _ := svc.Create(ctx, testSub("Netflix"))

	_, err := svc.ScheduleCancellation(ctx, []string{created.ID}, time.Now().UTC().Add(-time.Hour))
	if !errors.Is(err, ErrCancellationInPast) {
		t.Fatalf("ScheduleCancellation error = %v, want ErrCancellationInPast", err)
	}
	got, _ := svc.Get(ctx, created.ID)
	if got.ScheduledCancelDate != nil {
		t.Error("a rejected schedule must not touch the row")
	}
}

func TestScheduledCancellationBecomesDue(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created, _ := svc.Create(ctx, testSub("Netflix"))
	cancelAt := time.Now().UTC().Add(time.Minute)

	affected, err := svc.ScheduleCancellation(ctx, []string{created.ID}, cancelAt)
	if err != nil {
		t.Fatalf("ScheduleCancellation returned error: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected = %d, want 1", affected)
	}

	due, err := svc.DueCancellations(ctx, cancelAt.Add(time.Second))
	if err != nil {
		t.Fatalf("DueCancellations returned error: %v", err)
	}
	if len(due) != 1 || due[0].ID != created.ID {
		t.Fatalf("due = %v, want the scheduled subscription", due)
	}

	// The read does not transition state.
	got, _ := svc.Get(ctx, created.ID)
	if !got.IsActive {
		t.Error("subscription must stay active until CancelNow")
	}
}

func TestUnscheduleClearsOnlyPending(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	scheduled, _ := svc.Create(ctx, testSub("Netflix"))
	plain, _ := svc.Create(ctx, testSub("Hulu"))
	if _, err := svc.ScheduleCancellation(ctx, []string{scheduled.ID}, time.Now().UTC().Add(time.Hour)); err != nil {
		t.Fatalf("ScheduleCancellation returned error: %v", err)
	}

	affected, err := svc.UnscheduleCancellation(ctx, []string{scheduled.ID, plain.ID})
	if err != nil {
		t.Fatalf("UnscheduleCancellation returned error: %v", err)
	}
	if affected != 1 {
		t.Errorf("affected = %d, want 1 (only the pending row)", affected)
	}
	got, _ := svc.Get(ctx, scheduled.ID)
	if got.ScheduledCancelDate != nil {
		t.Error("scheduled cancellation should be cleared")
	}
}

func TestRecordUsageIsMonotonic(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created, _ := svc.Create(ctx, testSub("Netflix"))
	newer := time.Now().UTC()
	older := newer.Add(-48 * time.Hour)

	if err := svc.RecordUsage(ctx, created.ID, newer); err != nil {
		t.Fatalf("RecordUsage returned error: %v", err)
	}
	if err := svc.RecordUsage(ctx, created.ID, older); err != nil {
		t.Fatalf("RecordUsage with older timestamp returned error: %v", err)
	}

	got, _ := svc.Get(ctx, created.ID)
	if got.LastUsedDate == nil || !got.LastUsedDate.Equal(newer) {
		t.Errorf("LastUsedDate = %v, want %v (older timestamp must not regress it)", got.LastUsedDate, newer)
	}
}

func TestImportValidatesBeforeWriting(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	data := `[
        {"name": "Netflix", "category": "entertainment", "monthly_price": "9.99", "billing_cycle": "monthly", "reminder_frequency": "weekly", "total_spent": "0", "next_billing_date": "2026-09-01T00:00:00Z", "is_active": true},
        {"name": "", "category": "entertainment", "monthly_price": "5", "billing_cycle": "monthly", "reminder_frequency": "weekly", "total_spent": "0", "next_billing_date": "2026-09-01T00:00:00Z", "is_active": true}
    ]`

	if _, err := svc.Import(ctx, data); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("Import error = %v, want ErrNameRequired", err)
	}
	all, _ := svc.GetAll(ctx)
	if len(all) != 0 {
		t.Errorf("a failed import wrote %d rows, want 0", len(all))
	}
}

func TestImportAssignsIDs(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	data := `[{"name": "Netflix", "category": "entertainment", "monthly_price": "9.99", "billing_cycle": "monthly", "reminder_frequency": "weekly", "total_spent": "0", "next_billing_date": "2026-09-01T00:00:00Z", "is_active": true}]`

	count, err := svc.Import(ctx, data)
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("imported = %d, want 1", count)
	}
	all, _ := svc.GetAll(ctx)
	if len(all) != 1 || all[0].ID == "" {
		t.Errorf("imported subscription should have an assigned id, got %+v", all)
	}
}

func TestSyncWithCloudSkipsFailures(t *testing.T) {
	repo := newFakeRepo()
	remote := &flakyRemote{failFor: map[string]bool{}}
	svc := NewSubscriptionService(repo, newFakeThrottle(), remote, nil, "", zerolog.Nop())
	ctx := context.Background()

	a := testSub("Netflix")
	a.ID = "sub-a"
	b := testSub("Hulu")
	b.ID = "sub-b"
	a.IsActive, b.IsActive = true, true
	if err := repo.Put(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := repo.Put(ctx, b); err != nil {
		t.Fatal(err)
	}

	remote.mu.Lock()
	remote.failFor[a.ID] = true
	remote.mu.Unlock()

	if err := svc.SyncWithCloud(ctx); err != nil {
		t.Fatalf("SyncWithCloud returned error: %v", err)
	}

	remote.mu.Lock()
	defer remote.mu.Unlock()
	if _, ok := remote.puts[b.ID]; !ok {
		t.Error("resync should mirror the healthy subscription")
	}
	if _, ok := remote.puts[a.ID]; ok {
		t.Error("failed subscription should be skipped, not retried here")
	}
}

func TestUnusedFiltersByCutoff(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	now := time.Now().UTC()

	fresh, _ := svc.Create(ctx, testSub("Fresh"))
	stale, _ := svc.Create(ctx, testSub("Stale"))
	never, _ := svc.Create(ctx, testSub("Never"))
	if err := svc.RecordUsage(ctx, fresh.ID, now.Add(-24*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := svc.RecordUsage(ctx, stale.ID, now.AddDate(0, 0, -45)); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Unused(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("Unused returned error: %v", err)
	}
	ids := make(map[string]bool, len(got))
	for _, s := range got {
		ids[s.ID] = true
	}
	if len(got) != 2 || !ids[stale.ID] || !ids[never.ID] {
		t.Errorf("Unused = %v, want the stale and never-used subscriptions", ids)
	}
	if ids[fresh.ID] {
		t.Error("a recently used subscription must not be a candidate")
	}
}

func TestDeleteReleasesLockEntry(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created, _ := svc.Create(ctx, testSub("Netflix"))
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	inner := svc.(*subscriptionService)
	inner.locks.mu.Lock()
	_, held := inner.locks.m[created.ID]
	inner.locks.mu.Unlock()
	if held {
		t.Error("deleting a subscription should evict its lock entry")
	}
}

func TestDeleteClearsThrottleState(t *testing.T) {
	repo := newFakeRepo()
	throttle := newFakeThrottle()
	svc := NewSubscriptionService(repo, throttle, nil, nil, "", zerolog.Nop())
	ctx := context.Background()

	created, _ := svc.Create(ctx, testSub("Netflix"))
	if err := throttle.SetLastNotified(ctx, created.ID, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	last, _ := throttle.GetLastNotified(ctx, created.ID)
	if last != nil {
		t.Error("throttle state should be removed with the subscription")
	}
}
