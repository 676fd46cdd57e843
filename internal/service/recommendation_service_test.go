package service

import (
	"context"
	"testing"
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/model"

	"github.com/rs/zerolog"
)

func newTestRecService(repo *fakeSubscriptionRepo, throttle *fakeThrottleRepo) RecommendationService {
	subSvc := NewSubscriptionService(repo, throttle, nil, nil, "", zerolog.Nop())
	return NewRecommendationService(subSvc, throttle, 30, 60, 7, zerolog.Nop())
}

func seedActive(t *testing.T, repo *fakeSubscriptionRepo, id string, lastUsed *time.Time, createdAt time.Time) {
	t.Helper()
	sub := testSub("Sub " + id)
	sub.ID = id
	sub.IsActive = true
	sub.LastUsedDate = lastUsed
	sub.CreatedAt = createdAt
	sub.UpdatedAt = createdAt
	if err := repo.Put(context.Background(), sub); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateRecommendationsConfidence(t *testing.T) {
	repo := newFakeRepo()
	recSvc := newTestRecService(repo, newFakeThrottle())
	now := time.Now().UTC()

	used45 := now.AddDate(0, 0, -45)
	used65 := now.AddDate(0, 0, -65)
	used5 := now.AddDate(0, 0, -5)
	seedActive(t, repo, "stale", &used45, now.AddDate(0, -6, 0))
	seedActive(t, repo, "very-stale", &used65, now.AddDate(0, -6, 0))
	seedActive(t, repo, "fresh", &used5, now.AddDate(0, -6, 0))

	recs, err := recSvc.GenerateRecommendations(context.Background(), now)
	if err != nil {
		t.Fatalf("GenerateRecommendations returned error: %v", err)
	}

	byID := make(map[string]model.SubscriptionRecommendation)
	for _, r := range recs {
		byID[r.SubscriptionID] = r
	}
	if len(byID) != 2 {
		t.Fatalf("got %d recommendations, want 2 (the fresh subscription is kept)", len(byID))
	}

	if rec := byID["stale"]; rec.Confidence != 0.7 {
		t.Errorf("45-day confidence = %v, want 0.7", rec.Confidence)
	}
	if rec := byID["very-stale"]; rec.Confidence != 0.9 {
		t.Errorf("65-day confidence = %v, want 0.9", rec.Confidence)
	}
	for _, rec := range byID {
		if rec.RecommendationType != model.RecommendCancelUnused {
			t.Errorf("type = %q, want %q", rec.RecommendationType, model.RecommendCancelUnused)
		}
		if rec.PotentialSavings.IsZero() {
			t.Error("potential savings should carry the monthly equivalent price")
		}
	}
}

func TestGenerateRecommendationsNeverUsed(t *testing.T) {
	repo := newFakeRepo()
	recSvc := newTestRecService(repo, newFakeThrottle())
	now := time.Now().UTC()

	// Added recently, never used: inside the grace period.
	seedActive(t, repo, "new", nil, now.AddDate(0, 0, -5))
	// Added long ago, never used: flagged.
	seedActive(t, repo, "forgotten", nil, now.AddDate(0, 0, -90))

	recs, err := recSvc.GenerateRecommendations(context.Background(), now)
	if err != nil {
		t.Fatalf("GenerateRecommendations returned error: %v", err)
	}
	if len(recs) != 1 || recs[0].SubscriptionID != "forgotten" {
		t.Fatalf("recs = %v, want exactly the forgotten subscription", recs)
	}
	if recs[0].Confidence != 0.7 {
		t.Errorf("never-used confidence = %v, want 0.7", recs[0].Confidence)
	}
}

func TestGetUsageStats(t *testing.T) {
	repo := newFakeRepo()
	recSvc := newTestRecService(repo, newFakeThrottle())
	now := time.Now().UTC()

	used := now.AddDate(0, 0, -10)
	seedActive(t, repo, "sub-1", &used, now.AddDate(0, -1, 0))

	stats, err := recSvc.GetUsageStats(context.Background(), "sub-1", now)
	if err != nil {
		t.Fatalf("GetUsageStats returned error: %v", err)
	}
	if stats.DaysSinceLastUse != 10 {
		t.Errorf("DaysSinceLastUse = %d, want 10", stats.DaysSinceLastUse)
	}
	if stats.UsageFrequency != model.UsageMonthly {
		t.Errorf("UsageFrequency = %q, want %q", stats.UsageFrequency, model.UsageMonthly)
	}
}

func TestShouldNotifyThrottleWindow(t *testing.T) {
	repo := newFakeRepo()
	throttle := newFakeThrottle()
	recSvc := newTestRecService(repo, throttle)
	ctx := context.Background()
	now := time.Now().UTC()

	// Never notified: allowed.
	ok, err := recSvc.ShouldNotify(ctx, "sub-1", now)
	if err != nil {
		t.Fatalf("ShouldNotify returned error: %v", err)
	}
	if !ok {
		t.Fatal("first notification should be allowed")
	}

	if err := recSvc.MarkNotified(ctx, "sub-1", now); err != nil {
		t.Fatalf("MarkNotified returned error: %v", err)
	}

	// Within the window: suppressed.
	ok, err = recSvc.ShouldNotify(ctx, "sub-1", now.Add(3*24*time.Hour))
	if err != nil {
		t.Fatalf("ShouldNotify returned error: %v", err)
	}
	if ok {
		t.Error("notification inside the throttle window should be suppressed")
	}

	// Past the window: allowed again.
	ok, err = recSvc.ShouldNotify(ctx, "sub-1", now.Add(8*24*time.Hour))
	if err != nil {
		t.Fatalf("ShouldNotify returned error: %v", err)
	}
	if !ok {
		t.Error("notification past the throttle window should be allowed")
	}
}
