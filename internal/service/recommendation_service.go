package service

import (
	"context"
	"fmt"
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/model"
	"github.com/manngobeh2006/Subscription-Remover/internal/repository"

	"github.com/rs/zerolog"
)

// RecommendationService derives ephemeral insights from subscription state.
// Recommendations are recomputed every cycle and never persisted; only the
// notification throttle state goes to the store.
type RecommendationService interface {
	// GenerateRecommendations computes cancel-unused recommendations for all
	// active subscriptions as of now.
	GenerateRecommendations(ctx context.Context, now time.Time) ([]model.SubscriptionRecommendation, error)

	// GetUsageStats returns the derived usage view for a single subscription.
	GetUsageStats(ctx context.Context, id string, now time.Time) (*model.SubscriptionUsage, error)

	// ShouldNotify reports whether a notification for the subscription is
	// allowed under the throttle window.
	ShouldNotify(ctx context.Context, subscriptionID string, now time.Time) (bool, error)

	// MarkNotified records that a notification was sent at the given time.
	MarkNotified(ctx context.Context, subscriptionID string, at time.Time) error
}

type recommendationService struct {
	subSvc             SubscriptionService
	throttleRepo       repository.ThrottleRepository
	unusedDays         int
	highConfidenceDays int
	throttleWindow     time.Duration
	logger             zerolog.Logger
}

// NewRecommendationService creates the insight service. unusedDays is the
// inactivity threshold, highConfidenceDays the cutoff above which a
// recommendation is considered high confidence, and throttleDays the minimum
// gap between notifications for the same subscription.
func NewRecommendationService(
	subSvc SubscriptionService,
	throttleRepo repository.ThrottleRepository,
	unusedDays, highConfidenceDays, throttleDays int,
	logger zerolog.Logger,
) RecommendationService {
	return &recommendationService{
		subSvc:             subSvc,
		throttleRepo:       throttleRepo,
		unusedDays:         unusedDays,
		highConfidenceDays: highConfidenceDays,
		throttleWindow:     time.Duration(throttleDays) * 24 * time.Hour,
		logger:             logger.With().Str("service", "RecommendationService").Logger(),
	}
}

func (s *recommendationService) GenerateRecommendations(ctx context.Context, now time.Time) ([]model.SubscriptionRecommendation, error) {
	// The store pre-filters candidates by a coarse timestamp cutoff; the
	// day-granular check below also applies the never-used grace period.
	candidates, err := s.subSvc.Unused(ctx, now.AddDate(0, 0, -s.unusedDays))
	if err != nil {
		return nil, err
	}

	recs := make([]model.SubscriptionRecommendation, 0)
	for i := range candidates {
		sub := &candidates[i]
		if !sub.IsUnused(s.unusedDays, now) {
			continue
		}
		recs = append(recs, s.cancelUnused(sub, now))
	}
	return recs, nil
}

func (s *recommendationService) cancelUnused(sub *model.Subscription, now time.Time) model.SubscriptionRecommendation {
	days := sub.DaysSinceLastUsed(now)
	confidence := 0.7
	if days > s.highConfidenceDays {
		confidence = 0.9
	}

	var reason string
	if days == -1 {
		reason = fmt.Sprintf("%s has never been used since it was added", sub.Name)
	} else {
		reason = fmt.Sprintf("%s has not been used in %d days", sub.Name, days)
	}

	return model.SubscriptionRecommendation{
		SubscriptionID:     sub.ID,
		RecommendationType: model.RecommendCancelUnused,
		Reason:             reason,
		PotentialSavings:   sub.MonthlyEquivalentPrice(),
		Confidence:         confidence,
		CreatedAt:          now,
	}
}

func (s *recommendationService) GetUsageStats(ctx context.Context, id string, now time.Time) (*model.SubscriptionUsage, error) {
	sub, err := s.subSvc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubscriptionNotFound
	}
	return &model.SubscriptionUsage{
		SubscriptionID:   sub.ID,
		LastOpenDate:     sub.LastUsedDate,
		DaysSinceLastUse: sub.DaysSinceLastUsed(now),
		UsageFrequency:   model.UsageFrequencyFor(sub, now),
	}, nil
}

func (s *recommendationService) ShouldNotify(ctx context.Context, subscriptionID string, now time.Time) (bool, error) {
	last, err := s.throttleRepo.GetLastNotified(ctx, subscriptionID)
	if err != nil {
		return false, err
	}
	if last == nil {
		return true, nil
	}
	return now.Sub(*last) >= s.throttleWindow, nil
}

func (s *recommendationService) MarkNotified(ctx context.Context, subscriptionID string, at time.Time) error {
	return s.throttleRepo.SetLastNotified(ctx, subscriptionID, at)
}
