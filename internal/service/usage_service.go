package service

import (
	"context"
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/telemetry"

	"github.com/rs/zerolog"
)

// UsageService maps raw device telemetry onto tracked subscriptions. It only
// calls the reconciliation service's usage operation and never writes the
// store directly.
type UsageService interface {
	// PollOnce queries the telemetry source for the lookback window ending
	// at now and records matching observations. Returns the number of
	// subscriptions whose last-used date moved forward.
	PollOnce(ctx context.Context, now time.Time) (int, error)

	// Match records the given observations against trackable subscriptions.
	// Unmatched packages and out-of-window timestamps are dropped silently.
	Match(ctx context.Context, observations []telemetry.AppUsage, windowStart time.Time) (int, error)
}

type usageService struct {
	subSvc   SubscriptionService
	source   telemetry.Source
	lookback time.Duration
	logger   zerolog.Logger
}

// NewUsageService creates a new UsageService with a scoped logger.
func NewUsageService(subSvc SubscriptionService, source telemetry.Source, lookback time.Duration, logger zerolog.Logger) UsageService {
	return &usageService{
		subSvc:   subSvc,
		source:   source,
		lookback: lookback,
		logger:   logger.With().Str("service", "UsageService").Logger(),
	}
}

func (s *usageService) PollOnce(ctx context.Context, now time.Time) (int, error) {
	windowStart := now.Add(-s.lookback)
	observations, err := s.source.Query(ctx, windowStart, now)
	if err != nil {
		// A failed or empty telemetry window is not an error condition for
		// the engine; the sweep simply does nothing this cycle.
		s.logger.Warn().Err(err).Msg("Telemetry query failed, skipping cycle")
		return 0, nil
	}
	return s.Match(ctx, observations, windowStart)
}

func (s *usageService) Match(ctx context.Context, observations []telemetry.AppUsage, windowStart time.Time) (int, error) {
	if len(observations) == 0 {
		return 0, nil
	}
	trackable, err := s.subSvc.Trackable(ctx)
	if err != nil {
		return 0, err
	}
	if len(trackable) == 0 {
		return 0, nil
	}

	// One-to-one package to subscription map; last registration wins when
	// two subscriptions claim the same package.
	byPackage := make(map[string]string, len(trackable))
	for _, sub := range trackable {
		if sub.PackageName != nil && *sub.PackageName != "" {
			byPackage[*sub.PackageName] = sub.ID
		}
	}

	matched := 0
	for _, obs := range observations {
		id, ok := byPackage[obs.PackageName]
		if !ok {
			continue
		}
		lastUsed := obs.LastUsed()
		if lastUsed.Before(windowStart) {
			continue
		}
		if err := s.subSvc.RecordUsage(ctx, id, lastUsed); err != nil {
			s.logger.Error().Err(err).Str("subscription_id", id).Msg("Failed to record matched usage")
			continue
		}
		matched++
	}
	return matched, nil
}
