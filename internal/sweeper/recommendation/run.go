package recommendation

import (
	"context"
	"fmt"
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/model"
	"github.com/manngobeh2006/Subscription-Remover/internal/service"

	"github.com/rs/zerolog"
)

// Run starts the recommendation sweep: every tick it regenerates
// recommendations and enqueues a notification per cancel-unused finding,
// subject to the per-subscription throttle.
func Run(
	ctx context.Context,
	logger zerolog.Logger,
	recSvc service.RecommendationService,
	notifier service.Notifier,
	interval time.Duration,
) error {
	logger.Info().Dur("interval", interval).Msg("Starting recommendation sweep")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down recommendation sweep")
			return nil
		case <-ticker.C:
		}

		now := time.Now().UTC()
		recs, err := recSvc.GenerateRecommendations(ctx, now)
		if err != nil {
			logger.Error().Err(err).Msg("Recommendation sweep cycle failed")
			continue
		}

		for _, rec := range recs {
			if rec.RecommendationType != model.RecommendCancelUnused {
				continue
			}
			ok, err := recSvc.ShouldNotify(ctx, rec.SubscriptionID, now)
			if err != nil {
				logger.Error().Err(err).Str("subscription_id", rec.SubscriptionID).Msg("Throttle lookup failed")
				continue
			}
			if !ok {
				continue
			}

			title := "Unused subscription"
			body := fmt.Sprintf("%s. Cancelling saves %s per month.", rec.Reason, rec.PotentialSavings.StringFixed(2))
			if err := notifier.Notify(ctx, rec.SubscriptionID, title, body); err != nil {
				logger.Error().Err(err).Str("subscription_id", rec.SubscriptionID).Msg("Failed to enqueue notification")
				continue
			}
			if err := recSvc.MarkNotified(ctx, rec.SubscriptionID, now); err != nil {
				logger.Error().Err(err).Str("subscription_id", rec.SubscriptionID).Msg("Failed to record throttle state")
			}
		}
	}
}
