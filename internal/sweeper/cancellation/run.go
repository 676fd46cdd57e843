package cancellation

import (
	"context"
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/service"

	"github.com/rs/zerolog"
)

// Run starts the cancellation sweep: every tick it finds subscriptions whose
// scheduled cancellation date has arrived and deactivates them.
func Run(ctx context.Context, logger zerolog.Logger, subSvc service.SubscriptionService, interval time.Duration) error {
	logger.Info().Dur("interval", interval).Msg("Starting cancellation sweep")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down cancellation sweep")
			return nil
		case <-ticker.C:
		}

		due, err := subSvc.DueCancellations(ctx, time.Now().UTC())
		if err != nil {
			logger.Error().Err(err).Msg("Cancellation sweep query failed")
			continue
		}
		if len(due) == 0 {
			continue
		}

		ids := make([]string, 0, len(due))
		for i := range due {
			ids = append(ids, due[i].ID)
		}
		affected, err := subSvc.CancelNow(ctx, ids)
		if err != nil {
			logger.Error().Err(err).Msg("Cancellation sweep failed to deactivate")
			continue
		}
		logger.Info().Int64("cancelled", affected).Msg("Cancellation sweep deactivated due subscriptions")
	}
}
