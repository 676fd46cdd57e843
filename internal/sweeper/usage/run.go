package usage

import (
	"context"
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/service"

	"github.com/rs/zerolog"
)

// Run starts the usage sweep: every tick it pulls the telemetry window and
// records matched observations. Runs until the context is cancelled.
func Run(ctx context.Context, logger zerolog.Logger, usageSvc service.UsageService, interval time.Duration) error {
	logger.Info().Dur("interval", interval).Msg("Starting usage sweep")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down usage sweep")
			return nil
		case <-ticker.C:
		}

		matched, err := usageSvc.PollOnce(ctx, time.Now().UTC())
		if err != nil {
			logger.Error().Err(err).Msg("Usage sweep cycle failed")
			continue
		}
		if matched > 0 {
			logger.Info().Int("matched", matched).Msg("Usage sweep recorded observations")
		}
	}
}
