package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/config"
	"github.com/manngobeh2006/Subscription-Remover/internal/logger"
	"github.com/manngobeh2006/Subscription-Remover/internal/pgmq"
	"github.com/manngobeh2006/Subscription-Remover/internal/pubsub"
	"github.com/manngobeh2006/Subscription-Remover/internal/repository"
	"github.com/manngobeh2006/Subscription-Remover/internal/service"
	"github.com/manngobeh2006/Subscription-Remover/internal/sweeper/cancellation"
	"github.com/manngobeh2006/Subscription-Remover/internal/sweeper/recommendation"
	"github.com/manngobeh2006/Subscription-Remover/internal/sweeper/usage"
	"github.com/manngobeh2006/Subscription-Remover/internal/telemetry"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Parse mode flag
	mode := flag.String("mode", "", "Sweep mode: usage|cancellation|recommendation")
	flag.Parse()

	// Initialize logger
	logger := logger.New()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize DB connection pool
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if cfg.Environment == "development" {
		dsn += "?sslmode=disable"
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
	}
	logger.Info().Msg("Database connection established")

	// Initialize the remote mirror when enabled so sweep mutations are
	// mirrored the same way API mutations are.
	var remote service.RemoteStore
	if cfg.MirrorEnabled {
		s3Config, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.MirrorS3Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.MirrorS3Access, cfg.MirrorS3Secret, "")),
		)
		if err != nil {
			logger.Fatal().Msgf("Failed to load S3 config: %v", err)
		}
		s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
			if cfg.MirrorS3URL != "" {
				o.BaseEndpoint = aws.String(cfg.MirrorS3URL)
				o.UsePathStyle = true
			}
		})
		remote = service.NewS3RemoteStore(s3Client, cfg.MirrorS3Bucket, cfg.MirrorKeyPrefix)
	}

	// Initialize Pub/Sub publisher when a project is configured
	var publisher pubsub.Publisher
	if cfg.GCPProjectID != "" {
		pubSubPublisher, err := pubsub.NewPublisher(ctx, cfg)
		if err != nil {
			logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
		}
		publisher = pubSubPublisher
	}

	// Initialize repositories and services
	subRepo := repository.NewSubscriptionRepo(pool)
	throttleRepo := repository.NewThrottleRepo(pool)
	subSvc := service.NewSubscriptionService(subRepo, throttleRepo, remote, publisher, cfg.EventsTopic, logger)

	// Dispatch to the selected sweep
	var runErr error
	switch *mode {
	case "usage":
		source := telemetry.NewPostgresSource(pool)
		usageSvc := service.NewUsageService(subSvc, source, time.Duration(cfg.UsageLookbackHours)*time.Hour, logger)
		runErr = usage.Run(ctx, logger, usageSvc, time.Duration(cfg.UsagePollIntervalMin)*time.Minute)
	case "cancellation":
		runErr = cancellation.Run(ctx, logger, subSvc, time.Duration(cfg.CancellationSweepMin)*time.Minute)
	case "recommendation":
		recSvc := service.NewRecommendationService(subSvc, throttleRepo,
			cfg.UnusedThresholdDays, cfg.HighConfidenceUnusedDays, cfg.NotificationThrottleDays, logger)
		notifier, err := service.NewQueueNotifier(ctx, pgmq.New(pool), cfg.NotificationQueueName, logger)
		if err != nil {
			logger.Fatal().Msgf("Failed to initialize notifier: %v", err)
		}
		runErr = recommendation.Run(ctx, logger, recSvc, notifier, time.Duration(cfg.RecommendationSweepMin)*time.Minute)
	default:
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}

	if runErr != nil {
		logger.Fatal().Msgf("%s sweep failed: %v", *mode, runErr)
	}

	logger.Info().Msgf("%s sweep stopped gracefully", *mode)
}
