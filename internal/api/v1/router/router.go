package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/api/v1/handler"
	"github.com/manngobeh2006/Subscription-Remover/internal/config"
	"github.com/manngobeh2006/Subscription-Remover/internal/middleware"
	"github.com/manngobeh2006/Subscription-Remover/internal/pubsub"
	"github.com/manngobeh2006/Subscription-Remover/internal/repository"
	"github.com/manngobeh2006/Subscription-Remover/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Msg("Router initialized")
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	ctx := context.Background()

	// 1. Open DB connection pool
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	// Local development runs against a non-TLS Postgres.
	if cfg.Environment == "development" {
		dsn += "?sslmode=disable"
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error().Msgf("Failed to parse DB config: %v", err)
		return nil, nil, err
	}
	poolCfg.MaxConns = 25
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error().Msgf("Failed to open DB connection: %v", err)
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error().Msgf("Failed to ping DB: %v", err)
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. Apply pending schema migrations
	if err := repository.Migrate(ctx, pool, cfg.MigrationsDir, logger); err != nil {
		logger.Error().Msgf("Failed to apply migrations: %v", err)
		return nil, nil, err
	}

	// 3. Resolve the JWT secret from Secret Manager when configured
	jwtSecret := cfg.JWTSecret
	if cfg.JWTSecretName != "" {
		secretSvc, err := service.NewSecretManagerService(ctx, cfg)
		if err != nil {
			logger.Error().Msgf("Failed to create Secret Manager client: %v", err)
			return nil, nil, err
		}
		defer secretSvc.Close()
		jwtSecret, err = secretSvc.GetSecret(ctx, cfg.JWTSecretName)
		if err != nil {
			logger.Error().Msgf("Failed to fetch JWT secret: %v", err)
			return nil, nil, err
		}
	}

	// 4. Initialize the remote mirror when enabled
	var remote service.RemoteStore
	if cfg.MirrorEnabled {
		s3Config, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.MirrorS3Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.MirrorS3Access, cfg.MirrorS3Secret, "")),
			awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
		)
		if err != nil {
			logger.Error().Msgf("Failed to load S3 config: %v", err)
			return nil, nil, err
		}
		s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
			if cfg.MirrorS3URL != "" {
				o.BaseEndpoint = aws.String(cfg.MirrorS3URL)
				o.UsePathStyle = true
			}
		})
		remote = service.NewS3RemoteStore(s3Client, cfg.MirrorS3Bucket, cfg.MirrorKeyPrefix)
		logger.Info().Str("bucket", cfg.MirrorS3Bucket).Msg("Remote mirror enabled")
	}

	// 5. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 6. Initialize Pub/Sub publisher when a project is configured
	var publisher pubsub.Publisher
	if cfg.GCPProjectID != "" {
		pubSubPublisher, err := pubsub.NewPublisher(ctx, cfg)
		if err != nil {
			logger.Error().Msgf("Failed to create Pub/Sub publisher: %v", err)
			return nil, nil, err
		}
		publisher = pubSubPublisher
	}

	// 7. Initialize repositories & services & handlers
	subRepo := repository.NewSubscriptionRepo(pool)
	throttleRepo := repository.NewThrottleRepo(pool)
	userRepo := repository.NewUserRepo(pool)

	subSvc := service.NewSubscriptionService(subRepo, throttleRepo, remote, publisher, cfg.EventsTopic, logger)
	recSvc := service.NewRecommendationService(subSvc, throttleRepo,
		cfg.UnusedThresholdDays, cfg.HighConfidenceUnusedDays, cfg.NotificationThrottleDays, logger)
	userSvc := service.NewUserService(userRepo)

	subHandler := handler.NewSubscriptionHandler(subSvc, validate)
	insightsHandler := handler.NewInsightsHandler(subSvc, recSvc)
	userHandler := handler.NewUserHandler(userSvc, validate)

	// 8. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(jwtSecret)

	// 9. Create ServeMux router
	mux := http.NewServeMux()

	// Create a subrouter for API v1 with the /v1 prefix
	apiV1Mux := http.NewServeMux()
	subHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	insightsHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// Redirect all other root-level requests to /v1/{path}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Avoid redirect loops by checking if already under /v1
		if strings.HasPrefix(r.URL.Path, "/v1/") {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/v1"+r.URL.Path, http.StatusMovedPermanently)
	})

	// 10. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), pool, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some
// S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
