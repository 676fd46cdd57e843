package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Remote mirror settings. The mirror is best-effort: when the bucket is
	// unreachable, local writes still succeed.
	MirrorEnabled   bool   `envconfig:"MIRROR_ENABLED" default:"false"`
	MirrorS3URL     string `envconfig:"MIRROR_S3_URL" default:""`
	MirrorS3Bucket  string `envconfig:"MIRROR_S3_BUCKET" default:""`
	MirrorS3Region  string `envconfig:"MIRROR_S3_REGION" default:"us-east-1"`
	MirrorS3Access  string `envconfig:"MIRROR_S3_ACCESS_KEY" default:""`
	MirrorS3Secret  string `envconfig:"MIRROR_S3_SECRET_KEY" default:""`
	MirrorKeyPrefix string `envconfig:"MIRROR_KEY_PREFIX" default:"subscriptions/"`

	// Change events are published to Pub/Sub after each mutation so
	// consumers can react instead of polling. Empty project ID disables
	// publishing.
	GCPProjectID string `envconfig:"GCP_PROJECT_ID" default:""`
	EventsTopic  string `envconfig:"SUBSCRIPTION_EVENTS_TOPIC" default:"subscription-events"`

	// Secret Manager lookup for the JWT secret outside development.
	JWTSecretName      string `envconfig:"JWT_SECRET_NAME" default:""`
	GCPCredentialsFile string `envconfig:"GCP_CREDENTIALS_FILE" default:""`

	// Outbound notifications are queued for an external delivery worker.
	NotificationQueueName string `envconfig:"NOTIFICATION_QUEUE_NAME" default:"notifications_queue"`

	// Sweep cadences and detection thresholds.
	UsagePollIntervalMin     int `envconfig:"USAGE_POLL_INTERVAL_MIN" default:"15"`
	UsageLookbackHours       int `envconfig:"USAGE_LOOKBACK_HOURS" default:"24"`
	CancellationSweepMin     int `envconfig:"CANCELLATION_SWEEP_INTERVAL_MIN" default:"60"`
	RecommendationSweepMin   int `envconfig:"RECOMMENDATION_SWEEP_INTERVAL_MIN" default:"60"`
	UnusedThresholdDays      int `envconfig:"UNUSED_THRESHOLD_DAYS" default:"30"`
	NotificationThrottleDays int `envconfig:"NOTIFICATION_THROTTLE_DAYS" default:"7"`
	HighConfidenceUnusedDays int `envconfig:"HIGH_CONFIDENCE_UNUSED_DAYS" default:"60"`

	MigrationsDir string `envconfig:"MIGRATIONS_DIR" default:"migrations"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
