package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	aws_pkg "storefront-service/pkg/aws"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Port   string `envconfig:"PORT" default:"8080"`
	AppEnv string `envconfig:"APP_ENV" default:"development"`

	PostgresUser     string `envconfig:"POSTGRES_USER"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD"`
	PostgresDB       string `envconfig:"POSTGRES_DB"`
	PostgresHost     string `envconfig:"POSTGRES_HOST"`
	PostgresPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	PostgresTimeZone string `envconfig:"POSTGRES_TIMEZONE" default:"Asia/Manila"`

	// Empty RedisURL selects the in-process cache.
	RedisURL           string        `envconfig:"REDIS_URL"`
	CacheTTL           time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	CacheSweepInterval time.Duration `envconfig:"CACHE_SWEEP_INTERVAL" default:"1m"`

	JWTSecret      string   `envconfig:"JWT_SECRET"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	OrderRateLimit float64  `envconfig:"ORDER_RATE_LIMIT" default:"1"`
	OrderRateBurst int      `envconfig:"ORDER_RATE_BURST" default:"5"`

	StrictTransitions      bool   `envconfig:"ORDER_STRICT_TRANSITIONS" default:"false"`
	OrderNumberPrefix      string `envconfig:"ORDER_NUMBER_PREFIX" default:"HW"`
	OrderNumberMaxAttempts int    `envconfig:"ORDER_NUMBER_MAX_ATTEMPTS" default:"5"`

	StoreName          string        `envconfig:"STORE_NAME" default:"Hardware Store"`
	AdminNotifyPhones  []string      `envconfig:"ADMIN_NOTIFY_PHONES"`
	NotifyProviders    []string      `envconfig:"NOTIFY_PROVIDERS" default:"log"`
	NotifyMaxRounds    int           `envconfig:"NOTIFY_MAX_ROUNDS" default:"3"`
	NotifyRetryBackoff time.Duration `envconfig:"NOTIFY_RETRY_BACKOFF" default:"2s"`
	NotifyWorkers      int           `envconfig:"NOTIFY_WORKERS" default:"4"`
	NotifyQueueSize    int           `envconfig:"NOTIFY_QUEUE_SIZE" default:"256"`
	NotifySQSQueueURL  string        `envconfig:"NOTIFY_SQS_QUEUE_URL"`

	TwilioAccountSID string `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `envconfig:"TWILIO_FROM_NUMBER"`
	SNSSenderID      string `envconfig:"SNS_SMS_SENDER_ID"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM"`

	OrderEventsTopicARN string `envconfig:"ORDER_EVENTS_TOPIC_ARN"`
	CloudWatchEnabled   bool   `envconfig:"CLOUDWATCH_ENABLED" default:"false"`
	CloudWatchLogGroup  string `envconfig:"CLOUDWATCH_LOG_GROUP" default:"/storefront/services"`
	CloudWatchNamespace string `envconfig:"CLOUDWATCH_NAMESPACE" default:"Storefront"`

	AWSUseSecrets bool   `envconfig:"AWS_USE_SECRETS" default:"false"`
	DBSecretName  string `envconfig:"DB_SECRET_NAME" default:"storefront/DB_CREDENTIALS"`
}

// Production reports whether the service runs with production settings.
func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

// UsesAWS reports whether any AWS-backed component is configured.
func (c *Config) UsesAWS() bool {
	if c.AWSUseSecrets || c.CloudWatchEnabled || c.NotifySQSQueueURL != "" || c.OrderEventsTopicARN != "" {
		return true
	}
	for _, p := range c.NotifyProviders {
		if p == "sns" {
			return true
		}
	}
	return false
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB,
		c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone)
}

// LoadConfig reads .env (if present) and the environment, then applies the
// Secrets Manager override when AWS_USE_SECRETS=true.
func LoadConfig(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if cfg.AWSUseSecrets {
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		m, err := aws_pkg.NewDBSecretLoader(awsCfg).Load(ctx, cfg.DBSecretName)
		if err != nil {
			return nil, err
		}
		cfg.ApplyDBSecret(m)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDBSecret overrides Postgres settings with non-empty secret values.
func (c *Config) ApplyDBSecret(m map[string]string) {
	set := func(dst *string, key string) {
		if v, ok := m[key]; ok && v != "" {
			*dst = v
		}
	}
	set(&c.PostgresUser, "POSTGRES_USER")
	set(&c.PostgresPassword, "POSTGRES_PASSWORD")
	set(&c.PostgresDB, "POSTGRES_DB")
	set(&c.PostgresHost, "POSTGRES_HOST")
	set(&c.PostgresPort, "POSTGRES_PORT")
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.Production() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.OrderNumberMaxAttempts < 1 {
		return fmt.Errorf("ORDER_NUMBER_MAX_ATTEMPTS must be at least 1")
	}
	if c.NotifyMaxRounds < 1 {
		return fmt.Errorf("NOTIFY_MAX_ROUNDS must be at least 1")
	}
	for i, p := range c.NotifyProviders {
		c.NotifyProviders[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return nil
}
