package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"

	apperrors "github.com/uniedit/upload-notifier/internal/shared/errors"
)

// MaxTTLSeconds is the longest lifetime a SigV4 presigned URL may carry.
const MaxTTLSeconds = 7 * 24 * 60 * 60

// Ledger backends.
const (
	LedgerDynamoDB = "dynamodb"
	LedgerRedis    = "redis"
	LedgerPostgres = "postgres"
)

// Event source modes.
const (
	SourceLambda = "lambda"
	SourceSQS    = "sqs"
)

// Config holds all application configuration.
type Config struct {
	AWS          AWSConfig          `mapstructure:"aws"`
	Issuer       IssuerConfig       `mapstructure:"issuer"`
	Ledger       LedgerConfig       `mapstructure:"ledger"`
	Notification NotificationConfig `mapstructure:"notification"`
	Source       SourceConfig       `mapstructure:"source"`
	Ops          OpsConfig          `mapstructure:"ops"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
	Log          LogConfig          `mapstructure:"log"`
}

// AWSConfig holds AWS client configuration.
type AWSConfig struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// IssuerConfig holds signed URL configuration.
type IssuerConfig struct {
	TTLSeconds   int  `mapstructure:"ttl_seconds"`
	VerifyObject bool `mapstructure:"verify_object"`
}

// TTL returns the signed URL lifetime.
func (c *IssuerConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// LedgerConfig holds upload ledger configuration.
type LedgerConfig struct {
	Backend  string         `mapstructure:"backend"`
	Table    string         `mapstructure:"table"`
	Timezone string         `mapstructure:"timezone"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// Location resolves the zone used to render ledger timestamps.
func (c *LedgerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// PostgresConfig holds database configuration.
type PostgresConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	Database    string `mapstructure:"database"`
	SSLMode     string `mapstructure:"ssl_mode"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// DSN returns the database connection string.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// NotificationConfig holds publish/subscribe configuration.
type NotificationConfig struct {
	Target  string        `mapstructure:"target"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig holds dispatch circuit breaker configuration.
type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
	HalfOpenRequests uint32        `mapstructure:"half_open_requests"`
}

// SourceConfig holds event source configuration.
type SourceConfig struct {
	Mode string    `mapstructure:"mode"`
	SQS  SQSConfig `mapstructure:"sqs"`
}

// SQSConfig holds queue polling configuration.
type SQSConfig struct {
	QueueURL          string `mapstructure:"queue_url"`
	MaxMessages       int32  `mapstructure:"max_messages"`
	WaitTimeSeconds   int32  `mapstructure:"wait_time_seconds"`
	VisibilityTimeout int32  `mapstructure:"visibility_timeout"`
	Concurrency       int    `mapstructure:"concurrency"`
}

// OpsConfig holds the operational HTTP endpoint configuration.
type OpsConfig struct {
	Address string `mapstructure:"address"`
}

// TracingConfig holds OpenTelemetry export configuration.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	ServiceName  string  `mapstructure:"service_name"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment and validates it.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/upload-notifier")

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperrors.Configuration("read config", err)
		}
	}

	v.SetEnvPrefix("UPLOAD_NOTIFIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Configuration("unmarshal config", err)
	}

	if key := os.Getenv("UPLOAD_NOTIFIER_AWS_SECRET_ACCESS_KEY"); key != "" {
		cfg.AWS.SecretAccessKey = key
	}
	if password := os.Getenv("UPLOAD_NOTIFIER_DB_PASSWORD"); password != "" {
		cfg.Ledger.Postgres.Password = password
	}
	if password := os.Getenv("UPLOAD_NOTIFIER_REDIS_PASSWORD"); password != "" {
		cfg.Ledger.Redis.Password = password
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindEnv maps the short variable names understood by deployed functions.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("issuer.ttl_seconds", "UPLOAD_NOTIFIER_ISSUER_TTL_SECONDS", "TTL_SECONDS")
	_ = v.BindEnv("notification.target", "UPLOAD_NOTIFIER_NOTIFICATION_TARGET", "NOTIFICATION_TARGET")
	_ = v.BindEnv("ledger.table", "UPLOAD_NOTIFIER_LEDGER_TABLE", "LEDGER_TABLE")
	_ = v.BindEnv("aws.region", "UPLOAD_NOTIFIER_AWS_REGION", "AWS_REGION")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.use_path_style", false)

	v.SetDefault("issuer.verify_object", true)

	v.SetDefault("ledger.backend", LedgerDynamoDB)
	v.SetDefault("ledger.table", "upload-ledger")
	v.SetDefault("ledger.timezone", "UTC")
	v.SetDefault("ledger.redis.address", "localhost:6379")
	v.SetDefault("ledger.redis.db", 0)
	v.SetDefault("ledger.redis.key_prefix", "upload:record:")
	v.SetDefault("ledger.postgres.host", "localhost")
	v.SetDefault("ledger.postgres.port", 5432)
	v.SetDefault("ledger.postgres.user", "postgres")
	v.SetDefault("ledger.postgres.database", "uploads")
	v.SetDefault("ledger.postgres.ssl_mode", "disable")
	v.SetDefault("ledger.postgres.auto_migrate", false)

	v.SetDefault("notification.breaker.enabled", true)
	v.SetDefault("notification.breaker.failure_threshold", 5)
	v.SetDefault("notification.breaker.open_timeout", 30*time.Second)
	v.SetDefault("notification.breaker.half_open_requests", 1)

	v.SetDefault("source.mode", SourceLambda)
	v.SetDefault("source.sqs.queue_url", "")
	v.SetDefault("source.sqs.max_messages", 10)
	v.SetDefault("source.sqs.wait_time_seconds", 20)
	v.SetDefault("source.sqs.visibility_timeout", 60)
	v.SetDefault("source.sqs.concurrency", 4)

	v.SetDefault("ops.address", ":9090")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.otlp_endpoint", "localhost:4318")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.service_name", "upload-notifier")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the configuration once at startup.
func (c *Config) Validate() error {
	if c.Issuer.TTLSeconds <= 0 {
		return apperrors.Configuration(fmt.Sprintf("issuer.ttl_seconds must be positive, got %d", c.Issuer.TTLSeconds), nil)
	}
	if c.Issuer.TTLSeconds > MaxTTLSeconds {
		return apperrors.Configuration(fmt.Sprintf("issuer.ttl_seconds must not exceed %d, got %d", MaxTTLSeconds, c.Issuer.TTLSeconds), nil)
	}
	if strings.TrimSpace(c.Notification.Target) == "" {
		return apperrors.Configuration("notification.target is required", nil)
	}
	if c.AWS.Region == "" {
		return apperrors.Configuration("aws.region is required", nil)
	}
	if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
		return apperrors.Configuration("aws.access_key_id and aws.secret_access_key must be set together", nil)
	}

	switch c.Ledger.Backend {
	case LedgerDynamoDB, LedgerPostgres:
		if c.Ledger.Table == "" {
			return apperrors.Configuration("ledger.table is required", nil)
		}
	case LedgerRedis:
		if c.Ledger.Redis.Address == "" {
			return apperrors.Configuration("ledger.redis.address is required", nil)
		}
	default:
		return apperrors.Configuration(fmt.Sprintf("unknown ledger.backend %q", c.Ledger.Backend), nil)
	}
	if _, err := c.Ledger.Location(); err != nil {
		return apperrors.Configuration("ledger.timezone", err)
	}

	if c.Notification.Breaker.Enabled {
		if c.Notification.Breaker.FailureThreshold == 0 {
			return apperrors.Configuration("notification.breaker.failure_threshold must be positive", nil)
		}
		if c.Notification.Breaker.OpenTimeout <= 0 {
			return apperrors.Configuration("notification.breaker.open_timeout must be positive", nil)
		}
	}

	if c.Tracing.Enabled && (c.Tracing.SampleRate <= 0 || c.Tracing.SampleRate > 1) {
		return apperrors.Configuration("tracing.sample_rate must be in (0, 1]", nil)
	}

	switch c.Source.Mode {
	case SourceLambda:
	case SourceSQS:
		if c.Source.SQS.QueueURL == "" {
			return apperrors.Configuration("source.sqs.queue_url is required in sqs mode", nil)
		}
		if c.Source.SQS.MaxMessages < 1 || c.Source.SQS.MaxMessages > 10 {
			return apperrors.Configuration("source.sqs.max_messages must be between 1 and 10", nil)
		}
		if c.Source.SQS.Concurrency < 1 {
			return apperrors.Configuration("source.sqs.concurrency must be positive", nil)
		}
	default:
		return apperrors.Configuration(fmt.Sprintf("unknown source.mode %q", c.Source.Mode), nil)
	}

	return nil
}
