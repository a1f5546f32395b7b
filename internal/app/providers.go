package app

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/uniedit/upload-notifier/internal/adapter/inbound/http/ops"
	"github.com/uniedit/upload-notifier/internal/adapter/inbound/lambda"
	"github.com/uniedit/upload-notifier/internal/adapter/inbound/sqs"
	"github.com/uniedit/upload-notifier/internal/adapter/outbound/breaker"
	"github.com/uniedit/upload-notifier/internal/adapter/outbound/dynamodb"
	"github.com/uniedit/upload-notifier/internal/adapter/outbound/postgres"
	redisadapter "github.com/uniedit/upload-notifier/internal/adapter/outbound/redis"
	"github.com/uniedit/upload-notifier/internal/adapter/outbound/s3"
	"github.com/uniedit/upload-notifier/internal/adapter/outbound/sns"
	cmdupload "github.com/uniedit/upload-notifier/internal/app/command/upload"
	"github.com/uniedit/upload-notifier/internal/port/outbound"
	"github.com/uniedit/upload-notifier/internal/shared/cache"
	"github.com/uniedit/upload-notifier/internal/shared/config"
	"github.com/uniedit/upload-notifier/internal/shared/database"
	"github.com/uniedit/upload-notifier/internal/shared/logger"
	"github.com/uniedit/upload-notifier/internal/shared/metrics"
	"github.com/uniedit/upload-notifier/internal/shared/tracing"
)

// Version is set at build time.
var Version = "dev"

// ===== Infrastructure Providers =====

// InfraSet provides process-wide infrastructure.
var InfraSet = wire.NewSet(
	ProvideLogger,
	ProvideRegistry,
	wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
	wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
	ProvideMetrics,
	ProvideTracing,
	ProvideAWSConfig,
	ProvideLocation,
)

// ProvideLogger creates the process logger.
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	log, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, nil, err
	}
	return log, func() { _ = log.Sync() }, nil
}

// ProvideRegistry creates the metrics registry with runtime collectors.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates pipeline metrics.
func ProvideMetrics(reg prometheus.Registerer) *metrics.Metrics {
	return metrics.New("upload_notifier", reg)
}

// ProvideTracing installs the tracer provider.
func ProvideTracing(ctx context.Context, cfg *config.Config, log *zap.Logger) (*tracing.Provider, func(), error) {
	tp, err := tracing.Setup(ctx, &cfg.Tracing, Version)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideAWSConfig loads the shared SDK configuration.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return LoadAWSConfig(ctx, &cfg.AWS)
}

// ProvideLocation resolves the ledger timestamp zone.
func ProvideLocation(cfg *config.Config) (*time.Location, error) {
	return cfg.Ledger.Location()
}

// ===== Outbound Adapter Providers =====

// OutboundSet provides the pipeline collaborators.
var OutboundSet = wire.NewSet(
	ProvideURLIssuer,
	ProvideRecordStore,
	ProvidePublisher,
)

// ProvideURLIssuer creates the signed URL issuer.
func ProvideURLIssuer(awsCfg aws.Config, cfg *config.Config) outbound.URLIssuerPort {
	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.UsePathStyle = cfg.AWS.UsePathStyle
	})
	return s3.NewURLIssuerAdapter(client, cfg.Issuer.VerifyObject)
}

// ProvideRecordStore creates the ledger for the configured backend.
func ProvideRecordStore(ctx context.Context, cfg *config.Config, awsCfg aws.Config, log *zap.Logger) (outbound.UploadRecordPort, func(), error) {
	ledger := cfg.Ledger

	switch ledger.Backend {
	case config.LedgerRedis:
		client, err := cache.NewRedisClient(ctx, &ledger.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connect ledger: %w", err)
		}
		cleanup := func() {
			if err := cache.Close(client); err != nil {
				log.Warn("close redis failed", zap.Error(err))
			}
		}
		return redisadapter.NewUploadRecordAdapter(client, ledger.Redis.KeyPrefix), cleanup, nil

	case config.LedgerPostgres:
		db, err := database.New(ctx, &ledger.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connect ledger: %w", err)
		}
		cleanup := func() {
			if err := database.Close(db); err != nil {
				log.Warn("close database failed", zap.Error(err))
			}
		}
		store := postgres.NewUploadRecordAdapter(db, ledger.Table)
		if ledger.Postgres.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("migrate ledger: %w", err)
			}
		}
		return store, cleanup, nil

	default:
		client := awsdynamodb.NewFromConfig(awsCfg)
		return dynamodb.NewUploadRecordAdapter(client, ledger.Table), func() {}, nil
	}
}

// ProvidePublisher creates the notification publisher, guarded by a circuit
// breaker when enabled.
func ProvidePublisher(awsCfg aws.Config, cfg *config.Config, log *zap.Logger, m *metrics.Metrics) outbound.NotificationPublisherPort {
	var publisher outbound.NotificationPublisherPort = sns.NewPublisherAdapter(
		awssns.NewFromConfig(awsCfg),
		cfg.Notification.Target,
	)

	b := cfg.Notification.Breaker
	if !b.Enabled {
		return publisher
	}
	return breaker.NewPublisher(publisher, breaker.Config{
		Name:             "sns",
		FailureThreshold: b.FailureThreshold,
		OpenTimeout:      b.OpenTimeout,
		HalfOpenRequests: b.HalfOpenRequests,
	}, m.SetBreakerState, log)
}

// ===== Application Providers =====

// AppSet provides the pipeline and its entry points.
var AppSet = wire.NewSet(
	ProvideProcessUploadHandler,
	ProvideLambdaHandler,
	ProvideSQSReceiver,
	ProvideOpsRouter,
	wire.Struct(new(App), "*"),
)

// ProvideProcessUploadHandler creates the upload pipeline.
func ProvideProcessUploadHandler(
	issuer outbound.URLIssuerPort,
	store outbound.UploadRecordPort,
	publisher outbound.NotificationPublisherPort,
	cfg *config.Config,
	loc *time.Location,
	log *zap.Logger,
	m *metrics.Metrics,
) *cmdupload.ProcessUploadHandler {
	return cmdupload.NewProcessUploadHandler(issuer, store, publisher, cfg.Issuer.TTL(), loc, log, m)
}

// ProvideLambdaHandler creates the function entry point.
func ProvideLambdaHandler(h *cmdupload.ProcessUploadHandler, log *zap.Logger, m *metrics.Metrics) *lambda.Handler {
	return lambda.NewHandler(h, log, m)
}

// ProvideSQSReceiver creates the queue receiver. It is nil outside sqs mode.
func ProvideSQSReceiver(awsCfg aws.Config, cfg *config.Config, h *cmdupload.ProcessUploadHandler, log *zap.Logger, m *metrics.Metrics) *sqs.Receiver {
	if cfg.Source.Mode != config.SourceSQS {
		return nil
	}
	q := cfg.Source.SQS
	return sqs.NewReceiver(awssqs.NewFromConfig(awsCfg), h, sqs.Config{
		QueueURL:          q.QueueURL,
		MaxMessages:       q.MaxMessages,
		WaitTimeSeconds:   q.WaitTimeSeconds,
		VisibilityTimeout: q.VisibilityTimeout,
		Concurrency:       q.Concurrency,
	}, log, m)
}

// ProvideOpsRouter creates the health and metrics router.
func ProvideOpsRouter(gatherer prometheus.Gatherer, log *zap.Logger) *gin.Engine {
	return ops.NewRouter(gatherer, Version, log)
}
