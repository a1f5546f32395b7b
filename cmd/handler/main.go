package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/uniedit/upload-notifier/internal/app"
	"github.com/uniedit/upload-notifier/internal/shared/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, cleanup, err := app.InitializeApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer cleanup()

	logger := application.Logger.With(zap.String("version", app.Version))

	switch cfg.Source.Mode {
	case config.SourceSQS:
		logger.Info("starting queue receiver", zap.String("queue_url", cfg.Source.SQS.QueueURL))
		if err := application.RunReceiver(ctx); err != nil {
			logger.Error("receiver exited", zap.Error(err))
			cleanup()
			os.Exit(1)
		}
		logger.Info("receiver exited")
	default:
		logger.Info("starting function handler")
		awslambda.StartWithOptions(application.Lambda.Handle,
			awslambda.WithContext(ctx),
			awslambda.WithEnableSIGTERM(cleanup),
		)
	}
}
