package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uniedit/upload-notifier/internal/adapter/inbound/lambda"
	"github.com/uniedit/upload-notifier/internal/adapter/inbound/sqs"
	cmdupload "github.com/uniedit/upload-notifier/internal/app/command/upload"
	"github.com/uniedit/upload-notifier/internal/shared/config"
	"github.com/uniedit/upload-notifier/internal/shared/metrics"
	"github.com/uniedit/upload-notifier/internal/shared/tracing"
)

const shutdownTimeout = 30 * time.Second

// App holds the wired application.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Tracing   *tracing.Provider
	Processor *cmdupload.ProcessUploadHandler
	Lambda    *lambda.Handler
	Receiver  *sqs.Receiver
	OpsRouter *gin.Engine
}

// RunReceiver polls the queue and serves the ops endpoint until ctx is
// cancelled, then drains in-flight messages.
func (a *App) RunReceiver(ctx context.Context) error {
	if a.Receiver == nil {
		return errors.New("sqs receiver is not configured")
	}

	srv := &http.Server{
		Addr:              a.Config.Ops.Address,
		Handler:           a.OpsRouter,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("starting ops server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	a.Receiver.Start(gctx)

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return errors.Join(
			a.Receiver.Shutdown(shutdownCtx),
			srv.Shutdown(shutdownCtx),
		)
	})

	return g.Wait()
}
