package ops

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/uniedit/upload-notifier/internal/shared/middleware"
	"github.com/uniedit/upload-notifier/internal/shared/response"
)

// NewRouter returns the operational router serving health and metrics.
func NewRouter(gatherer prometheus.Gatherer, version string, logger *zap.Logger) *gin.Engine {
	if logger != nil && logger.Core().Enabled(zap.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "")
	})

	return r
}
