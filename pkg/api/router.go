// Package api exposes the planner over HTTP
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Setup builds the gin engine with every route. A nil gatherer uses prometheus.DefaultGatherer.
func Setup(h *Handler, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Logger(logger))

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		weeks := api.Group("/weeks")
		weeks.POST("/generate", h.GenerateWeek)
		weeks.GET("/:date/assignments", h.GetWeekAssignments)
		weeks.GET("/:date/export", h.ExportWeek)

		api.POST("/assignments/swap", h.SwapAssignment)
	}

	return r
}
