package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerRoutes(metrics http.Handler) {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(metrics))

	s.engine.GET("/datasources", s.handleListDataSources)

	features := s.engine.Group("/monitoringfeatures")
	{
		features.GET("", s.handleListMonitoringFeatures)
		features.GET("/:id", s.handleGetMonitoringFeature)
	}

	series := s.engine.Group("/measurement_tvp_timeseries")
	{
		series.GET("", s.handleListTimeseries)
		series.GET("/:id", s.handleGetTimeseries)
	}
}
