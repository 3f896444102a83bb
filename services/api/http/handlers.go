package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/02loveslollipop/shizuku-synthesis/services/api/synthesis"
)

const (
	listTimeout     = 30 * time.Second
	retrieveTimeout = 15 * time.Second
)

// GET /datasources
func (s *Server) handleListDataSources(c *gin.Context) {
	sources := s.registry.DataSources()
	c.JSON(http.StatusOK, gin.H{
		"data": sources,
		"meta": gin.H{
			"count": len(sources),
		},
	})
}

// GET /monitoringfeatures
func (s *Server) handleListMonitoringFeatures(c *gin.Context) {
	var params featureParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.list(c, s.features, params.query())
}

// GET /monitoringfeatures/:id
func (s *Server) handleGetMonitoringFeature(c *gin.Context) {
	s.retrieve(c, s.features)
}

// GET /measurement_tvp_timeseries
func (s *Server) handleListTimeseries(c *gin.Context) {
	var params timeseriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.list(c, s.series, params.query())
}

// GET /measurement_tvp_timeseries/:id
func (s *Server) handleGetTimeseries(c *gin.Context) {
	s.retrieve(c, s.series)
}

// list drains the merged stream before rendering, so every message the
// plugins emit is part of the body.
func (s *Server) list(c *gin.Context, access *synthesis.ModelAccess, q synthesis.Query) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), listTimeout)
	defer cancel()

	started := time.Now()
	resp := access.List(q)
	data := resp.Stream.Collect(ctx)
	resp.Stream.Close()

	messages := resp.Messages()
	s.metrics.observe(access.Entity(), "list", time.Since(started).Seconds(), len(data), messages)
	s.logger.Debug("synthesis list",
		zap.String("response_id", resp.ID.String()),
		zap.String("entity", string(access.Entity())),
		zap.Int("count", len(data)),
		zap.Int("messages", len(messages)))

	c.JSON(http.StatusOK, body(resp, data, messages))
}

func (s *Server) retrieve(c *gin.Context, access *synthesis.ModelAccess) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), retrieveTimeout)
	defer cancel()

	started := time.Now()
	resp := access.Retrieve(ctx, &synthesis.QueryByID{ID: id})
	messages := resp.Messages()

	count := 0
	status := http.StatusNotFound
	if resp.Data != nil {
		count, status = 1, http.StatusOK
	}
	s.metrics.observe(access.Entity(), "retrieve", time.Since(started).Seconds(), count, messages)

	c.JSON(status, body(resp, resp.Data, messages))
}

func body(resp *synthesis.Response, data any, messages []synthesis.Message) gin.H {
	return gin.H{
		"id":       resp.ID.String(),
		"query":    resp.Query,
		"data":     data,
		"messages": messages,
	}
}
