package handlers

import (
	"net/http"

	"example.com/warehouse/internal/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsHandler exposes the in-process metrics snapshot
type MetricsHandler struct {
	metrics *metrics.Metrics
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(m *metrics.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: m}
}

// GetMetrics returns all collected metrics
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.GetAllMetrics())
}

// RegisterRoutes registers the metrics routes
func (h *MetricsHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/metrics", h.GetMetrics)
}
