package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hpdav/cityflow-backend-go/internal/service"
	"github.com/hpdav/cityflow-backend-go/pkg/response"
)

// SystemHandler serves health and cache status.
type SystemHandler struct {
	status *service.StatusService
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(status *service.StatusService) *SystemHandler {
	return &SystemHandler{status: status}
}

// Health handles GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	if err := h.status.Ping(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetCache handles GET /api/cache
func (h *SystemHandler) GetCache(c *gin.Context) {
	entries := h.status.CacheEntries()
	total := 0
	for _, n := range entries {
		total += n
	}
	response.Success(c, gin.H{"entries": entries, "total": total})
}
