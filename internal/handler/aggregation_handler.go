package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/hpdav/cityflow-backend-go/internal/service"
	"github.com/hpdav/cityflow-backend-go/pkg/response"
)

// AggregationHandler handles HTTP requests for the aggregation endpoints
type AggregationHandler struct {
	services *service.Services
}

// NewAggregationHandler creates a new aggregation handler
func NewAggregationHandler(services *service.Services) *AggregationHandler {
	return &AggregationHandler{services: services}
}

// bind decodes the query string into q. Malformed values are invalid
// parameters.
func bind(c *gin.Context, q interface{}) bool {
	if err := c.ShouldBindQuery(q); err != nil {
		response.FromError(c, models.InvalidParameter("query", "%v", err))
		return false
	}
	return true
}

func reply[T any](c *gin.Context, v T, err error) {
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, v)
}

// GetAreaCharacteristics handles GET /api/area-characteristics
func (h *AggregationHandler) GetAreaCharacteristics(c *gin.Context) {
	var q models.AreaQuery
	if !bind(c, &q) {
		return
	}
	res, err := h.services.Area.Get(c.Request.Context(), q)
	reply(c, res, err)
}

// GetTrafficPatterns handles GET /api/traffic-patterns
func (h *AggregationHandler) GetTrafficPatterns(c *gin.Context) {
	var q models.TrafficQuery
	if !bind(c, &q) {
		return
	}
	res, err := h.services.Traffic.Get(c.Request.Context(), q)
	reply(c, res, err)
}

// GetFlowMap handles GET /api/flow-map
func (h *AggregationHandler) GetFlowMap(c *gin.Context) {
	var q models.FlowQuery
	if !bind(c, &q) {
		return
	}
	res, err := h.services.Flow.Get(c.Request.Context(), q)
	reply(c, res, err)
}

// GetTemporalPatterns handles GET /api/temporal-patterns
func (h *AggregationHandler) GetTemporalPatterns(c *gin.Context) {
	var q models.TemporalQuery
	if !bind(c, &q) {
		return
	}
	res, err := h.services.Temporal.Get(c.Request.Context(), q)
	reply(c, res, err)
}

// GetThemeRiver handles GET /api/theme-river
func (h *AggregationHandler) GetThemeRiver(c *gin.Context) {
	var q models.ThemeRiverQuery
	if !bind(c, &q) {
		return
	}
	res, err := h.services.ThemeRiver.Get(c.Request.Context(), q)
	reply(c, res, err)
}

// GetParticipantRoutines handles GET /api/participant-routines
func (h *AggregationHandler) GetParticipantRoutines(c *gin.Context) {
	var q models.RoutineQuery
	if !bind(c, &q) {
		return
	}
	res, err := h.services.Routines.Get(c.Request.Context(), q)
	reply(c, res, err)
}

// GetParallelCoordinates handles GET /api/parallel-coordinates
func (h *AggregationHandler) GetParallelCoordinates(c *gin.Context) {
	var q models.ParallelQuery
	if !bind(c, &q) {
		return
	}
	res, err := h.services.Parallel.Get(c.Request.Context(), q)
	reply(c, res, err)
}

// GetVenues handles GET /api/venues
func (h *AggregationHandler) GetVenues(c *gin.Context) {
	res, err := h.services.Venues.Get(c.Request.Context())
	reply(c, res, err)
}
