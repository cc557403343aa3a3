package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/homefleet/inventoryd/internal/analytics"
)

// GetTopology returns the fleet-wide topology summary
// (GET /topology)
func (h *Handler) GetTopology(c *gin.Context) {
	devices, err := h.inventorySrv.ListDevices(c.Request.Context())
	if err != nil {
		zap.S().Named("analytics_handler").Errorw("failed to list devices", "error", err)
		c.JSON(httpStatusFor(err), gin.H{"error": "failed to compute topology"})
		return
	}

	c.JSON(http.StatusOK, analytics.Analyze(devices))
}

// GetRecommendations returns deployment placement suggestions
// (GET /recommendations)
func (h *Handler) GetRecommendations(c *gin.Context) {
	devices, err := h.inventorySrv.ListDevices(c.Request.Context())
	if err != nil {
		zap.S().Named("analytics_handler").Errorw("failed to list devices", "error", err)
		c.JSON(httpStatusFor(err), gin.H{"error": "failed to compute recommendations"})
		return
	}

	c.JSON(http.StatusOK, analytics.Suggest(devices))
}
