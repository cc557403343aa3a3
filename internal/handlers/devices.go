package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/homefleet/inventoryd/internal/models"
	"github.com/homefleet/inventoryd/internal/store"
	svcerrors "github.com/homefleet/inventoryd/pkg/errors"
)

const (
	defaultPageSize   = 20
	maxPageSize       = 100
	defaultHistoryLen = 50
	maxBatchSize      = 500
)

// GetDevices returns the device inventory with filtering and pagination
// (GET /devices)
func (h *Handler) GetDevices(c *gin.Context) {
	// Parse pagination
	page := 1
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && v > 0 {
		page = v
	}
	pageSize := defaultPageSize
	if v, err := strconv.Atoi(c.DefaultQuery("pageSize", "0")); err == nil && v > 0 {
		pageSize = v
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
	}

	opts := []store.ListOption{
		store.WithLimit(uint64(pageSize)),
		store.WithOffset(uint64((page - 1) * pageSize)),
	}
	if status := c.Query("status"); status != "" {
		opts = append(opts, store.ByStatus(models.DeviceStatus(status)))
	}
	if hostname := c.Query("hostname"); hostname != "" {
		opts = append(opts, store.ByHostname(hostname))
	}
	if segment := c.Query("segment"); segment != "" {
		opts = append(opts, store.BySegment(segment))
	}

	devices, err := h.inventorySrv.ListDevices(c.Request.Context(), opts...)
	if err != nil {
		zap.S().Named("device_handler").Errorw("failed to list devices", "error", err)
		c.JSON(httpStatusFor(err), gin.H{"error": "failed to list devices"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"page":     page,
		"pageSize": pageSize,
		"count":    len(devices),
		"devices":  devices,
	})
}

// GetDeviceHistory returns the discovery history of a device, most recent
// first (GET /devices/{id}/history)
func (h *Handler) GetDeviceHistory(c *gin.Context) {
	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid device id"})
		return
	}

	limit := defaultHistoryLen
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "0")); err == nil && v > 0 {
		limit = v
	}

	events, err := h.inventorySrv.GetHistory(c.Request.Context(), deviceID, limit)
	if err != nil {
		zap.S().Named("device_handler").Errorw("failed to get history",
			"device_id", deviceID, "error", err)
		c.JSON(httpStatusFor(err), gin.H{"error": "failed to get device history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"device_id": deviceID,
		"count":     len(events),
		"events":    events,
	})
}

// PostDiscoveries ingests a batch of raw discovery documents and returns
// one result per document, in input order (POST /discoveries)
func (h *Handler) PostDiscoveries(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	var docs []json.RawMessage
	if err := json.Unmarshal(body, &docs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON array of discovery documents"})
		return
	}
	if len(docs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty discovery batch"})
		return
	}
	if len(docs) > maxBatchSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "discovery batch exceeds maximum size"})
		return
	}

	payloads := make([][]byte, len(docs))
	for i, doc := range docs {
		payloads[i] = doc
	}

	results := h.inventorySrv.BulkUpsert(c.Request.Context(), payloads)

	failed := 0
	for i := range results {
		if results[i].Failed() {
			failed++
		}
	}

	status := http.StatusOK
	if failed > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{
		"count":   len(results),
		"failed":  failed,
		"results": results,
	})
}

// DecommissionDevice marks a device as retired. A decommissioned device
// keeps its record and history but no longer counts as part of the active
// fleet (POST /devices/{id}/decommission)
func (h *Handler) DecommissionDevice(c *gin.Context) {
	h.setStatus(c, h.inventorySrv.Decommission)
}

// ReactivateDevice returns a decommissioned device to the active fleet
// (POST /devices/{id}/reactivate)
func (h *Handler) ReactivateDevice(c *gin.Context) {
	h.setStatus(c, h.inventorySrv.Reactivate)
}

func (h *Handler) setStatus(c *gin.Context, change func(ctx context.Context, id uuid.UUID) error) {
	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid device id"})
		return
	}

	if err := change(c.Request.Context(), deviceID); err != nil {
		zap.S().Named("device_handler").Errorw("failed to change device status",
			"device_id", deviceID, "error", err)
		c.JSON(httpStatusFor(err), gin.H{"error": "failed to change device status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"device_id": deviceID})
}

func httpStatusFor(err error) int {
	switch {
	case svcerrors.IsDeviceNotFoundError(err):
		return http.StatusNotFound
	case svcerrors.IsStorageUnavailableError(err):
		return http.StatusServiceUnavailable
	case svcerrors.IsConstraintViolationError(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
