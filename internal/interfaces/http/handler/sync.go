package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/infrastructure/netcheck"
	"github.com/storefront/backend/internal/infrastructure/syncqueue"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// SyncHandler exposes the sync queue and connectivity state
type SyncHandler struct {
	BaseHandler
	queue    *syncqueue.Queue
	detector *netcheck.Detector
}

// NewSyncHandler creates a sync handler
func NewSyncHandler(queue *syncqueue.Queue, detector *netcheck.Detector) *SyncHandler {
	return &SyncHandler{queue: queue, detector: detector}
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.GET("/status", h.Status)
		sync.GET("/queue", h.ListQueue)
		sync.POST("/queue/drain", h.Drain)
		sync.DELETE("/queue/done", h.ClearDone)
		sync.DELETE("/queue/:id", h.Cancel)
	}
}

// Status reports connectivity and queue depth
func (h *SyncHandler) Status(c *gin.Context) {
	h.Success(c, dto.SyncStatusResponse{
		Online:  h.detector.IsOnline(),
		Slow:    h.detector.IsSlowConnection(),
		Pending: h.queue.PendingCount(),
	})
}

// ListQueue returns every queued item
func (h *SyncHandler) ListQueue(c *gin.Context) {
	items := h.queue.Items()
	out := make([]dto.SyncItemResponse, len(items))
	for i, item := range items {
		out[i] = dto.NewSyncItemResponse(item)
	}
	h.Success(c, out)
}

// Drain replays every pending item now
func (h *SyncHandler) Drain(c *gin.Context) {
	h.queue.DrainAll(c.Request.Context())
	h.NoContent(c)
}

// ClearDone removes completed items immediately
func (h *SyncHandler) ClearDone(c *gin.Context) {
	if err := h.queue.ClearDone(c.Request.Context()); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// Cancel removes one item from the queue whatever its status
func (h *SyncHandler) Cancel(c *gin.Context) {
	if err := h.queue.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}
