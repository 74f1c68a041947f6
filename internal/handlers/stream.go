package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

const sseHeartbeat = 15 * time.Second

// @Summary      Status push (SSE)
// @Description  Server-sent events: "status" on connect and on every change, "ping" as heartbeat
// @Tags         device
// @Produce      text/event-stream
// @Success      200  {object}  models.DeviceStatus
// @Router       /api/device/stream [get]
func (h *Handler) streamStatus(c *gin.Context) {
	ctx := c.Request.Context()
	updates := h.services.Status.Subscribe(ctx)

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent(wsTypeStatus, h.services.Devices.GetStatus())
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case st, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent(wsTypeStatus, st)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}
