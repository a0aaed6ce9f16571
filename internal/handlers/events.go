package handlers

import (
	"net/http"
	"strconv"
	"time"

	"parking/internal/logger"
	"parking/internal/notifier"

	"github.com/gin-gonic/gin"
)

// StreamEvents - GET /api/events/stream
// Server-sent events об изменениях мест, ?zone_id= оставляет одну зону
func (h *Handlers) StreamEvents(c *gin.Context) {
	if h.broker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream is disabled"})
		return
	}

	var zoneID int64
	if raw := c.Query("zone_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid zone_id"})
			return
		}
		zoneID = id
	}

	sub := h.broker.Subscribe(zoneID, notifier.DefaultSubscriberBuffer)
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	log := logger.WithContext(c.Request.Context()).With("zone_id", zoneID)
	log.Debug("Event stream opened")
	defer log.Debug("Event stream closed")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	done := c.Request.Context().Done()
	for {
		select {
		case <-done:
			return
		case e, ok := <-sub.C:
			if !ok {
				// Брокер закрыт при остановке сервера
				return
			}
			c.SSEvent(e.Type, e)
			c.Writer.Flush()
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"time": time.Now().UTC()})
			c.Writer.Flush()
		}
	}
}
