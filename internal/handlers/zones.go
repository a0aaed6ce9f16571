package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Zones handlers

// ListZones - GET /api/zones
// Получить список зон, ?query= ищет по названию и адресу
func (h *Handlers) ListZones(c *gin.Context) {
	response, err := h.services.Zones.List(c.Request.Context(), c.Query("query"))
	if err != nil {
		handleServiceError(c, err, "Failed to list zones")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetZone - GET /api/zones/:id
// Зона с сеткой мест
func (h *Handlers) GetZone(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	response, err := h.services.Zones.Details(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err, "Failed to get zone")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetZoneAvailability - GET /api/zones/:id/availability
// Счетчик свободных мест и состояние каждого места
func (h *Handlers) GetZoneAvailability(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	response, err := h.services.Availability.ZoneAvailability(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err, "Failed to get zone availability")
		return
	}

	c.JSON(http.StatusOK, response)
}
