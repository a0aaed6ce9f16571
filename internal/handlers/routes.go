package handlers

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes подключает API под /api с auth и вебхуки шлюза без нее
func (h *Handlers) RegisterRoutes(router gin.IRouter, auth gin.HandlerFunc) {
	api := router.Group("/api")
	api.Use(auth)
	{
		reservations := api.Group("/reservations")
		{
			reservations.POST("", h.CreateReservation)
			reservations.GET("", h.ListReservations)
			reservations.GET("/:id", h.GetReservation)
			reservations.PATCH("/:id/cancel", h.CancelReservation)
			reservations.PATCH("/:id/reschedule", h.RescheduleReservation)
			reservations.PATCH("/:id/check-in", h.CheckIn)
			reservations.PATCH("/:id/check-out", h.CheckOut)
			reservations.POST("/:id/payment", h.InitiatePayment)
			reservations.GET("/:id/payment", h.GetPaymentStatus)
		}

		zones := api.Group("/zones")
		{
			zones.GET("", h.ListZones)
			zones.GET("/:id", h.GetZone)
			zones.GET("/:id/availability", h.GetZoneAvailability)
		}

		api.GET("/events/stream", h.StreamEvents)
	}

	payments := router.Group("/payments")
	{
		payments.GET("/success", h.NotifyPaymentCompleted)
		payments.GET("/fail", h.NotifyPaymentFailed)
		payments.POST("/notifications", h.OnPaymentUpdates)
	}
}
