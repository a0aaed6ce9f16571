package handlers

import (
	"context"
	"net/http"

	"parking/internal/models"
	"parking/internal/service"

	"github.com/gin-gonic/gin"
)

// Reservations handlers

// CreateReservation - POST /api/reservations
// Удержать место на окно времени
func (h *Handlers) CreateReservation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.services.Holds.CreateHold(c.Request.Context(), service.HoldRequest{
		UserID:    userID,
		VehicleID: req.VehicleID,
		SlotID:    req.SlotID,
		Window:    models.Window{Start: req.StartTime, End: req.EndTime},
		Kind:      req.BookingKind,
	})
	if err != nil {
		handleServiceError(c, err, "Failed to create reservation")
		return
	}

	c.JSON(http.StatusCreated, models.CreateHoldResponse{
		ReservationID: res.ID,
		Status:        res.Status,
		ExpiresAt:     res.ExpiresAt,
		Reference:     res.Reference,
		Price:         res.Price,
		Window:        res.Window,
	})
}

// ListReservations - GET /api/reservations
// Получить брони пользователя
func (h *Handlers) ListReservations(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.services.Holds.List(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err, "Failed to list reservations")
		return
	}
	if list == nil {
		list = []models.Reservation{}
	}

	c.JSON(http.StatusOK, models.ListReservationsResponse(list))
}

// GetReservation - GET /api/reservations/:id
func (h *Handlers) GetReservation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	res, err := h.services.Holds.Get(c.Request.Context(), userID, id)
	if err != nil {
		handleServiceError(c, err, "Failed to get reservation")
		return
	}

	c.JSON(http.StatusOK, res)
}

// CancelReservation - PATCH /api/reservations/:id/cancel
// Отменить бронь, при поздней отмене удерживается штраф
func (h *Handlers) CancelReservation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	res, err := h.services.Holds.Cancel(c.Request.Context(), userID, id)
	if err != nil {
		handleServiceError(c, err, "Failed to cancel reservation")
		return
	}

	c.JSON(http.StatusOK, models.CancelReservationResponse{
		Status:          res.Status,
		CancellationFee: res.CancellationFee,
	})
}

// RescheduleReservation - PATCH /api/reservations/:id/reschedule
// Перенести бронь на другое окно
func (h *Handlers) RescheduleReservation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.services.Holds.Reschedule(c.Request.Context(), userID, id,
		models.Window{Start: req.StartTime, End: req.EndTime})
	if err != nil {
		handleServiceError(c, err, "Failed to reschedule reservation")
		return
	}

	c.JSON(http.StatusOK, res)
}

// CheckIn - PATCH /api/reservations/:id/check-in
func (h *Handlers) CheckIn(c *gin.Context) {
	h.step(c, h.services.Holds.CheckIn, "Failed to check in")
}

// CheckOut - PATCH /api/reservations/:id/check-out
func (h *Handlers) CheckOut(c *gin.Context) {
	h.step(c, h.services.Holds.CheckOut, "Failed to check out")
}

// step проверяет владельца до перехода: въезд и выезд доступны только ему
func (h *Handlers) step(c *gin.Context, fn func(ctx context.Context, id int64) (*models.Reservation, error), msg string) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.services.Holds.Get(ctx, userID, id); err != nil {
		handleServiceError(c, err, msg)
		return
	}

	res, err := fn(ctx, id)
	if err != nil {
		handleServiceError(c, err, msg)
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{ReservationID: res.ID, Status: res.Status})
}
