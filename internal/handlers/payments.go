package handlers

import (
	"net/http"

	"parking/internal/logger"
	"parking/internal/models"

	"github.com/gin-gonic/gin"
)

// Payments handlers

// InitiatePayment - POST /api/reservations/:id/payment
// Создать платеж в шлюзе и вернуть ссылку на оплату
func (h *Handlers) InitiatePayment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	response, err := h.services.Payments.Initiate(c.Request.Context(), userID, id)
	if err != nil {
		handleServiceError(c, err, "Failed to initiate payment")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetPaymentStatus - GET /api/reservations/:id/payment
func (h *Handlers) GetPaymentStatus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	response, err := h.services.Payments.Status(c.Request.Context(), userID, id)
	if err != nil {
		handleServiceError(c, err, "Failed to get payment status")
		return
	}

	c.JSON(http.StatusOK, response)
}

// NotifyPaymentCompleted - GET /payments/success
// Редирект шлюза после успешной оплаты
func (h *Handlers) NotifyPaymentCompleted(c *gin.Context) {
	h.paymentRedirect(c, "Payment completed for order")
}

// NotifyPaymentFailed - GET /payments/fail
// Редирект шлюза после неуспешной оплаты
func (h *Handlers) NotifyPaymentFailed(c *gin.Context) {
	h.paymentRedirect(c, "Payment failed for order")
}

// paymentRedirect только сообщает состояние: подтверждение приходит вебхуком
func (h *Handlers) paymentRedirect(c *gin.Context, msg string) {
	orderID := c.Query("orderId")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId is required"})
		return
	}

	logger.WithContext(c.Request.Context()).Info(msg, "order_id", orderID)

	response, err := h.services.Payments.StatusByReference(c.Request.Context(), orderID)
	if err != nil {
		handleServiceError(c, err, "Failed to get payment status")
		return
	}

	c.JSON(http.StatusOK, response)
}

// OnPaymentUpdates - POST /payments/notifications
// Принимать уведомления от платежного шлюза
func (h *Handlers) OnPaymentUpdates(c *gin.Context) {
	var notification models.PaymentNotificationPayload
	if err := c.ShouldBindJSON(&notification); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Payments.HandleNotification(c.Request.Context(), &notification); err != nil {
		handleServiceError(c, err, "Failed to handle notification")
		return
	}

	// Шлюзу достаточно 200 без тела ответа
	c.Status(http.StatusOK)
}
